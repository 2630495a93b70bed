package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/atc-endorsement-api/internal/models"
	"github.com/noah-isme/atc-endorsement-api/pkg/config"
	appErrors "github.com/noah-isme/atc-endorsement-api/pkg/errors"
)

// RemovalLeaseName keys the removal evaluation task lease.
const RemovalLeaseName = "remove-endorsements"

// NotificationDispatcher delivers transition notifications. Dispatch is
// best-effort: failures are logged and never block a state change.
type NotificationDispatcher interface {
	Notify(ctx context.Context, endorsement models.Endorsement, transition models.EndorsementTransition) error
}

type removalEndorsementRepository interface {
	ListEvaluable(ctx context.Context, grantedBefore time.Time) ([]models.Endorsement, error)
	TransitionState(ctx context.Context, id string, from, to models.EndorsementState, warnedAt, removedAt *time.Time) (bool, error)
}

// RemovalReport summarises one evaluation pass.
type RemovalReport struct {
	Skipped   bool `json:"skipped"`
	Evaluated int  `json:"evaluated"`
	Warned    int  `json:"warned"`
	Removed   int  `json:"removed"`
	Errors    int  `json:"errors"`
}

// RemovalService drives endorsements through the warn/remove state machine
// once per scheduled pass. Re-running it on unchanged data is a no-op.
type RemovalService struct {
	repo     removalEndorsementRepository
	audit    auditRecorder
	notifier NotificationDispatcher
	locker   TaskLocker
	policy   config.PolicyConfig
	leaseTTL time.Duration
	logger   *zap.Logger

	now func() time.Time
}

// NewRemovalService constructs RemovalService. The notifier may be nil when
// no dispatcher is configured.
func NewRemovalService(repo removalEndorsementRepository, audit auditRecorder, notifier NotificationDispatcher, locker TaskLocker, policy config.PolicyConfig, leaseTTL time.Duration, logger *zap.Logger) *RemovalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if leaseTTL <= 0 {
		leaseTTL = time.Hour
	}
	return &RemovalService{
		repo:     repo,
		audit:    audit,
		notifier: notifier,
		locker:   locker,
		policy:   policy,
		leaseTTL: leaseTTL,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RunPass evaluates every ACTIVE or WARNED endorsement past the minimum
// grant age. Evaluation failures for one endorsement never abort the batch;
// selection failures (storage) do.
func (s *RemovalService) RunPass(ctx context.Context, notify bool) (*RemovalReport, error) {
	held, err := s.locker.Acquire(ctx, RemovalLeaseName, s.leaseTTL)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrLeaseBusy) {
			s.logger.Info("removal pass skipped, previous run still in flight")
			return &RemovalReport{Skipped: true}, nil
		}
		return nil, err
	}
	defer held.Release(ctx)

	now := s.now()
	ageCutoff := now.AddDate(0, 0, -s.policy.MinEndorsementAgeDays)

	eligible, err := s.repo.ListEvaluable(ctx, ageCutoff)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to select endorsements for evaluation")
	}

	report := &RemovalReport{}
	for i := range eligible {
		endorsement := &eligible[i]
		report.Evaluated++
		if err := s.evaluate(ctx, endorsement, now, notify, report); err != nil {
			report.Errors++
			s.logger.Error("endorsement evaluation failed",
				zap.String("endorsement_id", endorsement.ID),
				zap.Error(err))
		}
	}

	return report, nil
}

func (s *RemovalService) evaluate(ctx context.Context, endorsement *models.Endorsement, now time.Time, notify bool, report *RemovalReport) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("evaluate endorsement %s: panic: %v", endorsement.ID, r)
		}
	}()

	if endorsement.ActivityMinutes >= s.policy.MinActivityMinutes {
		// Sufficient activity. Reactivation of WARNED endorsements is the
		// activity sync's responsibility, not the evaluator's.
		return nil
	}

	switch endorsement.State {
	case models.EndorsementStateActive:
		return s.warn(ctx, endorsement, now, notify, report)
	case models.EndorsementStateWarned:
		if endorsement.LastWarnedAt == nil {
			return s.warn(ctx, endorsement, now, notify, report)
		}
		grace := time.Duration(s.policy.RemovalWarningDays) * 24 * time.Hour
		if now.Sub(*endorsement.LastWarnedAt) >= grace {
			return s.remove(ctx, endorsement, now, notify, report)
		}
		// Still inside the grace window: leave untouched, no duplicate warning.
		return nil
	default:
		return nil
	}
}

func (s *RemovalService) warn(ctx context.Context, endorsement *models.Endorsement, now time.Time, notify bool, report *RemovalReport) error {
	ok, err := s.repo.TransitionState(ctx, endorsement.ID, endorsement.State, models.EndorsementStateWarned, &now, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to warn endorsement")
	}
	if !ok {
		return nil
	}

	old := snapshotEndorsement(endorsement)
	updated := *endorsement
	updated.State = models.EndorsementStateWarned
	updated.LastWarnedAt = &now

	if err := s.audit.Record(ctx, RecordParams{
		Actor:       models.System,
		Action:      models.AuditActionEndorsementWarned,
		SubjectKind: models.SubjectEndorsement,
		SubjectID:   endorsement.ID,
		Old:         old,
		New:         snapshotEndorsement(&updated),
	}); err != nil {
		return err
	}

	report.Warned++
	s.logger.Info("endorsement warned",
		zap.String("endorsement_id", endorsement.ID),
		zap.Int("activity_minutes", endorsement.ActivityMinutes))

	if notify {
		s.dispatch(ctx, updated, models.TransitionWarned)
	}
	return nil
}

func (s *RemovalService) remove(ctx context.Context, endorsement *models.Endorsement, now time.Time, notify bool, report *RemovalReport) error {
	ok, err := s.repo.TransitionState(ctx, endorsement.ID, models.EndorsementStateWarned, models.EndorsementStateRemoved, endorsement.LastWarnedAt, &now)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove endorsement")
	}
	if !ok {
		return nil
	}

	old := snapshotEndorsement(endorsement)
	updated := *endorsement
	updated.State = models.EndorsementStateRemoved
	updated.RemovedAt = &now

	if err := s.audit.Record(ctx, RecordParams{
		Actor:       models.System,
		Action:      models.AuditActionEndorsementRemoved,
		SubjectKind: models.SubjectEndorsement,
		SubjectID:   endorsement.ID,
		Old:         old,
		New:         snapshotEndorsement(&updated),
	}); err != nil {
		return err
	}

	report.Removed++
	s.logger.Info("endorsement removed",
		zap.String("endorsement_id", endorsement.ID),
		zap.Int("activity_minutes", endorsement.ActivityMinutes))

	if notify {
		s.dispatch(ctx, updated, models.TransitionRemoved)
	}
	return nil
}

func (s *RemovalService) dispatch(ctx context.Context, endorsement models.Endorsement, transition models.EndorsementTransition) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, endorsement, transition); err != nil {
		// Best-effort only: the state change stands regardless.
		s.logger.Warn("notification dispatch failed",
			zap.String("endorsement_id", endorsement.ID),
			zap.String("transition", string(transition)),
			zap.Error(err))
	}
}
