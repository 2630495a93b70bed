package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/atc-endorsement-api/internal/models"
	"github.com/noah-isme/atc-endorsement-api/pkg/config"
	appErrors "github.com/noah-isme/atc-endorsement-api/pkg/errors"
)

// SyncLeaseName keys the activity sync task lease.
const SyncLeaseName = "sync-activities"

// ActivitySource fetches current activity minutes from the external
// activity API.
type ActivitySource interface {
	FetchActivityMinutes(ctx context.Context, controllerID, position string, windowStart, windowEnd time.Time) (int, error)
}

type syncEndorsementRepository interface {
	ListDueForSync(ctx context.Context, limit int) ([]models.Endorsement, error)
	UpdateActivity(ctx context.Context, id string, minutes int, syncedAt time.Time, activeAt *time.Time) error
	TransitionState(ctx context.Context, id string, from, to models.EndorsementState, warnedAt, removedAt *time.Time) (bool, error)
}

type auditRecorder interface {
	Record(ctx context.Context, p RecordParams) error
}

// SyncReport summarises one sync tick.
type SyncReport struct {
	Skipped       bool `json:"skipped"`
	Selected      int  `json:"selected"`
	Synced        int  `json:"synced"`
	FetchFailures int  `json:"fetch_failures"`
	Reactivated   int  `json:"reactivated"`
}

// ActivitySyncService refreshes endorsement activity figures from the
// external source, at most `limit` endorsements per tick. The limit is the
// backpressure valve protecting the external API; it is never exceeded.
type ActivitySyncService struct {
	repo         syncEndorsementRepository
	source       ActivitySource
	audit        auditRecorder
	locker       TaskLocker
	policy       config.PolicyConfig
	defaultLimit int
	leaseTTL     time.Duration
	fetchTimeout time.Duration
	logger       *zap.Logger

	now func() time.Time
}

// NewActivitySyncService constructs ActivitySyncService.
func NewActivitySyncService(repo syncEndorsementRepository, source ActivitySource, audit auditRecorder, locker TaskLocker, policy config.PolicyConfig, syncCfg config.SyncConfig, fetchTimeout time.Duration, logger *zap.Logger) *ActivitySyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if syncCfg.Limit <= 0 {
		syncCfg.Limit = 1
	}
	if syncCfg.LeaseTTL <= 0 {
		syncCfg.LeaseTTL = 5 * time.Minute
	}
	if fetchTimeout <= 0 {
		fetchTimeout = 10 * time.Second
	}
	return &ActivitySyncService{
		repo:         repo,
		source:       source,
		audit:        audit,
		locker:       locker,
		policy:       policy,
		defaultLimit: syncCfg.Limit,
		leaseTTL:     syncCfg.LeaseTTL,
		fetchTimeout: fetchTimeout,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// RunTick executes one sync tick. A tick whose lease is still held by a
// previous run is skipped entirely, not queued. Individual fetch failures
// leave the record untouched (so the endorsement stays first in line) and
// never fail the tick; storage failures abort it.
func (s *ActivitySyncService) RunTick(ctx context.Context, limit int) (*SyncReport, error) {
	held, err := s.locker.Acquire(ctx, SyncLeaseName, s.leaseTTL)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrLeaseBusy) {
			s.logger.Info("sync tick skipped, previous run still in flight")
			return &SyncReport{Skipped: true}, nil
		}
		return nil, err
	}
	defer held.Release(ctx)

	if limit <= 0 {
		limit = s.defaultLimit
	}

	due, err := s.repo.ListDueForSync(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to select endorsements for sync")
	}

	report := &SyncReport{Selected: len(due)}
	now := s.now()
	windowStart := now.AddDate(0, 0, -s.policy.ActivityLookbackDays)

	for i := range due {
		endorsement := &due[i]

		fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
		minutes, err := s.source.FetchActivityMinutes(fetchCtx, endorsement.ControllerID, endorsement.Position, windowStart, now)
		cancel()
		if err != nil {
			// Record untouched: last_synced_at does not advance, so this
			// endorsement remains first in line on the next tick.
			report.FetchFailures++
			s.logger.Warn("activity fetch failed",
				zap.String("endorsement_id", endorsement.ID),
				zap.String("controller_id", endorsement.ControllerID),
				zap.String("position", endorsement.Position),
				zap.Error(err))
			continue
		}

		var activeAt *time.Time
		if minutes > 0 {
			activeAt = &now
		}
		if err := s.repo.UpdateActivity(ctx, endorsement.ID, minutes, now, activeAt); err != nil {
			return report, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store activity figure")
		}
		report.Synced++

		if endorsement.State == models.EndorsementStateWarned && minutes >= s.policy.MinActivityMinutes {
			if err := s.reactivate(ctx, endorsement, minutes); err != nil {
				return report, err
			}
			report.Reactivated++
		}
	}

	return report, nil
}

func (s *ActivitySyncService) reactivate(ctx context.Context, endorsement *models.Endorsement, minutes int) error {
	ok, err := s.repo.TransitionState(ctx, endorsement.ID, models.EndorsementStateWarned, models.EndorsementStateActive, nil, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reactivate endorsement")
	}
	if !ok {
		// Concurrently moved out of WARNED; nothing to audit.
		return nil
	}

	old := snapshotEndorsement(endorsement)
	updated := *endorsement
	updated.State = models.EndorsementStateActive
	updated.LastWarnedAt = nil
	updated.ActivityMinutes = minutes

	if err := s.audit.Record(ctx, RecordParams{
		Actor:       models.System,
		Action:      models.AuditActionEndorsementReactivated,
		SubjectKind: models.SubjectEndorsement,
		SubjectID:   endorsement.ID,
		Old:         old,
		New:         snapshotEndorsement(&updated),
	}); err != nil {
		return err
	}

	s.logger.Info("endorsement reactivated",
		zap.String("endorsement_id", endorsement.ID),
		zap.Int("activity_minutes", minutes))
	return nil
}
