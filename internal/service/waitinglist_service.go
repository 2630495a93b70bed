package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/atc-endorsement-api/internal/models"
	appErrors "github.com/noah-isme/atc-endorsement-api/pkg/errors"
)

type waitingListRepository interface {
	FindByID(ctx context.Context, id string) (*models.WaitingListEntry, error)
	ExistsOpen(ctx context.Context, traineeID, courseID string) (bool, error)
	Create(ctx context.Context, entry *models.WaitingListEntry) error
	Claim(ctx context.Context, id, actorID string) (bool, error)
	Release(ctx context.Context, id, actorID string) (bool, error)
	StartTraining(ctx context.Context, id, actorID string) (bool, error)
	MarkLeft(ctx context.Context, id string, leftAt time.Time) (bool, error)
	UpdateRemarks(ctx context.Context, id, remarks string) error
	List(ctx context.Context, filter models.WaitingListFilter) ([]models.WaitingListEntry, int, error)
}

// JoinRequest describes a trainee joining a course queue.
type JoinRequest struct {
	TraineeID string `json:"trainee_id" validate:"required"`
	CourseID  string `json:"course_id" validate:"required"`
	Remarks   string `json:"remarks"`
}

// RemarksRequest updates the free-text remarks on an entry.
type RemarksRequest struct {
	Remarks string `json:"remarks" validate:"max=1000"`
}

// WaitingListService governs the waiting-list claim state machine. Every
// transition emits exactly one audit entry carrying the acting identity and
// old/new snapshots; claim exclusivity rests on compare-and-set updates in
// the repository.
type WaitingListService struct {
	repo      waitingListRepository
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger

	now func() time.Time
}

// NewWaitingListService constructs WaitingListService.
func NewWaitingListService(repo waitingListRepository, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *WaitingListService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WaitingListService{
		repo:      repo,
		audit:     audit,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Join creates a WAITING entry for the trainee/course pair. A second open
// entry for the same pair is a Conflict.
func (s *WaitingListService) Join(ctx context.Context, actor models.Actor, req JoinRequest) (*models.WaitingListEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid join payload")
	}

	exists, err := s.repo.ExistsOpen(ctx, req.TraineeID, req.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate waiting-list entry")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "trainee already on waiting list for course")
	}

	entry := &models.WaitingListEntry{
		TraineeID: req.TraineeID,
		CourseID:  req.CourseID,
		State:     models.WaitingListStateWaiting,
		Remarks:   req.Remarks,
		JoinedAt:  s.now(),
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create waiting-list entry")
	}

	if err := s.audit.Record(ctx, RecordParams{
		Actor:       actor,
		Action:      models.AuditActionWaitingListCreated,
		SubjectKind: models.SubjectWaitingListEntry,
		SubjectID:   entry.ID,
		New:         snapshotWaitingList(entry),
	}); err != nil {
		return nil, err
	}
	return entry, nil
}

// Leave transitions any non-terminal entry to LEFT. Leaving an entry that
// already left is idempotent and emits no duplicate audit entry.
func (s *WaitingListService) Leave(ctx context.Context, actor models.Actor, id string) (*models.WaitingListEntry, error) {
	entry, err := s.findEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.Terminal() {
		return entry, nil
	}

	leftAt := s.now()
	ok, err := s.repo.MarkLeft(ctx, id, leftAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to leave waiting list")
	}
	if !ok {
		// Lost a race against another leave; same outcome either way.
		return s.findEntry(ctx, id)
	}

	old := snapshotWaitingList(entry)
	entry.State = models.WaitingListStateLeft
	entry.LeftAt = &leftAt

	if err := s.audit.Record(ctx, RecordParams{
		Actor:       actor,
		Action:      models.AuditActionWaitingListLeft,
		SubjectKind: models.SubjectWaitingListEntry,
		SubjectID:   entry.ID,
		Old:         old,
		New:         snapshotWaitingList(entry),
	}); err != nil {
		return nil, err
	}
	return entry, nil
}

// Claim assigns the entry exclusively to the actor. Concurrent claims on
// the same entry yield one winner; everyone else gets a Conflict.
func (s *WaitingListService) Claim(ctx context.Context, actor models.Actor, id string) (*models.WaitingListEntry, error) {
	entry, err := s.findEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.State != models.WaitingListStateWaiting {
		return nil, appErrors.Clone(appErrors.ErrConflict, "entry is not open for claims")
	}

	ok, err := s.repo.Claim(ctx, id, actor.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to claim waiting-list entry")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrConflict, "entry already claimed")
	}

	old := snapshotWaitingList(entry)
	claimant := actor.ID
	entry.State = models.WaitingListStateClaimed
	entry.ClaimantID = &claimant

	if err := s.audit.Record(ctx, RecordParams{
		Actor:       actor,
		Action:      models.AuditActionWaitingListClaimed,
		SubjectKind: models.SubjectWaitingListEntry,
		SubjectID:   entry.ID,
		Old:         old,
		New:         snapshotWaitingList(entry),
	}); err != nil {
		return nil, err
	}
	return entry, nil
}

// Release returns a claimed entry to WAITING. Only the current claimant may
// release.
func (s *WaitingListService) Release(ctx context.Context, actor models.Actor, id string) (*models.WaitingListEntry, error) {
	entry, err := s.findEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if !entry.ClaimedBy(actor.ID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the claimant may release the entry")
	}

	ok, err := s.repo.Release(ctx, id, actor.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release waiting-list entry")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrConflict, "entry is no longer claimed by actor")
	}

	old := snapshotWaitingList(entry)
	entry.State = models.WaitingListStateWaiting
	entry.ClaimantID = nil

	if err := s.audit.Record(ctx, RecordParams{
		Actor:       actor,
		Action:      models.AuditActionWaitingListReleased,
		SubjectKind: models.SubjectWaitingListEntry,
		SubjectID:   entry.ID,
		Old:         old,
		New:         snapshotWaitingList(entry),
	}); err != nil {
		return nil, err
	}
	return entry, nil
}

// StartTraining moves a CLAIMED entry to IN_TRAINING; only the claimant may
// start training.
func (s *WaitingListService) StartTraining(ctx context.Context, actor models.Actor, id string) (*models.WaitingListEntry, error) {
	entry, err := s.findEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.State != models.WaitingListStateClaimed || !entry.ClaimedBy(actor.ID) {
		return nil, appErrors.Clone(appErrors.ErrConflict, "entry must be claimed by actor to start training")
	}

	ok, err := s.repo.StartTraining(ctx, id, actor.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start training")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrConflict, "entry is no longer claimed by actor")
	}

	old := snapshotWaitingList(entry)
	entry.State = models.WaitingListStateInTraining

	if err := s.audit.Record(ctx, RecordParams{
		Actor:       actor,
		Action:      models.AuditActionWaitingListTrainingStarted,
		SubjectKind: models.SubjectWaitingListEntry,
		SubjectID:   entry.ID,
		Old:         old,
		New:         snapshotWaitingList(entry),
	}); err != nil {
		return nil, err
	}
	return entry, nil
}

// UpdateRemarks mutates the remarks field only. State is untouched but the
// change is still audited.
func (s *WaitingListService) UpdateRemarks(ctx context.Context, actor models.Actor, id string, req RemarksRequest) (*models.WaitingListEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid remarks payload")
	}

	entry, err := s.findEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "entry has left the waiting list")
	}

	if err := s.repo.UpdateRemarks(ctx, id, req.Remarks); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update remarks")
	}

	old := snapshotWaitingList(entry)
	entry.Remarks = req.Remarks

	if err := s.audit.Record(ctx, RecordParams{
		Actor:       actor,
		Action:      models.AuditActionWaitingListRemarksUpdated,
		SubjectKind: models.SubjectWaitingListEntry,
		SubjectID:   entry.ID,
		Old:         old,
		New:         snapshotWaitingList(entry),
	}); err != nil {
		return nil, err
	}
	return entry, nil
}

// List returns waiting-list entries with pagination metadata.
func (s *WaitingListService) List(ctx context.Context, filter models.WaitingListFilter) ([]models.WaitingListEntry, *models.Pagination, error) {
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list waiting-list entries")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return entries, pagination, nil
}

func (s *WaitingListService) findEntry(ctx context.Context, id string) (*models.WaitingListEntry, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "waiting-list entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load waiting-list entry")
	}
	return entry, nil
}
