package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/atc-endorsement-api/internal/models"
	appErrors "github.com/noah-isme/atc-endorsement-api/pkg/errors"
)

type auditLogRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, int, error)
	ListBySubject(ctx context.Context, kind models.SubjectKind, subjectID string) ([]models.AuditLog, error)
	ListByActor(ctx context.Context, actorID string) ([]models.AuditLog, error)
}

// RecordParams describes one audit entry to append. Old and New snapshots
// are marshalled to JSON; an update always carries the pre-image in Old.
type RecordParams struct {
	Actor       models.Actor
	Action      string
	SubjectKind models.SubjectKind
	SubjectID   string
	Old         interface{}
	New         interface{}
	Description string
}

// AuditService is the single writer for the append-only audit trail. Every
// lifecycle-mutating operation emits its entry through Record explicitly;
// nothing is audited implicitly.
type AuditService struct {
	repo   auditLogRepository
	logger *zap.Logger
}

// NewAuditService constructs AuditService.
func NewAuditService(repo auditLogRepository, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, logger: logger}
}

// Record appends one entry. Storage failure is surfaced to the caller;
// there is no retry or buffering because audit gaps must be visible.
func (s *AuditService) Record(ctx context.Context, p RecordParams) error {
	entry := &models.AuditLog{
		ActorID:     p.Actor.Ref(),
		Action:      p.Action,
		SubjectKind: p.SubjectKind,
		SubjectID:   p.SubjectID,
		Description: p.Description,
		IPAddress:   p.Actor.IPAddress,
		UserAgent:   p.Actor.UserAgent,
	}

	if p.Old != nil {
		raw, err := json.Marshal(p.Old)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "marshal audit pre-image")
		}
		entry.OldValues = raw
	}
	if p.New != nil {
		raw, err := json.Marshal(p.New)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "marshal audit post-image")
		}
		entry.NewValues = raw
	}

	if entry.Description == "" {
		entry.Description = defaultDescription(p)
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "append audit entry")
	}
	return nil
}

// List returns audit entries with pagination metadata.
func (s *AuditService) List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, *models.Pagination, error) {
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit logs")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return entries, pagination, nil
}

// ListBySubject returns the full trail for a subject, meaningful even after
// the subject itself was logically removed.
func (s *AuditService) ListBySubject(ctx context.Context, kind models.SubjectKind, subjectID string) ([]models.AuditLog, error) {
	entries, err := s.repo.ListBySubject(ctx, kind, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit logs")
	}
	return entries, nil
}

// ListByActor returns entries recorded for one actor.
func (s *AuditService) ListByActor(ctx context.Context, actorID string) ([]models.AuditLog, error) {
	entries, err := s.repo.ListByActor(ctx, actorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit logs")
	}
	return entries, nil
}

func defaultDescription(p RecordParams) string {
	actor := "system"
	if !p.Actor.IsSystem() {
		actor = "user " + p.Actor.ID
	}
	return fmt.Sprintf("%s performed %s on %s %s", actor, p.Action, p.SubjectKind, p.SubjectID)
}
