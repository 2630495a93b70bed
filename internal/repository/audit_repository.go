package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/atc-endorsement-api/internal/models"
)

// AuditLogRepository appends and queries the audit trail. There is
// deliberately no update or delete method: entries are immutable.
type AuditLogRepository struct {
	db *sqlx.DB
}

// NewAuditLogRepository constructs the repository.
func NewAuditLogRepository(db *sqlx.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

const auditColumns = `id, actor_id, action, subject_kind, subject_id, old_values, new_values, description, ip_address, user_agent, created_at`

// Create appends one audit entry.
func (r *AuditLogRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (id, actor_id, action, subject_kind, subject_id, old_values, new_values, description, ip_address, user_agent, created_at)
        VALUES (:id, :actor_id, :action, :subject_kind, :subject_id, :old_values, :new_values, :description, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("append audit log: %w", err)
	}
	return nil
}

// List returns audit entries in canonical timestamp order.
func (r *AuditLogRepository) List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, int, error) {
	var conditions []string
	var args []interface{}

	if filter.ActorID != "" {
		conditions = append(conditions, fmt.Sprintf("actor_id = $%d", len(args)+1))
		args = append(args, filter.ActorID)
	}
	if filter.SubjectKind != "" {
		conditions = append(conditions, fmt.Sprintf("subject_kind = $%d", len(args)+1))
		args = append(args, filter.SubjectKind)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.Action != "" {
		conditions = append(conditions, fmt.Sprintf("action = $%d", len(args)+1))
		args = append(args, filter.Action)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM audit_logs%s ORDER BY created_at ASC, id ASC LIMIT %d OFFSET %d`,
		auditColumns, clause, size, offset)

	var entries []models.AuditLog
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list audit logs: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM audit_logs" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count audit logs: %w", err)
	}
	return entries, total, nil
}

// ListBySubject returns the full trail for one subject in timestamp order.
func (r *AuditLogRepository) ListBySubject(ctx context.Context, kind models.SubjectKind, subjectID string) ([]models.AuditLog, error) {
	query := fmt.Sprintf(`SELECT %s FROM audit_logs WHERE subject_kind = $1 AND subject_id = $2 ORDER BY created_at ASC, id ASC`, auditColumns)
	var entries []models.AuditLog
	if err := r.db.SelectContext(ctx, &entries, query, kind, subjectID); err != nil {
		return nil, fmt.Errorf("list audit logs by subject: %w", err)
	}
	return entries, nil
}

// ListByActor returns the entries recorded for one actor.
func (r *AuditLogRepository) ListByActor(ctx context.Context, actorID string) ([]models.AuditLog, error) {
	query := fmt.Sprintf(`SELECT %s FROM audit_logs WHERE actor_id = $1 ORDER BY created_at ASC, id ASC`, auditColumns)
	var entries []models.AuditLog
	if err := r.db.SelectContext(ctx, &entries, query, actorID); err != nil {
		return nil, fmt.Errorf("list audit logs by actor: %w", err)
	}
	return entries, nil
}
