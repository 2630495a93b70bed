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

// EndorsementRepository handles persistence of endorsements and their
// embedded activity records.
type EndorsementRepository struct {
	db *sqlx.DB
}

// NewEndorsementRepository constructs the repository.
func NewEndorsementRepository(db *sqlx.DB) *EndorsementRepository {
	return &EndorsementRepository{db: db}
}

const endorsementColumns = `id, controller_id, position, tier, state, granted_at, last_warned_at, removed_at,
        activity_minutes, last_synced_at, last_active_at`

// ListDueForSync returns up to limit endorsements needing an activity
// refresh, oldest sync first. Never-synced rows sort before everything else
// and ties break on id so the order is deterministic.
func (r *EndorsementRepository) ListDueForSync(ctx context.Context, limit int) ([]models.Endorsement, error) {
	if limit <= 0 {
		limit = 1
	}
	query := fmt.Sprintf(`SELECT %s FROM endorsements
        WHERE state IN ($1, $2)
        ORDER BY last_synced_at ASC NULLS FIRST, id ASC
        LIMIT $3`, endorsementColumns)
	var endorsements []models.Endorsement
	if err := r.db.SelectContext(ctx, &endorsements, query, models.EndorsementStateActive, models.EndorsementStateWarned, limit); err != nil {
		return nil, fmt.Errorf("list endorsements due for sync: %w", err)
	}
	return endorsements, nil
}

// ListEvaluable returns endorsements subject to the removal policy: ACTIVE
// or WARNED and granted before the age cutoff.
func (r *EndorsementRepository) ListEvaluable(ctx context.Context, grantedBefore time.Time) ([]models.Endorsement, error) {
	query := fmt.Sprintf(`SELECT %s FROM endorsements
        WHERE state IN ($1, $2) AND granted_at <= $3
        ORDER BY id ASC`, endorsementColumns)
	var endorsements []models.Endorsement
	if err := r.db.SelectContext(ctx, &endorsements, query, models.EndorsementStateActive, models.EndorsementStateWarned, grantedBefore); err != nil {
		return nil, fmt.Errorf("list evaluable endorsements: %w", err)
	}
	return endorsements, nil
}

// FindByID returns an endorsement by its ID.
func (r *EndorsementRepository) FindByID(ctx context.Context, id string) (*models.Endorsement, error) {
	query := fmt.Sprintf(`SELECT %s FROM endorsements WHERE id = $1`, endorsementColumns)
	var endorsement models.Endorsement
	if err := r.db.GetContext(ctx, &endorsement, query, id); err != nil {
		return nil, err
	}
	return &endorsement, nil
}

// List returns endorsements filtered by the provided criteria.
func (r *EndorsementRepository) List(ctx context.Context, filter models.EndorsementFilter) ([]models.Endorsement, int, error) {
	var conditions []string
	var args []interface{}

	if filter.ControllerID != "" {
		conditions = append(conditions, fmt.Sprintf("controller_id = $%d", len(args)+1))
		args = append(args, filter.ControllerID)
	}
	if filter.Position != "" {
		conditions = append(conditions, fmt.Sprintf("position = $%d", len(args)+1))
		args = append(args, filter.Position)
	}
	if filter.Tier != "" {
		conditions = append(conditions, fmt.Sprintf("tier = $%d", len(args)+1))
		args = append(args, filter.Tier)
	}
	if filter.State != "" {
		conditions = append(conditions, fmt.Sprintf("state = $%d", len(args)+1))
		args = append(args, filter.State)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"granted_at":     "granted_at",
		"last_synced_at": "last_synced_at",
		"position":       "position",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "granted_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM endorsements%s ORDER BY %s %s LIMIT %d OFFSET %d`,
		endorsementColumns, clause, orderBy, order, size, offset)

	var endorsements []models.Endorsement
	if err := r.db.SelectContext(ctx, &endorsements, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list endorsements: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM endorsements" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count endorsements: %w", err)
	}
	return endorsements, total, nil
}

// Create persists a new endorsement grant.
func (r *EndorsementRepository) Create(ctx context.Context, endorsement *models.Endorsement) error {
	if endorsement.ID == "" {
		endorsement.ID = uuid.NewString()
	}
	if endorsement.GrantedAt.IsZero() {
		endorsement.GrantedAt = time.Now().UTC()
	}
	if endorsement.State == "" {
		endorsement.State = models.EndorsementStateActive
	}
	const query = `INSERT INTO endorsements (id, controller_id, position, tier, state, granted_at, last_warned_at, removed_at, activity_minutes, last_synced_at, last_active_at)
        VALUES (:id, :controller_id, :position, :tier, :state, :granted_at, :last_warned_at, :removed_at, :activity_minutes, :last_synced_at, :last_active_at)`
	if _, err := r.db.NamedExecContext(ctx, query, endorsement); err != nil {
		return fmt.Errorf("create endorsement: %w", err)
	}
	return nil
}

// UpdateActivity overwrites the activity figure after a successful fetch.
// last_active_at only ever moves forward; GREATEST ignores NULL arguments,
// so a sync with no observed activity leaves the column untouched and a
// never-active endorsement stays NULL.
func (r *EndorsementRepository) UpdateActivity(ctx context.Context, id string, minutes int, syncedAt time.Time, activeAt *time.Time) error {
	const query = `UPDATE endorsements
        SET activity_minutes = $2,
            last_synced_at = $3,
            last_active_at = GREATEST(last_active_at, $4)
        WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, minutes, syncedAt, activeAt); err != nil {
		return fmt.Errorf("update endorsement activity: %w", err)
	}
	return nil
}

// TransitionState applies a lifecycle change guarded by the expected current
// state. It reports false when the row was concurrently moved elsewhere.
func (r *EndorsementRepository) TransitionState(ctx context.Context, id string, from, to models.EndorsementState, warnedAt, removedAt *time.Time) (bool, error) {
	const query = `UPDATE endorsements
        SET state = $3, last_warned_at = $4, removed_at = $5
        WHERE id = $1 AND state = $2`
	res, err := r.db.ExecContext(ctx, query, id, from, to, warnedAt, removedAt)
	if err != nil {
		return false, fmt.Errorf("transition endorsement state: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition endorsement state: %w", err)
	}
	return affected == 1, nil
}
