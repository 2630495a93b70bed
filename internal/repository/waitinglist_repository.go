package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/atc-endorsement-api/internal/models"
)

// WaitingListRepository handles persistence of waiting-list entries. Claim
// transitions are compare-and-set updates so concurrent claim attempts on
// the same entry resolve to exactly one winner.
type WaitingListRepository struct {
	db *sqlx.DB
}

// NewWaitingListRepository constructs the repository.
func NewWaitingListRepository(db *sqlx.DB) *WaitingListRepository {
	return &WaitingListRepository{db: db}
}

const waitingListColumns = `id, trainee_id, course_id, state, claimant_id, remarks, joined_at, left_at`

// FindByID returns a waiting-list entry by its ID.
func (r *WaitingListRepository) FindByID(ctx context.Context, id string) (*models.WaitingListEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM waiting_list_entries WHERE id = $1`, waitingListColumns)
	var entry models.WaitingListEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		return nil, err
	}
	return &entry, nil
}

// ExistsOpen checks whether a non-terminal entry exists for the pair.
func (r *WaitingListRepository) ExistsOpen(ctx context.Context, traineeID, courseID string) (bool, error) {
	const query = `SELECT 1 FROM waiting_list_entries
        WHERE trainee_id = $1 AND course_id = $2 AND state <> $3 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, traineeID, courseID, models.WaitingListStateLeft); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check open waiting-list entry: %w", err)
	}
	return true, nil
}

// Create persists a new waiting-list entry.
func (r *WaitingListRepository) Create(ctx context.Context, entry *models.WaitingListEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.JoinedAt.IsZero() {
		entry.JoinedAt = time.Now().UTC()
	}
	if entry.State == "" {
		entry.State = models.WaitingListStateWaiting
	}
	const query = `INSERT INTO waiting_list_entries (id, trainee_id, course_id, state, claimant_id, remarks, joined_at, left_at)
        VALUES (:id, :trainee_id, :course_id, :state, :claimant_id, :remarks, :joined_at, :left_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create waiting-list entry: %w", err)
	}
	return nil
}

// Claim assigns the entry to the actor, succeeding only when it is still
// WAITING and unclaimed.
func (r *WaitingListRepository) Claim(ctx context.Context, id, actorID string) (bool, error) {
	const query = `UPDATE waiting_list_entries
        SET state = $3, claimant_id = $2
        WHERE id = $1 AND state = $4 AND claimant_id IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, actorID, models.WaitingListStateClaimed, models.WaitingListStateWaiting)
	if err != nil {
		return false, fmt.Errorf("claim waiting-list entry: %w", err)
	}
	return oneRow(res)
}

// Release returns a claimed entry to WAITING, only for the current claimant.
func (r *WaitingListRepository) Release(ctx context.Context, id, actorID string) (bool, error) {
	const query = `UPDATE waiting_list_entries
        SET state = $3, claimant_id = NULL
        WHERE id = $1 AND state = $4 AND claimant_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, actorID, models.WaitingListStateWaiting, models.WaitingListStateClaimed)
	if err != nil {
		return false, fmt.Errorf("release waiting-list entry: %w", err)
	}
	return oneRow(res)
}

// StartTraining moves a claimed entry to IN_TRAINING for its claimant.
func (r *WaitingListRepository) StartTraining(ctx context.Context, id, actorID string) (bool, error) {
	const query = `UPDATE waiting_list_entries
        SET state = $3
        WHERE id = $1 AND state = $4 AND claimant_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, actorID, models.WaitingListStateInTraining, models.WaitingListStateClaimed)
	if err != nil {
		return false, fmt.Errorf("start training: %w", err)
	}
	return oneRow(res)
}

// MarkLeft transitions any non-terminal entry to LEFT.
func (r *WaitingListRepository) MarkLeft(ctx context.Context, id string, leftAt time.Time) (bool, error) {
	const query = `UPDATE waiting_list_entries
        SET state = $2, left_at = $3
        WHERE id = $1 AND state <> $2`
	res, err := r.db.ExecContext(ctx, query, id, models.WaitingListStateLeft, leftAt)
	if err != nil {
		return false, fmt.Errorf("mark waiting-list entry left: %w", err)
	}
	return oneRow(res)
}

// UpdateRemarks replaces the free-text remarks without touching state.
func (r *WaitingListRepository) UpdateRemarks(ctx context.Context, id, remarks string) error {
	const query = `UPDATE waiting_list_entries SET remarks = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, remarks); err != nil {
		return fmt.Errorf("update waiting-list remarks: %w", err)
	}
	return nil
}

// List returns waiting-list entries filtered by the provided criteria.
func (r *WaitingListRepository) List(ctx context.Context, filter models.WaitingListFilter) ([]models.WaitingListEntry, int, error) {
	var conditions []string
	var args []interface{}

	if filter.TraineeID != "" {
		conditions = append(conditions, fmt.Sprintf("trainee_id = $%d", len(args)+1))
		args = append(args, filter.TraineeID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.ClaimantID != "" {
		conditions = append(conditions, fmt.Sprintf("claimant_id = $%d", len(args)+1))
		args = append(args, filter.ClaimantID)
	}
	if filter.State != "" {
		conditions = append(conditions, fmt.Sprintf("state = $%d", len(args)+1))
		args = append(args, filter.State)
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
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM waiting_list_entries%s ORDER BY joined_at ASC LIMIT %d OFFSET %d`,
		waitingListColumns, clause, size, offset)

	var entries []models.WaitingListEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list waiting-list entries: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM waiting_list_entries" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count waiting-list entries: %w", err)
	}
	return entries, total, nil
}

func oneRow(res sql.Result) (bool, error) {
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected == 1, nil
}
