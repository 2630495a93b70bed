package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/atc-endorsement-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func endorsementRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "controller_id", "position", "tier", "state", "granted_at",
		"last_warned_at", "removed_at", "activity_minutes", "last_synced_at", "last_active_at",
	})
}

func TestEndorsementRepositoryListDueForSyncOrdering(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEndorsementRepository(db)

	rows := endorsementRows().
		AddRow("e1", "c1", "EDDF_TWR", "TIER1", "ACTIVE", time.Now(), nil, nil, 0, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY last_synced_at ASC NULLS FIRST, id ASC")).
		WithArgs(models.EndorsementStateActive, models.EndorsementStateWarned, 3).
		WillReturnRows(rows)

	due, err := repo.ListDueForSync(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, due, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEndorsementRepositoryListDueForSyncDefaultsLimit(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEndorsementRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE state IN ($1, $2)")).
		WithArgs(models.EndorsementStateActive, models.EndorsementStateWarned, 1).
		WillReturnRows(endorsementRows())

	_, err := repo.ListDueForSync(context.Background(), 0)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEndorsementRepositoryListEvaluable(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEndorsementRepository(db)

	cutoff := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("granted_at <= $3")).
		WithArgs(models.EndorsementStateActive, models.EndorsementStateWarned, cutoff).
		WillReturnRows(endorsementRows())

	_, err := repo.ListEvaluable(context.Background(), cutoff)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEndorsementRepositoryUpdateActivityMovesLastActiveForwardOnly(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEndorsementRepository(db)

	syncedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("last_active_at = GREATEST(last_active_at, $4)")).
		WithArgs("e1", 240, syncedAt, &syncedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateActivity(context.Background(), "e1", 240, syncedAt, &syncedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEndorsementRepositoryUpdateActivityKeepsNeverActiveNull(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEndorsementRepository(db)

	// A zero-minute sync passes no activity timestamp. GREATEST(NULL, NULL)
	// is NULL in Postgres, so the column must not be rewritten through a
	// COALESCE fallback that would fabricate an activity date.
	syncedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("last_active_at = GREATEST(last_active_at, $4)")).
		WithArgs("e1", 0, syncedAt, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateActivity(context.Background(), "e1", 0, syncedAt, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEndorsementRepositoryTransitionStateGuardsCurrentState(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEndorsementRepository(db)

	warnedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND state = $2")).
		WithArgs("e1", models.EndorsementStateActive, models.EndorsementStateWarned, &warnedAt, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.TransitionState(context.Background(), "e1", models.EndorsementStateActive, models.EndorsementStateWarned, &warnedAt, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	// Row concurrently moved elsewhere: zero rows affected means the CAS lost.
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND state = $2")).
		WithArgs("e1", models.EndorsementStateWarned, models.EndorsementStateRemoved, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err = repo.TransitionState(context.Background(), "e1", models.EndorsementStateWarned, models.EndorsementStateRemoved, &warnedAt, &warnedAt)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEndorsementRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEndorsementRepository(db)

	mock.ExpectExec("INSERT INTO endorsements").
		WillReturnResult(sqlmock.NewResult(1, 1))

	endorsement := &models.Endorsement{ControllerID: "c1", Position: "EDDF_TWR", Tier: models.TierOne}
	require.NoError(t, repo.Create(context.Background(), endorsement))
	assert.NotEmpty(t, endorsement.ID)
	assert.Equal(t, models.EndorsementStateActive, endorsement.State)
	assert.False(t, endorsement.GrantedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEndorsementRepositoryListWithFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEndorsementRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE controller_id = $1 AND state = $2 ORDER BY granted_at DESC LIMIT 20 OFFSET 0")).
		WithArgs("c1", models.EndorsementStateActive).
		WillReturnRows(endorsementRows().
			AddRow("e1", "c1", "EDDF_TWR", "TIER1", "ACTIVE", time.Now(), nil, nil, 200, nil, nil))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM endorsements WHERE controller_id = $1 AND state = $2")).
		WithArgs("c1", models.EndorsementStateActive).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.EndorsementFilter{
		ControllerID: "c1",
		State:        models.EndorsementStateActive,
	})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
