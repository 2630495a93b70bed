package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/atc-endorsement-api/internal/middleware"
	"github.com/noah-isme/atc-endorsement-api/internal/models"
	"github.com/noah-isme/atc-endorsement-api/internal/service"
)

type wlRepoFake struct {
	entries map[string]*models.WaitingListEntry
}

func newWLRepoFake() *wlRepoFake {
	return &wlRepoFake{entries: make(map[string]*models.WaitingListEntry)}
}

func (r *wlRepoFake) FindByID(ctx context.Context, id string) (*models.WaitingListEntry, error) {
	entry, ok := r.entries[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *entry
	return &copied, nil
}

func (r *wlRepoFake) ExistsOpen(ctx context.Context, traineeID, courseID string) (bool, error) {
	for _, entry := range r.entries {
		if entry.TraineeID == traineeID && entry.CourseID == courseID && entry.State != models.WaitingListStateLeft {
			return true, nil
		}
	}
	return false, nil
}

func (r *wlRepoFake) Create(ctx context.Context, entry *models.WaitingListEntry) error {
	if entry.ID == "" {
		entry.ID = fmt.Sprintf("wl-%d", len(r.entries)+1)
	}
	copied := *entry
	r.entries[entry.ID] = &copied
	return nil
}

func (r *wlRepoFake) Claim(ctx context.Context, id, actorID string) (bool, error) {
	entry, ok := r.entries[id]
	if !ok || entry.State != models.WaitingListStateWaiting || entry.ClaimantID != nil {
		return false, nil
	}
	claimant := actorID
	entry.State = models.WaitingListStateClaimed
	entry.ClaimantID = &claimant
	return true, nil
}

func (r *wlRepoFake) Release(ctx context.Context, id, actorID string) (bool, error) {
	entry, ok := r.entries[id]
	if !ok || entry.ClaimantID == nil || *entry.ClaimantID != actorID {
		return false, nil
	}
	entry.State = models.WaitingListStateWaiting
	entry.ClaimantID = nil
	return true, nil
}

func (r *wlRepoFake) StartTraining(ctx context.Context, id, actorID string) (bool, error) {
	entry, ok := r.entries[id]
	if !ok || entry.ClaimantID == nil || *entry.ClaimantID != actorID {
		return false, nil
	}
	entry.State = models.WaitingListStateInTraining
	return true, nil
}

func (r *wlRepoFake) MarkLeft(ctx context.Context, id string, leftAt time.Time) (bool, error) {
	entry, ok := r.entries[id]
	if !ok || entry.State == models.WaitingListStateLeft {
		return false, nil
	}
	entry.State = models.WaitingListStateLeft
	entry.LeftAt = &leftAt
	return true, nil
}

func (r *wlRepoFake) UpdateRemarks(ctx context.Context, id, remarks string) error {
	if entry, ok := r.entries[id]; ok {
		entry.Remarks = remarks
	}
	return nil
}

func (r *wlRepoFake) List(ctx context.Context, filter models.WaitingListFilter) ([]models.WaitingListEntry, int, error) {
	result := make([]models.WaitingListEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		result = append(result, *entry)
	}
	return result, len(result), nil
}

type auditRecorderFake struct {
	count int
}

func (a *auditRecorderFake) Record(ctx context.Context, p service.RecordParams) error {
	a.count++
	return nil
}

func newWaitingListTestHandler(repo *wlRepoFake) *WaitingListHandler {
	svc := service.NewWaitingListService(repo, &auditRecorderFake{}, nil, nil)
	return NewWaitingListHandler(svc)
}

func testContext(t *testing.T, method, target string, body interface{}, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, target, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

func TestWaitingListHandlerJoinCreated(t *testing.T) {
	handler := newWaitingListTestHandler(newWLRepoFake())
	c, w := testContext(t, http.MethodPost, "/waiting-list", service.JoinRequest{
		TraineeID: "trainee-1",
		CourseID:  "TWR",
	}, &models.JWTClaims{UserID: "trainee-1", Role: models.RoleController})

	handler.Join(c)
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestWaitingListHandlerJoinForOtherTraineeForbidden(t *testing.T) {
	handler := newWaitingListTestHandler(newWLRepoFake())
	c, w := testContext(t, http.MethodPost, "/waiting-list", service.JoinRequest{
		TraineeID: "trainee-2",
		CourseID:  "TWR",
	}, &models.JWTClaims{UserID: "trainee-1", Role: models.RoleController})

	handler.Join(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestWaitingListHandlerJoinMentorMayActForTrainee(t *testing.T) {
	handler := newWaitingListTestHandler(newWLRepoFake())
	c, w := testContext(t, http.MethodPost, "/waiting-list", service.JoinRequest{
		TraineeID: "trainee-2",
		CourseID:  "TWR",
	}, &models.JWTClaims{UserID: "mentor-1", Role: models.RoleMentor})

	handler.Join(c)
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestWaitingListHandlerJoinInvalidBody(t *testing.T) {
	handler := newWaitingListTestHandler(newWLRepoFake())
	c, w := testContext(t, http.MethodPost, "/waiting-list", nil, &models.JWTClaims{UserID: "trainee-1", Role: models.RoleController})

	handler.Join(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWaitingListHandlerClaimConflict(t *testing.T) {
	repo := newWLRepoFake()
	claimant := "mentor-0"
	repo.entries["wl-1"] = &models.WaitingListEntry{
		ID:         "wl-1",
		State:      models.WaitingListStateClaimed,
		ClaimantID: &claimant,
	}
	handler := newWaitingListTestHandler(repo)

	c, w := testContext(t, http.MethodPost, "/waiting-list/wl-1/claim", nil, &models.JWTClaims{UserID: "mentor-1", Role: models.RoleMentor})
	c.Params = gin.Params{{Key: "id", Value: "wl-1"}}

	handler.Claim(c)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestWaitingListHandlerClaimUnknownEntryNotFound(t *testing.T) {
	handler := newWaitingListTestHandler(newWLRepoFake())
	c, w := testContext(t, http.MethodPost, "/waiting-list/missing/claim", nil, &models.JWTClaims{UserID: "mentor-1", Role: models.RoleMentor})
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.Claim(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestWaitingListHandlerLeaveReturnsEntry(t *testing.T) {
	repo := newWLRepoFake()
	repo.entries["wl-1"] = &models.WaitingListEntry{ID: "wl-1", State: models.WaitingListStateWaiting}
	handler := newWaitingListTestHandler(repo)

	c, w := testContext(t, http.MethodDelete, "/waiting-list/wl-1", nil, &models.JWTClaims{UserID: "trainee-1", Role: models.RoleController})
	c.Params = gin.Params{{Key: "id", Value: "wl-1"}}

	handler.Leave(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "LEFT")
}
