package handler

import (
	"context"
	"database/sql"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/atc-endorsement-api/internal/models"
	"github.com/noah-isme/atc-endorsement-api/internal/service"
)

type endorsementRepoFake struct {
	byID map[string]*models.Endorsement
	list []models.Endorsement
}

func (r *endorsementRepoFake) FindByID(ctx context.Context, id string) (*models.Endorsement, error) {
	endorsement, ok := r.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *endorsement
	return &copied, nil
}

func (r *endorsementRepoFake) List(ctx context.Context, filter models.EndorsementFilter) ([]models.Endorsement, int, error) {
	return r.list, len(r.list), nil
}

func (r *endorsementRepoFake) Create(ctx context.Context, endorsement *models.Endorsement) error {
	if endorsement.ID == "" {
		endorsement.ID = "e-new"
	}
	return nil
}

func newEndorsementTestHandler(repo *endorsementRepoFake) *EndorsementHandler {
	svc := service.NewEndorsementService(repo, nil, 0, &auditRecorderFake{}, nil, nil)
	return NewEndorsementHandler(svc)
}

func TestEndorsementHandlerList(t *testing.T) {
	repo := &endorsementRepoFake{list: []models.Endorsement{
		{ID: "e1", ControllerID: "c1", Position: "EDDF_TWR", Tier: models.TierOne, State: models.EndorsementStateActive},
	}}
	handler := newEndorsementTestHandler(repo)

	c, w := testContext(t, http.MethodGet, "/endorsements?state=ACTIVE", nil, &models.JWTClaims{UserID: "c1", Role: models.RoleController})

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "EDDF_TWR")
}

func TestEndorsementHandlerGetNotFound(t *testing.T) {
	handler := newEndorsementTestHandler(&endorsementRepoFake{byID: map[string]*models.Endorsement{}})

	c, w := testContext(t, http.MethodGet, "/endorsements/missing", nil, &models.JWTClaims{UserID: "c1", Role: models.RoleController})
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestEndorsementHandlerGrant(t *testing.T) {
	handler := newEndorsementTestHandler(&endorsementRepoFake{})

	c, w := testContext(t, http.MethodPost, "/endorsements", service.GrantEndorsementRequest{
		ControllerID: "c1",
		Position:     "EDDF_TWR",
		Tier:         models.TierOne,
	}, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.Grant(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "ACTIVE")
}

func TestEndorsementHandlerGrantRejectsUnknownTier(t *testing.T) {
	handler := newEndorsementTestHandler(&endorsementRepoFake{})

	c, w := testContext(t, http.MethodPost, "/endorsements", service.GrantEndorsementRequest{
		ControllerID: "c1",
		Position:     "EDDF_TWR",
		Tier:         models.EndorsementTier("TIER9"),
	}, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.Grant(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
