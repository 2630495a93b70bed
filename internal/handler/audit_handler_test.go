package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/atc-endorsement-api/internal/models"
	"github.com/noah-isme/atc-endorsement-api/internal/service"
)

type auditRepoFake struct {
	entries []models.AuditLog
}

func (r *auditRepoFake) Create(ctx context.Context, entry *models.AuditLog) error {
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *auditRepoFake) List(ctx context.Context, filter models.AuditLogFilter) ([]models.AuditLog, int, error) {
	return r.entries, len(r.entries), nil
}

func (r *auditRepoFake) ListBySubject(ctx context.Context, kind models.SubjectKind, subjectID string) ([]models.AuditLog, error) {
	var out []models.AuditLog
	for _, e := range r.entries {
		if e.SubjectKind == kind && e.SubjectID == subjectID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *auditRepoFake) ListByActor(ctx context.Context, actorID string) ([]models.AuditLog, error) {
	return nil, nil
}

func newAuditTestHandler(repo *auditRepoFake) *AuditHandler {
	return NewAuditHandler(service.NewAuditService(repo, nil), nil)
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
}

func TestAuditHandlerList(t *testing.T) {
	repo := &auditRepoFake{entries: []models.AuditLog{
		{ID: "a1", Action: models.AuditActionEndorsementWarned, SubjectKind: models.SubjectEndorsement, SubjectID: "e1", CreatedAt: time.Now()},
	}}
	handler := newAuditTestHandler(repo)

	c, w := testContext(t, http.MethodGet, "/audit-logs?subjectKind=endorsement", nil, adminClaims())

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "endorsement.warned")
}

func TestAuditHandlerListBySubjectRejectsUnknownKind(t *testing.T) {
	handler := newAuditTestHandler(&auditRepoFake{})

	c, w := testContext(t, http.MethodGet, "/audit-logs/subject/widget/e1", nil, adminClaims())
	c.Params = gin.Params{{Key: "kind", Value: "widget"}, {Key: "id", Value: "e1"}}

	handler.ListBySubject(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuditHandlerListBySubject(t *testing.T) {
	repo := &auditRepoFake{entries: []models.AuditLog{
		{ID: "a1", Action: models.AuditActionWaitingListClaimed, SubjectKind: models.SubjectWaitingListEntry, SubjectID: "wl-1", CreatedAt: time.Now()},
		{ID: "a2", Action: models.AuditActionEndorsementWarned, SubjectKind: models.SubjectEndorsement, SubjectID: "e1", CreatedAt: time.Now()},
	}}
	handler := newAuditTestHandler(repo)

	c, w := testContext(t, http.MethodGet, "/audit-logs/subject/waitinglistentry/wl-1", nil, adminClaims())
	c.Params = gin.Params{{Key: "kind", Value: "waitinglistentry"}, {Key: "id", Value: "wl-1"}}

	handler.ListBySubject(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "waitinglistentry.claimed")
	assert.NotContains(t, w.Body.String(), "endorsement.warned")
}

func TestAuditHandlerExportRejectsInvalidFormat(t *testing.T) {
	handler := newAuditTestHandler(&auditRepoFake{})

	c, w := testContext(t, http.MethodPost, "/audit-logs/export", ExportRequest{Format: "xlsx"}, adminClaims())

	handler.Export(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
