package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/atc-endorsement-api/internal/models"
	"github.com/noah-isme/atc-endorsement-api/internal/service"
	appErrors "github.com/noah-isme/atc-endorsement-api/pkg/errors"
	"github.com/noah-isme/atc-endorsement-api/pkg/response"
)

// AuditHandler exposes audit-trail queries and exports.
type AuditHandler struct {
	audits  *service.AuditService
	exports *service.ExportService
}

// NewAuditHandler constructs AuditHandler.
func NewAuditHandler(audits *service.AuditService, exports *service.ExportService) *AuditHandler {
	return &AuditHandler{audits: audits, exports: exports}
}

// List godoc
// @Summary List audit entries
// @Tags Audit
// @Produce json
// @Param actorId query string false "Filter by actor"
// @Param subjectKind query string false "Filter by subject kind"
// @Param subjectId query string false "Filter by subject"
// @Param action query string false "Filter by action"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /audit-logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	filter := auditFilterFromQuery(c)
	entries, pagination, err := h.audits.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// ListBySubject godoc
// @Summary Full audit trail for one subject
// @Tags Audit
// @Produce json
// @Param kind path string true "Subject kind"
// @Param id path string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Router /audit-logs/subject/{kind}/{id} [get]
func (h *AuditHandler) ListBySubject(c *gin.Context) {
	kind := models.SubjectKind(c.Param("kind"))
	if kind != models.SubjectEndorsement && kind != models.SubjectWaitingListEntry {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown subject kind"))
		return
	}
	entries, err := h.audits.ListBySubject(c.Request.Context(), kind, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Export godoc
// @Summary Export the filtered audit trail
// @Tags Audit
// @Accept json
// @Produce json
// @Param payload body handler.ExportRequest true "Export payload"
// @Success 201 {object} response.Envelope
// @Router /audit-logs/export [post]
func (h *AuditHandler) Export(c *gin.Context) {
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	filter := models.AuditLogFilter{
		ActorID:     req.ActorID,
		SubjectKind: models.SubjectKind(req.SubjectKind),
		SubjectID:   req.SubjectID,
		Action:      req.Action,
	}
	result, err := h.exports.ExportAuditTrail(c.Request.Context(), filter, service.ExportFormat(req.Format))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download godoc
// @Summary Download a stored export by signed token
// @Tags Audit
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Router /audit-logs/export/{token} [get]
func (h *AuditHandler) Download(c *gin.Context) {
	data, relPath, err := h.exports.Download(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	contentType := "application/octet-stream"
	switch {
	case len(relPath) > 4 && relPath[len(relPath)-4:] == ".csv":
		contentType = "text/csv"
	case len(relPath) > 4 && relPath[len(relPath)-4:] == ".pdf":
		contentType = "application/pdf"
	}
	c.Data(http.StatusOK, contentType, data)
}

// ExportRequest selects the audit slice and output format for an export.
type ExportRequest struct {
	ActorID     string `json:"actor_id"`
	SubjectKind string `json:"subject_kind"`
	SubjectID   string `json:"subject_id"`
	Action      string `json:"action"`
	Format      string `json:"format" binding:"required,oneof=csv pdf"`
}

func auditFilterFromQuery(c *gin.Context) models.AuditLogFilter {
	var filter models.AuditLogFilter
	filter.ActorID = c.Query("actorId")
	filter.SubjectKind = models.SubjectKind(c.Query("subjectKind"))
	filter.SubjectID = c.Query("subjectId")
	filter.Action = c.Query("action")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = size
	}
	return filter
}
