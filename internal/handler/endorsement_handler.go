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

// EndorsementHandler exposes the endorsement roster.
type EndorsementHandler struct {
	endorsements *service.EndorsementService
}

// NewEndorsementHandler constructs EndorsementHandler.
func NewEndorsementHandler(endorsements *service.EndorsementService) *EndorsementHandler {
	return &EndorsementHandler{endorsements: endorsements}
}

// List godoc
// @Summary List endorsements
// @Tags Endorsements
// @Produce json
// @Param controllerId query string false "Filter by controller"
// @Param position query string false "Filter by position"
// @Param tier query string false "Filter by tier"
// @Param state query string false "Filter by lifecycle state"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /endorsements [get]
func (h *EndorsementHandler) List(c *gin.Context) {
	var filter models.EndorsementFilter
	filter.ControllerID = c.Query("controllerId")
	filter.Position = c.Query("position")
	filter.Tier = models.EndorsementTier(c.Query("tier"))
	filter.State = models.EndorsementState(c.Query("state"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	endorsements, pagination, err := h.endorsements.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, endorsements, pagination)
}

// Get godoc
// @Summary Get endorsement detail
// @Tags Endorsements
// @Produce json
// @Param id path string true "Endorsement ID"
// @Success 200 {object} response.Envelope
// @Router /endorsements/{id} [get]
func (h *EndorsementHandler) Get(c *gin.Context) {
	endorsement, err := h.endorsements.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, endorsement, nil)
}

// Grant godoc
// @Summary Grant a new endorsement
// @Tags Endorsements
// @Accept json
// @Produce json
// @Param payload body service.GrantEndorsementRequest true "Grant payload"
// @Success 201 {object} response.Envelope
// @Router /endorsements [post]
func (h *EndorsementHandler) Grant(c *gin.Context) {
	var req service.GrantEndorsementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	endorsement, err := h.endorsements.Grant(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, endorsement)
}
