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

// WaitingListHandler exposes the waiting-list state machine.
type WaitingListHandler struct {
	waitingList *service.WaitingListService
}

// NewWaitingListHandler constructs WaitingListHandler.
func NewWaitingListHandler(waitingList *service.WaitingListService) *WaitingListHandler {
	return &WaitingListHandler{waitingList: waitingList}
}

// List godoc
// @Summary List waiting-list entries
// @Tags WaitingList
// @Produce json
// @Param traineeId query string false "Filter by trainee"
// @Param courseId query string false "Filter by course"
// @Param claimantId query string false "Filter by claimant"
// @Param state query string false "Filter by state"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /waiting-list [get]
func (h *WaitingListHandler) List(c *gin.Context) {
	var filter models.WaitingListFilter
	filter.TraineeID = c.Query("traineeId")
	filter.CourseID = c.Query("courseId")
	filter.ClaimantID = c.Query("claimantId")
	filter.State = models.WaitingListState(c.Query("state"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	entries, pagination, err := h.waitingList.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// Join godoc
// @Summary Join a course waiting list
// @Tags WaitingList
// @Accept json
// @Produce json
// @Param payload body service.JoinRequest true "Join payload"
// @Success 201 {object} response.Envelope
// @Router /waiting-list [post]
func (h *WaitingListHandler) Join(c *gin.Context) {
	var req service.JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	actor := actorFromContext(c)
	// Controllers may only queue themselves; mentors and admins join on
	// behalf of any trainee.
	if actor.Role == models.RoleController && req.TraineeID != actor.ID {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "controllers may only join for themselves"))
		return
	}

	entry, err := h.waitingList.Join(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// Leave godoc
// @Summary Leave the waiting list
// @Tags WaitingList
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} response.Envelope
// @Router /waiting-list/{id} [delete]
func (h *WaitingListHandler) Leave(c *gin.Context) {
	entry, err := h.waitingList.Leave(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Claim godoc
// @Summary Claim a waiting-list entry for mentoring
// @Tags WaitingList
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} response.Envelope
// @Router /waiting-list/{id}/claim [post]
func (h *WaitingListHandler) Claim(c *gin.Context) {
	entry, err := h.waitingList.Claim(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Release godoc
// @Summary Release a claimed entry back to the queue
// @Tags WaitingList
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} response.Envelope
// @Router /waiting-list/{id}/release [post]
func (h *WaitingListHandler) Release(c *gin.Context) {
	entry, err := h.waitingList.Release(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// StartTraining godoc
// @Summary Move a claimed entry into training
// @Tags WaitingList
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} response.Envelope
// @Router /waiting-list/{id}/start-training [post]
func (h *WaitingListHandler) StartTraining(c *gin.Context) {
	entry, err := h.waitingList.StartTraining(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// UpdateRemarks godoc
// @Summary Update entry remarks
// @Tags WaitingList
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param payload body service.RemarksRequest true "Remarks payload"
// @Success 200 {object} response.Envelope
// @Router /waiting-list/{id}/remarks [patch]
func (h *WaitingListHandler) UpdateRemarks(c *gin.Context) {
	var req service.RemarksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	entry, err := h.waitingList.UpdateRemarks(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}
