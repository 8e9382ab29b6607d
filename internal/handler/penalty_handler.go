package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campus-ops/equiploan-api/internal/models"
	"github.com/campus-ops/equiploan-api/internal/service"
	appErrors "github.com/campus-ops/equiploan-api/pkg/errors"
	"github.com/campus-ops/equiploan-api/pkg/response"
)

// PenaltyHandler handles penalty endpoints.
type PenaltyHandler struct {
	service *service.PenaltyService
}

// NewPenaltyHandler creates a new penalty handler.
func NewPenaltyHandler(svc *service.PenaltyService) *PenaltyHandler {
	return &PenaltyHandler{service: svc}
}

// List godoc
// @Summary List penalties
// @Tags Penalties
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param user_id query string false "User filter"
// @Param borrow_id query string false "Borrow filter"
// @Param status query string false "Status filter"
// @Success 200 {object} response.Envelope
// @Router /penalties [get]
func (h *PenaltyHandler) List(c *gin.Context) {
	var filter models.PenaltyFilter

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}

	filter.UserID = c.Query("user_id")
	filter.BorrowID = c.Query("borrow_id")
	if status := c.Query("status"); status != "" {
		s := models.PenaltyStatus(status)
		filter.Status = &s
	}

	penalties, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, penalties, pagination)
}

// Get godoc
// @Summary Get penalty
// @Tags Penalties
// @Produce json
// @Param id path string true "Penalty ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /penalties/{id} [get]
func (h *PenaltyHandler) Get(c *gin.Context) {
	penalty, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, penalty, nil)
}

// Create godoc
// @Summary Create penalty
// @Description Record a manual fine against a borrow
// @Tags Penalties
// @Accept json
// @Produce json
// @Param payload body service.CreatePenaltyRequest true "Penalty payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /penalties [post]
func (h *PenaltyHandler) Create(c *gin.Context) {
	var req service.CreatePenaltyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid penalty payload"))
		return
	}

	penalty, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, penalty)
}

// Resolve godoc
// @Summary Resolve penalty
// @Description Move a pending penalty to Paid, Waived or Cancelled
// @Tags Penalties
// @Accept json
// @Produce json
// @Param id path string true "Penalty ID"
// @Param payload body map[string]string true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /penalties/{id}/resolve [post]
func (h *PenaltyHandler) Resolve(c *gin.Context) {
	var payload struct {
		Status models.PenaltyStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "status required"))
		return
	}

	penalty, err := h.service.Resolve(c.Request.Context(), c.Param("id"), payload.Status)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, penalty, nil)
}
