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

// BorrowHandler handles the lending workflow endpoints.
type BorrowHandler struct {
	service *service.BorrowService
}

// NewBorrowHandler creates a new borrow handler.
func NewBorrowHandler(svc *service.BorrowService) *BorrowHandler {
	return &BorrowHandler{service: svc}
}

// List godoc
// @Summary List borrows
// @Description List borrow transactions with pagination and filtering
// @Tags Borrows
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param user_id query string false "User filter"
// @Param resource_id query string false "Resource filter"
// @Param status query string false "Status filter"
// @Success 200 {object} response.Envelope
// @Router /borrows [get]
func (h *BorrowHandler) List(c *gin.Context) {
	var filter models.BorrowFilter

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}

	filter.UserID = c.Query("user_id")
	filter.ResourceID = c.Query("resource_id")
	if status := c.Query("status"); status != "" {
		s := models.BorrowStatus(status)
		filter.Status = &s
	}

	borrows, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, borrows, pagination)
}

// Get godoc
// @Summary Get borrow
// @Description Get a borrow transaction
// @Tags Borrows
// @Produce json
// @Param id path string true "Borrow ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /borrows/{id} [get]
func (h *BorrowHandler) Get(c *gin.Context) {
	borrow, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, borrow, nil)
}

// Create godoc
// @Summary Check out a resource
// @Description Create a borrow, reserving one unit of the resource
// @Tags Borrows
// @Accept json
// @Produce json
// @Param payload body service.CreateBorrowRequest true "Borrow payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /borrows [post]
func (h *BorrowHandler) Create(c *gin.Context) {
	var req service.CreateBorrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid borrow payload"))
		return
	}

	borrow, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, borrow)
}

// Return godoc
// @Summary Return a borrow
// @Description Close out a loan, restoring the unit and raising any fines
// @Tags Borrows
// @Accept json
// @Produce json
// @Param id path string true "Borrow ID"
// @Param payload body service.ReturnBorrowRequest true "Return payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /borrows/{id}/return [post]
func (h *BorrowHandler) Return(c *gin.Context) {
	var req service.ReturnBorrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid return payload"))
		return
	}

	borrow, err := h.service.Return(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, borrow, nil)
}

// Approve godoc
// @Summary Approve a pending borrow
// @Description Move a pending borrow into the active state
// @Tags Borrows
// @Produce json
// @Param id path string true "Borrow ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /borrows/{id}/approve [post]
func (h *BorrowHandler) Approve(c *gin.Context) {
	borrow, err := h.service.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, borrow, nil)
}

// MarkLost godoc
// @Summary Report a borrow lost
// @Description Flag the borrow lost and raise a replacement-cost penalty
// @Tags Borrows
// @Produce json
// @Param id path string true "Borrow ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /borrows/{id}/lost [post]
func (h *BorrowHandler) MarkLost(c *gin.Context) {
	borrow, err := h.service.MarkLost(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, borrow, nil)
}
