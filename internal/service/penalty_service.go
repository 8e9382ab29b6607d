package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campus-ops/equiploan-api/internal/models"
	appErrors "github.com/campus-ops/equiploan-api/pkg/errors"
)

type penaltyRepository interface {
	GetByID(ctx context.Context, id string) (*models.Penalty, error)
	Create(ctx context.Context, penalty *models.Penalty) error
	UpdateStatus(ctx context.Context, id string, status models.PenaltyStatus, resolvedAt *time.Time) error
	List(ctx context.Context, filter models.PenaltyFilter) ([]models.Penalty, int, error)
}

// CreatePenaltyRequest is the payload for manually raising a fine.
type CreatePenaltyRequest struct {
	BorrowID    string             `json:"borrow_id" validate:"required"`
	UserID      string             `json:"user_id" validate:"required"`
	PenaltyType models.PenaltyType `json:"penalty_type" validate:"required"`
	FineAmount  float64            `json:"fine_amount" validate:"min=0"`
	Reason      *string            `json:"reason,omitempty"`
}

// PenaltyService manages fines raised against borrows.
type PenaltyService struct {
	repo      penaltyRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPenaltyService constructs a PenaltyService.
func NewPenaltyService(repo penaltyRepository, validate *validator.Validate, logger *zap.Logger) *PenaltyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &PenaltyService{repo: repo, validator: validate, logger: logger}
}

// Get returns a penalty by ID.
func (s *PenaltyService) Get(ctx context.Context, id string) (*models.Penalty, error) {
	penalty, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "penalty not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load penalty")
	}
	return penalty, nil
}

// List returns penalties with pagination metadata.
func (s *PenaltyService) List(ctx context.Context, filter models.PenaltyFilter) ([]models.Penalty, *models.Pagination, error) {
	penalties, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list penalties")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	return penalties, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Create raises a fine manually, typically after a damage inspection.
func (s *PenaltyService) Create(ctx context.Context, req CreatePenaltyRequest) (*models.Penalty, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid penalty payload")
	}
	switch req.PenaltyType {
	case models.PenaltyTypeLateReturn, models.PenaltyTypeDamage, models.PenaltyTypeLoss:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown penalty type")
	}

	penalty := &models.Penalty{
		BorrowID:    req.BorrowID,
		UserID:      req.UserID,
		PenaltyType: req.PenaltyType,
		FineAmount:  req.FineAmount,
		Reason:      req.Reason,
		Status:      models.PenaltyStatusPending,
	}

	if err := s.repo.Create(ctx, penalty); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create penalty")
	}

	return penalty, nil
}

// Resolve transitions a pending penalty to Paid, Waived or Cancelled.
func (s *PenaltyService) Resolve(ctx context.Context, id string, status models.PenaltyStatus) (*models.Penalty, error) {
	switch status {
	case models.PenaltyStatusPaid, models.PenaltyStatusWaived, models.PenaltyStatusCancelled:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "penalty can only move to Paid, Waived or Cancelled")
	}

	penalty, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "penalty not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load penalty")
	}

	if penalty.Status != models.PenaltyStatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "penalty is already settled")
	}

	now := time.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, id, status, &now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update penalty")
	}

	penalty.Status = status
	penalty.ResolvedAt = &now
	return penalty, nil
}
