package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campus-ops/equiploan-api/internal/models"
	appErrors "github.com/campus-ops/equiploan-api/pkg/errors"
)

type feedbackRepository interface {
	GetByID(ctx context.Context, id string) (*models.Feedback, error)
	Create(ctx context.Context, fb *models.Feedback) error
	UpdateStatus(ctx context.Context, id string, status models.FeedbackStatus) error
	List(ctx context.Context, filter models.FeedbackFilter) ([]models.Feedback, int, error)
}

// CreateFeedbackRequest is the payload for submitting feedback.
type CreateFeedbackRequest struct {
	UserID     string  `json:"user_id" validate:"required"`
	ResourceID *string `json:"resource_id,omitempty"`
	BorrowID   *string `json:"borrow_id,omitempty"`
	Rating     int     `json:"rating" validate:"required,min=1,max=5"`
	Comment    *string `json:"comment,omitempty"`
}

// FeedbackService manages user feedback and its triage.
type FeedbackService struct {
	repo      feedbackRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFeedbackService constructs a FeedbackService.
func NewFeedbackService(repo feedbackRepository, validate *validator.Validate, logger *zap.Logger) *FeedbackService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &FeedbackService{repo: repo, validator: validate, logger: logger}
}

// Get returns a feedback entry by ID.
func (s *FeedbackService) Get(ctx context.Context, id string) (*models.Feedback, error) {
	fb, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "feedback not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load feedback")
	}
	return fb, nil
}

// List returns feedback entries with pagination metadata.
func (s *FeedbackService) List(ctx context.Context, filter models.FeedbackFilter) ([]models.Feedback, *models.Pagination, error) {
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list feedback")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	return entries, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Create records a feedback entry in the Pending triage state.
func (s *FeedbackService) Create(ctx context.Context, req CreateFeedbackRequest) (*models.Feedback, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid feedback payload")
	}

	fb := &models.Feedback{
		UserID:     req.UserID,
		ResourceID: req.ResourceID,
		BorrowID:   req.BorrowID,
		Rating:     req.Rating,
		Comment:    req.Comment,
		Status:     models.FeedbackStatusPending,
	}

	if err := s.repo.Create(ctx, fb); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create feedback")
	}

	return fb, nil
}

// SetStatus moves a feedback entry through triage.
func (s *FeedbackService) SetStatus(ctx context.Context, id string, status models.FeedbackStatus) error {
	switch status {
	case models.FeedbackStatusPending, models.FeedbackStatusReviewed, models.FeedbackStatusResolved, models.FeedbackStatusArchived:
	default:
		return appErrors.Clone(appErrors.ErrValidation, "unknown feedback status")
	}

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "feedback not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load feedback")
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update feedback")
	}
	return nil
}
