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

type notificationRepository interface {
	GetByID(ctx context.Context, id string) (*models.Notification, error)
	Create(ctx context.Context, n *models.Notification) error
	MarkRead(ctx context.Context, id string, readAt time.Time) error
	MarkAllRead(ctx context.Context, userID string, readAt time.Time) (int64, error)
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error)
}

// CreateNotificationRequest is the payload for pushing a notification.
type CreateNotificationRequest struct {
	UserID      string                  `json:"user_id" validate:"required"`
	Type        models.NotificationType `json:"type" validate:"required"`
	Title       string                  `json:"title" validate:"required"`
	Message     string                  `json:"message" validate:"required"`
	RelatedKind models.RelatedKind      `json:"related_kind" validate:"required"`
	RelatedID   *string                 `json:"related_id,omitempty"`
}

// NotificationService manages per-user notifications.
type NotificationService struct {
	repo      notificationRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(repo notificationRepository, validate *validator.Validate, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &NotificationService{repo: repo, validator: validate, logger: logger}
}

// List returns notifications for a user with pagination metadata.
func (s *NotificationService) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, *models.Pagination, error) {
	notifications, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	return notifications, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Create pushes a notification. The related reference dispatches on a closed
// kind set; a System notification is the only kind allowed to omit its ID.
func (s *NotificationService) Create(ctx context.Context, req CreateNotificationRequest) (*models.Notification, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notification payload")
	}
	if !models.ValidRelatedKind(req.RelatedKind) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown related kind")
	}
	if req.RelatedKind != models.RelatedKindSystem && (req.RelatedID == nil || *req.RelatedID == "") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "related id is required for non-system notifications")
	}

	notification := &models.Notification{
		UserID:  req.UserID,
		Type:    req.Type,
		Title:   req.Title,
		Message: req.Message,
		RelatedRef: models.RelatedRef{
			Kind: req.RelatedKind,
			ID:   req.RelatedID,
		},
	}

	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create notification")
	}

	return notification, nil
}

// MarkRead marks one notification as read; marking an already-read entry is
// a no-op rather than an error. Ownership is checked so a user cannot clear
// someone else's inbox.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	notification, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notification")
	}

	if notification.UserID != userID {
		return appErrors.Clone(appErrors.ErrForbidden, "notification does not belong to user")
	}
	if notification.IsRead {
		return nil
	}

	if err := s.repo.MarkRead(ctx, id, time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return nil
}

// MarkAllRead marks every unread notification for a user and reports how
// many were affected.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	affected, err := s.repo.MarkAllRead(ctx, userID, time.Now().UTC())
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notifications read")
	}
	return affected, nil
}
