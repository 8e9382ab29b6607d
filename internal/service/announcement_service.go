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

type announcementRepository interface {
	List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, int, error)
	GetByID(ctx context.Context, id string) (*models.Announcement, error)
	Create(ctx context.Context, announcement *models.Announcement) error
	Update(ctx context.Context, announcement *models.Announcement) error
	Deactivate(ctx context.Context, id string) error
}

// AnnouncementService handles announcement workflows.
type AnnouncementService struct {
	repo      announcementRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAnnouncementService constructs the service and registers the audience
// and priority field validators.
func NewAnnouncementService(repo announcementRepository, validate *validator.Validate, logger *zap.Logger) *AnnouncementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AnnouncementService{repo: repo, validator: validate, logger: logger}
	svc.validator.RegisterValidation("audience", func(fl validator.FieldLevel) bool {
		switch models.AnnouncementAudience(fl.Field().String()) {
		case models.AnnouncementAudienceAll, models.AnnouncementAudienceStudents,
			models.AnnouncementAudienceStaff, models.AnnouncementAudienceAdmin:
			return true
		default:
			return false
		}
	})
	svc.validator.RegisterValidation("priority", func(fl validator.FieldLevel) bool {
		switch models.AnnouncementPriority(fl.Field().String()) {
		case models.AnnouncementPriorityLow, models.AnnouncementPriorityNormal,
			models.AnnouncementPriorityMedium, models.AnnouncementPriorityHigh:
			return true
		default:
			return false
		}
	})
	return svc
}

// CreateAnnouncementRequest describes the create payload.
type CreateAnnouncementRequest struct {
	Title          string     `json:"title" validate:"required"`
	Message        string     `json:"message" validate:"required"`
	Priority       string     `json:"priority" validate:"required,priority"`
	TargetAudience string     `json:"target_audience" validate:"required,audience"`
	CreatedBy      string     `json:"created_by" validate:"required"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

// UpdateAnnouncementRequest describes the update payload.
type UpdateAnnouncementRequest struct {
	Title          string     `json:"title" validate:"required"`
	Message        string     `json:"message" validate:"required"`
	Priority       string     `json:"priority" validate:"required,priority"`
	TargetAudience string     `json:"target_audience" validate:"required,audience"`
	IsActive       *bool      `json:"is_active,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

// List returns announcements with pagination metadata. Expired entries are
// filtered out of active-only listings here rather than in SQL so the expiry
// check shares one clock.
func (s *AnnouncementService) List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, *models.Pagination, error) {
	announcements, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list announcements")
	}

	if filter.ActiveOnly {
		now := time.Now().UTC()
		filtered := announcements[:0]
		for _, ann := range announcements {
			if ann.ExpiresAt != nil && ann.ExpiresAt.Before(now) {
				total--
				continue
			}
			filtered = append(filtered, ann)
		}
		announcements = filtered
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	return announcements, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get returns an announcement by ID.
func (s *AnnouncementService) Get(ctx context.Context, id string) (*models.Announcement, error) {
	ann, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load announcement")
	}
	return ann, nil
}

// Create publishes a new announcement.
func (s *AnnouncementService) Create(ctx context.Context, req CreateAnnouncementRequest) (*models.Announcement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid announcement payload")
	}

	ann := &models.Announcement{
		Title:          req.Title,
		Message:        req.Message,
		Priority:       models.AnnouncementPriority(req.Priority),
		TargetAudience: models.AnnouncementAudience(req.TargetAudience),
		CreatedBy:      req.CreatedBy,
		IsActive:       true,
		ExpiresAt:      req.ExpiresAt,
	}

	if err := s.repo.Create(ctx, ann); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create announcement")
	}

	return ann, nil
}

// Update rewrites an announcement.
func (s *AnnouncementService) Update(ctx context.Context, id string, req UpdateAnnouncementRequest) (*models.Announcement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid announcement payload")
	}

	ann, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load announcement")
	}

	ann.Title = req.Title
	ann.Message = req.Message
	ann.Priority = models.AnnouncementPriority(req.Priority)
	ann.TargetAudience = models.AnnouncementAudience(req.TargetAudience)
	ann.ExpiresAt = req.ExpiresAt
	if req.IsActive != nil {
		ann.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, ann); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update announcement")
	}

	return ann, nil
}

// Deactivate soft-removes an announcement.
func (s *AnnouncementService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load announcement")
	}

	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate announcement")
	}
	return nil
}
