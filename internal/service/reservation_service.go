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

type reservationRepository interface {
	GetByID(ctx context.Context, id string) (*models.Reservation, error)
	Create(ctx context.Context, reservation *models.Reservation) error
	Update(ctx context.Context, reservation *models.Reservation) error
	List(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, int, error)
}

// CreateReservationRequest is the payload for holding a resource.
type CreateReservationRequest struct {
	UserID     string     `json:"user_id" validate:"required"`
	ResourceID string     `json:"resource_id" validate:"required"`
	PickupDate time.Time  `json:"pickup_date" validate:"required"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
	Notes      *string    `json:"notes,omitempty"`
}

// ReservationConfig tunes hold behaviour.
type ReservationConfig struct {
	DefaultHoldPeriod time.Duration
}

// ReservationService manages resource holds ahead of pickup.
type ReservationService struct {
	repo      reservationRepository
	users     borrowUserLookup
	resources borrowResourceStore
	validator *validator.Validate
	logger    *zap.Logger
	config    ReservationConfig
}

// NewReservationService constructs a ReservationService.
func NewReservationService(repo reservationRepository, users borrowUserLookup, resources borrowResourceStore, validate *validator.Validate, logger *zap.Logger, config ReservationConfig) *ReservationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.DefaultHoldPeriod <= 0 {
		config.DefaultHoldPeriod = 48 * time.Hour
	}
	return &ReservationService{repo: repo, users: users, resources: resources, validator: validate, logger: logger, config: config}
}

// Get returns a reservation by ID.
func (s *ReservationService) Get(ctx context.Context, id string) (*models.Reservation, error) {
	reservation, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "reservation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reservation")
	}
	return reservation, nil
}

// List returns reservations with pagination metadata.
func (s *ReservationService) List(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, *models.Pagination, error) {
	reservations, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reservations")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	return reservations, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Create places a hold on a resource unit. The unit is taken out of
// availability immediately so a reservation is a real claim, not a hint.
func (s *ReservationService) Create(ctx context.Context, req CreateReservationRequest) (*models.Reservation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reservation payload")
	}

	now := time.Now().UTC()
	if req.PickupDate.Before(now) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "pickup date must be in the future")
	}

	user, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if user.Status != models.UserStatusActive {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "account is not eligible to reserve")
	}

	if _, err := s.resources.GetByID(ctx, req.ResourceID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "resource not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load resource")
	}

	if err := s.resources.AdjustAvailability(ctx, req.ResourceID, -1); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hold resource unit")
	}

	expiry := req.PickupDate.Add(s.config.DefaultHoldPeriod)
	if req.ExpiryDate != nil {
		expiry = req.ExpiryDate.UTC()
	}

	reservation := &models.Reservation{
		UserID:          req.UserID,
		ResourceID:      req.ResourceID,
		ReservationDate: now,
		PickupDate:      req.PickupDate.UTC(),
		ExpiryDate:      expiry,
		Status:          models.ReservationStatusPending,
		Notes:           req.Notes,
	}

	if err := s.repo.Create(ctx, reservation); err != nil {
		if releaseErr := s.resources.AdjustAvailability(ctx, req.ResourceID, 1); releaseErr != nil {
			s.logger.Error("failed to release held unit", zap.String("resource_id", req.ResourceID), zap.Error(releaseErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create reservation")
	}

	return reservation, nil
}

// Confirm marks a pending reservation as confirmed.
func (s *ReservationService) Confirm(ctx context.Context, id string) (*models.Reservation, error) {
	return s.transition(ctx, id, models.ReservationStatusPending, models.ReservationStatusConfirmed, false)
}

// Complete marks a reservation as picked up. The held unit passes to the
// borrow that the desk creates, so availability is left untouched here.
func (s *ReservationService) Complete(ctx context.Context, id string) (*models.Reservation, error) {
	reservation, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "reservation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reservation")
	}
	if reservation.Status != models.ReservationStatusPending && reservation.Status != models.ReservationStatusConfirmed {
		return nil, appErrors.Clone(appErrors.ErrConflict, "reservation is not open")
	}

	reservation.Status = models.ReservationStatusCompleted
	if err := s.repo.Update(ctx, reservation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update reservation")
	}
	return reservation, nil
}

// Cancel releases an open reservation and returns the unit to availability.
func (s *ReservationService) Cancel(ctx context.Context, id string) (*models.Reservation, error) {
	reservation, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "reservation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reservation")
	}
	if reservation.Status != models.ReservationStatusPending && reservation.Status != models.ReservationStatusConfirmed {
		return nil, appErrors.Clone(appErrors.ErrConflict, "reservation is not open")
	}

	reservation.Status = models.ReservationStatusCancelled
	if err := s.repo.Update(ctx, reservation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update reservation")
	}

	if err := s.resources.AdjustAvailability(ctx, reservation.ResourceID, 1); err != nil {
		s.logger.Error("failed to release unit after cancellation",
			zap.String("reservation_id", reservation.ID),
			zap.String("resource_id", reservation.ResourceID),
			zap.Error(err))
	}

	return reservation, nil
}

func (s *ReservationService) transition(ctx context.Context, id string, from, to models.ReservationStatus, releaseUnit bool) (*models.Reservation, error) {
	reservation, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "reservation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reservation")
	}
	if reservation.Status != from {
		return nil, appErrors.Clone(appErrors.ErrConflict, "reservation is not in the required state")
	}

	reservation.Status = to
	if err := s.repo.Update(ctx, reservation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update reservation")
	}

	if releaseUnit {
		if err := s.resources.AdjustAvailability(ctx, reservation.ResourceID, 1); err != nil {
			s.logger.Error("failed to release unit", zap.String("reservation_id", reservation.ID), zap.Error(err))
		}
	}

	return reservation, nil
}
