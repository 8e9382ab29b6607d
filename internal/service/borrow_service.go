package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campus-ops/equiploan-api/internal/models"
	appErrors "github.com/campus-ops/equiploan-api/pkg/errors"
)

type borrowRepository interface {
	GetByID(ctx context.Context, id string) (*models.Borrow, error)
	Create(ctx context.Context, borrow *models.Borrow) error
	Update(ctx context.Context, borrow *models.Borrow) error
	CountActiveByUser(ctx context.Context, userID string) (int, error)
	List(ctx context.Context, filter models.BorrowFilter) ([]models.Borrow, int, error)
}

type borrowUserLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type borrowResourceStore interface {
	GetByID(ctx context.Context, id string) (*models.Resource, error)
	AdjustAvailability(ctx context.Context, id string, delta int) error
}

type borrowPenaltyStore interface {
	Create(ctx context.Context, penalty *models.Penalty) error
}

type borrowNotifier interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// BorrowConfig tunes lending rules.
type BorrowConfig struct {
	DefaultLoanPeriod time.Duration
	MaxActiveLoans    int
	DailyLateFine     float64
}

// CreateBorrowRequest is the checkout payload.
type CreateBorrowRequest struct {
	UserID            string                 `json:"user_id" validate:"required"`
	ResourceID        string                 `json:"resource_id" validate:"required"`
	DueDate           *time.Time             `json:"due_date,omitempty"`
	ConditionOnBorrow *models.ConditionGrade `json:"condition_on_borrow,omitempty"`
	Notes             *string                `json:"notes,omitempty"`
}

// ReturnBorrowRequest closes out a loan at the desk.
type ReturnBorrowRequest struct {
	ConditionOnReturn models.ConditionGrade `json:"condition_on_return" validate:"required"`
	Notes             *string               `json:"notes,omitempty"`
}

// BorrowService coordinates the lending workflow: checkout, return, approval
// and the fines that fall out of late or damaged returns.
type BorrowService struct {
	repo      borrowRepository
	users     borrowUserLookup
	resources borrowResourceStore
	penalties borrowPenaltyStore
	notifier  borrowNotifier
	validator *validator.Validate
	logger    *zap.Logger
	config    BorrowConfig
}

// NewBorrowService constructs a BorrowService.
func NewBorrowService(repo borrowRepository, users borrowUserLookup, resources borrowResourceStore, penalties borrowPenaltyStore, notifier borrowNotifier, validate *validator.Validate, logger *zap.Logger, config BorrowConfig) *BorrowService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.DefaultLoanPeriod <= 0 {
		config.DefaultLoanPeriod = 7 * 24 * time.Hour
	}
	if config.MaxActiveLoans <= 0 {
		config.MaxActiveLoans = 5
	}
	return &BorrowService{
		repo:      repo,
		users:     users,
		resources: resources,
		penalties: penalties,
		notifier:  notifier,
		validator: validate,
		logger:    logger,
		config:    config,
	}
}

// Get returns a borrow by ID.
func (s *BorrowService) Get(ctx context.Context, id string) (*models.Borrow, error) {
	borrow, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "borrow not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load borrow")
	}
	return borrow, nil
}

// List returns borrow transactions with pagination metadata.
func (s *BorrowService) List(ctx context.Context, filter models.BorrowFilter) ([]models.Borrow, *models.Pagination, error) {
	borrows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list borrows")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	return borrows, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Create checks out a resource. Availability is decremented up front through
// a bounds-checked update, so two concurrent checkouts of the last unit
// cannot both succeed.
func (s *BorrowService) Create(ctx context.Context, req CreateBorrowRequest) (*models.Borrow, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid borrow payload")
	}
	if req.ConditionOnBorrow != nil && !models.ValidConditionGrade(*req.ConditionOnBorrow) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown condition grade")
	}

	user, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if user.Status != models.UserStatusActive {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "account is not eligible to borrow")
	}

	active, err := s.repo.CountActiveByUser(ctx, req.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count active borrows")
	}
	if active >= s.config.MaxActiveLoans {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("active loan limit of %d reached", s.config.MaxActiveLoans))
	}

	resource, err := s.resources.GetByID(ctx, req.ResourceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "resource not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load resource")
	}
	if resource.Status == models.ResourceStatusMaintenance || resource.Status == models.ResourceStatusLost {
		return nil, appErrors.Clone(appErrors.ErrConflict, "resource is not available for borrowing")
	}

	if err := s.resources.AdjustAvailability(ctx, req.ResourceID, -1); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reserve resource unit")
	}

	now := time.Now().UTC()
	dueDate := now.Add(s.config.DefaultLoanPeriod)
	if req.DueDate != nil {
		if req.DueDate.Before(now) {
			// Roll back the decrement; the payload is bad, not the stock.
			s.releaseUnit(ctx, req.ResourceID)
			return nil, appErrors.Clone(appErrors.ErrValidation, "due date must be in the future")
		}
		dueDate = req.DueDate.UTC()
	}

	borrow := &models.Borrow{
		UserID:            req.UserID,
		ResourceID:        req.ResourceID,
		BorrowDate:        now,
		DueDate:           dueDate,
		Status:            models.BorrowStatusActive,
		ConditionOnBorrow: req.ConditionOnBorrow,
		Notes:             req.Notes,
	}

	if err := s.repo.Create(ctx, borrow); err != nil {
		s.releaseUnit(ctx, req.ResourceID)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create borrow")
	}

	s.logger.Info("resource checked out",
		zap.String("borrow_id", borrow.ID),
		zap.String("user_id", borrow.UserID),
		zap.String("resource_id", borrow.ResourceID),
		zap.Time("due_date", borrow.DueDate))

	return borrow, nil
}

// Return closes out a loan. A past-due return raises a Late Return penalty
// and a Poor condition grade raises a Damage penalty; both are idempotent at
// this level because a borrow can only be returned once.
func (s *BorrowService) Return(ctx context.Context, id string, req ReturnBorrowRequest) (*models.Borrow, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid return payload")
	}
	if !models.ValidConditionGrade(req.ConditionOnReturn) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown condition grade")
	}

	borrow, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "borrow not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load borrow")
	}

	if borrow.Status != models.BorrowStatusActive && borrow.Status != models.BorrowStatusOverdue {
		return nil, appErrors.Clone(appErrors.ErrConflict, "borrow is not open")
	}

	now := time.Now().UTC()
	daysLate := borrow.DaysLate(now)
	if borrow.Status == models.BorrowStatusOverdue && daysLate == 0 {
		// DaysLate only counts Active borrows; recompute for swept ones.
		daysLate = (models.Borrow{Status: models.BorrowStatusActive, DueDate: borrow.DueDate}).DaysLate(now)
	}

	grade := req.ConditionOnReturn
	borrow.ReturnDate = &now
	borrow.Status = models.BorrowStatusReturned
	borrow.ConditionOnReturn = &grade
	if req.Notes != nil {
		borrow.Notes = req.Notes
	}

	if err := s.repo.Update(ctx, borrow); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update borrow")
	}

	if err := s.resources.AdjustAvailability(ctx, borrow.ResourceID, 1); err != nil {
		s.logger.Error("failed to restore resource availability after return",
			zap.String("borrow_id", borrow.ID),
			zap.String("resource_id", borrow.ResourceID),
			zap.Error(err))
	}

	if daysLate > 0 {
		s.raisePenalty(ctx, borrow, models.PenaltyTypeLateReturn,
			float64(daysLate)*s.config.DailyLateFine,
			fmt.Sprintf("returned %d day(s) late", daysLate))
	}
	if grade == models.ConditionPoor {
		s.raisePenalty(ctx, borrow, models.PenaltyTypeDamage, 0,
			"returned in poor condition, fine assessed on inspection")
	}

	return borrow, nil
}

// Approve moves a pending borrow into the active state.
func (s *BorrowService) Approve(ctx context.Context, id string) (*models.Borrow, error) {
	borrow, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "borrow not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load borrow")
	}

	if borrow.Status != models.BorrowStatusPendingApproval {
		return nil, appErrors.Clone(appErrors.ErrConflict, "borrow is not awaiting approval")
	}

	borrow.Status = models.BorrowStatusActive
	if err := s.repo.Update(ctx, borrow); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update borrow")
	}

	return borrow, nil
}

// MarkLost flags a borrow as lost and raises a Loss penalty for the
// resource's replacement cost. The unit is not restored to availability.
func (s *BorrowService) MarkLost(ctx context.Context, id string) (*models.Borrow, error) {
	borrow, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "borrow not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load borrow")
	}

	if borrow.Status != models.BorrowStatusActive && borrow.Status != models.BorrowStatusOverdue {
		return nil, appErrors.Clone(appErrors.ErrConflict, "borrow is not open")
	}

	borrow.Status = models.BorrowStatusLost
	if err := s.repo.Update(ctx, borrow); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update borrow")
	}

	amount := 0.0
	if resource, err := s.resources.GetByID(ctx, borrow.ResourceID); err == nil {
		amount = resource.ReplacementCost
	}
	s.raisePenalty(ctx, borrow, models.PenaltyTypeLoss, amount, "resource reported lost")

	return borrow, nil
}

func (s *BorrowService) raisePenalty(ctx context.Context, borrow *models.Borrow, penaltyType models.PenaltyType, amount float64, reason string) {
	penalty := &models.Penalty{
		BorrowID:    borrow.ID,
		UserID:      borrow.UserID,
		PenaltyType: penaltyType,
		FineAmount:  amount,
		Reason:      &reason,
		Status:      models.PenaltyStatusPending,
	}
	if err := s.penalties.Create(ctx, penalty); err != nil {
		s.logger.Error("failed to raise penalty",
			zap.String("borrow_id", borrow.ID),
			zap.String("penalty_type", string(penaltyType)),
			zap.Error(err))
		return
	}

	if s.notifier != nil {
		message := fmt.Sprintf("A %s penalty of %.2f was added to your account: %s", penaltyType, amount, reason)
		notification := &models.Notification{
			UserID:  borrow.UserID,
			Type:    models.NotificationTypeWarning,
			Title:   "Penalty issued",
			Message: message,
			RelatedRef: models.RelatedRef{
				Kind: models.RelatedKindPenalty,
				ID:   &penalty.ID,
			},
		}
		if err := s.notifier.Create(ctx, notification); err != nil {
			s.logger.Warn("failed to notify user about penalty", zap.Error(err))
		}
	}
}

func (s *BorrowService) releaseUnit(ctx context.Context, resourceID string) {
	if err := s.resources.AdjustAvailability(ctx, resourceID, 1); err != nil {
		s.logger.Error("failed to release resource unit", zap.String("resource_id", resourceID), zap.Error(err))
	}
}
