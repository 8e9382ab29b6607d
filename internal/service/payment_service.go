package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campus-ops/equiploan-api/internal/models"
	appErrors "github.com/campus-ops/equiploan-api/pkg/errors"
)

type paymentRepository interface {
	GetByID(ctx context.Context, id string) (*models.Payment, error)
	Create(ctx context.Context, payment *models.Payment) error
	UpdateStatus(ctx context.Context, id string, status models.PaymentStatus, paidAt *time.Time) error
	List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error)
}

type paymentPenaltyStore interface {
	GetByID(ctx context.Context, id string) (*models.Penalty, error)
	UpdateStatus(ctx context.Context, id string, status models.PenaltyStatus, resolvedAt *time.Time) error
}

// CreatePaymentRequest records a settlement. CardNumber is accepted on
// intake, reduced to its last four digits, and never persisted or logged in
// full.
type CreatePaymentRequest struct {
	UserID        string               `json:"user_id" validate:"required"`
	PenaltyID     *string              `json:"penalty_id,omitempty"`
	BorrowID      *string              `json:"borrow_id,omitempty"`
	ReservationID *string              `json:"reservation_id,omitempty"`
	Amount        float64              `json:"amount" validate:"min=0"`
	PaymentMethod models.PaymentMethod `json:"payment_method" validate:"required"`
	TransactionID *string              `json:"transaction_id,omitempty"`
	CardNumber    *string              `json:"card_number,omitempty"`
	CardBrand     *string              `json:"card_brand,omitempty"`
}

// PaymentService records settlements against penalties, borrows and
// reservations.
type PaymentService struct {
	repo      paymentRepository
	penalties paymentPenaltyStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPaymentService constructs a PaymentService.
func NewPaymentService(repo paymentRepository, penalties paymentPenaltyStore, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &PaymentService{repo: repo, penalties: penalties, validator: validate, logger: logger}
}

// Get returns a payment by ID.
func (s *PaymentService) Get(ctx context.Context, id string) (*models.Payment, error) {
	payment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	return payment, nil
}

// List returns payments with pagination metadata.
func (s *PaymentService) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, *models.Pagination, error) {
	payments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	return payments, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Create records a pending payment. Exactly one of penalty, borrow or
// reservation must be referenced.
func (s *PaymentService) Create(ctx context.Context, req CreatePaymentRequest) (*models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	switch req.PaymentMethod {
	case models.PaymentMethodCash, models.PaymentMethodCard, models.PaymentMethodOnline, models.PaymentMethodBankTransfer:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown payment method")
	}

	refs := 0
	for _, ref := range []*string{req.PenaltyID, req.BorrowID, req.ReservationID} {
		if ref != nil && *ref != "" {
			refs++
		}
	}
	if refs != 1 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "payment must reference exactly one penalty, borrow or reservation")
	}

	payment := &models.Payment{
		UserID:        req.UserID,
		PenaltyID:     req.PenaltyID,
		BorrowID:      req.BorrowID,
		ReservationID: req.ReservationID,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		TransactionID: req.TransactionID,
		Status:        models.PaymentStatusPending,
		CardBrand:     req.CardBrand,
	}

	if req.CardNumber != nil {
		last4 := maskCardNumber(*req.CardNumber)
		if last4 == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "card number is too short")
		}
		payment.CardLast4 = &last4
	}

	if err := s.repo.Create(ctx, payment); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Code == appErrors.ErrDuplicate.Code {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create payment")
	}

	return payment, nil
}

// Complete settles a pending payment. A payment against a penalty also marks
// that penalty paid.
func (s *PaymentService) Complete(ctx context.Context, id string) (*models.Payment, error) {
	payment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}

	if payment.Status != models.PaymentStatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "payment is not pending")
	}

	now := time.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, id, models.PaymentStatusCompleted, &now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update payment")
	}
	payment.Status = models.PaymentStatusCompleted
	payment.PaidAt = &now

	if payment.PenaltyID != nil && s.penalties != nil {
		if err := s.penalties.UpdateStatus(ctx, *payment.PenaltyID, models.PenaltyStatusPaid, &now); err != nil {
			s.logger.Error("failed to mark penalty paid",
				zap.String("payment_id", payment.ID),
				zap.String("penalty_id", *payment.PenaltyID),
				zap.Error(err))
		}
	}

	return payment, nil
}

// Fail marks a pending payment as failed.
func (s *PaymentService) Fail(ctx context.Context, id string) (*models.Payment, error) {
	payment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	if payment.Status != models.PaymentStatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "payment is not pending")
	}

	if err := s.repo.UpdateStatus(ctx, id, models.PaymentStatusFailed, nil); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update payment")
	}
	payment.Status = models.PaymentStatusFailed
	return payment, nil
}

// Refund reverses a completed payment.
func (s *PaymentService) Refund(ctx context.Context, id string) (*models.Payment, error) {
	payment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	if payment.Status != models.PaymentStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrConflict, "only completed payments can be refunded")
	}

	if err := s.repo.UpdateStatus(ctx, id, models.PaymentStatusRefunded, payment.PaidAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update payment")
	}
	payment.Status = models.PaymentStatusRefunded
	return payment, nil
}

// maskCardNumber strips separators and keeps the last four digits, returning
// an empty string when fewer than four digits remain.
func maskCardNumber(number string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)
	if len(digits) < 4 {
		return ""
	}
	return digits[len(digits)-4:]
}
