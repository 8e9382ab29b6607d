package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-ops/equiploan-api/internal/models"
	appErrors "github.com/campus-ops/equiploan-api/pkg/errors"
)

type mockPaymentRepo struct {
	payments map[string]*models.Payment
}

func newMockPaymentRepo() *mockPaymentRepo {
	return &mockPaymentRepo{payments: make(map[string]*models.Payment)}
}

func (m *mockPaymentRepo) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	p, ok := m.payments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return p, nil
}

func (m *mockPaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	m.payments[payment.ID] = payment
	return nil
}

func (m *mockPaymentRepo) UpdateStatus(ctx context.Context, id string, status models.PaymentStatus, paidAt *time.Time) error {
	if p, ok := m.payments[id]; ok {
		p.Status = status
		p.PaidAt = paidAt
	}
	return nil
}

func (m *mockPaymentRepo) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error) {
	out := make([]models.Payment, 0, len(m.payments))
	for _, p := range m.payments {
		out = append(out, *p)
	}
	return out, len(out), nil
}

type mockPaymentPenaltyStore struct {
	penalty *models.Penalty
}

func (m *mockPaymentPenaltyStore) GetByID(ctx context.Context, id string) (*models.Penalty, error) {
	if m.penalty == nil || m.penalty.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.penalty, nil
}

func (m *mockPaymentPenaltyStore) UpdateStatus(ctx context.Context, id string, status models.PenaltyStatus, resolvedAt *time.Time) error {
	if m.penalty != nil && m.penalty.ID == id {
		m.penalty.Status = status
		m.penalty.ResolvedAt = resolvedAt
	}
	return nil
}

func strPtr(s string) *string { return &s }

func TestPaymentServiceCreateMasksCardNumber(t *testing.T) {
	repo := newMockPaymentRepo()
	svc := NewPaymentService(repo, &mockPaymentPenaltyStore{}, nil, nil)

	payment, err := svc.Create(context.Background(), CreatePaymentRequest{
		UserID:        "u1",
		PenaltyID:     strPtr("p1"),
		Amount:        30,
		PaymentMethod: models.PaymentMethodCard,
		CardNumber:    strPtr("4111 1111 1111 1234"),
		CardBrand:     strPtr("Visa"),
	})
	require.NoError(t, err)
	require.NotNil(t, payment.CardLast4)
	assert.Equal(t, "1234", *payment.CardLast4)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)

	// The stored record never carries the full number.
	stored := repo.payments[payment.ID]
	assert.NotContains(t, *stored.CardLast4, "4111")
}

func TestPaymentServiceCreateShortCardNumber(t *testing.T) {
	svc := NewPaymentService(newMockPaymentRepo(), nil, nil, nil)

	_, err := svc.Create(context.Background(), CreatePaymentRequest{
		UserID:        "u1",
		PenaltyID:     strPtr("p1"),
		Amount:        30,
		PaymentMethod: models.PaymentMethodCard,
		CardNumber:    strPtr("12-3"),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestPaymentServiceCreateRequiresExactlyOneRef(t *testing.T) {
	svc := NewPaymentService(newMockPaymentRepo(), nil, nil, nil)

	_, err := svc.Create(context.Background(), CreatePaymentRequest{
		UserID:        "u1",
		Amount:        30,
		PaymentMethod: models.PaymentMethodCash,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), CreatePaymentRequest{
		UserID:        "u1",
		PenaltyID:     strPtr("p1"),
		BorrowID:      strPtr("b1"),
		Amount:        30,
		PaymentMethod: models.PaymentMethodCash,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestPaymentServiceCompleteMarksPenaltyPaid(t *testing.T) {
	repo := newMockPaymentRepo()
	penalties := &mockPaymentPenaltyStore{penalty: &models.Penalty{ID: "p1", Status: models.PenaltyStatusPending}}
	svc := NewPaymentService(repo, penalties, nil, nil)

	payment, err := svc.Create(context.Background(), CreatePaymentRequest{
		UserID:        "u1",
		PenaltyID:     strPtr("p1"),
		Amount:        30,
		PaymentMethod: models.PaymentMethodCash,
	})
	require.NoError(t, err)

	completed, err := svc.Complete(context.Background(), payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, completed.Status)
	require.NotNil(t, completed.PaidAt)
	assert.Equal(t, models.PenaltyStatusPaid, penalties.penalty.Status)
}

func TestPaymentServiceCompleteTwice(t *testing.T) {
	repo := newMockPaymentRepo()
	repo.payments["pay1"] = &models.Payment{ID: "pay1", Status: models.PaymentStatusCompleted}
	svc := NewPaymentService(repo, nil, nil, nil)

	_, err := svc.Complete(context.Background(), "pay1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestPaymentServiceRefund(t *testing.T) {
	repo := newMockPaymentRepo()
	paidAt := time.Now().Add(-time.Hour)
	repo.payments["pay1"] = &models.Payment{ID: "pay1", Status: models.PaymentStatusCompleted, PaidAt: &paidAt}
	svc := NewPaymentService(repo, nil, nil, nil)

	refunded, err := svc.Refund(context.Background(), "pay1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, refunded.Status)

	_, err = svc.Refund(context.Background(), "pay1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}
