package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-ops/equiploan-api/internal/models"
)

type mockOverdueBorrowStore struct {
	overdue []models.Borrow
	updated []models.Borrow
}

func (m *mockOverdueBorrowStore) ListOverdue(ctx context.Context, cutoff time.Time) ([]models.Borrow, error) {
	return m.overdue, nil
}

func (m *mockOverdueBorrowStore) Update(ctx context.Context, borrow *models.Borrow) error {
	m.updated = append(m.updated, *borrow)
	return nil
}

type mockOverduePenaltyStore struct {
	existing  map[string]bool
	penalties []*models.Penalty
}

func (m *mockOverduePenaltyStore) Create(ctx context.Context, penalty *models.Penalty) error {
	m.penalties = append(m.penalties, penalty)
	if m.existing == nil {
		m.existing = make(map[string]bool)
	}
	m.existing[penalty.BorrowID] = true
	return nil
}

func (m *mockOverduePenaltyStore) ExistsForBorrow(ctx context.Context, borrowID string, penaltyType models.PenaltyType) (bool, error) {
	return m.existing[borrowID], nil
}

type mockOverdueReservationStore struct {
	expired int64
}

func (m *mockOverdueReservationStore) ExpirePending(ctx context.Context, cutoff time.Time) (int64, error) {
	return m.expired, nil
}

func TestOverdueSweep(t *testing.T) {
	borrows := &mockOverdueBorrowStore{overdue: []models.Borrow{
		{ID: "b1", UserID: "u1", Status: models.BorrowStatusActive, DueDate: time.Now().Add(-47 * time.Hour)},
	}}
	penalties := &mockOverduePenaltyStore{}
	reservations := &mockOverdueReservationStore{expired: 2}
	notifier := &mockNotifier{}
	svc := NewOverdueService(borrows, penalties, reservations, notifier, nil, OverdueConfig{DailyLateFine: 10})

	report, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.MarkedOverdue)
	assert.Equal(t, 1, report.PenaltiesRaised)
	assert.Equal(t, int64(2), report.ReservationsExpired)

	require.Len(t, borrows.updated, 1)
	assert.Equal(t, models.BorrowStatusOverdue, borrows.updated[0].Status)

	require.Len(t, penalties.penalties, 1)
	assert.Equal(t, 20.0, penalties.penalties[0].FineAmount)

	require.Len(t, notifier.notifications, 1)
	assert.Equal(t, models.NotificationTypeReminder, notifier.notifications[0].Type)
}

func TestOverdueSweepDoesNotDoubleFine(t *testing.T) {
	borrows := &mockOverdueBorrowStore{overdue: []models.Borrow{
		{ID: "b1", UserID: "u1", Status: models.BorrowStatusActive, DueDate: time.Now().Add(-47 * time.Hour)},
	}}
	penalties := &mockOverduePenaltyStore{existing: map[string]bool{"b1": true}}
	svc := NewOverdueService(borrows, penalties, &mockOverdueReservationStore{}, nil, nil, OverdueConfig{DailyLateFine: 10})

	report, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.MarkedOverdue)
	assert.Equal(t, 0, report.PenaltiesRaised)
	assert.Empty(t, penalties.penalties)
}
