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

type mockBorrowRepo struct {
	borrows     map[string]*models.Borrow
	activeCount int
}

func newMockBorrowRepo() *mockBorrowRepo {
	return &mockBorrowRepo{borrows: make(map[string]*models.Borrow)}
}

func (m *mockBorrowRepo) GetByID(ctx context.Context, id string) (*models.Borrow, error) {
	b, ok := m.borrows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return b, nil
}

func (m *mockBorrowRepo) Create(ctx context.Context, borrow *models.Borrow) error {
	if borrow.ID == "" {
		borrow.ID = uuid.NewString()
	}
	m.borrows[borrow.ID] = borrow
	return nil
}

func (m *mockBorrowRepo) Update(ctx context.Context, borrow *models.Borrow) error {
	m.borrows[borrow.ID] = borrow
	return nil
}

func (m *mockBorrowRepo) CountActiveByUser(ctx context.Context, userID string) (int, error) {
	return m.activeCount, nil
}

func (m *mockBorrowRepo) List(ctx context.Context, filter models.BorrowFilter) ([]models.Borrow, int, error) {
	out := make([]models.Borrow, 0, len(m.borrows))
	for _, b := range m.borrows {
		out = append(out, *b)
	}
	return out, len(out), nil
}

type mockBorrowUserLookup struct {
	user *models.User
}

func (m *mockBorrowUserLookup) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.user == nil || m.user.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

type mockResourceStore struct {
	resource    *models.Resource
	adjustments []int
	exhausted   bool
}

func (m *mockResourceStore) GetByID(ctx context.Context, id string) (*models.Resource, error) {
	if m.resource == nil || m.resource.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.resource, nil
}

func (m *mockResourceStore) AdjustAvailability(ctx context.Context, id string, delta int) error {
	if m.exhausted && delta < 0 {
		return appErrors.Clone(appErrors.ErrConflict, "resource availability exhausted")
	}
	m.adjustments = append(m.adjustments, delta)
	return nil
}

type mockPenaltyStore struct {
	penalties []*models.Penalty
}

func (m *mockPenaltyStore) Create(ctx context.Context, penalty *models.Penalty) error {
	if penalty.ID == "" {
		penalty.ID = uuid.NewString()
	}
	m.penalties = append(m.penalties, penalty)
	return nil
}

type mockNotifier struct {
	notifications []*models.Notification
}

func (m *mockNotifier) Create(ctx context.Context, notification *models.Notification) error {
	m.notifications = append(m.notifications, notification)
	return nil
}

type borrowFixture struct {
	repo      *mockBorrowRepo
	users     *mockBorrowUserLookup
	resources *mockResourceStore
	penalties *mockPenaltyStore
	notifier  *mockNotifier
	svc       *BorrowService
}

func newBorrowFixture(t *testing.T) *borrowFixture {
	t.Helper()
	f := &borrowFixture{
		repo: newMockBorrowRepo(),
		users: &mockBorrowUserLookup{user: &models.User{
			ID:     "u1",
			Email:  "dina@campus.edu",
			Role:   models.RoleStudent,
			Status: models.UserStatusActive,
		}},
		resources: &mockResourceStore{resource: &models.Resource{
			ID:             "r1",
			Name:           "Oscilloscope",
			Status:         models.ResourceStatusAvailable,
			TotalQuantity:     3,
			AvailableQuantity: 2,
		}},
		penalties: &mockPenaltyStore{},
		notifier:  &mockNotifier{},
	}
	f.svc = NewBorrowService(f.repo, f.users, f.resources, f.penalties, f.notifier, nil, nil, BorrowConfig{
		DefaultLoanPeriod: 7 * 24 * time.Hour,
		MaxActiveLoans:    5,
		DailyLateFine:     10,
	})
	return f
}

func TestBorrowServiceCreate(t *testing.T) {
	f := newBorrowFixture(t)

	borrow, err := f.svc.Create(context.Background(), CreateBorrowRequest{UserID: "u1", ResourceID: "r1"})
	require.NoError(t, err)
	assert.Equal(t, models.BorrowStatusActive, borrow.Status)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), borrow.DueDate, time.Minute)
	assert.Equal(t, []int{-1}, f.resources.adjustments)
}

func TestBorrowServiceCreateSuspendedUser(t *testing.T) {
	f := newBorrowFixture(t)
	f.users.user.Status = models.UserStatusSuspended

	_, err := f.svc.Create(context.Background(), CreateBorrowRequest{UserID: "u1", ResourceID: "r1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.resources.adjustments)
}

func TestBorrowServiceCreateLoanCapReached(t *testing.T) {
	f := newBorrowFixture(t)
	f.repo.activeCount = 5

	_, err := f.svc.Create(context.Background(), CreateBorrowRequest{UserID: "u1", ResourceID: "r1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestBorrowServiceCreateNoUnitsLeft(t *testing.T) {
	f := newBorrowFixture(t)
	f.resources.exhausted = true

	_, err := f.svc.Create(context.Background(), CreateBorrowRequest{UserID: "u1", ResourceID: "r1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.repo.borrows)
}

func TestBorrowServiceCreatePastDueDate(t *testing.T) {
	f := newBorrowFixture(t)
	past := time.Now().Add(-time.Hour)

	_, err := f.svc.Create(context.Background(), CreateBorrowRequest{UserID: "u1", ResourceID: "r1", DueDate: &past})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	// The reserved unit goes back when the payload is rejected.
	assert.Equal(t, []int{-1, 1}, f.resources.adjustments)
}

func TestBorrowServiceReturnOnTime(t *testing.T) {
	f := newBorrowFixture(t)
	f.repo.borrows["b1"] = &models.Borrow{
		ID:         "b1",
		UserID:     "u1",
		ResourceID: "r1",
		Status:     models.BorrowStatusActive,
		DueDate:    time.Now().Add(24 * time.Hour),
	}

	borrow, err := f.svc.Return(context.Background(), "b1", ReturnBorrowRequest{ConditionOnReturn: models.ConditionGood})
	require.NoError(t, err)
	assert.Equal(t, models.BorrowStatusReturned, borrow.Status)
	require.NotNil(t, borrow.ReturnDate)
	assert.Equal(t, []int{1}, f.resources.adjustments)
	assert.Empty(t, f.penalties.penalties)
}

func TestBorrowServiceReturnLateRaisesFine(t *testing.T) {
	f := newBorrowFixture(t)
	f.repo.borrows["b1"] = &models.Borrow{
		ID:         "b1",
		UserID:     "u1",
		ResourceID: "r1",
		Status:     models.BorrowStatusActive,
		DueDate:    time.Now().Add(-71 * time.Hour),
	}

	_, err := f.svc.Return(context.Background(), "b1", ReturnBorrowRequest{ConditionOnReturn: models.ConditionGood})
	require.NoError(t, err)
	require.Len(t, f.penalties.penalties, 1)
	penalty := f.penalties.penalties[0]
	assert.Equal(t, models.PenaltyTypeLateReturn, penalty.PenaltyType)
	assert.Equal(t, 30.0, penalty.FineAmount)
	require.Len(t, f.notifier.notifications, 1)
	assert.Equal(t, models.NotificationTypeWarning, f.notifier.notifications[0].Type)
}

func TestBorrowServiceReturnOverdueSweptBorrow(t *testing.T) {
	f := newBorrowFixture(t)
	f.repo.borrows["b1"] = &models.Borrow{
		ID:         "b1",
		UserID:     "u1",
		ResourceID: "r1",
		Status:     models.BorrowStatusOverdue,
		DueDate:    time.Now().Add(-47 * time.Hour),
	}

	_, err := f.svc.Return(context.Background(), "b1", ReturnBorrowRequest{ConditionOnReturn: models.ConditionGood})
	require.NoError(t, err)
	require.Len(t, f.penalties.penalties, 1)
	assert.Equal(t, 20.0, f.penalties.penalties[0].FineAmount)
}

func TestBorrowServiceReturnPoorConditionRaisesDamage(t *testing.T) {
	f := newBorrowFixture(t)
	f.repo.borrows["b1"] = &models.Borrow{
		ID:         "b1",
		UserID:     "u1",
		ResourceID: "r1",
		Status:     models.BorrowStatusActive,
		DueDate:    time.Now().Add(24 * time.Hour),
	}

	_, err := f.svc.Return(context.Background(), "b1", ReturnBorrowRequest{ConditionOnReturn: models.ConditionPoor})
	require.NoError(t, err)
	require.Len(t, f.penalties.penalties, 1)
	assert.Equal(t, models.PenaltyTypeDamage, f.penalties.penalties[0].PenaltyType)
}

func TestBorrowServiceReturnAlreadyClosed(t *testing.T) {
	f := newBorrowFixture(t)
	f.repo.borrows["b1"] = &models.Borrow{ID: "b1", Status: models.BorrowStatusReturned}

	_, err := f.svc.Return(context.Background(), "b1", ReturnBorrowRequest{ConditionOnReturn: models.ConditionGood})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestBorrowServiceApprove(t *testing.T) {
	f := newBorrowFixture(t)
	f.repo.borrows["b1"] = &models.Borrow{ID: "b1", Status: models.BorrowStatusPendingApproval}

	borrow, err := f.svc.Approve(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, models.BorrowStatusActive, borrow.Status)
}

func TestBorrowServiceMarkLost(t *testing.T) {
	f := newBorrowFixture(t)
	f.resources.resource.ReplacementCost = 250
	f.repo.borrows["b1"] = &models.Borrow{
		ID:         "b1",
		UserID:     "u1",
		ResourceID: "r1",
		Status:     models.BorrowStatusActive,
		DueDate:    time.Now().Add(24 * time.Hour),
	}

	borrow, err := f.svc.MarkLost(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, models.BorrowStatusLost, borrow.Status)
	// A lost unit is not restocked.
	assert.Empty(t, f.resources.adjustments)
	require.Len(t, f.penalties.penalties, 1)
	assert.Equal(t, models.PenaltyTypeLoss, f.penalties.penalties[0].PenaltyType)
	assert.Equal(t, 250.0, f.penalties.penalties[0].FineAmount)
}
