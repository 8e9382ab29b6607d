package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/campus-ops/equiploan-api/internal/models"
)

type mockBootstrapRepo struct {
	users     map[string]*models.User
	auditLogs []*models.AuditLog
}

func newMockBootstrapRepo() *mockBootstrapRepo {
	return &mockBootstrapRepo{users: make(map[string]*models.User)}
}

func (m *mockBootstrapRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockBootstrapRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockBootstrapRepo) Update(ctx context.Context, user *models.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *mockBootstrapRepo) UpdateStatus(ctx context.Context, id string, status models.UserStatus) error {
	if u, ok := m.users[id]; ok {
		u.Status = status
	}
	return nil
}

func (m *mockBootstrapRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if u, ok := m.users[id]; ok {
		u.PasswordHash = passwordHash
		u.UpdatedAt = updatedAt
	}
	return nil
}

func (m *mockBootstrapRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func TestEnsureAdminCreatesAccount(t *testing.T) {
	repo := newMockBootstrapRepo()
	svc := NewBootstrapService(repo, nil)

	res, err := svc.EnsureAdmin(context.Background(), "Admin@Campus.EDU", "BootPass11!", "System Admin")
	require.NoError(t, err)
	assert.True(t, res.Created)

	user := repo.users[res.UserID]
	require.NotNil(t, user)
	assert.Equal(t, "admin@campus.edu", user.Email)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.Equal(t, models.UserStatusActive, user.Status)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("BootPass11!")))
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	repo := newMockBootstrapRepo()
	svc := NewBootstrapService(repo, nil)

	first, err := svc.EnsureAdmin(context.Background(), "admin@campus.edu", "BootPass11!", "System Admin")
	require.NoError(t, err)
	require.True(t, first.Created)
	firstHash := repo.users[first.UserID].PasswordHash

	second, err := svc.EnsureAdmin(context.Background(), "admin@campus.edu", "RotatedPass2!", "System Admin")
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.UserID, second.UserID)
	assert.Len(t, repo.users, 1)

	// The rerun resets credentials on the existing account.
	assert.NotEqual(t, firstHash, repo.users[first.UserID].PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.users[first.UserID].PasswordHash), []byte("RotatedPass2!")))
}

func TestEnsureAdminRecoversDemotedAccount(t *testing.T) {
	repo := newMockBootstrapRepo()
	repo.users["u1"] = &models.User{
		ID:     "u1",
		Email:  "admin@campus.edu",
		Role:   models.RoleStudent,
		Status: models.UserStatusSuspended,
	}
	svc := NewBootstrapService(repo, nil)

	res, err := svc.EnsureAdmin(context.Background(), "admin@campus.edu", "BootPass11!", "System Admin")
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, models.RoleAdmin, repo.users["u1"].Role)
	assert.Equal(t, models.UserStatusActive, repo.users["u1"].Status)
}
