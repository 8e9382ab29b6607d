package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/campus-ops/equiploan-api/internal/models"
	appErrors "github.com/campus-ops/equiploan-api/pkg/errors"
	"github.com/campus-ops/equiploan-api/pkg/ratelimit"
)

type mockAuthRepo struct {
	user             *models.User
	refreshTokens    map[string]*models.RefreshToken
	auditLogs        []*models.AuditLog
	lastLoginUpdated bool
	resetToken       string
	resetExpiry      *time.Time
	tokenCleared     bool
	revokedAll       bool
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.user == nil || m.user.Email != email {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.user == nil || m.user.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func (m *mockAuthRepo) FindByResetToken(ctx context.Context, token string) (*models.User, error) {
	if m.user == nil || m.resetToken == "" || m.resetToken != token {
		return nil, sql.ErrNoRows
	}
	m.user.ResetToken = &m.resetToken
	m.user.ResetTokenExpiry = m.resetExpiry
	return m.user, nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if m.user != nil && m.user.ID == id {
		m.user.PreviousPasswords = append(m.user.PreviousPasswords, m.user.PasswordHash)
		m.user.PasswordHash = passwordHash
	}
	return nil
}

func (m *mockAuthRepo) SetResetToken(ctx context.Context, id, token string, expiry time.Time) error {
	m.resetToken = token
	m.resetExpiry = &expiry
	return nil
}

func (m *mockAuthRepo) ClearResetToken(ctx context.Context, id string) error {
	m.resetToken = ""
	m.resetExpiry = nil
	m.tokenCleared = true
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revokedAll = true
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.refreshTokens == nil {
		m.refreshTokens = make(map[string]*models.RefreshToken)
	}
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	rt, ok := m.refreshTokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rt, nil
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, token := range m.refreshTokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (m *mockAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func newAuthService(repo *mockAuthRepo, limiter *ratelimit.ResetLimiter) *AuthService {
	if limiter == nil {
		limiter = ratelimit.NewResetLimiter(5, time.Hour)
	}
	return NewAuthService(repo, limiter, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		ResetTokenTTL:      time.Hour,
	})
}

func activeUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	require.NoError(t, err)
	return &models.User{
		ID:           "u1",
		Email:        "dina@campus.edu",
		PasswordHash: string(hash),
		FullName:     "Dina Putri",
		Role:         models.RoleStudent,
		Status:       models.UserStatusActive,
	}
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	repo := &mockAuthRepo{user: activeUser(t, "Password123!")}
	svc := newAuthService(repo, nil)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "dina@campus.edu", Password: "Password123!"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.True(t, repo.lastLoginUpdated)
}

func TestAuthServiceLoginNormalizesEmail(t *testing.T) {
	repo := &mockAuthRepo{user: activeUser(t, "Password123!")}
	svc := newAuthService(repo, nil)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "Dina@Campus.EDU", Password: "Password123!"})
	require.NoError(t, err)
	assert.Equal(t, "u1", res.User.ID)
}

func TestAuthServiceLoginSuspended(t *testing.T) {
	user := activeUser(t, "Password123!")
	user.Status = models.UserStatusSuspended
	svc := newAuthService(&mockAuthRepo{user: user}, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "dina@campus.edu", Password: "Password123!"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	svc := newAuthService(&mockAuthRepo{user: activeUser(t, "Password123!")}, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "dina@campus.edu", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRefreshToken(t *testing.T) {
	repo := &mockAuthRepo{user: activeUser(t, "Password123!"), refreshTokens: map[string]*models.RefreshToken{
		"token": {ID: "rt1", UserID: "u1", Token: "token", ExpiresAt: time.Now().Add(time.Hour)},
	}}
	svc := newAuthService(repo, nil)

	res, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "token"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEqual(t, "token", res.RefreshToken)
	assert.True(t, repo.refreshTokens["token"].Revoked)
}

func TestAuthServiceForgotPasswordIssuesToken(t *testing.T) {
	repo := &mockAuthRepo{user: activeUser(t, "Password123!")}
	svc := newAuthService(repo, nil)

	res, err := svc.ForgotPassword(context.Background(), models.ForgotPasswordRequest{Email: "Dina@Campus.EDU"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, res.Token, repo.resetToken)
	assert.True(t, res.ExpiresAt.After(time.Now()))
}

func TestAuthServiceForgotPasswordUnknownEmailStillSucceeds(t *testing.T) {
	svc := newAuthService(&mockAuthRepo{}, nil)

	res, err := svc.ForgotPassword(context.Background(), models.ForgotPasswordRequest{Email: "ghost@campus.edu"})
	require.NoError(t, err)
	assert.Empty(t, res.Token)
}

func TestAuthServiceForgotPasswordRateLimited(t *testing.T) {
	repo := &mockAuthRepo{user: activeUser(t, "Password123!")}
	limiter := ratelimit.NewResetLimiter(5, time.Hour)
	svc := newAuthService(repo, limiter)

	for i := 0; i < 5; i++ {
		_, err := svc.ForgotPassword(context.Background(), models.ForgotPasswordRequest{Email: "dina@campus.edu"})
		require.NoError(t, err)
	}

	_, err := svc.ForgotPassword(context.Background(), models.ForgotPasswordRequest{Email: "dina@campus.edu"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrTooManyRequests.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "try again in")
}

func TestAuthServiceResetPasswordSuccess(t *testing.T) {
	repo := &mockAuthRepo{user: activeUser(t, "OldPassword1!")}
	limiter := ratelimit.NewResetLimiter(5, time.Hour)
	svc := newAuthService(repo, limiter)

	res, err := svc.ForgotPassword(context.Background(), models.ForgotPasswordRequest{Email: "dina@campus.edu"})
	require.NoError(t, err)

	err = svc.ResetPassword(context.Background(), models.ResetPasswordRequest{Token: res.Token, NewPassword: "FreshStart9#"})
	require.NoError(t, err)
	assert.True(t, repo.tokenCleared)
	assert.True(t, repo.revokedAll)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.user.PasswordHash), []byte("FreshStart9#")))
	// Completing the reset clears the request window for that email.
	assert.Equal(t, 0, limiter.Len())
}

func TestAuthServiceResetPasswordBadToken(t *testing.T) {
	svc := newAuthService(&mockAuthRepo{user: activeUser(t, "OldPassword1!")}, nil)

	err := svc.ResetPassword(context.Background(), models.ResetPasswordRequest{Token: "bogus", NewPassword: "FreshStart9#"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceResetPasswordExpiredToken(t *testing.T) {
	repo := &mockAuthRepo{user: activeUser(t, "OldPassword1!")}
	expired := time.Now().Add(-time.Minute)
	repo.resetToken = "stale"
	repo.resetExpiry = &expired
	svc := newAuthService(repo, nil)

	err := svc.ResetPassword(context.Background(), models.ResetPasswordRequest{Token: "stale", NewPassword: "FreshStart9#"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceResetPasswordRejectsWeak(t *testing.T) {
	repo := &mockAuthRepo{user: activeUser(t, "OldPassword1!")}
	future := time.Now().Add(time.Hour)
	repo.resetToken = "tok"
	repo.resetExpiry = &future
	svc := newAuthService(repo, nil)

	err := svc.ResetPassword(context.Background(), models.ResetPasswordRequest{Token: "tok", NewPassword: "short"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceResetPasswordRejectsReuse(t *testing.T) {
	repo := &mockAuthRepo{user: activeUser(t, "OldPassword1!")}
	priorHash, err := bcrypt.GenerateFromPassword([]byte("Recycled22@"), bcrypt.DefaultCost)
	require.NoError(t, err)
	repo.user.PreviousPasswords = pq.StringArray{string(priorHash)}
	future := time.Now().Add(time.Hour)
	repo.resetToken = "tok"
	repo.resetExpiry = &future
	svc := newAuthService(repo, nil)

	err = svc.ResetPassword(context.Background(), models.ResetPasswordRequest{Token: "tok", NewPassword: "Recycled22@"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "previously used")
}

func TestAuthServiceChangePassword(t *testing.T) {
	repo := &mockAuthRepo{user: activeUser(t, "OldPassword1!")}
	svc := newAuthService(repo, nil)

	err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{
		OldPassword: "OldPassword1!",
		NewPassword: "BrandNew33$x",
	})
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.user.PasswordHash), []byte("BrandNew33$x")))
	assert.Len(t, repo.user.PreviousPasswords, 1)
}

func TestValidateToken(t *testing.T) {
	svc := newAuthService(&mockAuthRepo{}, nil)
	user := &models.User{ID: "u1", Email: "dina@campus.edu", Role: models.RoleStudent}
	token, _, err := svc.generateAccessToken(user)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
}
