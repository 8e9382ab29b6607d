package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/campus-ops/equiploan-api/internal/models"
	appErrors "github.com/campus-ops/equiploan-api/pkg/errors"
	"github.com/campus-ops/equiploan-api/pkg/ratelimit"
)

// bootstrapCost is the bcrypt cost factor for bootstrap credentials.
const bootstrapCost = 10

type bootstrapUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	UpdateStatus(ctx context.Context, id string, status models.UserStatus) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// BootstrapResult reports what EnsureAdmin did.
type BootstrapResult struct {
	UserID  string
	Created bool
}

// BootstrapService idempotently ensures an administrative account exists
// with known credentials. Running it twice leaves exactly one admin: the
// second run resets credentials on the existing account instead of creating
// a duplicate.
type BootstrapService struct {
	repo   bootstrapUserRepository
	logger *zap.Logger
}

// NewBootstrapService constructs a BootstrapService.
func NewBootstrapService(repo bootstrapUserRepository, logger *zap.Logger) *BootstrapService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BootstrapService{repo: repo, logger: logger}
}

// EnsureAdmin looks up the account by normalized email. If it exists the
// password hash is reset, the role forced to Admin, the status to Active and
// the display name updated, recovering access to a known account. Otherwise
// a fresh Admin account is created.
func (s *BootstrapService) EnsureAdmin(ctx context.Context, email, password, fullName string) (*BootstrapResult, error) {
	email = ratelimit.NormalizeEmail(email)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bootstrapCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user, err := s.repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		now := time.Now().UTC()
		if err := s.repo.UpdatePassword(ctx, user.ID, string(hash), now); err != nil {
			return nil, err
		}
		user.FullName = fullName
		user.Role = models.RoleAdmin
		if err := s.repo.Update(ctx, user); err != nil {
			return nil, err
		}
		if user.Status != models.UserStatusActive {
			if err := s.repo.UpdateStatus(ctx, user.ID, models.UserStatusActive); err != nil {
				return nil, err
			}
		}
		s.recordAudit(ctx, user.ID, []byte(`{"action":"credentials_reset"}`))
		s.logger.Info("admin account recovered", zap.String("user_id", user.ID))
		return &BootstrapResult{UserID: user.ID, Created: false}, nil

	case errors.Is(err, sql.ErrNoRows):
		admin := &models.User{
			Email:        email,
			PasswordHash: string(hash),
			FullName:     fullName,
			Role:         models.RoleAdmin,
			Status:       models.UserStatusActive,
		}
		if err := s.repo.Create(ctx, admin); err != nil {
			return nil, err
		}
		s.recordAudit(ctx, admin.ID, []byte(`{"action":"account_created"}`))
		s.logger.Info("admin account created", zap.String("user_id", admin.ID))
		return &BootstrapResult{UserID: admin.ID, Created: true}, nil

	default:
		return nil, err
	}
}

func (s *BootstrapService) recordAudit(ctx context.Context, userID string, payload []byte) {
	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		Action:     models.AuditActionAdminBootstrap,
		Resource:   "users",
		ResourceID: &userID,
		NewValues:  payload,
	}); err != nil {
		s.logger.Warn("failed to record bootstrap audit log", zap.Error(err))
	}
}
