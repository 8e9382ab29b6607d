package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/campus-ops/equiploan-api/internal/models"
	appErrors "github.com/campus-ops/equiploan-api/pkg/errors"
	"github.com/campus-ops/equiploan-api/pkg/passwordpolicy"
	"github.com/campus-ops/equiploan-api/pkg/ratelimit"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	UpdateStatus(ctx context.Context, id string, status models.UserStatus) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// RegisterUserRequest represents the public sign-up payload. Registration
// always produces a Student; elevated roles are assigned by an admin
// afterwards.
type RegisterUserRequest struct {
	Email            string  `json:"email" validate:"required,email"`
	Password         string  `json:"password" validate:"required"`
	FullName         string  `json:"full_name" validate:"required"`
	IdentificationID *string `json:"identification_id,omitempty"`
	Phone            *string `json:"phone,omitempty"`
	College          *string `json:"college,omitempty"`
}

// CreateUserRequest is the admin-side payload for provisioning accounts with
// an explicit role.
type CreateUserRequest struct {
	Email            string          `json:"email" validate:"required,email"`
	Password         string          `json:"password" validate:"required"`
	FullName         string          `json:"full_name" validate:"required"`
	Role             models.UserRole `json:"role" validate:"required,oneof=Admin Assistant Staff Student"`
	IdentificationID *string         `json:"identification_id,omitempty"`
	Phone            *string         `json:"phone,omitempty"`
	College          *string         `json:"college,omitempty"`
}

// UpdateUserRequest payload for updating profile and role fields.
type UpdateUserRequest struct {
	FullName         string          `json:"full_name" validate:"required"`
	Role             models.UserRole `json:"role" validate:"required,oneof=Admin Assistant Staff Student"`
	IdentificationID *string         `json:"identification_id,omitempty"`
	Phone            *string         `json:"phone,omitempty"`
	College          *string         `json:"college,omitempty"`
}

// UserService handles account management workflows.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	pagination := &models.Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
	}

	return users, pagination, nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// Register creates a Student account from the public sign-up form. Duplicate
// detection rides on the store's unique index rather than a pre-check, so two
// concurrent registrations for one email cannot both succeed.
func (s *UserService) Register(ctx context.Context, req RegisterUserRequest, meta models.LoginRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	return s.createAccount(ctx, createAccountParams{
		Email:            req.Email,
		Password:         req.Password,
		FullName:         req.FullName,
		Role:             models.RoleStudent,
		IdentificationID: req.IdentificationID,
		Phone:            req.Phone,
		College:          req.College,
		ActorID:          nil,
		Meta:             meta,
	})
}

// Create provisions an account with an explicit role on behalf of an admin.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest, actorID string, meta models.LoginRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create user payload")
	}

	return s.createAccount(ctx, createAccountParams{
		Email:            req.Email,
		Password:         req.Password,
		FullName:         req.FullName,
		Role:             req.Role,
		IdentificationID: req.IdentificationID,
		Phone:            req.Phone,
		College:          req.College,
		ActorID:          &actorID,
		Meta:             meta,
	})
}

type createAccountParams struct {
	Email            string
	Password         string
	FullName         string
	Role             models.UserRole
	IdentificationID *string
	Phone            *string
	College          *string
	ActorID          *string
	Meta             models.LoginRequest
}

func (s *UserService) createAccount(ctx context.Context, p createAccountParams) (*models.User, error) {
	if result := passwordpolicy.Check(p.Password); !result.Valid {
		return nil, appErrors.Clone(appErrors.ErrValidation, strings.Join(result.Errors, "; "))
	}
	if p.College != nil && !models.ValidCollege(*p.College) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown college")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		ID:               uuid.NewString(),
		Email:            ratelimit.NormalizeEmail(p.Email),
		PasswordHash:     string(passwordHash),
		FullName:         p.FullName,
		Role:             p.Role,
		Status:           models.UserStatusActive,
		IdentificationID: p.IdentificationID,
		Phone:            p.Phone,
		College:          p.College,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Code == appErrors.ErrDuplicate.Code {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	newPayload, _ := json.Marshal(map[string]interface{}{"id": user.ID, "email": user.Email, "role": user.Role})
	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     p.ActorID,
		Action:     models.AuditActionUserCreate,
		Resource:   "users",
		ResourceID: &user.ID,
		NewValues:  newPayload,
		IPAddress:  p.Meta.IP,
		UserAgent:  p.Meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record user create audit log", zap.Error(err))
	}

	return user, nil
}

// Update modifies profile and role attributes of a user.
func (s *UserService) Update(ctx context.Context, id string, req UpdateUserRequest, actorID string, meta models.LoginRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update payload")
	}
	if req.College != nil && !models.ValidCollege(*req.College) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown college")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	oldPayload, _ := json.Marshal(map[string]interface{}{"role": user.Role, "full_name": user.FullName})

	user.FullName = req.FullName
	user.Role = req.Role
	user.IdentificationID = req.IdentificationID
	user.Phone = req.Phone
	user.College = req.College

	if err := s.repo.Update(ctx, user); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Code == appErrors.ErrDuplicate.Code {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}

	newPayload, _ := json.Marshal(map[string]interface{}{"role": user.Role, "full_name": user.FullName})
	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionUserUpdate,
		Resource:   "users",
		ResourceID: &user.ID,
		OldValues:  oldPayload,
		NewValues:  newPayload,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record user update audit log", zap.Error(err))
	}

	return user, nil
}

// SetStatus moves an account through its lifecycle. Accounts are never
// deleted; Inactive and Suspended block sign-in while keeping the borrow
// history intact.
func (s *UserService) SetStatus(ctx context.Context, id string, status models.UserStatus, actorID string, meta models.LoginRequest) error {
	switch status {
	case models.UserStatusActive, models.UserStatusInactive, models.UserStatusSuspended:
	default:
		return appErrors.Clone(appErrors.ErrValidation, "unknown account status")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if user.Status == status {
		return nil
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user status")
	}

	oldPayload, _ := json.Marshal(map[string]interface{}{"status": user.Status})
	newPayload, _ := json.Marshal(map[string]interface{}{"status": status, "at": time.Now().UTC()})
	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionUserUpdate,
		Resource:   "users",
		ResourceID: &user.ID,
		OldValues:  oldPayload,
		NewValues:  newPayload,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record status change audit log", zap.Error(err))
	}

	return nil
}
