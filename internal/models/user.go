package models

import (
	"time"

	"github.com/lib/pq"
)

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin     UserRole = "Admin"
	RoleAssistant UserRole = "Assistant"
	RoleStaff     UserRole = "Staff"
	RoleStudent   UserRole = "Student"
)

// UserStatus is the account lifecycle state. Accounts are never deleted, only
// moved to Inactive or Suspended.
type UserStatus string

const (
	UserStatusActive    UserStatus = "Active"
	UserStatusInactive  UserStatus = "Inactive"
	UserStatusSuspended UserStatus = "Suspended"
)

// User represents an account stored in the users table. Email is persisted
// lowercased and trimmed; the unique index on it is the only guard against
// concurrent duplicate registration. PasswordHash and the reset-token fields
// never serialize to clients.
type User struct {
	ID                string         `db:"id" json:"id"`
	Email             string         `db:"email" json:"email"`
	PasswordHash      string         `db:"password_hash" json:"-"`
	FullName          string         `db:"full_name" json:"full_name"`
	Role              UserRole       `db:"role" json:"role"`
	Status            UserStatus     `db:"status" json:"status"`
	IdentificationID  *string        `db:"identification_id" json:"identification_id,omitempty"`
	Phone             *string        `db:"phone" json:"phone,omitempty"`
	College           *string        `db:"college" json:"college,omitempty"`
	ResetToken        *string        `db:"reset_token" json:"-"`
	ResetTokenExpiry  *time.Time     `db:"reset_token_expiry" json:"-"`
	PreviousPasswords pq.StringArray `db:"previous_passwords" json:"-"`
	LastLogin         *time.Time     `db:"last_login" json:"last_login,omitempty"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Status    *UserStatus
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
