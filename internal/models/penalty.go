package models

import "time"

// PenaltyType classifies why a fine was issued.
type PenaltyType string

const (
	PenaltyTypeLateReturn PenaltyType = "Late Return"
	PenaltyTypeDamage     PenaltyType = "Damage"
	PenaltyTypeLoss       PenaltyType = "Loss"
)

// PenaltyStatus tracks settlement of a fine.
type PenaltyStatus string

const (
	PenaltyStatusPending   PenaltyStatus = "Pending"
	PenaltyStatusPaid      PenaltyStatus = "Paid"
	PenaltyStatusWaived    PenaltyStatus = "Waived"
	PenaltyStatusCancelled PenaltyStatus = "Cancelled"
)

// Penalty is a fine raised against a borrow transaction.
type Penalty struct {
	ID          string        `db:"id" json:"id"`
	BorrowID    string        `db:"borrow_id" json:"borrow_id"`
	UserID      string        `db:"user_id" json:"user_id"`
	PenaltyType PenaltyType   `db:"penalty_type" json:"penalty_type"`
	FineAmount  float64       `db:"fine_amount" json:"fine_amount"`
	Reason      *string       `db:"reason" json:"reason,omitempty"`
	Status      PenaltyStatus `db:"status" json:"status"`
	ResolvedAt  *time.Time    `db:"resolved_at" json:"resolved_at,omitempty"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// PenaltyFilter captures penalty listing criteria.
type PenaltyFilter struct {
	UserID   string
	BorrowID string
	Status   *PenaltyStatus
	Page     int
	PageSize int
}
