package models

import (
	"math"
	"time"
)

// BorrowStatus tracks a borrow transaction's lifecycle.
type BorrowStatus string

const (
	BorrowStatusActive          BorrowStatus = "Active"
	BorrowStatusReturned        BorrowStatus = "Returned"
	BorrowStatusOverdue         BorrowStatus = "Overdue"
	BorrowStatusLost            BorrowStatus = "Lost"
	BorrowStatusPendingApproval BorrowStatus = "PendingApproval"
)

// ConditionGrade is the equipment condition recorded at hand-over and return.
type ConditionGrade string

const (
	ConditionExcellent ConditionGrade = "Excellent"
	ConditionGood      ConditionGrade = "Good"
	ConditionFair      ConditionGrade = "Fair"
	ConditionPoor      ConditionGrade = "Poor"
)

// ValidConditionGrade reports membership in the four-grade scale.
func ValidConditionGrade(grade ConditionGrade) bool {
	switch grade {
	case ConditionExcellent, ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

// Borrow links a user to a resource for a bounded period. ConditionOnReturn
// stays nil until the item comes back.
type Borrow struct {
	ID                string          `db:"id" json:"id"`
	UserID            string          `db:"user_id" json:"user_id"`
	ResourceID        string          `db:"resource_id" json:"resource_id"`
	BorrowDate        time.Time       `db:"borrow_date" json:"borrow_date"`
	DueDate           time.Time       `db:"due_date" json:"due_date"`
	ReturnDate        *time.Time      `db:"return_date" json:"return_date,omitempty"`
	Status            BorrowStatus    `db:"status" json:"status"`
	ConditionOnBorrow *ConditionGrade `db:"condition_on_borrow" json:"condition_on_borrow,omitempty"`
	ConditionOnReturn *ConditionGrade `db:"condition_on_return" json:"condition_on_return,omitempty"`
	Notes             *string         `db:"notes" json:"notes,omitempty"`
	PaymentRequired   bool            `db:"payment_required" json:"payment_required"`
	PaymentAmount     float64         `db:"payment_amount" json:"payment_amount"`
	PaymentStatus     *string         `db:"payment_status" json:"payment_status,omitempty"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// DaysLate reports how many whole days the borrow is past due at the given
// instant. Only Active borrows accrue lateness; anything else, or a due date
// still in the future, reports zero. Partial days round up.
func (b Borrow) DaysLate(now time.Time) int {
	if b.Status != BorrowStatusActive {
		return 0
	}
	if !b.DueDate.Before(now) {
		return 0
	}
	elapsed := now.Sub(b.DueDate).Hours() / 24
	return int(math.Ceil(elapsed))
}

// BorrowFilter captures borrow listing criteria.
type BorrowFilter struct {
	UserID     string
	ResourceID string
	Status     *BorrowStatus
	DueBefore  *time.Time
	Page       int
	PageSize   int
}
