package models

import "time"

// PaymentMethod is the accepted settlement channel.
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "Cash"
	PaymentMethodCard         PaymentMethod = "Card"
	PaymentMethodOnline       PaymentMethod = "Online"
	PaymentMethodBankTransfer PaymentMethod = "Bank Transfer"
)

// PaymentStatus tracks settlement progress.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "Pending"
	PaymentStatusCompleted PaymentStatus = "Completed"
	PaymentStatusFailed    PaymentStatus = "Failed"
	PaymentStatusRefunded  PaymentStatus = "Refunded"
)

// Payment settles a penalty, borrow fee or reservation fee. Exactly one of
// PenaltyID, BorrowID or ReservationID is set. Card details are masked at the
// service boundary; only the last four digits and non-sensitive metadata are
// ever persisted.
type Payment struct {
	ID            string        `db:"id" json:"id"`
	UserID        string        `db:"user_id" json:"user_id"`
	PenaltyID     *string       `db:"penalty_id" json:"penalty_id,omitempty"`
	BorrowID      *string       `db:"borrow_id" json:"borrow_id,omitempty"`
	ReservationID *string       `db:"reservation_id" json:"reservation_id,omitempty"`
	Amount        float64       `db:"amount" json:"amount"`
	PaymentMethod PaymentMethod `db:"payment_method" json:"payment_method"`
	TransactionID *string       `db:"transaction_id" json:"transaction_id,omitempty"`
	Status        PaymentStatus `db:"status" json:"status"`
	CardLast4     *string       `db:"card_last4" json:"card_last4,omitempty"`
	CardBrand     *string       `db:"card_brand" json:"card_brand,omitempty"`
	PaidAt        *time.Time    `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// PaymentFilter captures payment listing criteria.
type PaymentFilter struct {
	UserID   string
	Status   *PaymentStatus
	Method   *PaymentMethod
	Page     int
	PageSize int
}
