package models

import "time"

// ReservationStatus tracks a reservation's lifecycle.
type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "Pending"
	ReservationStatusConfirmed ReservationStatus = "Confirmed"
	ReservationStatusCancelled ReservationStatus = "Cancelled"
	ReservationStatusExpired   ReservationStatus = "Expired"
	ReservationStatusCompleted ReservationStatus = "Completed"
)

// Reservation holds a resource for a user ahead of pickup.
type Reservation struct {
	ID              string            `db:"id" json:"id"`
	UserID          string            `db:"user_id" json:"user_id"`
	ResourceID      string            `db:"resource_id" json:"resource_id"`
	ReservationDate time.Time         `db:"reservation_date" json:"reservation_date"`
	PickupDate      time.Time         `db:"pickup_date" json:"pickup_date"`
	ExpiryDate      time.Time         `db:"expiry_date" json:"expiry_date"`
	Status          ReservationStatus `db:"status" json:"status"`
	Notes           *string           `db:"notes" json:"notes,omitempty"`
	PaymentRequired bool              `db:"payment_required" json:"payment_required"`
	PaymentAmount   float64           `db:"payment_amount" json:"payment_amount"`
	PaymentStatus   *string           `db:"payment_status" json:"payment_status,omitempty"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updated_at"`
}

// ReservationFilter captures reservation listing criteria.
type ReservationFilter struct {
	UserID     string
	ResourceID string
	Status     *ReservationStatus
	Page       int
	PageSize   int
}
