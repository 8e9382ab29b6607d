package models

import "time"

// NotificationType is the display category of a notification.
type NotificationType string

const (
	NotificationTypeInfo     NotificationType = "Info"
	NotificationTypeWarning  NotificationType = "Warning"
	NotificationTypeSuccess  NotificationType = "Success"
	NotificationTypeError    NotificationType = "Error"
	NotificationTypeReminder NotificationType = "Reminder"
)

// RelatedKind tags which entity a notification points at. The set is closed;
// lookups dispatch on it rather than on an untyped reference.
type RelatedKind string

const (
	RelatedKindBorrow      RelatedKind = "Borrow"
	RelatedKindReservation RelatedKind = "Reservation"
	RelatedKindPenalty     RelatedKind = "Penalty"
	RelatedKindPayment     RelatedKind = "Payment"
	RelatedKindSystem      RelatedKind = "System"
)

// ValidRelatedKind reports membership in the closed kind set.
func ValidRelatedKind(kind RelatedKind) bool {
	switch kind {
	case RelatedKindBorrow, RelatedKindReservation, RelatedKindPenalty, RelatedKindPayment, RelatedKindSystem:
		return true
	}
	return false
}

// RelatedRef is the tagged reference carried by a notification. System
// notifications carry no ID.
type RelatedRef struct {
	Kind RelatedKind `db:"related_kind" json:"related_kind"`
	ID   *string     `db:"related_id" json:"related_id,omitempty"`
}

// Notification is a per-user message about an entity it references. The
// embedded RelatedRef flattens into the related_kind/related_id columns.
type Notification struct {
	ID      string           `db:"id" json:"id"`
	UserID  string           `db:"user_id" json:"user_id"`
	Type    NotificationType `db:"type" json:"type"`
	Title   string           `db:"title" json:"title"`
	Message string           `db:"message" json:"message"`
	RelatedRef
	IsRead    bool       `db:"is_read" json:"is_read"`
	ReadAt    *time.Time `db:"read_at" json:"read_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// NotificationFilter captures notification listing criteria.
type NotificationFilter struct {
	UserID   string
	Unread   *bool
	Page     int
	PageSize int
}
