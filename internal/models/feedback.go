package models

import "time"

// FeedbackStatus tracks triage of user feedback.
type FeedbackStatus string

const (
	FeedbackStatusPending  FeedbackStatus = "Pending"
	FeedbackStatusReviewed FeedbackStatus = "Reviewed"
	FeedbackStatusResolved FeedbackStatus = "Resolved"
	FeedbackStatusArchived FeedbackStatus = "Archived"
)

// Feedback is a rating and comment left by a user, optionally tied to a
// resource or a specific borrow. Rating is bounded to 1..5 by the service.
type Feedback struct {
	ID         string         `db:"id" json:"id"`
	UserID     string         `db:"user_id" json:"user_id"`
	ResourceID *string        `db:"resource_id" json:"resource_id,omitempty"`
	BorrowID   *string        `db:"borrow_id" json:"borrow_id,omitempty"`
	Rating     int            `db:"rating" json:"rating"`
	Comment    *string        `db:"comment" json:"comment,omitempty"`
	Status     FeedbackStatus `db:"status" json:"status"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updated_at"`
}

// FeedbackFilter captures feedback listing criteria.
type FeedbackFilter struct {
	UserID     string
	ResourceID string
	Status     *FeedbackStatus
	MinRating  int
	Page       int
	PageSize   int
}
