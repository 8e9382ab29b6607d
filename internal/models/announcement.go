package models

import "time"

// AnnouncementPriority defines ordering for announcements.
type AnnouncementPriority string

const (
	AnnouncementPriorityLow    AnnouncementPriority = "Low"
	AnnouncementPriorityNormal AnnouncementPriority = "Normal"
	AnnouncementPriorityMedium AnnouncementPriority = "Medium"
	AnnouncementPriorityHigh   AnnouncementPriority = "High"
)

// AnnouncementAudience defines who can see an announcement.
type AnnouncementAudience string

const (
	AnnouncementAudienceAll      AnnouncementAudience = "All"
	AnnouncementAudienceStudents AnnouncementAudience = "Students"
	AnnouncementAudienceStaff    AnnouncementAudience = "Staff"
	AnnouncementAudienceAdmin    AnnouncementAudience = "Admin"
)

// Announcement represents a persisted announcement row. Removal is
// soft-only via IsActive.
type Announcement struct {
	ID             string               `db:"id" json:"id"`
	Title          string               `db:"title" json:"title"`
	Message        string               `db:"message" json:"message"`
	Priority       AnnouncementPriority `db:"priority" json:"priority"`
	TargetAudience AnnouncementAudience `db:"target_audience" json:"target_audience"`
	CreatedBy      string               `db:"created_by" json:"created_by"`
	IsActive       bool                 `db:"is_active" json:"is_active"`
	ExpiresAt      *time.Time           `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt      time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time            `db:"updated_at" json:"updated_at"`
}

// AnnouncementFilter allows listing announcements.
type AnnouncementFilter struct {
	Audience   *AnnouncementAudience
	ActiveOnly bool
	Page       int
	PageSize   int
}
