package models

import "time"

// ResourceStatus tracks where a catalog item sits in its lifecycle.
type ResourceStatus string

const (
	ResourceStatusAvailable   ResourceStatus = "Available"
	ResourceStatusBorrowed    ResourceStatus = "Borrowed"
	ResourceStatusReserved    ResourceStatus = "Reserved"
	ResourceStatusMaintenance ResourceStatus = "Maintenance"
	ResourceStatusLost        ResourceStatus = "Lost"
)

// Colleges is the closed set of owning colleges for catalog items.
var Colleges = []string{
	"Engineering",
	"Science",
	"Medicine",
	"Business",
	"Arts",
	"Education",
	"Law",
	"Agriculture",
}

// ValidCollege reports whether the value belongs to the fixed college set.
func ValidCollege(college string) bool {
	for _, c := range Colleges {
		if c == college {
			return true
		}
	}
	return false
}

// Resource is one equipment entry in the catalog. Barcode and QRCode carry
// partial unique indexes, so two items may both omit a barcode but never
// share one. AvailableQuantity never exceeding TotalQuantity is enforced by
// the service layer, not the schema.
type Resource struct {
	ID                string         `db:"id" json:"id"`
	Name              string         `db:"name" json:"name"`
	Description       *string        `db:"description" json:"description,omitempty"`
	Category          string         `db:"category" json:"category"`
	College           string         `db:"college" json:"college"`
	Location          *string        `db:"location" json:"location,omitempty"`
	Barcode           *string        `db:"barcode" json:"barcode,omitempty"`
	QRCode            *string        `db:"qr_code" json:"qr_code,omitempty"`
	Status            ResourceStatus `db:"status" json:"status"`
	TotalQuantity     int            `db:"total_quantity" json:"total_quantity"`
	AvailableQuantity int            `db:"available_quantity" json:"available_quantity"`
	ReplacementCost   float64        `db:"replacement_cost" json:"replacement_cost"`
	ImageURL          *string        `db:"image_url" json:"image_url,omitempty"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}

// ResourceFilter captures catalog listing criteria.
type ResourceFilter struct {
	Category  string
	College   string
	Status    *ResourceStatus
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
