package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campus-ops/equiploan-api/internal/models"
	"github.com/campus-ops/equiploan-api/pkg/database"
	appErrors "github.com/campus-ops/equiploan-api/pkg/errors"
)

const resourceColumns = `id, name, description, category, college, location, barcode, qr_code, status, total_quantity, available_quantity, replacement_cost, image_url, created_at, updated_at`

// ResourceRepository provides database access for the equipment catalog.
type ResourceRepository struct {
	db *sqlx.DB
}

// NewResourceRepository creates a new instance of ResourceRepository.
func NewResourceRepository(db *sqlx.DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

// GetByID returns a catalog item by identifier.
func (r *ResourceRepository) GetByID(ctx context.Context, id string) (*models.Resource, error) {
	query := fmt.Sprintf(`SELECT %s FROM resources WHERE id = $1 LIMIT 1`, resourceColumns)
	var res models.Resource
	if err := r.db.GetContext(ctx, &res, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find resource by id: %w", err)
	}
	return &res, nil
}

// GetByBarcode returns a catalog item by barcode.
func (r *ResourceRepository) GetByBarcode(ctx context.Context, barcode string) (*models.Resource, error) {
	query := fmt.Sprintf(`SELECT %s FROM resources WHERE barcode = $1 LIMIT 1`, resourceColumns)
	var res models.Resource
	if err := r.db.GetContext(ctx, &res, query, barcode); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find resource by barcode: %w", err)
	}
	return &res, nil
}

// Create inserts a catalog item. Duplicate barcodes or QR codes are rejected
// by partial unique indexes and classified as duplicates.
func (r *ResourceRepository) Create(ctx context.Context, res *models.Resource) error {
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if res.CreatedAt.IsZero() {
		res.CreatedAt = now
	}
	res.UpdatedAt = now

	const query = `INSERT INTO resources (id, name, description, category, college, location, barcode, qr_code, status, total_quantity, available_quantity, replacement_cost, image_url, created_at, updated_at)
		VALUES (:id, :name, :description, :category, :college, :location, :barcode, :qr_code, :status, :total_quantity, :available_quantity, :replacement_cost, :image_url, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, res); err != nil {
		if database.IsUniqueViolation(err) {
			return appErrors.Wrap(err, appErrors.ErrDuplicate.Code, appErrors.ErrDuplicate.Status, duplicateMessage(err, "barcode or qr code already registered"))
		}
		return fmt.Errorf("create resource: %w", err)
	}
	return nil
}

// Update updates mutable fields of a catalog item.
func (r *ResourceRepository) Update(ctx context.Context, res *models.Resource) error {
	res.UpdatedAt = time.Now().UTC()
	const query = `UPDATE resources SET name = :name, description = :description, category = :category, college = :college, location = :location, barcode = :barcode, qr_code = :qr_code, status = :status, total_quantity = :total_quantity, available_quantity = :available_quantity, replacement_cost = :replacement_cost, image_url = :image_url, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, res); err != nil {
		if database.IsUniqueViolation(err) {
			return appErrors.Wrap(err, appErrors.ErrDuplicate.Code, appErrors.ErrDuplicate.Status, duplicateMessage(err, "barcode or qr code already registered"))
		}
		return fmt.Errorf("update resource: %w", err)
	}
	return nil
}

// AdjustAvailability changes available_quantity by delta, refusing to move
// outside [0, total_quantity]. The WHERE clause keeps concurrent borrows from
// driving availability negative.
func (r *ResourceRepository) AdjustAvailability(ctx context.Context, id string, delta int) error {
	const query = `UPDATE resources SET available_quantity = available_quantity + $2, updated_at = $3
		WHERE id = $1 AND available_quantity + $2 >= 0 AND available_quantity + $2 <= total_quantity`
	result, err := r.db.ExecContext(ctx, query, id, delta, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("adjust resource availability: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("adjust resource availability: %w", err)
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrConflict, "resource availability exhausted")
	}
	return nil
}

// UpdateStatus transitions the catalog status flag.
func (r *ResourceRepository) UpdateStatus(ctx context.Context, id string, status models.ResourceStatus) error {
	const query = `UPDATE resources SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update resource status: %w", err)
	}
	return nil
}

// List returns catalog items based on filters with total count.
func (r *ResourceRepository) List(ctx context.Context, filter models.ResourceFilter) ([]models.Resource, int, error) {
	baseQuery := `FROM resources WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.College != "" {
		conditions = append(conditions, fmt.Sprintf("college = $%d", len(args)+1))
		args = append(args, filter.College)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"name":       true,
		"category":   true,
		"created_at": true,
		"updated_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}

	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", resourceColumns, baseQuery, sortBy, sortOrder, pageSize, offset)

	var resources []models.Resource
	if err := r.db.SelectContext(ctx, &resources, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list resources: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count resources: %w", err)
	}

	return resources, total, nil
}
