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
)

const penaltyColumns = `id, borrow_id, user_id, penalty_type, fine_amount, reason, status, resolved_at, created_at, updated_at`

// PenaltyRepository provides database access for fines.
type PenaltyRepository struct {
	db *sqlx.DB
}

// NewPenaltyRepository creates a new instance of PenaltyRepository.
func NewPenaltyRepository(db *sqlx.DB) *PenaltyRepository {
	return &PenaltyRepository{db: db}
}

// GetByID returns a penalty by identifier.
func (r *PenaltyRepository) GetByID(ctx context.Context, id string) (*models.Penalty, error) {
	query := fmt.Sprintf(`SELECT %s FROM penalties WHERE id = $1 LIMIT 1`, penaltyColumns)
	var penalty models.Penalty
	if err := r.db.GetContext(ctx, &penalty, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find penalty by id: %w", err)
	}
	return &penalty, nil
}

// Create inserts a penalty.
func (r *PenaltyRepository) Create(ctx context.Context, penalty *models.Penalty) error {
	if penalty.ID == "" {
		penalty.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if penalty.CreatedAt.IsZero() {
		penalty.CreatedAt = now
	}
	penalty.UpdatedAt = now

	const query = `INSERT INTO penalties (id, borrow_id, user_id, penalty_type, fine_amount, reason, status, resolved_at, created_at, updated_at)
		VALUES (:id, :borrow_id, :user_id, :penalty_type, :fine_amount, :reason, :status, :resolved_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, penalty); err != nil {
		return fmt.Errorf("create penalty: %w", err)
	}
	return nil
}

// UpdateStatus transitions a penalty's settlement state.
func (r *PenaltyRepository) UpdateStatus(ctx context.Context, id string, status models.PenaltyStatus, resolvedAt *time.Time) error {
	const query = `UPDATE penalties SET status = $2, resolved_at = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, resolvedAt, time.Now().UTC()); err != nil {
		return fmt.Errorf("update penalty status: %w", err)
	}
	return nil
}

// ExistsForBorrow reports whether a borrow already carries a penalty of the
// given type, so the overdue sweep stays idempotent.
func (r *PenaltyRepository) ExistsForBorrow(ctx context.Context, borrowID string, penaltyType models.PenaltyType) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM penalties WHERE borrow_id = $1 AND penalty_type = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, borrowID, penaltyType); err != nil {
		return false, fmt.Errorf("check penalty exists: %w", err)
	}
	return exists, nil
}

// List returns penalties based on filters with total count.
func (r *PenaltyRepository) List(ctx context.Context, filter models.PenaltyFilter) ([]models.Penalty, int, error) {
	baseQuery := `FROM penalties WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.BorrowID != "" {
		conditions = append(conditions, fmt.Sprintf("borrow_id = $%d", len(args)+1))
		args = append(args, filter.BorrowID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", penaltyColumns, baseQuery, pageSize, offset)

	var penalties []models.Penalty
	if err := r.db.SelectContext(ctx, &penalties, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list penalties: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count penalties: %w", err)
	}

	return penalties, total, nil
}
