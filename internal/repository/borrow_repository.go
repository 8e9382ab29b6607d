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

const borrowColumns = `id, user_id, resource_id, borrow_date, due_date, return_date, status, condition_on_borrow, condition_on_return, notes, payment_required, payment_amount, payment_status, created_at, updated_at`

// BorrowRepository provides database access for borrow transactions.
type BorrowRepository struct {
	db *sqlx.DB
}

// NewBorrowRepository creates a new instance of BorrowRepository.
func NewBorrowRepository(db *sqlx.DB) *BorrowRepository {
	return &BorrowRepository{db: db}
}

// GetByID returns a borrow transaction by identifier.
func (r *BorrowRepository) GetByID(ctx context.Context, id string) (*models.Borrow, error) {
	query := fmt.Sprintf(`SELECT %s FROM borrows WHERE id = $1 LIMIT 1`, borrowColumns)
	var borrow models.Borrow
	if err := r.db.GetContext(ctx, &borrow, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find borrow by id: %w", err)
	}
	return &borrow, nil
}

// Create inserts a borrow transaction.
func (r *BorrowRepository) Create(ctx context.Context, borrow *models.Borrow) error {
	if borrow.ID == "" {
		borrow.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if borrow.CreatedAt.IsZero() {
		borrow.CreatedAt = now
	}
	borrow.UpdatedAt = now

	const query = `INSERT INTO borrows (id, user_id, resource_id, borrow_date, due_date, return_date, status, condition_on_borrow, condition_on_return, notes, payment_required, payment_amount, payment_status, created_at, updated_at)
		VALUES (:id, :user_id, :resource_id, :borrow_date, :due_date, :return_date, :status, :condition_on_borrow, :condition_on_return, :notes, :payment_required, :payment_amount, :payment_status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, borrow); err != nil {
		return fmt.Errorf("create borrow: %w", err)
	}
	return nil
}

// Update rewrites mutable fields of a borrow transaction.
func (r *BorrowRepository) Update(ctx context.Context, borrow *models.Borrow) error {
	borrow.UpdatedAt = time.Now().UTC()
	const query = `UPDATE borrows SET due_date = :due_date, return_date = :return_date, status = :status, condition_on_return = :condition_on_return, notes = :notes, payment_required = :payment_required, payment_amount = :payment_amount, payment_status = :payment_status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, borrow); err != nil {
		return fmt.Errorf("update borrow: %w", err)
	}
	return nil
}

// ListOverdue returns Active borrows whose due date is before the cutoff.
// Used by the overdue sweep.
func (r *BorrowRepository) ListOverdue(ctx context.Context, cutoff time.Time) ([]models.Borrow, error) {
	query := fmt.Sprintf(`SELECT %s FROM borrows WHERE status = $1 AND due_date < $2 ORDER BY due_date ASC`, borrowColumns)
	var borrows []models.Borrow
	if err := r.db.SelectContext(ctx, &borrows, query, models.BorrowStatusActive, cutoff); err != nil {
		return nil, fmt.Errorf("list overdue borrows: %w", err)
	}
	return borrows, nil
}

// CountActiveByUser counts open borrows for one user, used to cap
// simultaneous loans.
func (r *BorrowRepository) CountActiveByUser(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM borrows WHERE user_id = $1 AND status IN ($2, $3, $4)`
	var total int
	if err := r.db.GetContext(ctx, &total, query, userID, models.BorrowStatusActive, models.BorrowStatusOverdue, models.BorrowStatusPendingApproval); err != nil {
		return 0, fmt.Errorf("count active borrows: %w", err)
	}
	return total, nil
}

// List returns borrow transactions based on filters with total count.
func (r *BorrowRepository) List(ctx context.Context, filter models.BorrowFilter) ([]models.Borrow, int, error) {
	baseQuery := `FROM borrows WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.ResourceID != "" {
		conditions = append(conditions, fmt.Sprintf("resource_id = $%d", len(args)+1))
		args = append(args, filter.ResourceID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.DueBefore != nil {
		conditions = append(conditions, fmt.Sprintf("due_date < $%d", len(args)+1))
		args = append(args, *filter.DueBefore)
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY borrow_date DESC LIMIT %d OFFSET %d", borrowColumns, baseQuery, pageSize, offset)

	var borrows []models.Borrow
	if err := r.db.SelectContext(ctx, &borrows, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list borrows: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count borrows: %w", err)
	}

	return borrows, total, nil
}
