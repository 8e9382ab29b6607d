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

const reservationColumns = `id, user_id, resource_id, reservation_date, pickup_date, expiry_date, status, notes, payment_required, payment_amount, payment_status, created_at, updated_at`

// ReservationRepository provides database access for reservations.
type ReservationRepository struct {
	db *sqlx.DB
}

// NewReservationRepository creates a new instance of ReservationRepository.
func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// GetByID returns a reservation by identifier.
func (r *ReservationRepository) GetByID(ctx context.Context, id string) (*models.Reservation, error) {
	query := fmt.Sprintf(`SELECT %s FROM reservations WHERE id = $1 LIMIT 1`, reservationColumns)
	var res models.Reservation
	if err := r.db.GetContext(ctx, &res, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find reservation by id: %w", err)
	}
	return &res, nil
}

// Create inserts a reservation.
func (r *ReservationRepository) Create(ctx context.Context, res *models.Reservation) error {
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if res.CreatedAt.IsZero() {
		res.CreatedAt = now
	}
	res.UpdatedAt = now

	const query = `INSERT INTO reservations (id, user_id, resource_id, reservation_date, pickup_date, expiry_date, status, notes, payment_required, payment_amount, payment_status, created_at, updated_at)
		VALUES (:id, :user_id, :resource_id, :reservation_date, :pickup_date, :expiry_date, :status, :notes, :payment_required, :payment_amount, :payment_status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, res); err != nil {
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

// Update rewrites mutable fields of a reservation.
func (r *ReservationRepository) Update(ctx context.Context, res *models.Reservation) error {
	res.UpdatedAt = time.Now().UTC()
	const query = `UPDATE reservations SET pickup_date = :pickup_date, expiry_date = :expiry_date, status = :status, notes = :notes, payment_required = :payment_required, payment_amount = :payment_amount, payment_status = :payment_status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, res); err != nil {
		return fmt.Errorf("update reservation: %w", err)
	}
	return nil
}

// ExpirePending flips Pending and Confirmed reservations whose expiry has
// passed and reports how many changed.
func (r *ReservationRepository) ExpirePending(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `UPDATE reservations SET status = $1, updated_at = $2 WHERE status IN ($3, $4) AND expiry_date < $5`
	result, err := r.db.ExecContext(ctx, query, models.ReservationStatusExpired, time.Now().UTC(), models.ReservationStatusPending, models.ReservationStatusConfirmed, cutoff)
	if err != nil {
		return 0, fmt.Errorf("expire reservations: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire reservations: %w", err)
	}
	return affected, nil
}

// List returns reservations based on filters with total count.
func (r *ReservationRepository) List(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, int, error) {
	baseQuery := `FROM reservations WHERE 1=1`
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY reservation_date DESC LIMIT %d OFFSET %d", reservationColumns, baseQuery, pageSize, offset)

	var reservations []models.Reservation
	if err := r.db.SelectContext(ctx, &reservations, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list reservations: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count reservations: %w", err)
	}

	return reservations, total, nil
}
