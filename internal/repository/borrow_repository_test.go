package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/campus-ops/equiploan-api/internal/models"
)

func borrowRows(id string, status models.BorrowStatus, due time.Time) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "user_id", "resource_id", "borrow_date", "due_date", "return_date",
		"status", "condition_on_borrow", "condition_on_return", "notes",
		"payment_required", "payment_amount", "payment_status", "created_at", "updated_at",
	}).AddRow(id, "usr-1", "res-1", now.Add(-72*time.Hour), due, nil,
		status, models.ConditionGood, nil, nil,
		false, 0.0, nil, now, now)
}

func TestBorrowRepositoryGetByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBorrowRepository(db)

	due := time.Now().Add(96 * time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+borrowColumns+" FROM borrows WHERE id = $1 LIMIT 1")).
		WithArgs("brw-1").
		WillReturnRows(borrowRows("brw-1", models.BorrowStatusActive, due))

	borrow, err := repo.GetByID(context.Background(), "brw-1")
	require.NoError(t, err)
	require.Equal(t, "usr-1", borrow.UserID)
	require.Equal(t, models.BorrowStatusActive, borrow.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBorrowRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBorrowRepository(db)

	mock.ExpectExec("INSERT INTO borrows").
		WillReturnResult(sqlmock.NewResult(0, 1))

	borrow := &models.Borrow{
		UserID:     "usr-1",
		ResourceID: "res-1",
		BorrowDate: time.Now(),
		DueDate:    time.Now().Add(7 * 24 * time.Hour),
		Status:     models.BorrowStatusActive,
	}
	require.NoError(t, repo.Create(context.Background(), borrow))
	require.NotEmpty(t, borrow.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBorrowRepositoryListOverdue(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBorrowRepository(db)

	cutoff := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM borrows WHERE status = \\$1 AND due_date < \\$2").
		WithArgs(models.BorrowStatusActive, cutoff).
		WillReturnRows(borrowRows("brw-1", models.BorrowStatusActive, cutoff.Add(-48*time.Hour)))

	borrows, err := repo.ListOverdue(context.Background(), cutoff)
	require.NoError(t, err)
	require.Len(t, borrows, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBorrowRepositoryCountActiveByUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBorrowRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM borrows WHERE user_id = $1 AND status IN ($2, $3, $4)")).
		WithArgs("usr-1", models.BorrowStatusActive, models.BorrowStatusOverdue, models.BorrowStatusPendingApproval).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	total, err := repo.CountActiveByUser(context.Background(), "usr-1")
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBorrowRepositoryList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBorrowRepository(db)

	status := models.BorrowStatusActive
	mock.ExpectQuery("SELECT (.+) FROM borrows WHERE 1=1 AND user_id = \\$1 AND status = \\$2").
		WithArgs("usr-1", status).
		WillReturnRows(borrowRows("brw-1", status, time.Now().Add(24*time.Hour)))
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("usr-1", status).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	borrows, total, err := repo.List(context.Background(), models.BorrowFilter{UserID: "usr-1", Status: &status})
	require.NoError(t, err)
	require.Len(t, borrows, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}
