package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/campus-ops/equiploan-api/internal/models"
	appErrors "github.com/campus-ops/equiploan-api/pkg/errors"
)

func resourceRows(id string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "name", "description", "category", "college", "location",
		"barcode", "qr_code", "status", "total_quantity", "available_quantity",
		"replacement_cost", "image_url", "created_at", "updated_at",
	}).AddRow(id, "Oscilloscope", "Digital storage oscilloscope", "Lab Equipment", "Engineering", "Lab B-204",
		nil, nil, models.ResourceStatusAvailable, 4, 3, 1250.00, nil, now, now)
}

func TestResourceRepositoryGetByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResourceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+resourceColumns+" FROM resources WHERE id = $1 LIMIT 1")).
		WithArgs("res-1").
		WillReturnRows(resourceRows("res-1"))

	res, err := repo.GetByID(context.Background(), "res-1")
	require.NoError(t, err)
	require.Equal(t, "Oscilloscope", res.Name)
	require.Equal(t, 3, res.AvailableQuantity)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResourceRepositoryCreateDuplicateBarcode(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResourceRepository(db)

	mock.ExpectExec("INSERT INTO resources").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "resources_barcode_idx"})

	barcode := "EQ-00042"
	err := repo.Create(context.Background(), &models.Resource{
		Name:              "Projector",
		Category:          "AV Equipment",
		College:           "Science",
		Barcode:           &barcode,
		Status:            models.ResourceStatusAvailable,
		TotalQuantity:     1,
		AvailableQuantity: 1,
	})
	require.Error(t, err)

	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	require.Equal(t, appErrors.ErrDuplicate.Code, appErr.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResourceRepositoryAdjustAvailability(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResourceRepository(db)

	mock.ExpectExec("UPDATE resources SET available_quantity = available_quantity").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.AdjustAvailability(context.Background(), "res-1", -1))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResourceRepositoryAdjustAvailabilityExhausted(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResourceRepository(db)

	// Zero rows means the bounds check in the WHERE clause rejected the move.
	mock.ExpectExec("UPDATE resources SET available_quantity = available_quantity").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.AdjustAvailability(context.Background(), "res-1", -1)
	require.Error(t, err)

	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	require.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResourceRepositoryList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewResourceRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM resources WHERE 1=1 AND college = \\$1").
		WithArgs("Engineering").
		WillReturnRows(resourceRows("res-1"))
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("Engineering").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	resources, total, err := repo.List(context.Background(), models.ResourceFilter{College: "Engineering"})
	require.NoError(t, err)
	require.Len(t, resources, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}
