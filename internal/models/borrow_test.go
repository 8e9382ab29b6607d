package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBorrowDaysLate(t *testing.T) {
	now := time.Date(2025, 4, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		status BorrowStatus
		due    time.Time
		want   int
	}{
		{
			name:   "returned borrow never late",
			status: BorrowStatusReturned,
			due:    now.Add(-72 * time.Hour),
			want:   0,
		},
		{
			name:   "pending approval never late",
			status: BorrowStatusPendingApproval,
			due:    now.Add(-72 * time.Hour),
			want:   0,
		},
		{
			name:   "due in the future",
			status: BorrowStatusActive,
			due:    now.Add(24 * time.Hour),
			want:   0,
		},
		{
			name:   "due exactly now",
			status: BorrowStatusActive,
			due:    now,
			want:   0,
		},
		{
			name:   "half a day late rounds up",
			status: BorrowStatusActive,
			due:    now.Add(-12 * time.Hour),
			want:   1,
		},
		{
			name:   "three full days late",
			status: BorrowStatusActive,
			due:    now.Add(-72 * time.Hour),
			want:   3,
		},
		{
			name:   "three days and an hour rounds up to four",
			status: BorrowStatusActive,
			due:    now.Add(-73 * time.Hour),
			want:   4,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := Borrow{Status: tc.status, DueDate: tc.due}
			assert.Equal(t, tc.want, b.DaysLate(now))
		})
	}
}

func TestValidRelatedKind(t *testing.T) {
	for _, kind := range []RelatedKind{RelatedKindBorrow, RelatedKindReservation, RelatedKindPenalty, RelatedKindPayment, RelatedKindSystem} {
		assert.True(t, ValidRelatedKind(kind))
	}
	assert.False(t, ValidRelatedKind("Invoice"))
	assert.False(t, ValidRelatedKind(""))
}

func TestValidConditionGrade(t *testing.T) {
	assert.True(t, ValidConditionGrade(ConditionExcellent))
	assert.True(t, ValidConditionGrade(ConditionPoor))
	assert.False(t, ValidConditionGrade("Broken"))
}
