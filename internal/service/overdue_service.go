package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/campus-ops/equiploan-api/internal/models"
)

type overdueBorrowStore interface {
	ListOverdue(ctx context.Context, cutoff time.Time) ([]models.Borrow, error)
	Update(ctx context.Context, borrow *models.Borrow) error
}

type overduePenaltyStore interface {
	Create(ctx context.Context, penalty *models.Penalty) error
	ExistsForBorrow(ctx context.Context, borrowID string, penaltyType models.PenaltyType) (bool, error)
}

type overdueReservationStore interface {
	ExpirePending(ctx context.Context, cutoff time.Time) (int64, error)
}

// OverdueConfig tunes the periodic sweep.
type OverdueConfig struct {
	Interval      time.Duration
	DailyLateFine float64
}

// SweepReport summarizes one sweep pass.
type SweepReport struct {
	MarkedOverdue       int
	PenaltiesRaised     int
	ReservationsExpired int64
}

// OverdueService runs the periodic sweep that flags late borrows, raises
// late-return fines once per borrow, pushes reminder notifications and
// expires stale reservations.
type OverdueService struct {
	borrows      overdueBorrowStore
	penalties    overduePenaltyStore
	reservations overdueReservationStore
	notifier     borrowNotifier
	logger       *zap.Logger
	config       OverdueConfig
}

// NewOverdueService constructs an OverdueService.
func NewOverdueService(borrows overdueBorrowStore, penalties overduePenaltyStore, reservations overdueReservationStore, notifier borrowNotifier, logger *zap.Logger, config OverdueConfig) *OverdueService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Interval <= 0 {
		config.Interval = time.Hour
	}
	return &OverdueService{
		borrows:      borrows,
		penalties:    penalties,
		reservations: reservations,
		notifier:     notifier,
		logger:       logger,
		config:       config,
	}
}

// Run executes sweeps on the configured interval until the context ends.
func (s *OverdueService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := s.Sweep(ctx)
			if err != nil {
				s.logger.Error("overdue sweep failed", zap.Error(err))
				continue
			}
			s.logger.Info("overdue sweep completed",
				zap.Int("marked_overdue", report.MarkedOverdue),
				zap.Int("penalties_raised", report.PenaltiesRaised),
				zap.Int64("reservations_expired", report.ReservationsExpired))
		}
	}
}

// Sweep performs one pass. Fines are raised at most once per borrow; a
// borrow already carrying a Late Return penalty is only re-flagged, so the
// sweep can run at any cadence without double-charging.
func (s *OverdueService) Sweep(ctx context.Context) (*SweepReport, error) {
	now := time.Now().UTC()
	report := &SweepReport{}

	overdue, err := s.borrows.ListOverdue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("list overdue borrows: %w", err)
	}

	for i := range overdue {
		borrow := &overdue[i]
		daysLate := borrow.DaysLate(now)

		borrow.Status = models.BorrowStatusOverdue
		if err := s.borrows.Update(ctx, borrow); err != nil {
			s.logger.Error("failed to flag borrow overdue", zap.String("borrow_id", borrow.ID), zap.Error(err))
			continue
		}
		report.MarkedOverdue++

		exists, err := s.penalties.ExistsForBorrow(ctx, borrow.ID, models.PenaltyTypeLateReturn)
		if err != nil {
			s.logger.Error("failed to check existing penalty", zap.String("borrow_id", borrow.ID), zap.Error(err))
			continue
		}
		if exists {
			continue
		}

		reason := fmt.Sprintf("%d day(s) overdue", daysLate)
		penalty := &models.Penalty{
			BorrowID:    borrow.ID,
			UserID:      borrow.UserID,
			PenaltyType: models.PenaltyTypeLateReturn,
			FineAmount:  float64(daysLate) * s.config.DailyLateFine,
			Reason:      &reason,
			Status:      models.PenaltyStatusPending,
		}
		if err := s.penalties.Create(ctx, penalty); err != nil {
			s.logger.Error("failed to raise overdue penalty", zap.String("borrow_id", borrow.ID), zap.Error(err))
			continue
		}
		report.PenaltiesRaised++

		if s.notifier != nil {
			notification := &models.Notification{
				UserID:  borrow.UserID,
				Type:    models.NotificationTypeReminder,
				Title:   "Equipment overdue",
				Message: fmt.Sprintf("Your borrowed equipment is %d day(s) overdue. Please return it to avoid further fines.", daysLate),
				RelatedRef: models.RelatedRef{
					Kind: models.RelatedKindBorrow,
					ID:   &borrow.ID,
				},
			}
			if err := s.notifier.Create(ctx, notification); err != nil {
				s.logger.Warn("failed to push overdue reminder", zap.Error(err))
			}
		}
	}

	expired, err := s.reservations.ExpirePending(ctx, now)
	if err != nil {
		s.logger.Error("failed to expire stale reservations", zap.Error(err))
	} else {
		report.ReservationsExpired = expired
	}

	return report, nil
}
