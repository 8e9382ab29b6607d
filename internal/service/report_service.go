package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campus-ops/equiploan-api/internal/models"
	appErrors "github.com/campus-ops/equiploan-api/pkg/errors"
	"github.com/campus-ops/equiploan-api/pkg/export"
	"github.com/campus-ops/equiploan-api/pkg/jobs"
	"github.com/campus-ops/equiploan-api/pkg/storage"
)

// ReportFormat selects the rendered output.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// ReportStatus tracks an export job.
type ReportStatus string

const (
	ReportStatusQueued    ReportStatus = "Queued"
	ReportStatusRunning   ReportStatus = "Running"
	ReportStatusCompleted ReportStatus = "Completed"
	ReportStatusFailed    ReportStatus = "Failed"
)

// ReportJob is the in-memory record of one export. Jobs do not survive a
// restart; the rendered files on disk do, and are reaped by the storage
// cleanup.
type ReportJob struct {
	ID          string              `json:"id"`
	Format      ReportFormat        `json:"format"`
	Status      ReportStatus        `json:"status"`
	Filter      models.BorrowFilter `json:"-"`
	Filename    string              `json:"filename,omitempty"`
	DownloadURL string              `json:"download_url,omitempty"`
	Error       string              `json:"error,omitempty"`
	CreatedBy   string              `json:"created_by"`
	CreatedAt   time.Time           `json:"created_at"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
}

type reportBorrowStore interface {
	List(ctx context.Context, filter models.BorrowFilter) ([]models.Borrow, int, error)
}

type reportDispatcher interface {
	Enqueue(job jobs.Job) error
}

// ReportService renders borrow-history exports in the background and hands
// out signed download URLs.
type ReportService struct {
	borrows reportBorrowStore
	queue   reportDispatcher
	store   *storage.LocalStorage
	signer  *storage.SignedURLSigner
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	logger  *zap.Logger

	mu   sync.Mutex
	jobs map[string]*ReportJob
}

// NewReportService constructs a ReportService. Wire the returned Process
// method as the queue handler.
func NewReportService(borrows reportBorrowStore, store *storage.LocalStorage, signer *storage.SignedURLSigner, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		borrows: borrows,
		store:   store,
		signer:  signer,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		logger:  logger,
		jobs:    make(map[string]*ReportJob),
	}
}

// SetQueue injects the dispatcher. Separate from the constructor because the
// queue's handler needs the service first.
func (s *ReportService) SetQueue(queue reportDispatcher) {
	s.queue = queue
}

// Create registers an export job and enqueues it.
func (s *ReportService) Create(ctx context.Context, filter models.BorrowFilter, format ReportFormat, actorID string) (*ReportJob, error) {
	switch format {
	case ReportFormatCSV, ReportFormatPDF:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "report format must be csv or pdf")
	}
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "report queue is not running")
	}

	job := &ReportJob{
		ID:        uuid.NewString(),
		Format:    format,
		Status:    ReportStatusQueued,
		Filter:    filter,
		CreatedBy: actorID,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "borrow_report"}); err != nil {
		s.fail(job.ID, "failed to enqueue report job")
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report job")
	}

	return job, nil
}

// Get returns a job snapshot.
func (s *ReportService) Get(id string) (*ReportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
	}
	snapshot := *job
	return &snapshot, nil
}

// Process is the queue handler: it renders the dataset, writes the file and
// attaches a signed download URL to the job.
func (s *ReportService) Process(ctx context.Context, job jobs.Job) error {
	s.mu.Lock()
	record, ok := s.jobs[job.ID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("unknown report job %s", job.ID)
	}
	record.Status = ReportStatusRunning
	filter := record.Filter
	format := record.Format
	s.mu.Unlock()

	filter.PageSize = 100
	if filter.Page < 1 {
		filter.Page = 1
	}

	var rows []map[string]string
	for {
		borrows, _, err := s.borrows.List(ctx, filter)
		if err != nil {
			s.fail(job.ID, "failed to load borrows")
			return fmt.Errorf("load borrows for report: %w", err)
		}
		now := time.Now().UTC()
		for _, b := range borrows {
			returned := ""
			if b.ReturnDate != nil {
				returned = b.ReturnDate.Format(time.RFC3339)
			}
			rows = append(rows, map[string]string{
				"borrow_id":   b.ID,
				"user_id":     b.UserID,
				"resource_id": b.ResourceID,
				"borrowed":    b.BorrowDate.Format(time.RFC3339),
				"due":         b.DueDate.Format(time.RFC3339),
				"returned":    returned,
				"status":      string(b.Status),
				"days_late":   strconv.Itoa(b.DaysLate(now)),
			})
		}
		if len(borrows) < filter.PageSize {
			break
		}
		filter.Page++
	}

	dataset := export.Dataset{
		Headers: []string{"borrow_id", "user_id", "resource_id", "borrowed", "due", "returned", "status", "days_late"},
		Rows:    rows,
	}

	var payload []byte
	var err error
	switch format {
	case ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, "Borrow History")
	default:
		payload, err = s.csv.Render(dataset)
	}
	if err != nil {
		s.fail(job.ID, "failed to render report")
		return fmt.Errorf("render report: %w", err)
	}

	filename := fmt.Sprintf("borrows-%s.%s", job.ID, format)
	relPath, err := s.store.Save(filename, payload)
	if err != nil {
		s.fail(job.ID, "failed to store report")
		return fmt.Errorf("store report: %w", err)
	}

	url, _, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		s.fail(job.ID, "failed to sign download url")
		return fmt.Errorf("sign report url: %w", err)
	}

	now := time.Now().UTC()
	s.mu.Lock()
	record.Status = ReportStatusCompleted
	record.Filename = filename
	record.DownloadURL = url
	record.CompletedAt = &now
	s.mu.Unlock()

	s.logger.Info("report rendered",
		zap.String("report_id", job.ID),
		zap.String("format", string(format)),
		zap.Int("rows", len(rows)))

	return nil
}

func (s *ReportService) fail(id, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		job.Status = ReportStatusFailed
		job.Error = message
	}
}
