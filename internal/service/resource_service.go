package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campus-ops/equiploan-api/internal/models"
	appErrors "github.com/campus-ops/equiploan-api/pkg/errors"
)

type resourceRepository interface {
	GetByID(ctx context.Context, id string) (*models.Resource, error)
	GetByBarcode(ctx context.Context, barcode string) (*models.Resource, error)
	Create(ctx context.Context, res *models.Resource) error
	Update(ctx context.Context, res *models.Resource) error
	UpdateStatus(ctx context.Context, id string, status models.ResourceStatus) error
	List(ctx context.Context, filter models.ResourceFilter) ([]models.Resource, int, error)
}

type resourceCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CreateResourceRequest is the payload for adding a catalog item.
type CreateResourceRequest struct {
	Name              string  `json:"name" validate:"required"`
	Description       *string `json:"description,omitempty"`
	Category          string  `json:"category" validate:"required"`
	College           string  `json:"college" validate:"required"`
	Location          *string `json:"location,omitempty"`
	Barcode           *string `json:"barcode,omitempty"`
	QRCode            *string `json:"qr_code,omitempty"`
	TotalQuantity     int     `json:"total_quantity" validate:"required,min=1"`
	AvailableQuantity int     `json:"available_quantity" validate:"min=0"`
	ReplacementCost   float64 `json:"replacement_cost" validate:"min=0"`
	ImageURL          *string `json:"image_url,omitempty"`
}

// UpdateResourceRequest is the payload for editing a catalog item.
type UpdateResourceRequest struct {
	Name              string  `json:"name" validate:"required"`
	Description       *string `json:"description,omitempty"`
	Category          string  `json:"category" validate:"required"`
	College           string  `json:"college" validate:"required"`
	Location          *string `json:"location,omitempty"`
	Barcode           *string `json:"barcode,omitempty"`
	QRCode            *string `json:"qr_code,omitempty"`
	TotalQuantity     int     `json:"total_quantity" validate:"required,min=1"`
	AvailableQuantity int     `json:"available_quantity" validate:"min=0"`
	ReplacementCost   float64 `json:"replacement_cost" validate:"min=0"`
	ImageURL          *string `json:"image_url,omitempty"`
}

// ResourceService handles catalog management.
type ResourceService struct {
	repo      resourceRepository
	cache     resourceCache
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewResourceService creates an instance of ResourceService. The cache is
// optional; a nil cache disables listing memoization.
func NewResourceService(repo resourceRepository, cache resourceCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *ResourceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &ResourceService{repo: repo, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// Get returns a resource by ID.
func (s *ResourceService) Get(ctx context.Context, id string) (*models.Resource, error) {
	res, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "resource not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load resource")
	}
	return res, nil
}

// GetByBarcode looks up a resource by its physical barcode, used at the
// lending desk scanner.
func (s *ResourceService) GetByBarcode(ctx context.Context, barcode string) (*models.Resource, error) {
	res, err := s.repo.GetByBarcode(ctx, barcode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "resource not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load resource")
	}
	return res, nil
}

type cachedResourceList struct {
	Resources  []models.Resource  `json:"resources"`
	Pagination *models.Pagination `json:"pagination"`
}

// List returns catalog items with pagination metadata, serving repeated
// identical queries from the cache when one is wired.
func (s *ResourceService) List(ctx context.Context, filter models.ResourceFilter) ([]models.Resource, *models.Pagination, error) {
	key := resourceListCacheKey(filter)
	if s.cache != nil {
		var cached cachedResourceList
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached.Resources, cached.Pagination, nil
		}
	}

	resources, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list resources")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, cachedResourceList{Resources: resources, Pagination: pagination}, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache resource listing", zap.Error(err))
		}
	}

	return resources, pagination, nil
}

// Create adds a new catalog item. AvailableQuantity defaults to
// TotalQuantity when omitted and may never exceed it.
func (s *ResourceService) Create(ctx context.Context, req CreateResourceRequest) (*models.Resource, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create resource payload")
	}
	if !models.ValidCollege(req.College) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown college")
	}
	available := req.AvailableQuantity
	if available == 0 {
		available = req.TotalQuantity
	}
	if available > req.TotalQuantity {
		return nil, appErrors.Clone(appErrors.ErrValidation, "available quantity cannot exceed total quantity")
	}

	res := &models.Resource{
		Name:              req.Name,
		Description:       req.Description,
		Category:          req.Category,
		College:           req.College,
		Location:          req.Location,
		Barcode:           req.Barcode,
		QRCode:            req.QRCode,
		Status:            models.ResourceStatusAvailable,
		TotalQuantity:     req.TotalQuantity,
		AvailableQuantity: available,
		ReplacementCost:   req.ReplacementCost,
		ImageURL:          req.ImageURL,
	}

	if err := s.repo.Create(ctx, res); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Code == appErrors.ErrDuplicate.Code {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create resource")
	}

	s.invalidateListings(ctx)
	return res, nil
}

// Update rewrites a catalog item.
func (s *ResourceService) Update(ctx context.Context, id string, req UpdateResourceRequest) (*models.Resource, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update resource payload")
	}
	if !models.ValidCollege(req.College) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown college")
	}
	if req.AvailableQuantity > req.TotalQuantity {
		return nil, appErrors.Clone(appErrors.ErrValidation, "available quantity cannot exceed total quantity")
	}

	res, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "resource not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load resource")
	}

	res.Name = req.Name
	res.Description = req.Description
	res.Category = req.Category
	res.College = req.College
	res.Location = req.Location
	res.Barcode = req.Barcode
	res.QRCode = req.QRCode
	res.TotalQuantity = req.TotalQuantity
	res.AvailableQuantity = req.AvailableQuantity
	res.ReplacementCost = req.ReplacementCost
	res.ImageURL = req.ImageURL

	if err := s.repo.Update(ctx, res); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Code == appErrors.ErrDuplicate.Code {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update resource")
	}

	s.invalidateListings(ctx)
	return res, nil
}

// SetStatus transitions the lifecycle flag of a catalog item.
func (s *ResourceService) SetStatus(ctx context.Context, id string, status models.ResourceStatus) error {
	switch status {
	case models.ResourceStatusAvailable, models.ResourceStatusBorrowed, models.ResourceStatusReserved,
		models.ResourceStatusMaintenance, models.ResourceStatusLost:
	default:
		return appErrors.Clone(appErrors.ErrValidation, "unknown resource status")
	}

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "resource not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load resource")
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update resource status")
	}

	s.invalidateListings(ctx)
	return nil
}

func (s *ResourceService) invalidateListings(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "resources:list:*"); err != nil {
		s.logger.Warn("failed to invalidate resource listing cache", zap.Error(err))
	}
}

func resourceListCacheKey(filter models.ResourceFilter) string {
	status := ""
	if filter.Status != nil {
		status = string(*filter.Status)
	}
	return fmt.Sprintf("resources:list:%s:%s:%s:%s:%d:%d:%s:%s",
		filter.Category, filter.College, status, filter.Search,
		filter.Page, filter.PageSize, filter.SortBy, filter.SortOrder)
}
