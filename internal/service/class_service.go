package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/summercamp-api/internal/models"
	appErrors "github.com/noah-isme/summercamp-api/pkg/errors"
)

type classRepository interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	Create(ctx context.Context, class *models.Class) error
	UpdateOwned(ctx context.Context, class *models.Class) (int64, error)
	TransitionStatus(ctx context.Context, id string, from, to models.ClassStatus) (int64, error)
	SetFeedback(ctx context.Context, id, feedback string) (int64, error)
}

// ClassService coordinates class operations.
type ClassService struct {
	repo      classRepository
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs ClassService.
func NewClassService(repo classRepository, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// Catalog lists approved classes. The boolean reports a cache hit.
func (s *ClassService) Catalog(ctx context.Context, filter models.ClassFilter) ([]models.Class, *models.Pagination, bool, error) {
	filter.Status = models.ClassStatusApproved
	filter.InstructorEmail = ""
	filter.Page, filter.PageSize = pageDefaults(filter.Page, filter.PageSize)

	key := ClassCatalogKey(filter)
	var cached models.ClassPage
	if s.cache.Get(ctx, key, &cached) {
		return cached.Classes, paginationOf(filter, cached.Total), true, nil
	}

	start := time.Now()
	classes, total, err := s.repo.List(ctx, filter)
	s.metrics.ObserveDBQuery("class_catalog", time.Since(start))
	if err != nil {
		return nil, nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	if classes == nil {
		classes = []models.Class{}
	}
	s.cache.Set(ctx, key, models.ClassPage{Classes: classes, Total: total}, 0)
	return classes, paginationOf(filter, total), false, nil
}

// ListByInstructor returns every class an instructor created regardless of status.
func (s *ClassService) ListByInstructor(ctx context.Context, email string, filter models.ClassFilter) ([]models.Class, *models.Pagination, error) {
	filter.InstructorEmail = email
	filter.Page, filter.PageSize = pageDefaults(filter.Page, filter.PageSize)
	classes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list instructor classes")
	}
	if classes == nil {
		classes = []models.Class{}
	}
	return classes, paginationOf(filter, total), nil
}

// Get returns a class by ID.
func (s *ClassService) Get(ctx context.Context, id string) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// Create registers a class for admin review. The caller becomes its instructor.
func (s *ClassService) Create(ctx context.Context, principal *models.Principal, req models.ClassRequest) (*models.Class, error) {
	if principal == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	class := &models.Class{
		Name:            strings.TrimSpace(req.Name),
		ImageURL:        req.ImageURL,
		InstructorName:  req.InstructorName,
		InstructorEmail: principal.Email,
		Price:           req.Price,
		AvailableSeats:  req.AvailableSeats,
		Status:          models.ClassStatusPending,
	}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	s.logger.Info("class submitted for review", zap.String("class_id", class.ID), zap.String("instructor", principal.Email))
	return class, nil
}

// Update edits a class owned by the calling instructor.
func (s *ClassService) Update(ctx context.Context, principal *models.Principal, id string, req models.ClassRequest) (*models.Class, error) {
	if principal == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	class := &models.Class{
		ID:              id,
		Name:            strings.TrimSpace(req.Name),
		ImageURL:        req.ImageURL,
		InstructorName:  req.InstructorName,
		InstructorEmail: principal.Email,
		Price:           req.Price,
		AvailableSeats:  req.AvailableSeats,
	}
	affected, err := s.repo.UpdateOwned(ctx, class)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	if affected == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return nil, err
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "class belongs to another instructor")
	}
	s.cache.InvalidateClassCatalog(ctx)
	return s.Get(ctx, id)
}

// ChangeStatus moves a pending class to approved or rejected.
func (s *ClassService) ChangeStatus(ctx context.Context, id string, req models.ClassStatusRequest) (*models.Class, error) {
	req.Status = models.ClassStatus(strings.ToLower(string(req.Status)))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status")
	}
	affected, err := s.repo.TransitionStatus(ctx, id, models.ClassStatusPending, req.Status)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class status")
	}
	class, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, "class has already been "+string(class.Status))
	}
	s.cache.InvalidateClassCatalog(ctx)
	return class, nil
}

// SetFeedback attaches admin feedback without changing status.
func (s *ClassService) SetFeedback(ctx context.Context, id string, req models.ClassFeedbackRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid feedback")
	}
	affected, err := s.repo.SetFeedback(ctx, id, req.Feedback)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save feedback")
	}
	if affected == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	return s.Get(ctx, id)
}

func pageDefaults(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size
}

func paginationOf(filter models.ClassFilter, total int) *models.Pagination {
	return &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
}
