package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/summercamp-api/internal/models"
	"github.com/noah-isme/summercamp-api/internal/repository"
	appErrors "github.com/noah-isme/summercamp-api/pkg/errors"
)

type reservationStore interface {
	Exists(ctx context.Context, studentEmail, classID string) (bool, error)
	Create(ctx context.Context, reservation *models.Reservation) error
	FindByID(ctx context.Context, id string) (*models.Reservation, error)
	DeleteOwned(ctx context.Context, id, studentEmail string) (int64, error)
	ListByStudent(ctx context.Context, studentEmail string) ([]models.ReservationDetail, error)
}

type classReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

// ReservationService manages the classes students selected but have not paid for.
type ReservationService struct {
	reservations reservationStore
	classes      classReader
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewReservationService constructs the service.
func NewReservationService(reservations reservationStore, classes classReader, validate *validator.Validate, logger *zap.Logger) *ReservationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReservationService{reservations: reservations, classes: classes, validator: validate, logger: logger}
}

// Select records a student's intent to enroll. The existence check and the insert are not
// atomic; the unique index on (student_email, class_id) rejects the losing duplicate.
func (s *ReservationService) Select(ctx context.Context, principal *models.Principal, req models.ReservationRequest) (*models.Reservation, error) {
	if principal == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reservation payload")
	}
	req.StudentEmail = strings.ToLower(strings.TrimSpace(req.StudentEmail))
	if req.StudentEmail == "" {
		req.StudentEmail = principal.Email
	}
	if req.StudentEmail != principal.Email && !principal.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot reserve on behalf of another student")
	}

	class, err := s.classes.FindByID(ctx, req.ClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if class.Status != models.ClassStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrConflict, "class is not open for selection")
	}
	if class.AvailableSeats <= 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, "class is sold out")
	}

	exists, err := s.reservations.Exists(ctx, req.StudentEmail, req.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check reservation")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "class already selected or enrolled")
	}

	reservation := &models.Reservation{StudentEmail: req.StudentEmail, ClassID: req.ClassID}
	if err := s.reservations.Create(ctx, reservation); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "class already selected")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create reservation")
	}
	return reservation, nil
}

// Cancel removes the caller's reservation. A reservation that is already gone reports zero
// deletions; one owned by somebody else is forbidden.
func (s *ReservationService) Cancel(ctx context.Context, principal *models.Principal, id string) (*models.CancelResult, error) {
	if principal == nil {
		return nil, appErrors.ErrUnauthorized
	}
	deleted, err := s.reservations.DeleteOwned(ctx, id, principal.Email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel reservation")
	}
	if deleted > 0 {
		return &models.CancelResult{Deleted: deleted}, nil
	}

	if _, err := s.reservations.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.CancelResult{Deleted: 0}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reservation")
	}
	return nil, appErrors.Clone(appErrors.ErrForbidden, "reservation belongs to another student")
}

// ListByStudent returns the student's selected classes.
func (s *ReservationService) ListByStudent(ctx context.Context, studentEmail string) ([]models.ReservationDetail, error) {
	reservations, err := s.reservations.ListByStudent(ctx, studentEmail)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reservations")
	}
	if reservations == nil {
		reservations = []models.ReservationDetail{}
	}
	return reservations, nil
}
