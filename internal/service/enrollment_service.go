package service

import (
	"context"

	"github.com/noah-isme/summercamp-api/internal/models"
	appErrors "github.com/noah-isme/summercamp-api/pkg/errors"
)

type enrollmentReader interface {
	ListByStudent(ctx context.Context, studentEmail string) ([]models.EnrollmentDetail, error)
}

// EnrollmentService exposes a student's enrolled classes.
type EnrollmentService struct {
	repo enrollmentReader
}

// NewEnrollmentService constructs the service.
func NewEnrollmentService(repo enrollmentReader) *EnrollmentService {
	return &EnrollmentService{repo: repo}
}

// ListByStudent returns enrollments newest first.
func (s *EnrollmentService) ListByStudent(ctx context.Context, studentEmail string) ([]models.EnrollmentDetail, error) {
	enrollments, err := s.repo.ListByStudent(ctx, studentEmail)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	if enrollments == nil {
		enrollments = []models.EnrollmentDetail{}
	}
	return enrollments, nil
}
