package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/summercamp-api/internal/models"
	"github.com/noah-isme/summercamp-api/pkg/database"
)

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Create persists a new enrollment record. A second enrollment for the same student and
// class is rejected with ErrDuplicate.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	const query = `INSERT INTO enrollments (id, student_email, class_id, instructor_email, payment_id, enrolled_at)
        VALUES (:id, :student_email, :class_id, :instructor_email, :payment_id, :enrolled_at)`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, enrollment); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// ListByStudent returns the student's enrolled classes, newest first.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentEmail string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_email, e.class_id, e.instructor_email, e.payment_id, e.enrolled_at,
        COALESCE(c.name, '') AS class_name, COALESCE(c.instructor_name, '') AS instructor_name, COALESCE(c.image_url, '') AS image_url
        FROM enrollments e
        LEFT JOIN classes c ON c.id = e.class_id
        WHERE e.student_email = $1
        ORDER BY e.enrolled_at DESC`
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, studentEmail); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}
