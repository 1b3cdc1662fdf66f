package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/summercamp-api/internal/models"
	"github.com/noah-isme/summercamp-api/pkg/database"
)

// ReservationRepository stores students' selected classes.
type ReservationRepository struct {
	db *sqlx.DB
}

// NewReservationRepository constructs the repository.
func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// Exists reports whether the student already selected or enrolled in the class.
func (r *ReservationRepository) Exists(ctx context.Context, studentEmail, classID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM reservations WHERE student_email = $1 AND class_id = $2)
OR EXISTS (SELECT 1 FROM enrollments WHERE student_email = $1 AND class_id = $2)`
	var exists bool
	if err := database.Conn(ctx, r.db).GetContext(ctx, &exists, query, studentEmail, classID); err != nil {
		return false, fmt.Errorf("check reservation: %w", err)
	}
	return exists, nil
}

// Create persists a reservation. A concurrent duplicate surfaces as ErrDuplicate.
func (r *ReservationRepository) Create(ctx context.Context, reservation *models.Reservation) error {
	if reservation.ID == "" {
		reservation.ID = uuid.NewString()
	}
	if reservation.CreatedAt.IsZero() {
		reservation.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO reservations (id, student_email, class_id, created_at) VALUES (:id, :student_email, :class_id, :created_at)`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, reservation); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

// FindByID returns a reservation by ID.
func (r *ReservationRepository) FindByID(ctx context.Context, id string) (*models.Reservation, error) {
	const query = `SELECT id, student_email, class_id, created_at FROM reservations WHERE id = $1`
	var reservation models.Reservation
	if err := database.Conn(ctx, r.db).GetContext(ctx, &reservation, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find reservation: %w", err)
	}
	return &reservation, nil
}

// DeleteOwned removes a reservation only when it belongs to the student.
func (r *ReservationRepository) DeleteOwned(ctx context.Context, id, studentEmail string) (int64, error) {
	const query = `DELETE FROM reservations WHERE id = $1 AND student_email = $2`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, id, studentEmail)
	if err != nil {
		return 0, fmt.Errorf("delete reservation: %w", err)
	}
	return res.RowsAffected()
}

// DeleteByClassAndStudent removes the reservation a settlement consumes.
func (r *ReservationRepository) DeleteByClassAndStudent(ctx context.Context, classID, studentEmail string) (int64, error) {
	const query = `DELETE FROM reservations WHERE class_id = $1 AND student_email = $2`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, classID, studentEmail)
	if err != nil {
		return 0, fmt.Errorf("delete settled reservation: %w", err)
	}
	return res.RowsAffected()
}

// ListByStudent returns the student's reservations with class details, newest first.
func (r *ReservationRepository) ListByStudent(ctx context.Context, studentEmail string) ([]models.ReservationDetail, error) {
	const query = `SELECT r.id, r.student_email, r.class_id, r.created_at,
        COALESCE(c.name, '') AS class_name, COALESCE(c.instructor_name, '') AS instructor_name,
        COALESCE(c.instructor_email, '') AS instructor_email, COALESCE(c.price, 0) AS price,
        COALESCE(c.available_seats, 0) AS available_seats
        FROM reservations r
        LEFT JOIN classes c ON c.id = r.class_id
        WHERE r.student_email = $1
        ORDER BY r.created_at DESC`
	var reservations []models.ReservationDetail
	if err := r.db.SelectContext(ctx, &reservations, query, studentEmail); err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return reservations, nil
}
