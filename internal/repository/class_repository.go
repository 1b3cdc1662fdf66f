package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/summercamp-api/internal/models"
	"github.com/noah-isme/summercamp-api/pkg/database"
)

const classColumns = `id, name, image_url, instructor_name, instructor_email, price, available_seats, COALESCE(total_enrolled, 0) AS total_enrolled, status, feedback, created_at, updated_at`

// ClassRepository manages classes and their seat ledger.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// List returns classes filtered by status, instructor and search.
func (r *ClassRepository) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error) {
	base := "FROM classes"
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.InstructorEmail != "" {
		conditions = append(conditions, fmt.Sprintf("instructor_email = $%d", len(args)+1))
		args = append(args, filter.InstructorEmail)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(instructor_name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	sortMap := map[string]string{
		"name":            "name",
		"price":           "price",
		"available_seats": "available_seats",
		"total_enrolled":  "total_enrolled",
		"created_at":      "created_at",
	}
	sortBy := sortMap[filter.SortBy]
	if sortBy == "" {
		sortBy = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page, size := normalizePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s%s ORDER BY %s %s LIMIT %d OFFSET %d", classColumns, base, where, sortBy, order, size, offset)
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s%s", base, where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}
	return classes, total, nil
}

// FindByID fetches a class by ID.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	query := `SELECT ` + classColumns + ` FROM classes WHERE id = $1`
	var class models.Class
	if err := database.Conn(ctx, r.db).GetContext(ctx, &class, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find class: %w", err)
	}
	return &class, nil
}

// Create inserts a new class.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now
	if class.Status == "" {
		class.Status = models.ClassStatusPending
	}
	const query = `INSERT INTO classes (id, name, image_url, instructor_name, instructor_email, price, available_seats, total_enrolled, status, feedback, created_at, updated_at)
VALUES (:id, :name, :image_url, :instructor_name, :instructor_email, :price, :available_seats, :total_enrolled, :status, :feedback, :created_at, :updated_at)`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// UpdateOwned updates descriptive fields of a class owned by the given instructor.
// It returns the number of rows touched.
func (r *ClassRepository) UpdateOwned(ctx context.Context, class *models.Class) (int64, error) {
	class.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classes SET name = :name, image_url = :image_url, instructor_name = :instructor_name, price = :price, available_seats = :available_seats, updated_at = :updated_at
WHERE id = :id AND instructor_email = :instructor_email`
	res, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, class)
	if err != nil {
		return 0, fmt.Errorf("update class: %w", err)
	}
	return res.RowsAffected()
}

// TransitionStatus moves a class from one status to another. It touches no rows when the
// class is not currently in the expected status.
func (r *ClassRepository) TransitionStatus(ctx context.Context, id string, from, to models.ClassStatus) (int64, error) {
	const query = `UPDATE classes SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, id, from, to, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("transition class status: %w", err)
	}
	return res.RowsAffected()
}

// SetFeedback attaches admin feedback to a class.
func (r *ClassRepository) SetFeedback(ctx context.Context, id, feedback string) (int64, error) {
	const query = `UPDATE classes SET feedback = $2, updated_at = $3 WHERE id = $1`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, id, feedback, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("set class feedback: %w", err)
	}
	return res.RowsAffected()
}

// ClaimSeat decrements available seats and increments the enrollment counter in a single
// conditional statement, so concurrent claims never read the same seat value. The returned
// counters carry the class's instructor so callers can verify it in the same transaction.
// It returns ErrSeatsExhausted, together with the class's current counters, when the class has
// no seats left and sql.ErrNoRows when the class does not exist.
func (r *ClassRepository) ClaimSeat(ctx context.Context, id string) (*models.SeatCounters, error) {
	conn := database.Conn(ctx, r.db)
	const claim = `UPDATE classes
SET available_seats = available_seats - 1, total_enrolled = COALESCE(total_enrolled, 0) + 1, updated_at = $2
WHERE id = $1 AND available_seats > 0
RETURNING available_seats, total_enrolled, instructor_email`
	var counters models.SeatCounters
	err := conn.GetContext(ctx, &counters, claim, id, time.Now().UTC())
	if err == nil {
		return &counters, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("claim seat: %w", err)
	}

	const inspect = `SELECT available_seats, COALESCE(total_enrolled, 0) AS total_enrolled, instructor_email FROM classes WHERE id = $1`
	if err := conn.GetContext(ctx, &counters, inspect, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("inspect class seats: %w", err)
	}
	return &counters, ErrSeatsExhausted
}
