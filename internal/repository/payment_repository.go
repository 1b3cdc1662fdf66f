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

// PaymentRepository is the append-only payment ledger. It has no update or delete paths.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Append inserts a ledger entry. Every call creates a new row.
func (r *PaymentRepository) Append(ctx context.Context, payment *models.Payment) error {
	payment.ID = uuid.NewString()
	now := time.Now().UTC()
	payment.CreatedAt = now
	if payment.PaidAt.IsZero() {
		payment.PaidAt = now
	}
	if payment.Currency == "" {
		payment.Currency = "usd"
	}
	const query = `INSERT INTO payments (id, student_email, class_id, class_name, amount, currency, transaction_id, paid_at, created_at)
        VALUES (:id, :student_email, :class_id, :class_name, :amount, :currency, :transaction_id, :paid_at, :created_at)`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("append payment: %w", err)
	}
	return nil
}

// ListByStudent returns a student's payment history, newest first.
func (r *PaymentRepository) ListByStudent(ctx context.Context, studentEmail string) ([]models.Payment, error) {
	const query = `SELECT id, student_email, class_id, class_name, amount, currency, transaction_id, paid_at, created_at
        FROM payments WHERE student_email = $1 ORDER BY paid_at DESC`
	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, studentEmail); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}
