package models

import "time"

// Payment is an append-only ledger entry for a confirmed charge.
type Payment struct {
	ID            string    `db:"id" json:"id"`
	StudentEmail  string    `db:"student_email" json:"student_email" validate:"required,email"`
	ClassID       string    `db:"class_id" json:"class_id" validate:"required"`
	ClassName     string    `db:"class_name" json:"class_name,omitempty"`
	Amount        float64   `db:"amount" json:"amount" validate:"gte=0"`
	Currency      string    `db:"currency" json:"currency,omitempty"`
	TransactionID string    `db:"transaction_id" json:"transaction_id" validate:"required"`
	PaidAt        time.Time `db:"paid_at" json:"date"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
