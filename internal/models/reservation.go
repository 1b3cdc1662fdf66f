package models

import "time"

// Reservation is a student's pending intent to pay for a class.
type Reservation struct {
	ID           string    `db:"id" json:"id"`
	StudentEmail string    `db:"student_email" json:"student_email"`
	ClassID      string    `db:"class_id" json:"class_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ReservationDetail joins the class fields a checkout page needs.
type ReservationDetail struct {
	Reservation
	ClassName       string  `db:"class_name" json:"class_name"`
	InstructorName  string  `db:"instructor_name" json:"instructor_name"`
	InstructorEmail string  `db:"instructor_email" json:"instructor_email"`
	Price           float64 `db:"price" json:"price"`
	AvailableSeats  int     `db:"available_seats" json:"available_seats"`
}

// ReservationRequest selects a class. StudentEmail defaults to the caller.
type ReservationRequest struct {
	StudentEmail string `json:"student_email" validate:"omitempty,email"`
	ClassID      string `json:"class_id" validate:"required"`
}

// CancelResult reports how many reservations a cancel removed.
type CancelResult struct {
	Deleted int64 `json:"deleted"`
}
