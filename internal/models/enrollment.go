package models

import "time"

// Enrollment records a paid seat. One row per (student, class).
type Enrollment struct {
	ID              string    `db:"id" json:"id"`
	StudentEmail    string    `db:"student_email" json:"student_email"`
	ClassID         string    `db:"class_id" json:"class_id"`
	InstructorEmail string    `db:"instructor_email" json:"instructor_email"`
	PaymentID       *string   `db:"payment_id" json:"payment_id,omitempty"`
	EnrolledAt      time.Time `db:"enrolled_at" json:"enrolled_at"`
}

// EnrollmentDetail enriches Enrollment with class info.
type EnrollmentDetail struct {
	Enrollment
	ClassName      string `db:"class_name" json:"class_name"`
	InstructorName string `db:"instructor_name" json:"instructor_name"`
	ImageURL       string `db:"image_url" json:"image_url,omitempty"`
}
