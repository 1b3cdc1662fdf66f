package models

import "time"

// ClassStatus tracks admin review of a class.
type ClassStatus string

const (
	ClassStatusPending  ClassStatus = "pending"
	ClassStatusApproved ClassStatus = "approved"
	ClassStatusRejected ClassStatus = "rejected"
)

// Class is a bookable camp class with its seat ledger.
type Class struct {
	ID              string      `db:"id" json:"id"`
	Name            string      `db:"name" json:"name"`
	ImageURL        string      `db:"image_url" json:"image_url,omitempty"`
	InstructorName  string      `db:"instructor_name" json:"instructor_name"`
	InstructorEmail string      `db:"instructor_email" json:"instructor_email"`
	Price           float64     `db:"price" json:"price"`
	AvailableSeats  int         `db:"available_seats" json:"available_seats"`
	TotalEnrolled   int         `db:"total_enrolled" json:"total_enrolled"`
	Status          ClassStatus `db:"status" json:"status"`
	Feedback        *string     `db:"feedback" json:"feedback,omitempty"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at" json:"updated_at"`
}

// ClassFilter defines filter criteria for listing classes.
type ClassFilter struct {
	Status          ClassStatus
	InstructorEmail string
	Search          string
	Page            int
	PageSize        int
	SortBy          string
	SortOrder       string
}

// SeatCounters is the class ledger state after a seat claim.
type SeatCounters struct {
	AvailableSeats int `db:"available_seats" json:"available_seats"`
	TotalEnrolled  int `db:"total_enrolled" json:"total_enrolled"`
	// InstructorEmail is the class owner; settlement checks the enrollment against it.
	InstructorEmail string `db:"instructor_email" json:"-"`
}

// ClassRequest carries the instructor-editable fields of a class.
type ClassRequest struct {
	Name           string  `json:"name" validate:"required,max=200"`
	ImageURL       string  `json:"image_url" validate:"omitempty,url"`
	InstructorName string  `json:"instructor_name" validate:"max=120"`
	Price          float64 `json:"price" validate:"gte=0"`
	AvailableSeats int     `json:"available_seats" validate:"gte=0"`
}

// ClassStatusRequest is an admin review decision.
type ClassStatusRequest struct {
	Status ClassStatus `json:"status" validate:"required,oneof=approved rejected"`
}

// ClassFeedbackRequest attaches admin feedback to a class.
type ClassFeedbackRequest struct {
	Feedback string `json:"feedback" validate:"required,max=2000"`
}

// ClassPage is one page of the catalog as stored in the cache.
type ClassPage struct {
	Classes []Class `json:"classes"`
	Total   int     `json:"total"`
}
