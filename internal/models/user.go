package models

import "time"

// UserRole represents the available roles for the authorization gate.
type UserRole string

const (
	RoleStudent    UserRole = "student"
	RoleInstructor UserRole = "instructor"
	RoleAdmin      UserRole = "admin"
)

// Valid reports whether r is one of the assignable roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

// User is a stored account. Role is empty until an admin assigns one.
type User struct {
	ID            string    `db:"id" json:"id"`
	Email         string    `db:"email" json:"email"`
	Name          string    `db:"name" json:"name"`
	PhotoURL      string    `db:"photo_url" json:"photo_url,omitempty"`
	Role          UserRole  `db:"role" json:"role,omitempty"`
	TotalStudents int       `db:"total_students" json:"total_students"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// EffectiveRole resolves an unset role to student.
func (u *User) EffectiveRole() UserRole {
	if u == nil || !u.Role.Valid() {
		return RoleStudent
	}
	return u.Role
}

// Principal is the authenticated caller with the role resolved for this request.
type Principal struct {
	Email string   `json:"email"`
	Role  UserRole `json:"role"`
	// Known is false when no user row exists for the subject.
	Known bool `json:"-"`
}

// IsAdmin reports whether the principal holds the admin role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Known && p.Role == RoleAdmin
}

// IsInstructor reports whether the principal holds the instructor role.
func (p *Principal) IsInstructor() bool {
	return p != nil && p.Known && p.Role == RoleInstructor
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// ProfileRequest carries the fields a user may set on their own profile.
type ProfileRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	PhotoURL string `json:"photo_url" validate:"omitempty,url"`
}

// RoleChangeRequest assigns a role to a user.
type RoleChangeRequest struct {
	Role UserRole `json:"role" validate:"required,oneof=student instructor admin"`
}

// RoleView answers "what role does this email hold".
type RoleView struct {
	Email string   `json:"email"`
	Role  UserRole `json:"role"`
}
