package models

import "github.com/golang-jwt/jwt/v5"

// Capability is the permission level a route demands of its caller.
type Capability string

const (
	CapabilityAuthenticated Capability = "any-authenticated"
	CapabilityAdmin         Capability = "admin-only"
	CapabilityInstructor    Capability = "instructor-only"
	// CapabilityStudent excludes admins and instructors; unknown users count as students.
	CapabilityStudent Capability = "student-only"
	// CapabilitySelfOrAdmin requires the principal to match the route's subject parameter.
	CapabilitySelfOrAdmin Capability = "self-or-admin"
)

// Identity is what the identity verifier vouches for.
type Identity struct {
	Email string `json:"email"`
}

// JWTClaims represents the bearer token payload accepted by the verifier.
type JWTClaims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}
