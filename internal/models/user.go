package models

import "time"

// UserRole represents the role that decides which views a session may reach.
type UserRole string

const (
	RoleAdmin      UserRole = "admin"
	RoleStaff      UserRole = "staff"
	RoleSupervisor UserRole = "supervisor"
)

// Valid reports whether the role is one the workflow knows about.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleSupervisor:
		return true
	default:
		return false
	}
}

// User is the identity returned by the authentication endpoints.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      UserRole  `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserRef is the denormalised user embed carried by assignments.
type UserRef struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
}

// UserCreate is the payload for provisioning a user.
type UserCreate struct {
	Email    string   `json:"email" validate:"required,email"`
	FullName string   `json:"full_name" validate:"required"`
	Role     UserRole `json:"role" validate:"required,oneof=admin staff supervisor"`
	IsActive *bool    `json:"is_active,omitempty"`
	Password string   `json:"password" validate:"required,min=8"`
}
