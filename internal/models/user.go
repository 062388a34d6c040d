package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Never expose in JSON
	Role         string    `json:"role"`
	Location     string    `json:"location"`
	CreatedAt    time.Time `json:"created_at"`
}

// Identity is the authenticated caller threaded through every operation.
// Admins may have no location.
type Identity struct {
	UserID   int64  `json:"user_id,omitempty"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Location string `json:"location,omitempty"`
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// Actor identifies who triggered a destructive action and from where.
type Actor struct {
	Username string
	IP       string
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	OTP      string `json:"otp"`
}

// AuthResponse represents the response after successful authentication
type AuthResponse struct {
	Token    string `json:"token"`
	Role     string `json:"role"`
	Username string `json:"username"`
	Location string `json:"location,omitempty"`
}

// CreateUserRequest represents the request body for creating a user
type CreateUserRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,min=4,max=72"`
	Location string `json:"location" validate:"required"`
}
