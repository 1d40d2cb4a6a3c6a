package auth

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID               uuid.UUID `json:"id"`
	Email            string    `json:"email"`
	OrganizationName string    `json:"organization_name"`
	OrganizationType string    `json:"organization_type"`
	PasswordHash     string    `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
}

type SignupRequest struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	OrganizationName string `json:"organization_name"`
	OrganizationType string `json:"organization_type"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
