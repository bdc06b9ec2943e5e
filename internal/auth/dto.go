package auth

import (
	"time"

	"github.com/angelmondragon/pos-backend/internal/users"
)

// RegisterRequest is the sign-up payload.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// VerifyEmailRequest carries the emailed one-time code.
type VerifyEmailRequest struct {
	OTP string `json:"otp" validate:"required,numeric,len=6"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	AccessToken string         `json:"access_token"`
	ExpiresAt   time.Time      `json:"expires_at"`
	User        *users.UserDTO `json:"user"`
}
