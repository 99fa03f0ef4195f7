package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/staffdeck/staffdeck/internal/types"
)

// LoginRequest represents the login request body.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=5"`
}

// Claims embeds the caller's identity snapshot in the session token. The
// snapshot is taken at issue time and is not refreshed if the persisted
// record changes afterwards.
type Claims struct {
	UserID   string     `json:"user_id"`
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	Role     types.Role `json:"role"`
	IsActive bool       `json:"is_active"`
	jwt.RegisteredClaims
}
