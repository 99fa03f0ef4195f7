package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/staffdeck/staffdeck/config"
	"github.com/staffdeck/staffdeck/internal/types"
)

// IssueToken produces a signed, expiring session token embedding the user's
// identity snapshot. Stateless: nothing is persisted server-side.
func IssueToken(user *types.User, cfg config.JWTConfig) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   user.ID.String(),
		Name:     user.Name,
		Email:    user.Email,
		Role:     user.Role,
		IsActive: user.IsActive,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.SecretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// VerifyToken cryptographically verifies signature and expiry and returns
// the embedded identity snapshot. Fails with types.ErrInvalidToken on any
// tamper, expiry or issuer mismatch.
func VerifyToken(tokenString string, cfg config.JWTConfig) (*types.Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(cfg.SecretKey), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidToken, err)
	}
	if cfg.Issuer != "" && claims.Issuer != cfg.Issuer {
		return nil, fmt.Errorf("%w: issuer mismatch", types.ErrInvalidToken)
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed subject", types.ErrInvalidToken)
	}
	if !claims.Role.Valid() {
		return nil, errors.Join(types.ErrInvalidToken, fmt.Errorf("unknown role %q", claims.Role))
	}

	return &types.Identity{
		ID:       userID,
		Name:     claims.Name,
		Email:    claims.Email,
		Role:     claims.Role,
		IsActive: claims.IsActive,
	}, nil
}
