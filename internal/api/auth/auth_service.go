package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/staffdeck/staffdeck/config"
	"github.com/staffdeck/staffdeck/internal/types"
)

var _ AuthService = (*AuthServiceImpl)(nil)

// AuthService verifies credentials and issues session tokens.
type AuthService interface {
	// Login validates the email/password pair and returns the user record
	// plus a signed session token. Fails with types.ErrInvalidCredentials on
	// unknown email or password mismatch, without distinguishing the two.
	Login(ctx context.Context, email, password string) (*types.User, string, error)
}

type AuthServiceImpl struct {
	repo   AuthRepo
	jwtCfg config.JWTConfig
	logger *slog.Logger
}

func NewAuthService(repo AuthRepo, jwtCfg config.JWTConfig, logger *slog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		repo:   repo,
		jwtCfg: jwtCfg,
		logger: logger,
	}
}

func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (*types.User, string, error) {
	l := s.logger.With(slog.String("method", "Login"))

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, "", types.ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("login lookup failed: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		l.WarnContext(ctx, "Password mismatch on login", slog.String("email", email))
		return nil, "", types.ErrInvalidCredentials
	}

	token, err := IssueToken(user, s.jwtCfg)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue session token: %w", err)
	}

	return user, token, nil
}
