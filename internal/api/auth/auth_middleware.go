package auth

import (
	"context"
	"log/slog"
	"net/http"
	"slices"

	"github.com/staffdeck/staffdeck/config"
	"github.com/staffdeck/staffdeck/internal/api"
	"github.com/staffdeck/staffdeck/internal/types"
)

// Typed context key for the identity snapshot.
type contextKey string

const IdentityKey contextKey = "identity"

// Authenticate validates the session cookie and attaches the caller's
// identity snapshot to the request context. Absent cookie and invalid token
// are distinct failures (Not Authenticated vs Invalid Token), both 401.
func Authenticate(logger *slog.Logger, jwtCfg config.JWTConfig) func(next http.Handler) http.Handler {
	if jwtCfg.SecretKey == "" {
		logger.Error("FATAL: JWT Secret Key is not configured!")
		panic("JWT Secret Key cannot be empty")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			l := logger.With(slog.String("middleware", "Authenticate"))

			cookie, err := r.Cookie(jwtCfg.CookieName)
			if err != nil || cookie.Value == "" {
				l.WarnContext(ctx, "Missing session cookie", slog.String("path", r.URL.Path))
				api.HandleError(w, r, types.ErrNotAuthenticated, "Not Authenticated")
				return
			}

			identity, err := VerifyToken(cookie.Value, jwtCfg)
			if err != nil {
				l.WarnContext(ctx, "Token verification failed", slog.Any("error", err))
				api.HandleError(w, r, types.ErrInvalidToken, "Invalid Token")
				return
			}

			ctx = context.WithValue(ctx, IdentityKey, *identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentityFromContext returns the identity snapshot attached by Authenticate.
func GetIdentityFromContext(ctx context.Context) (types.Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(types.Identity)
	return identity, ok
}

// RequireRole gates a route on the caller's role snapshot. Runs AFTER
// Authenticate. A caller outside the allowed roles, or whose snapshot says
// the account is inactive, is denied with 403.
func RequireRole(logger *slog.Logger, roles ...types.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			identity, ok := GetIdentityFromContext(ctx)
			if !ok {
				logger.ErrorContext(ctx, "Identity missing from context; RequireRole must run after Authenticate")
				api.HandleError(w, r, types.ErrNotAuthenticated, "Not Authenticated")
				return
			}

			if !slices.Contains(roles, identity.Role) || !identity.IsActive {
				logger.WarnContext(ctx, "Role gate denied request",
					slog.String("role", string(identity.Role)),
					slog.Bool("is_active", identity.IsActive),
					slog.String("path", r.URL.Path),
				)
				api.HandleError(w, r, types.ErrForbidden, "Unauthorized")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
