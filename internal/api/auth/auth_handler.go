package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/staffdeck/staffdeck/config"
	"github.com/staffdeck/staffdeck/internal/api"
	"github.com/staffdeck/staffdeck/internal/types"
)

var validate = validator.New()

// AuthHandler handles HTTP requests for authentication operations.
type AuthHandler struct {
	authService AuthService
	jwtCfg      config.JWTConfig
	production  bool
	logger      *slog.Logger
}

func NewAuthHandler(authService AuthService, jwtCfg config.JWTConfig, production bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		jwtCfg:      jwtCfg,
		production:  production,
		logger:      logger,
	}
}

// Login godoc
// @Summary      Login
// @Description  Authenticates by email/password and sets the session cookie.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        credentials body LoginRequest true "Login credentials"
// @Success      200 {object} types.UserResponse
// @Failure      400 {object} types.Response
// @Failure      403 {object} types.Response
// @Router       /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Login"))

	var req LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode login request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid email or password format")
		return
	}

	user, token, err := h.authService.Login(ctx, req.Email, req.Password)
	if err != nil {
		l.WarnContext(ctx, "Login failed", slog.String("email", req.Email), slog.Any("error", err))
		api.HandleError(w, r, err, "Invalid Credentials")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.jwtCfg.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.jwtCfg.TokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.production,
		SameSite: http.SameSiteStrictMode,
	})

	api.WriteJSONResponse(w, r, http.StatusOK, types.UserResponse{
		Response: types.Response{Success: true, Message: "Login Successful!"},
		User:     user,
	})
}

// Logout godoc
// @Summary      Logout
// @Description  Clears the session cookie. The token itself stays valid
// @Description  until its natural expiry; the server keeps no session state.
// @Tags         Auth
// @Produce      json
// @Success      200 {object} types.Response
// @Failure      401 {object} types.Response
// @Security     CookieAuth
// @Router       /auth/logout [get]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.jwtCfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.production,
		SameSite: http.SameSiteStrictMode,
	})

	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{
		Success: true,
		Message: "Logout Successful!",
	})
}
