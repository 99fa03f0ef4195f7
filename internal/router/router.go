package router

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/staffdeck/staffdeck/docs"

	"github.com/staffdeck/staffdeck/config"
	"github.com/staffdeck/staffdeck/internal/api"
	"github.com/staffdeck/staffdeck/internal/api/auth"
	"github.com/staffdeck/staffdeck/internal/api/user"
	"github.com/staffdeck/staffdeck/internal/types"
)

// Config contains dependencies needed for the router setup.
type Config struct {
	AppConfig   *config.Config
	AuthHandler *auth.AuthHandler
	UserHandler user.Handler
	Logger      *slog.Logger
}

// SetupRouter wires the route table. Server-wide middleware (request ID,
// logger, recoverer) are applied by main before mounting this router.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticate := auth.Authenticate(cfg.Logger, cfg.AppConfig.JWT)
	requireRole := func(roles ...types.Role) func(http.Handler) http.Handler {
		return auth.RequireRole(cfg.Logger, roles...)
	}

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	// Uploaded avatars are served straight from disk.
	fileServer := http.StripPrefix(cfg.AppConfig.Upload.BaseURL+"/",
		http.FileServer(http.Dir(cfg.AppConfig.Upload.Dir)))
	r.Get(cfg.AppConfig.Upload.BaseURL+"/*", fileServer.ServeHTTP)

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", cfg.AuthHandler.Login)
			r.With(authenticate).Get("/logout", cfg.AuthHandler.Logout)
		})

		r.Route("/user", func(r chi.Router) {
			r.Use(authenticate)

			r.With(requireRole(types.RoleAdmin, types.RoleModerator)).
				Get("/", cfg.UserHandler.ListUsers)
			r.With(requireRole(types.RoleAdmin, types.RoleModerator, types.RoleUser)).
				Get("/{id}", cfg.UserHandler.GetUser)
			r.With(requireRole(types.RoleAdmin, types.RoleModerator)).
				Post("/add", cfg.UserHandler.AddUser)
			r.With(requireRole(types.RoleAdmin, types.RoleModerator, types.RoleUser)).
				Patch("/update/{id}", cfg.UserHandler.UpdateUser)
			r.With(requireRole(types.RoleAdmin, types.RoleModerator)).
				Delete("/remove/{id}", cfg.UserHandler.RemoveUser)
			r.With(requireRole(types.RoleAdmin)).
				Patch("/change-role/{id}", cfg.UserHandler.ChangeRole)
			r.With(requireRole(types.RoleAdmin, types.RoleModerator)).
				Patch("/toggle-active-status/{id}", cfg.UserHandler.ToggleActiveStatus)
		})
	})

	// Unmatched routes go through the same error envelope as everything else.
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		api.HandleError(w, r, types.ErrNotFound, "Not Found")
	})

	return r
}
