package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/catering-erp/app"
	appmw "github.com/upb/catering-erp/middleware"
	"github.com/upb/catering-erp/services/rights"
	"github.com/upb/catering-erp/utils"
)

// ProfileCapability guards the caller's own profile
const ProfileCapability = "profile"

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	if deps.Config.Server.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(appmw.RequestLogger(deps.Logger))
	r.Use(appmw.Recoverer(deps.Logger))
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", appmw.TenantHeader},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Binds the tenant and principal for every request
	r.Use(deps.AuthMiddleware.Authenticate)

	// Health check endpoints
	r.Get("/healthz", deps.HealthHandler.HandleHealth)
	r.Get("/readyz", deps.HealthHandler.HandleReadiness)

	// Authentication endpoints
	r.Post("/authenticate", deps.AuthHandler.HandleLogin)
	r.Post("/authenticate/forgot-password", deps.AuthHandler.HandleForgotPassword)
	r.Post("/reset-password", deps.AuthHandler.HandleResetPassword)
	r.Get("/validate-token", deps.AuthHandler.HandleValidateToken)
	r.Get("/refresh-token", deps.AuthHandler.HandleRefreshToken)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(deps.AuthMiddleware.RequireAuth)

		r.Route("/rights", func(r chi.Router) {
			r.Get("/menus", deps.RightsHandler.HandleMenus)
			r.Get("/sidebar", deps.RightsHandler.HandleSidebar)
			r.Get("/check", deps.RightsHandler.HandleCheck)
		})

		r.Route("/me", func(r chi.Router) {
			r.With(deps.RightsMiddleware.Require(rights.Require(ProfileCapability))).Get("/", deps.UserHandler.HandleMe)
			r.Get("/login-attempts", deps.UserHandler.HandleLoginAttempts)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}
