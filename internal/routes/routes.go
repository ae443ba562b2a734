package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/hostall/hostguard/internal/auth"
	"github.com/hostall/hostguard/internal/handlers"
	"github.com/hostall/hostguard/internal/middleware"
	"github.com/hostall/hostguard/internal/services"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	twoFactorHandler *handlers.TwoFactorHandler,
	resetHandler *handlers.PasswordResetHandler,
	dashboardHandler *handlers.DashboardHandler,
	tokenManager *auth.SessionTokenManager,
	sessions *services.SessionService,
) {
	rateLimitConfig := middleware.DefaultAuthRateLimit()

	// Public routes, edge rate limited per IP
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/auth/login", authHandler.Login)
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/auth/password-reset/request", resetHandler.Request)
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/auth/password-reset/confirm", resetHandler.Confirm)

	// Protected routes - a live session required
	router.Group(func(r chi.Router) {
		r.Use(auth.SessionMiddleware(tokenManager, sessions))

		r.Post("/auth/logout", authHandler.Logout)

		r.Post("/auth/2fa/setup", twoFactorHandler.Setup)
		r.Post("/auth/2fa/verify", twoFactorHandler.Verify)
		r.Delete("/auth/2fa", twoFactorHandler.Disable)
		r.Get("/auth/2fa/status", twoFactorHandler.Status)

		r.Get("/security/dashboard", dashboardHandler.GetDashboard)
	})
}
