package routes

import (
	"github.com/bastionauth/bastion/internal/handlers"
	"github.com/bastionauth/bastion/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(router chi.Router, authHandler *handlers.AuthHandler) {
	// Transport-level rate limit on top of the in-service brute-force gates
	rateLimitConfig := middleware.DefaultAuthRateLimit()

	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/api/auth/login", authHandler.Login)
}
