package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/jcastano/atelier/internal/auth"
	"github.com/jcastano/atelier/internal/handlers"
	"github.com/jcastano/atelier/internal/middleware"
	"github.com/jcastano/atelier/internal/repositories"
)

// Config tunes per-route-group rate limits. Zero values fall back to the
// defaults; integration tests loosen them since every request shares one IP.
type Config struct {
	AuthRateLimit middleware.RateLimitConfig
	APIRateLimit  middleware.RateLimitConfig
}

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	cfg Config,
	authHandler *handlers.AuthHandler,
	productHandler *handlers.ProductHandler,
	profileHandler *handlers.ProfileHandler,
	uploadHandler *handlers.UploadHandler,
	tokenManager *auth.TokenManager,
	profileRepo *repositories.ProfileRepository,
	revokeRepo *repositories.TokenRevocationRepository,
) {
	if cfg.AuthRateLimit.RequestsPerMinute == 0 {
		cfg.AuthRateLimit = middleware.DefaultAuthRateLimit()
	}
	if cfg.APIRateLimit.RequestsPerMinute == 0 {
		cfg.APIRateLimit = middleware.DefaultAPIRateLimit()
	}
	authLimit := middleware.RateLimitByIP(cfg.AuthRateLimit)
	apiLimit := middleware.RateLimitByIP(cfg.APIRateLimit)

	// Public catalog routes - storefront browsing needs no authentication
	router.Group(func(r chi.Router) {
		r.Use(apiLimit)
		r.Get("/products", productHandler.List)
		r.Get("/products/filters", productHandler.Filters)
		r.Get("/products/{id}", productHandler.Get)
	})

	// Credential endpoints get the tight per-IP limit
	router.With(authLimit).Post("/auth/signin", authHandler.SignIn)
	router.With(authLimit).Post("/auth/signup", authHandler.SignUp)
	router.With(authLimit).Post("/auth/reset-password", authHandler.ResetPassword)
	router.With(authLimit).Post("/auth/reset-password/confirm", authHandler.ConfirmReset)

	// Token endpoints carry their own proof; looser limit
	router.With(apiLimit).Post("/auth/refresh", authHandler.Refresh)
	router.With(apiLimit).Get("/auth/session", authHandler.Session)
	router.With(apiLimit).Post("/auth/signout", authHandler.SignOut)

	// OAuth flow
	router.With(authLimit).Get("/auth/oauth/google", authHandler.GoogleRedirect)
	router.With(authLimit).Get("/auth/oauth/google/callback", authHandler.GoogleCallback)

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(apiLimit)
		r.Use(auth.AuthMiddlewareWithRevocation(tokenManager, revokeRepo, auth.RevocationConfig{FailClosed: false}))

		r.Get("/user/profile", profileHandler.Get)
		r.Put("/user/profile", profileHandler.Update)

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin(profileRepo))
			r.Post("/products", productHandler.Create)
			r.Put("/products/{id}", productHandler.Update)
			r.Delete("/products/{id}", productHandler.Delete)
			r.Post("/upload", uploadHandler.Upload)
		})
	})
}
