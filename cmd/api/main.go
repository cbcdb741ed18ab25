package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jcastano/atelier/internal/auth"
	"github.com/jcastano/atelier/internal/background"
	"github.com/jcastano/atelier/internal/cache"
	"github.com/jcastano/atelier/internal/config"
	"github.com/jcastano/atelier/internal/database"
	"github.com/jcastano/atelier/internal/handlers"
	middlewareCustom "github.com/jcastano/atelier/internal/middleware"
	"github.com/jcastano/atelier/internal/models"
	"github.com/jcastano/atelier/internal/repositories"
	"github.com/jcastano/atelier/internal/routes"
	"github.com/jcastano/atelier/internal/services"
	pkgauth "github.com/jcastano/atelier/pkg/auth"
	pkghttp "github.com/jcastano/atelier/pkg/http"
	pkglogger "github.com/jcastano/atelier/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Redis is optional: without it every filter-metadata read goes to
	// Postgres, which is correct but slower.
	var filterCache *cache.FilterMetadataCache
	if cfg.Redis.URL != "" {
		redisCtx, redisCancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisClient, err := cache.NewRedisClient(redisCtx, cfg.Redis.URL)
		redisCancel()
		if err != nil {
			logger.Warn("redis unavailable, filter metadata caching disabled", slog.Any("error", err))
		} else {
			filterCache = cache.NewFilterMetadataCache(redisClient, cache.DefaultFilterTTL, logger)
			defer redisClient.Close()
		}
	}

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	profileRepo := repositories.NewProfileRepository(db)
	productRepo := repositories.NewProductRepository(db)
	revokeRepo := repositories.NewTokenRevocationRepository(db)

	// Initialize cleanup manager
	cleanupManager := background.NewCleanupManager(revokeRepo, logger, cfg.Auth.CleanupInterval)

	// Initialize token manager
	tokenManager := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
	)

	auditLogger := pkglogger.NewAuditLogger(logger)

	// AWS SES email service
	emailService, err := services.NewAWSSESEmailService(
		cfg.Email.AWSRegion,
		cfg.Email.FromAddress,
		cfg.Email.ResetURLBase,
		logger,
	)
	if err != nil {
		logger.Error("failed to initialize email service", slog.Any("error", err))
		os.Exit(1)
	}

	// S3 storage for product images
	storageService, err := services.NewS3StorageService(
		cfg.Storage.AWSRegion,
		cfg.Storage.Bucket,
		cfg.Storage.PublicBaseURL,
		logger,
	)
	if err != nil {
		logger.Error("failed to initialize storage service", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize services
	authService := services.NewAuthService(userRepo, profileRepo, revokeRepo, tokenManager, emailService, logger, auditLogger)
	oauthService := services.NewOAuthService(
		cfg.OAuth.GoogleClientID,
		cfg.OAuth.GoogleClientSecret,
		cfg.OAuth.GoogleRedirectURL,
		userRepo,
		profileRepo,
		authService,
		logger,
		auditLogger,
	)
	profileService := services.NewProfileService(profileRepo, logger)
	catalogService := services.NewCatalogService(productRepo, filterCache, logger, auditLogger)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, oauthService)
	productHandler := handlers.NewProductHandler(catalogService)
	profileHandler := handlers.NewProfileHandler(profileService)
	uploadHandler := handlers.NewUploadHandler(storageService)

	// Bootstrap first admin user if configured
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureAdminUser(ctx, userRepo, profileRepo, logger); err != nil {
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	}
	cancel()

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.NewCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger, &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, routes.Config{}, authHandler, productHandler, profileHandler, uploadHandler, tokenManager, profileRepo, revokeRepo)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := db.HealthCheck(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// ensureAdminUser creates the first admin account if ADMIN_EMAIL and
// ADMIN_PASSWORD are set. The admin flag lives on the profile row, never
// in token claims.
func ensureAdminUser(ctx context.Context, userRepo *repositories.UserRepository, profileRepo *repositories.ProfileRepository, logger *slog.Logger) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" || adminPassword == "" {
		logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin user creation")
		return nil
	}

	existing, err := userRepo.GetByEmail(ctx, adminEmail)
	if err == nil {
		// Account exists; make sure it carries the admin flag.
		if _, err := profileRepo.GetOrCreate(ctx, existing.ID); err != nil {
			return fmt.Errorf("failed to ensure admin profile: %w", err)
		}
		if err := profileRepo.SetAdmin(ctx, existing.ID, true); err != nil {
			return fmt.Errorf("failed to set admin flag: %w", err)
		}
		logger.Info("admin user already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}

	hashedPassword, err := pkgauth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin, err := userRepo.Create(ctx, &models.User{
		Email:         adminEmail,
		PasswordHash:  hashedPassword,
		Name:          "Admin",
		Provider:      "email",
		EmailVerified: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	if _, err := profileRepo.GetOrCreate(ctx, admin.ID); err != nil {
		return fmt.Errorf("failed to create admin profile: %w", err)
	}
	if err := profileRepo.SetAdmin(ctx, admin.ID, true); err != nil {
		return fmt.Errorf("failed to set admin flag: %w", err)
	}

	logger.Info("admin user created successfully")
	return nil
}
