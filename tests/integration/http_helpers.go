package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/jcastano/atelier/internal/auth"
	"github.com/jcastano/atelier/internal/config"
	"github.com/jcastano/atelier/internal/database"
	"github.com/jcastano/atelier/internal/handlers"
	middlewareCustom "github.com/jcastano/atelier/internal/middleware"
	"github.com/jcastano/atelier/internal/repositories"
	"github.com/jcastano/atelier/internal/routes"
	"github.com/jcastano/atelier/internal/services"
	pkglogger "github.com/jcastano/atelier/pkg/logger"
)

// SentEmail represents a captured email message
type SentEmail struct {
	To    string
	Token string
}

// MockEmailService captures password reset emails for test assertions
type MockEmailService struct {
	mu         sync.Mutex
	SentEmails []SentEmail
}

func (m *MockEmailService) SendPasswordResetEmail(ctx context.Context, email, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentEmails = append(m.SentEmails, SentEmail{To: email, Token: token})
	return nil
}

// GetLastEmail returns the most recent email sent
func (m *MockEmailService) GetLastEmail() *SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.SentEmails) == 0 {
		return nil
	}
	return &m.SentEmails[len(m.SentEmails)-1]
}

// MockStorage records uploads and hands back deterministic URLs
type MockStorage struct {
	mu      sync.Mutex
	Uploads []string
}

func (m *MockStorage) Upload(ctx context.Context, userID, filename, contentType string, body io.Reader, size int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := userID + "/" + filename
	m.Uploads = append(m.Uploads, key)
	return "https://cdn.test.local/" + key, nil
}

// TestServer wraps httptest.Server with database and all dependencies
type TestServer struct {
	Server       *httptest.Server
	DB           *database.DB
	EmailService *MockEmailService
	Storage      *MockStorage
	Config       *config.Config
	TokenManager *auth.TokenManager
}

// NewTestServer initializes a complete HTTP server with real database plus
// mocked email and object storage.
func NewTestServer(db *database.DB) *TestServer {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:          "test-secret-32-characters-long-for-testing",
			AccessTokenExpiry:  15 * time.Minute,
			RefreshTokenExpiry: 7 * 24 * time.Hour,
			CleanupInterval:    time.Hour,
		},
		Server: config.ServerConfig{
			Port:           "0",
			Env:            "test",
			AllowedOrigins: []string{},
		},
	}

	userRepo := repositories.NewUserRepository(db)
	profileRepo := repositories.NewProfileRepository(db)
	productRepo := repositories.NewProductRepository(db)
	revokeRepo := repositories.NewTokenRevocationRepository(db)

	mockEmail := &MockEmailService{}
	mockStorage := &MockStorage{}

	tokenManager := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
	)

	auditLogger := pkglogger.NewAuditLogger(logger)

	authService := services.NewAuthService(userRepo, profileRepo, revokeRepo, tokenManager, mockEmail, logger, auditLogger)
	oauthService := services.NewOAuthService(
		"test-client-id", "test-client-secret", "http://localhost/auth/oauth/google/callback",
		userRepo, profileRepo, authService, logger, auditLogger,
	)
	profileService := services.NewProfileService(profileRepo, logger)
	// No redis in integration tests; every filter read hits Postgres.
	catalogService := services.NewCatalogService(productRepo, nil, logger, auditLogger)

	authHandler := handlers.NewAuthHandler(authService, oauthService)
	productHandler := handlers.NewProductHandler(catalogService)
	profileHandler := handlers.NewProfileHandler(profileService)
	uploadHandler := handlers.NewUploadHandler(mockStorage)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// All test traffic shares one IP, so loosen the per-IP buckets.
	routeCfg := routes.Config{
		AuthRateLimit: middlewareCustom.RateLimitConfig{RequestsPerMinute: 1000},
		APIRateLimit:  middlewareCustom.RateLimitConfig{RequestsPerMinute: 10000},
	}
	routes.RegisterRoutes(r, routeCfg, authHandler, productHandler, profileHandler, uploadHandler, tokenManager, profileRepo, revokeRepo)

	server := httptest.NewServer(r)

	return &TestServer{
		Server:       server,
		DB:           db,
		EmailService: mockEmail,
		Storage:      mockStorage,
		Config:       cfg,
		TokenManager: tokenManager,
	}
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	if ts.Server != nil {
		ts.Server.Close()
	}
}

// Request makes an HTTP request to the test server
func (ts *TestServer) Request(method, path string, body interface{}, headers map[string]string) (*http.Response, error) {
	url := ts.Server.URL + path

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	return http.DefaultClient.Do(req)
}

// RequestWithAuth makes an authenticated HTTP request with access token
func (ts *TestServer) RequestWithAuth(method, path, accessToken string, body interface{}) (*http.Response, error) {
	headers := map[string]string{
		"Authorization": "Bearer " + accessToken,
	}
	return ts.Request(method, path, body, headers)
}

// ParseJSONResponse parses JSON response body into target struct
func ParseJSONResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}

// ExtractTokensFromResponse extracts access/refresh tokens from an auth response
func ExtractTokensFromResponse(resp *http.Response) (accessToken, refreshToken string, err error) {
	defer resp.Body.Close()

	var authResp map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		return "", "", fmt.Errorf("failed to parse response: %w", err)
	}

	if access, ok := authResp["access_token"].(string); ok {
		accessToken = access
	}
	if refresh, ok := authResp["refresh_token"].(string); ok {
		refreshToken = refresh
	}

	return
}
