// Package client is the Go consumer of the storefront API. It implements
// the session package's AuthClient and ProfileFetcher boundaries over HTTP,
// translating error responses back into the shared sentinel errors.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/jcastano/atelier/internal/models"
)

const defaultTimeout = 15 * time.Second

// APIClient talks to the storefront backend.
type APIClient struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// NewWithHTTPClient allows injecting a custom http.Client, mainly for tests.
func NewWithHTTPClient(baseURL string, hc *http.Client) *APIClient {
	return &APIClient{baseURL: baseURL, http: hc}
}

// SignInWithPassword exchanges credentials for a session.
func (c *APIClient) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	body := map[string]string{"email": email, "password": password}
	var sess models.Session
	if err := c.do(ctx, http.MethodPost, "/auth/signin", "", body, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// SignUp registers an account and returns its first session.
func (c *APIClient) SignUp(ctx context.Context, email, password, name string) (*models.Session, error) {
	body := map[string]string{"email": email, "password": password, "name": name}
	var sess models.Session
	if err := c.do(ctx, http.MethodPost, "/auth/signup", "", body, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// SignOut revokes the access token server-side.
func (c *APIClient) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/auth/signout", accessToken, nil, nil)
}

// GetSession validates a stored access token against the backend. The
// response carries no refresh token; callers keep the one they have.
func (c *APIClient) GetSession(ctx context.Context, accessToken string) (*models.Session, error) {
	var sess models.Session
	if err := c.do(ctx, http.MethodGet, "/auth/session", accessToken, nil, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// RefreshSession trades a refresh token for a new token pair.
func (c *APIClient) RefreshSession(ctx context.Context, refreshToken string) (*models.Session, error) {
	body := map[string]string{"refresh_token": refreshToken}
	var sess models.Session
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", "", body, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// ResetPasswordForEmail requests a reset email. The backend answers 202
// whether or not the address is registered.
func (c *APIClient) ResetPasswordForEmail(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return c.do(ctx, http.MethodPost, "/auth/reset-password", "", body, nil)
}

// ListProducts fetches a category page of the catalog.
func (c *APIClient) ListProducts(ctx context.Context, category string, limit, offset int) ([]*models.Product, error) {
	path := fmt.Sprintf("/products?limit=%d&offset=%d", limit, offset)
	if category != "" {
		path += "&category=" + url.QueryEscape(category)
	}
	var out struct {
		Products []*models.Product `json:"products"`
	}
	if err := c.do(ctx, http.MethodGet, path, "", nil, &out); err != nil {
		return nil, err
	}
	return out.Products, nil
}

// FetchFilterMetadata loads the bounds the filter sidebar is seeded with.
func (c *APIClient) FetchFilterMetadata(ctx context.Context, category string) (*models.FilterMetadata, error) {
	path := "/products/filters"
	if category != "" {
		path += "?category=" + url.QueryEscape(category)
	}
	var meta models.FilterMetadata
	if err := c.do(ctx, http.MethodGet, path, "", nil, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// FetchProfile loads the authoritative profile, including the admin flag.
func (c *APIClient) FetchProfile(ctx context.Context, accessToken, userID string) (*models.Profile, error) {
	var profile models.Profile
	if err := c.do(ctx, http.MethodGet, "/user/profile", accessToken, nil, &profile); err != nil {
		return nil, err
	}
	if profile.ID != userID {
		return nil, fmt.Errorf("profile belongs to %s, expected %s", profile.ID, userID)
	}
	return &profile, nil
}

func (c *APIClient) do(ctx context.Context, method, path, accessToken string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return mapStatusError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// mapStatusError folds HTTP error responses back into the sentinel errors
// the rest of the codebase matches on.
func mapStatusError(resp *http.Response) error {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return models.ErrUnauthorized
	case http.StatusForbidden:
		return models.ErrForbidden
	case http.StatusNotFound:
		return models.ErrNotFound
	case http.StatusConflict:
		return models.ErrConflict
	case http.StatusBadRequest:
		if payload.Message != "" {
			return fmt.Errorf("%w: %s", models.ErrBadRequest, payload.Message)
		}
		return models.ErrBadRequest
	default:
		return fmt.Errorf("%w: status %d", models.ErrInternalServer, resp.StatusCode)
	}
}
