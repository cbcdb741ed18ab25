package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcastano/atelier/internal/models"
)

func sessionResponse(userID string) *models.Session {
	return &models.Session{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
		User:         &models.SessionUser{ID: userID, Email: "user@example.com"},
	}
}

func TestAPIClient_SignInWithPassword(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		require.Equal(t, "/auth/signin", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "user@example.com", body["email"])

		json.NewEncoder(w).Encode(sessionResponse("user123"))
	}))
	defer server.Close()

	c := New(server.URL)
	sess, err := c.SignInWithPassword(context.Background(), "user@example.com", "password")
	require.NoError(t, err)
	assert.Equal(t, "access-token", sess.AccessToken)
	assert.Equal(t, "user123", sess.User.ID)
}

func TestAPIClient_SignIn_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"unauthorized","message":"Invalid email or password"}`))
	}))
	defer server.Close()

	c := New(server.URL)
	_, err := c.SignInWithPassword(context.Background(), "user@example.com", "wrong")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestAPIClient_GetSession_SendsBearer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer stored-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(sessionResponse("user123"))
	}))
	defer server.Close()

	c := New(server.URL)
	sess, err := c.GetSession(context.Background(), "stored-token")
	require.NoError(t, err)
	assert.Equal(t, "user123", sess.User.ID)
}

func TestAPIClient_FetchProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/user/profile", r.URL.Path)
		require.Equal(t, "Bearer access-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(&models.Profile{ID: "user123", Email: "user@example.com", Admin: true})
	}))
	defer server.Close()

	c := New(server.URL)
	profile, err := c.FetchProfile(context.Background(), "access-token", "user123")
	require.NoError(t, err)
	assert.True(t, profile.Admin)
}

func TestAPIClient_FetchProfile_UserMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(&models.Profile{ID: "someone-else"})
	}))
	defer server.Close()

	c := New(server.URL)
	_, err := c.FetchProfile(context.Background(), "access-token", "user123")
	assert.Error(t, err)
}

func TestAPIClient_SignOut(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		require.Equal(t, "/auth/signout", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := New(server.URL)
	require.NoError(t, c.SignOut(context.Background(), "access-token"))
	assert.True(t, called)
}

func TestAPIClient_RefreshSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "refresh-token", body["refresh_token"])
		json.NewEncoder(w).Encode(sessionResponse("user123"))
	}))
	defer server.Close()

	c := New(server.URL)
	sess, err := c.RefreshSession(context.Background(), "refresh-token")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.AccessToken)
}

func TestAPIClient_ListProducts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/products", r.URL.Path)
		assert.Equal(t, "dresses", r.URL.Query().Get("category"))
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		json.NewEncoder(w).Encode(map[string]any{
			"products": []*models.Product{{ID: "p1"}, {ID: "p2"}},
		})
	}))
	defer server.Close()

	c := New(server.URL)
	products, err := c.ListProducts(context.Background(), "dresses", 100, 0)
	require.NoError(t, err)
	assert.Len(t, products, 2)
}

func TestAPIClient_FetchFilterMetadata(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/products/filters", r.URL.Path)
		json.NewEncoder(w).Encode(&models.FilterMetadata{
			PriceRange: models.PriceRange{Lo: 5, Hi: 300},
			Sizes:      []string{"M"},
		})
	}))
	defer server.Close()

	c := New(server.URL)
	meta, err := c.FetchFilterMetadata(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 300.0, meta.PriceRange.Hi)
}

func TestAPIClient_ResetPasswordForEmail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	c := New(server.URL)
	assert.NoError(t, c.ResetPasswordForEmail(context.Background(), "user@example.com"))
}
