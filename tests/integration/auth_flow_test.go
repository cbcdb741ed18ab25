package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcastano/atelier/internal/models"
)

func TestSignUpAndSession(t *testing.T) {
	cleanup(t)

	email, password := TestUser("signup")

	resp, err := testServer.Request("POST", "/auth/signup", map[string]string{
		"email":    email,
		"password": password,
		"name":     "Jane",
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var session models.Session
	require.NoError(t, ParseJSONResponse(resp, &session))
	require.NotEmpty(t, session.AccessToken)
	require.NotEmpty(t, session.RefreshToken)
	assert.Equal(t, email, session.User.Email)
	assert.Equal(t, "Jane", session.User.Name)

	// The session endpoint confirms the token without minting a new refresh
	// token.
	resp, err = testServer.RequestWithAuth("GET", "/auth/session", session.AccessToken, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var confirmed models.Session
	require.NoError(t, ParseJSONResponse(resp, &confirmed))
	assert.Equal(t, session.AccessToken, confirmed.AccessToken)
	assert.Empty(t, confirmed.RefreshToken)
	assert.Equal(t, session.User.ID, confirmed.User.ID)
}

func TestSignIn_WrongPassword(t *testing.T) {
	cleanup(t)

	email, password := TestUser("wrongpw")
	_, err := SeedUser(t.Context(), testDB.Pool, email, password)
	require.NoError(t, err)

	resp, err := testServer.Request("POST", "/auth/signin", map[string]string{
		"email":    email,
		"password": "not-the-password",
	}, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRefreshFlow(t *testing.T) {
	cleanup(t)

	email, password := TestUser("refresh")
	_, err := SeedUser(t.Context(), testDB.Pool, email, password)
	require.NoError(t, err)

	resp, err := testServer.Request("POST", "/auth/signin", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, refreshToken, err := ExtractTokensFromResponse(resp)
	require.NoError(t, err)
	require.NotEmpty(t, refreshToken)

	resp, err = testServer.Request("POST", "/auth/refresh", map[string]string{
		"refresh_token": refreshToken,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	newAccess, newRefresh, err := ExtractTokensFromResponse(resp)
	require.NoError(t, err)
	assert.NotEmpty(t, newAccess)
	assert.NotEmpty(t, newRefresh)
}

func TestSignOutRevokesToken(t *testing.T) {
	cleanup(t)

	email, password := TestUser("signout")
	_, err := SeedUser(t.Context(), testDB.Pool, email, password)
	require.NoError(t, err)

	resp, err := testServer.Request("POST", "/auth/signin", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	require.NoError(t, err)
	accessToken, _, err := ExtractTokensFromResponse(resp)
	require.NoError(t, err)

	resp, err = testServer.RequestWithAuth("POST", "/auth/signout", accessToken, nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// The revoked token no longer validates.
	resp, err = testServer.RequestWithAuth("GET", "/auth/session", accessToken, nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPasswordResetFlow(t *testing.T) {
	cleanup(t)

	email, password := TestUser("reset")
	_, err := SeedUser(t.Context(), testDB.Pool, email, password)
	require.NoError(t, err)

	resp, err := testServer.Request("POST", "/auth/reset-password", map[string]string{
		"email": email,
	}, nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	sent := testServer.EmailService.GetLastEmail()
	require.NotNil(t, sent, "reset email should have been sent")
	assert.Equal(t, email, sent.To)

	newPassword := "BrandNewPassword456!"
	resp, err = testServer.Request("POST", "/auth/reset-password/confirm", map[string]string{
		"token":        sent.Token,
		"new_password": newPassword,
	}, nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// New password works.
	resp, err = testServer.Request("POST", "/auth/signin", map[string]string{
		"email":    email,
		"password": newPassword,
	}, nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Reset tokens are single-use.
	resp, err = testServer.Request("POST", "/auth/reset-password/confirm", map[string]string{
		"token":        sent.Token,
		"new_password": "AnotherPassword789!",
	}, nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPasswordReset_UnknownEmailStillAccepted(t *testing.T) {
	cleanup(t)

	resp, err := testServer.Request("POST", "/auth/reset-password", map[string]string{
		"email": "nobody@example.com",
	}, nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
}
