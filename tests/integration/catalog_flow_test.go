package integration

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcastano/atelier/internal/models"
)

func signIn(t *testing.T, email, password string) string {
	t.Helper()
	resp, err := testServer.Request("POST", "/auth/signin", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	accessToken, _, err := ExtractTokensFromResponse(resp)
	require.NoError(t, err)
	return accessToken
}

func TestCatalogListAndFilters(t *testing.T) {
	cleanup(t)

	ctx := t.Context()
	_, err := SeedProduct(ctx, testDB.Pool, "dresses", 49.99, []string{"S", "M"}, []string{"#000000"})
	require.NoError(t, err)
	_, err = SeedProduct(ctx, testDB.Pool, "dresses", 120.00, []string{"M", "L"}, []string{"#ff0000"})
	require.NoError(t, err)
	_, err = SeedProduct(ctx, testDB.Pool, "shoes", 80.00, []string{"42"}, []string{"#ffffff"})
	require.NoError(t, err)

	resp, err := testServer.Request("GET", "/products?category=dresses", nil, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listing struct {
		Products []*models.Product `json:"products"`
	}
	require.NoError(t, ParseJSONResponse(resp, &listing))
	assert.Len(t, listing.Products, 2)

	resp, err = testServer.Request("GET", "/products/filters?category=dresses", nil, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var meta models.FilterMetadata
	require.NoError(t, ParseJSONResponse(resp, &meta))
	assert.InDelta(t, 49.99, meta.PriceRange.Lo, 0.001)
	assert.InDelta(t, 120.00, meta.PriceRange.Hi, 0.001)
	assert.Equal(t, []string{"L", "M", "S"}, meta.Sizes)
	assert.ElementsMatch(t, []string{"#000000", "#ff0000"}, meta.Colors)
}

func TestProductGet(t *testing.T) {
	cleanup(t)

	id, err := SeedProduct(t.Context(), testDB.Pool, "shoes", 80.00, []string{"42"}, []string{"#ffffff"})
	require.NoError(t, err)

	resp, err := testServer.Request("GET", "/products/"+id, nil, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var product models.Product
	require.NoError(t, ParseJSONResponse(resp, &product))
	assert.Equal(t, id, product.ID)
	assert.Equal(t, "shoes", product.Category)
}

func TestAdminProductCRUD(t *testing.T) {
	cleanup(t)

	ctx := t.Context()
	adminEmail, adminPassword := TestUser("admin")
	_, err := SeedAdmin(ctx, testDB.Pool, adminEmail, adminPassword)
	require.NoError(t, err)
	adminToken := signIn(t, adminEmail, adminPassword)

	body := map[string]interface{}{
		"amount":           59.99,
		"currency":         "USD",
		"description":      "Linen summer dress",
		"category":         "dresses",
		"available_sizes":  []string{"S", "M", "L"},
		"available_colors": []string{"#f5f5dc"},
	}
	resp, err := testServer.RequestWithAuth("POST", "/products", adminToken, body)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Product
	require.NoError(t, ParseJSONResponse(resp, &created))
	require.NotEmpty(t, created.ID)

	body["amount"] = 49.99
	resp, err = testServer.RequestWithAuth("PUT", "/products/"+created.ID, adminToken, body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated models.Product
	require.NoError(t, ParseJSONResponse(resp, &updated))
	assert.InDelta(t, 49.99, updated.Amount, 0.001)

	resp, err = testServer.RequestWithAuth("DELETE", "/products/"+created.ID, adminToken, nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = testServer.Request("GET", "/products/"+created.ID, nil, nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestProductWrite_RequiresAdmin(t *testing.T) {
	cleanup(t)

	email, password := TestUser("shopper")
	_, err := SeedUser(t.Context(), testDB.Pool, email, password)
	require.NoError(t, err)
	token := signIn(t, email, password)

	body := map[string]interface{}{
		"amount":   10.0,
		"category": "dresses",
	}
	resp, err := testServer.RequestWithAuth("POST", "/products", token, body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Anonymous writes are rejected outright.
	resp, err = testServer.Request("POST", "/products", body, nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProfileGetAndUpdate(t *testing.T) {
	cleanup(t)

	email, password := TestUser("profile")
	user, err := SeedUser(t.Context(), testDB.Pool, email, password)
	require.NoError(t, err)
	token := signIn(t, email, password)

	// First read creates the profile row.
	resp, err := testServer.RequestWithAuth("GET", "/user/profile", token, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var profile models.Profile
	require.NoError(t, ParseJSONResponse(resp, &profile))
	assert.Equal(t, user.ID, profile.ID)
	assert.False(t, profile.Admin)

	resp, err = testServer.RequestWithAuth("PUT", "/user/profile", token, map[string]string{
		"name":       "New Display Name",
		"avatar_url": "https://cdn.test.local/avatars/x.png",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, ParseJSONResponse(resp, &profile))
	assert.Equal(t, "New Display Name", profile.Name)
}

func TestAdminUpload(t *testing.T) {
	cleanup(t)

	ctx := t.Context()
	adminEmail, adminPassword := TestUser("uploader")
	_, err := SeedAdmin(ctx, testDB.Pool, adminEmail, adminPassword)
	require.NoError(t, err)
	adminToken := signIn(t, adminEmail, adminPassword)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="dress.jpg"`)
	header.Set("Content-Type", "image/jpeg")
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("jpeg-bytes"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req, err := http.NewRequest("POST", testServer.Server.URL+"/upload", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+adminToken)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var uploaded struct {
		URL string `json:"url"`
	}
	require.NoError(t, ParseJSONResponse(resp, &uploaded))
	assert.Contains(t, uploaded.URL, "dress.jpg")
	assert.Len(t, testServer.Storage.Uploads, 1)
}
