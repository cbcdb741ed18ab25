package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/jcastano/atelier/internal/auth"
	"github.com/jcastano/atelier/internal/models"
)

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	SignInFunc               func(ctx context.Context, email, password string) (*models.Session, error)
	SignUpFunc               func(ctx context.Context, email, password, name string) (*models.Session, error)
	GetSessionFunc           func(ctx context.Context, accessToken string) (*models.Session, error)
	RefreshFunc              func(ctx context.Context, refreshToken string) (*models.Session, error)
	SignOutFunc              func(ctx context.Context, accessToken string) error
	RequestPasswordResetFunc func(ctx context.Context, email string) error
	ConfirmPasswordResetFunc func(ctx context.Context, token, newPassword string) error
}

func (m *MockAuthService) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	if m.SignInFunc != nil {
		return m.SignInFunc(ctx, email, password)
	}
	return nil, models.ErrUnauthorized
}

func (m *MockAuthService) SignUp(ctx context.Context, email, password, name string) (*models.Session, error) {
	if m.SignUpFunc != nil {
		return m.SignUpFunc(ctx, email, password, name)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAuthService) GetSession(ctx context.Context, accessToken string) (*models.Session, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, accessToken)
	}
	return nil, models.ErrSessionExpired
}

func (m *MockAuthService) Refresh(ctx context.Context, refreshToken string) (*models.Session, error) {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, refreshToken)
	}
	return nil, models.ErrUnauthorized
}

func (m *MockAuthService) SignOut(ctx context.Context, accessToken string) error {
	if m.SignOutFunc != nil {
		return m.SignOutFunc(ctx, accessToken)
	}
	return nil
}

func (m *MockAuthService) RequestPasswordReset(ctx context.Context, email string) error {
	if m.RequestPasswordResetFunc != nil {
		return m.RequestPasswordResetFunc(ctx, email)
	}
	return nil
}

func (m *MockAuthService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if m.ConfirmPasswordResetFunc != nil {
		return m.ConfirmPasswordResetFunc(ctx, token, newPassword)
	}
	return nil
}

// MockOAuthService implements OAuthServiceInterface for testing
type MockOAuthService struct {
	AuthCodeURLFunc    func(state string) string
	HandleCallbackFunc func(ctx context.Context, code string) (*models.Session, error)
}

func (m *MockOAuthService) AuthCodeURL(state string) string {
	if m.AuthCodeURLFunc != nil {
		return m.AuthCodeURLFunc(state)
	}
	return "https://accounts.google.com/o/oauth2/auth?state=" + state
}

func (m *MockOAuthService) HandleCallback(ctx context.Context, code string) (*models.Session, error) {
	if m.HandleCallbackFunc != nil {
		return m.HandleCallbackFunc(ctx, code)
	}
	return nil, models.ErrUnauthorized
}

// MockCatalogService implements CatalogServiceInterface for testing
type MockCatalogService struct {
	GetFunc            func(ctx context.Context, id string) (*models.Product, error)
	ListFunc           func(ctx context.Context, category string, limit, offset int) ([]*models.Product, error)
	FilterMetadataFunc func(ctx context.Context, category string) (*models.FilterMetadata, error)
	CreateProductFunc  func(ctx context.Context, actorID string, product *models.Product) (*models.Product, error)
	UpdateProductFunc  func(ctx context.Context, actorID, id string, product *models.Product) (*models.Product, error)
	DeleteProductFunc  func(ctx context.Context, actorID, id string) error
}

func (m *MockCatalogService) Get(ctx context.Context, id string) (*models.Product, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockCatalogService) List(ctx context.Context, category string, limit, offset int) ([]*models.Product, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, category, limit, offset)
	}
	return []*models.Product{}, nil
}

func (m *MockCatalogService) FilterMetadata(ctx context.Context, category string) (*models.FilterMetadata, error) {
	if m.FilterMetadataFunc != nil {
		return m.FilterMetadataFunc(ctx, category)
	}
	return &models.FilterMetadata{}, nil
}

func (m *MockCatalogService) CreateProduct(ctx context.Context, actorID string, product *models.Product) (*models.Product, error) {
	if m.CreateProductFunc != nil {
		return m.CreateProductFunc(ctx, actorID, product)
	}
	return nil, models.ErrInternalServer
}

func (m *MockCatalogService) UpdateProduct(ctx context.Context, actorID, id string, product *models.Product) (*models.Product, error) {
	if m.UpdateProductFunc != nil {
		return m.UpdateProductFunc(ctx, actorID, id, product)
	}
	return nil, models.ErrInternalServer
}

func (m *MockCatalogService) DeleteProduct(ctx context.Context, actorID, id string) error {
	if m.DeleteProductFunc != nil {
		return m.DeleteProductFunc(ctx, actorID, id)
	}
	return nil
}

// MockProfileService implements ProfileServiceInterface for testing
type MockProfileService struct {
	GetFunc    func(ctx context.Context, userID string) (*models.Profile, error)
	UpdateFunc func(ctx context.Context, userID, name, avatarURL string) (*models.Profile, error)
}

func (m *MockProfileService) Get(ctx context.Context, userID string) (*models.Profile, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, userID)
	}
	return nil, models.ErrNotFound
}

func (m *MockProfileService) Update(ctx context.Context, userID, name, avatarURL string) (*models.Profile, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, userID, name, avatarURL)
	}
	return nil, models.ErrInternalServer
}

// withClaims attaches access-token claims to the request the way the auth
// middleware would.
func withClaims(r *http.Request, userID string) *http.Request {
	claims := &models.TokenClaims{Type: "access", UserID: userID, Email: userID + "@example.com"}
	ctx := context.WithValue(r.Context(), auth.UserContextKey, claims)
	return r.WithContext(ctx)
}

// do runs a handler and returns the recorder.
func do(handler http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	handler(w, r)
	return w
}
