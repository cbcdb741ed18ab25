package services

import (
	"context"
	"io"
	"time"

	"github.com/jcastano/atelier/internal/models"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc        func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc     func(ctx context.Context, email string) (*models.User, error)
	CreateFunc         func(ctx context.Context, user *models.User) (*models.User, error)
	UpdateFunc         func(ctx context.Context, id string, user *models.User) (*models.User, error)
	UpdatePasswordFunc func(ctx context.Context, id, passwordHash string) error
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) Update(ctx context.Context, id string, user *models.User) (*models.User, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash)
	}
	return nil
}

// MockProfileRepository implements ProfileRepository for testing
type MockProfileRepository struct {
	GetByUserIDFunc func(ctx context.Context, userID string) (*models.Profile, error)
	GetOrCreateFunc func(ctx context.Context, userID string) (*models.Profile, error)
	UpdateFunc      func(ctx context.Context, userID string, name, avatarURL string) (*models.Profile, error)
	IsAdminFunc     func(ctx context.Context, userID string) (bool, error)
	SetAdminFunc    func(ctx context.Context, userID string, admin bool) error
}

func (m *MockProfileRepository) GetByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	if m.GetByUserIDFunc != nil {
		return m.GetByUserIDFunc(ctx, userID)
	}
	return nil, models.ErrNotFound
}

func (m *MockProfileRepository) GetOrCreate(ctx context.Context, userID string) (*models.Profile, error) {
	if m.GetOrCreateFunc != nil {
		return m.GetOrCreateFunc(ctx, userID)
	}
	return &models.Profile{ID: userID}, nil
}

func (m *MockProfileRepository) Update(ctx context.Context, userID string, name, avatarURL string) (*models.Profile, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, userID, name, avatarURL)
	}
	return nil, models.ErrInternalServer
}

func (m *MockProfileRepository) IsAdmin(ctx context.Context, userID string) (bool, error) {
	if m.IsAdminFunc != nil {
		return m.IsAdminFunc(ctx, userID)
	}
	return false, nil
}

func (m *MockProfileRepository) SetAdmin(ctx context.Context, userID string, admin bool) error {
	if m.SetAdminFunc != nil {
		return m.SetAdminFunc(ctx, userID, admin)
	}
	return nil
}

// MockTokenRevocationRepository implements TokenRevocationRepository for testing
type MockTokenRevocationRepository struct {
	RevokeTokenFunc    func(ctx context.Context, jti, userID, tokenType string, expiresAt time.Time, reason string) error
	IsTokenRevokedFunc func(ctx context.Context, jti string) (bool, error)
}

func (m *MockTokenRevocationRepository) RevokeToken(ctx context.Context, jti, userID, tokenType string, expiresAt time.Time, reason string) error {
	if m.RevokeTokenFunc != nil {
		return m.RevokeTokenFunc(ctx, jti, userID, tokenType, expiresAt, reason)
	}
	return nil
}

func (m *MockTokenRevocationRepository) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	if m.IsTokenRevokedFunc != nil {
		return m.IsTokenRevokedFunc(ctx, jti)
	}
	return false, nil
}

// MockProductRepository implements ProductRepository for testing
type MockProductRepository struct {
	GetByIDFunc        func(ctx context.Context, id string) (*models.Product, error)
	ListFunc           func(ctx context.Context, category string, limit, offset int) ([]*models.Product, error)
	CreateFunc         func(ctx context.Context, product *models.Product) (*models.Product, error)
	UpdateFunc         func(ctx context.Context, id string, product *models.Product) (*models.Product, error)
	DeleteFunc         func(ctx context.Context, id string) error
	FilterMetadataFunc func(ctx context.Context, category string) (*models.FilterMetadata, error)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockProductRepository) List(ctx context.Context, category string, limit, offset int) ([]*models.Product, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, category, limit, offset)
	}
	return []*models.Product{}, nil
}

func (m *MockProductRepository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, product)
	}
	return nil, models.ErrInternalServer
}

func (m *MockProductRepository) Update(ctx context.Context, id string, product *models.Product) (*models.Product, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, product)
	}
	return nil, models.ErrInternalServer
}

func (m *MockProductRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockProductRepository) FilterMetadata(ctx context.Context, category string) (*models.FilterMetadata, error) {
	if m.FilterMetadataFunc != nil {
		return m.FilterMetadataFunc(ctx, category)
	}
	return &models.FilterMetadata{}, nil
}

// MockEmailService implements EmailService for testing
type MockEmailService struct {
	SendPasswordResetEmailFunc func(ctx context.Context, email, token string, expiresAt time.Time) error
}

func (m *MockEmailService) SendPasswordResetEmail(ctx context.Context, email, token string, expiresAt time.Time) error {
	if m.SendPasswordResetEmailFunc != nil {
		return m.SendPasswordResetEmailFunc(ctx, email, token, expiresAt)
	}
	return nil
}

// MockStorageService implements StorageService for testing
type MockStorageService struct {
	UploadFunc func(ctx context.Context, userID, filename, contentType string, body io.Reader, size int64) (string, error)
}

func (m *MockStorageService) Upload(ctx context.Context, userID, filename, contentType string, body io.Reader, size int64) (string, error) {
	if m.UploadFunc != nil {
		return m.UploadFunc(ctx, userID, filename, contentType, body, size)
	}
	return "https://cdn.example.com/" + userID + "/image.jpg", nil
}
