package services

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcastano/atelier/internal/models"
	pkglogger "github.com/jcastano/atelier/pkg/logger"
)

func newTestCatalogService(products *MockProductRepository) *CatalogService {
	logger := slog.Default()
	// nil cache client: every lookup is a miss, writes are no-ops.
	return NewCatalogService(products, nil, logger, pkglogger.NewAuditLogger(logger))
}

func TestCatalogService_List_ClampsPagination(t *testing.T) {
	var gotLimit, gotOffset int
	products := &MockProductRepository{
		ListFunc: func(ctx context.Context, category string, limit, offset int) ([]*models.Product, error) {
			gotLimit = limit
			gotOffset = offset
			return []*models.Product{}, nil
		},
	}
	svc := newTestCatalogService(products)

	_, err := svc.List(context.Background(), "", 0, -5)
	require.NoError(t, err)
	assert.Equal(t, 50, gotLimit)
	assert.Equal(t, 0, gotOffset)

	_, err = svc.List(context.Background(), "dresses", 9999, 20)
	require.NoError(t, err)
	assert.Equal(t, 100, gotLimit)
	assert.Equal(t, 20, gotOffset)
}

func TestCatalogService_Get_NotFound(t *testing.T) {
	svc := newTestCatalogService(&MockProductRepository{})

	_, err := svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCatalogService_FilterMetadata_FallsThroughToRepo(t *testing.T) {
	want := &models.FilterMetadata{
		PriceRange: models.PriceRange{Lo: 10, Hi: 250},
		Sizes:      []string{"M", "S"},
		Colors:     []string{"#000000", "#ffffff"},
	}
	products := &MockProductRepository{
		FilterMetadataFunc: func(ctx context.Context, category string) (*models.FilterMetadata, error) {
			assert.Equal(t, "dresses", category)
			return want, nil
		},
	}
	svc := newTestCatalogService(products)

	got, err := svc.FilterMetadata(context.Background(), " dresses ")

	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCatalogService_CreateProduct_Validation(t *testing.T) {
	svc := newTestCatalogService(&MockProductRepository{})

	t.Run("negative price", func(t *testing.T) {
		_, err := svc.CreateProduct(context.Background(), "admin1", &models.Product{
			Amount: -1, Category: "dresses",
		})
		assert.ErrorIs(t, err, models.ErrBadRequest)
	})

	t.Run("missing category", func(t *testing.T) {
		_, err := svc.CreateProduct(context.Background(), "admin1", &models.Product{
			Amount: 10,
		})
		assert.ErrorIs(t, err, models.ErrBadRequest)
	})
}

func TestCatalogService_CreateProduct_DefaultsCurrency(t *testing.T) {
	products := &MockProductRepository{
		CreateFunc: func(ctx context.Context, product *models.Product) (*models.Product, error) {
			product.ID = "prod1"
			return product, nil
		},
	}
	svc := newTestCatalogService(products)

	created, err := svc.CreateProduct(context.Background(), "admin1", &models.Product{
		Amount:   49.99,
		Category: "dresses",
	})

	require.NoError(t, err)
	assert.Equal(t, "USD", created.Currency)
	assert.Equal(t, "prod1", created.ID)
}

func TestCatalogService_UpdateProduct_NotFound(t *testing.T) {
	products := &MockProductRepository{
		UpdateFunc: func(ctx context.Context, id string, product *models.Product) (*models.Product, error) {
			return nil, models.ErrNotFound
		},
	}
	svc := newTestCatalogService(products)

	_, err := svc.UpdateProduct(context.Background(), "admin1", "missing", &models.Product{
		Amount: 10, Category: "dresses",
	})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCatalogService_DeleteProduct(t *testing.T) {
	deleted := ""
	products := &MockProductRepository{
		DeleteFunc: func(ctx context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	svc := newTestCatalogService(products)

	err := svc.DeleteProduct(context.Background(), "admin1", "prod1")

	require.NoError(t, err)
	assert.Equal(t, "prod1", deleted)
}
