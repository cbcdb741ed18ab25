package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jcastano/atelier/internal/cache"
	"github.com/jcastano/atelier/internal/models"
	pkglogger "github.com/jcastano/atelier/pkg/logger"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

// ProductRepository is the catalog persistence boundary.
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*models.Product, error)
	List(ctx context.Context, category string, limit, offset int) ([]*models.Product, error)
	Create(ctx context.Context, product *models.Product) (*models.Product, error)
	Update(ctx context.Context, id string, product *models.Product) (*models.Product, error)
	Delete(ctx context.Context, id string) error
	FilterMetadata(ctx context.Context, category string) (*models.FilterMetadata, error)
}

// CatalogService handles product reads and admin writes. Every write
// invalidates the filter metadata cache, since any price, size or color
// change can shift the sidebar's bounds.
type CatalogService struct {
	products    ProductRepository
	filterCache *cache.FilterMetadataCache
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewCatalogService(products ProductRepository, filterCache *cache.FilterMetadataCache, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *CatalogService {
	return &CatalogService{
		products:    products,
		filterCache: filterCache,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

func (s *CatalogService) Get(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get product", slog.String("product_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return product, nil
}

// List returns products newest-first. Limit defaults to 50 and caps at
// 100; category filters server-side so clients only ever hold one
// category's products in memory.
func (s *CatalogService) List(ctx context.Context, category string, limit, offset int) ([]*models.Product, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	products, err := s.products.List(ctx, strings.TrimSpace(category), limit, offset)
	if err != nil {
		s.logger.Error("failed to list products", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return products, nil
}

// FilterMetadata returns the filter sidebar's seed data, served from
// Redis when fresh.
func (s *CatalogService) FilterMetadata(ctx context.Context, category string) (*models.FilterMetadata, error) {
	category = strings.TrimSpace(category)

	if meta, ok := s.filterCache.Get(ctx, category); ok {
		return meta, nil
	}

	meta, err := s.products.FilterMetadata(ctx, category)
	if err != nil {
		s.logger.Error("failed to aggregate filter metadata", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.filterCache.Set(ctx, category, meta)
	return meta, nil
}

func validateProduct(product *models.Product) error {
	if product.Amount < 0 {
		return models.ErrBadRequest
	}
	if strings.TrimSpace(product.Currency) == "" {
		product.Currency = "USD"
	}
	if strings.TrimSpace(product.Category) == "" {
		return models.ErrBadRequest
	}
	return nil
}

// CreateProduct adds a product. actorID is the admin performing the write,
// recorded in the audit trail.
func (s *CatalogService) CreateProduct(ctx context.Context, actorID string, product *models.Product) (*models.Product, error) {
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	created, err := s.products.Create(ctx, product)
	if err != nil {
		s.logger.Error("failed to create product", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.filterCache.Invalidate(ctx)
	s.logger.Info("product created", slog.String("product_id", created.ID))
	s.auditLogger.LogCatalogChange("product_created", actorID, created.ID)

	return created, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, actorID, id string, product *models.Product) (*models.Product, error) {
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	updated, err := s.products.Update(ctx, id, product)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to update product", slog.String("product_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.filterCache.Invalidate(ctx)
	s.logger.Info("product updated", slog.String("product_id", id))
	s.auditLogger.LogCatalogChange("product_updated", actorID, id)

	return updated, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, actorID, id string) error {
	if err := s.products.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete product", slog.String("product_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.filterCache.Invalidate(ctx)
	s.logger.Info("product deleted", slog.String("product_id", id))
	s.auditLogger.LogCatalogChange("product_deleted", actorID, id)

	return nil
}
