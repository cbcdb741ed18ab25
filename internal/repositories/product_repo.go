package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jcastano/atelier/internal/database"
	"github.com/jcastano/atelier/internal/models"
)

type ProductRepository struct {
	pool *pgxpool.Pool
}

func NewProductRepository(db *database.DB) *ProductRepository {
	return &ProductRepository{pool: db.Pool}
}

const productColumns = `id, amount, currency, description, main_image_url, images, available_sizes, available_colors, category, created_at, updated_at`

func scanProductRow(scanner rowScanner) (*models.Product, error) {
	var p models.Product
	var mainImageURL *string

	err := scanner.Scan(
		&p.ID, &p.Amount, &p.Currency, &p.Description, &mainImageURL,
		&p.Images, &p.AvailableSizes, &p.AvailableColors, &p.Category,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if mainImageURL != nil {
		p.MainImageURL = *mainImageURL
	}

	return &p, nil
}

func scanProductRows(rows pgx.Rows) ([]*models.Product, error) {
	defer rows.Close()

	products := make([]*models.Product, 0)
	for rows.Next() {
		product, err := scanProductRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return products, nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	return scanProductRow(r.pool.QueryRow(ctx, query, id))
}

// List returns products newest-first, optionally restricted to a category.
func (r *ProductRepository) List(ctx context.Context, category string, limit, offset int) ([]*models.Product, error) {
	var rows pgx.Rows
	var err error

	if category != "" {
		query := `SELECT ` + productColumns + ` FROM products WHERE category = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		rows, err = r.pool.Query(ctx, query, category, limit, offset)
	} else {
		query := `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		rows, err = r.pool.Query(ctx, query, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}

	return scanProductRows(rows)
}

func (r *ProductRepository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	product.ID = uuid.New().String()

	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now

	query := `
		INSERT INTO products (id, amount, currency, description, main_image_url, images, available_sizes, available_colors, category, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + productColumns

	var mainImageURL *string
	if product.MainImageURL != "" {
		mainImageURL = &product.MainImageURL
	}

	return scanProductRow(r.pool.QueryRow(ctx, query,
		product.ID, product.Amount, product.Currency, product.Description, mainImageURL,
		product.Images, product.AvailableSizes, product.AvailableColors, product.Category,
		product.CreatedAt, product.UpdatedAt,
	))
}

func (r *ProductRepository) Update(ctx context.Context, id string, product *models.Product) (*models.Product, error) {
	product.UpdatedAt = time.Now()

	query := `
		UPDATE products
		SET amount = $1, currency = $2, description = $3, main_image_url = $4, images = $5,
		    available_sizes = $6, available_colors = $7, category = $8, updated_at = $9
		WHERE id = $10
		RETURNING ` + productColumns

	var mainImageURL *string
	if product.MainImageURL != "" {
		mainImageURL = &product.MainImageURL
	}

	return scanProductRow(r.pool.QueryRow(ctx, query,
		product.Amount, product.Currency, product.Description, mainImageURL, product.Images,
		product.AvailableSizes, product.AvailableColors, product.Category, product.UpdatedAt, id,
	))
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM products WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// FilterMetadata aggregates the bounds the storefront's filter sidebar is
// seeded with: the category's price range plus the distinct sizes and
// colors that actually occur.
func (r *ProductRepository) FilterMetadata(ctx context.Context, category string) (*models.FilterMetadata, error) {
	meta := &models.FilterMetadata{}

	rangeQuery := `SELECT COALESCE(MIN(amount), 0), COALESCE(MAX(amount), 0) FROM products`
	args := []interface{}{}
	if category != "" {
		rangeQuery += ` WHERE category = $1`
		args = append(args, category)
	}
	if err := r.pool.QueryRow(ctx, rangeQuery, args...).Scan(&meta.PriceRange.Lo, &meta.PriceRange.Hi); err != nil {
		return nil, database.MapPostgresError(err)
	}

	sizes, err := r.distinctValues(ctx, "available_sizes", category)
	if err != nil {
		return nil, err
	}
	meta.Sizes = sizes

	colors, err := r.distinctValues(ctx, "available_colors", category)
	if err != nil {
		return nil, err
	}
	meta.Colors = colors

	return meta, nil
}

func (r *ProductRepository) distinctValues(ctx context.Context, column, category string) ([]string, error) {
	// column is one of two compile-time constants, never user input.
	query := `SELECT DISTINCT unnest(` + column + `) AS v FROM products`
	args := []interface{}{}
	if category != "" {
		query += ` WHERE category = $1`
		args = append(args, category)
	}
	query += ` ORDER BY v`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query distinct %s: %w", column, err)
	}
	defer rows.Close()

	values := make([]string, 0)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, database.MapPostgresError(err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return values, nil
}
