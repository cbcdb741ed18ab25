package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jcastano/atelier/internal/auth"
	"github.com/jcastano/atelier/internal/models"
	pkghttp "github.com/jcastano/atelier/pkg/http"
)

// CatalogServiceInterface defines the interface for catalog business logic
type CatalogServiceInterface interface {
	Get(ctx context.Context, id string) (*models.Product, error)
	List(ctx context.Context, category string, limit, offset int) ([]*models.Product, error)
	FilterMetadata(ctx context.Context, category string) (*models.FilterMetadata, error)
	CreateProduct(ctx context.Context, actorID string, product *models.Product) (*models.Product, error)
	UpdateProduct(ctx context.Context, actorID, id string, product *models.Product) (*models.Product, error)
	DeleteProduct(ctx context.Context, actorID, id string) error
}

// ProductHandler handles catalog HTTP requests. Reads are public; writes
// sit behind the admin middleware.
type ProductHandler struct {
	service CatalogServiceInterface
}

func NewProductHandler(service CatalogServiceInterface) *ProductHandler {
	return &ProductHandler{service: service}
}

// ProductRequest is the write DTO for create and update
type ProductRequest struct {
	Amount          float64  `json:"amount" validate:"gte=0"`
	Currency        string   `json:"currency" validate:"omitempty,len=3"`
	Description     string   `json:"description" validate:"max=4000"`
	MainImageURL    string   `json:"main_image_url" validate:"omitempty,url"`
	Images          []string `json:"images" validate:"dive,url"`
	AvailableSizes  []string `json:"available_sizes" validate:"dive,min=1,max=16"`
	AvailableColors []string `json:"available_colors" validate:"dive,hexcolor"`
	Category        string   `json:"category" validate:"required,min=1,max=64"`
}

func (req *ProductRequest) toModel() *models.Product {
	return &models.Product{
		Amount:          req.Amount,
		Currency:        req.Currency,
		Description:     req.Description,
		MainImageURL:    req.MainImageURL,
		Images:          req.Images,
		AvailableSizes:  req.AvailableSizes,
		AvailableColors: req.AvailableColors,
		Category:        req.Category,
	}
}

// List handles GET /products?category=&limit=&offset=
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	products, err := h.service.List(r.Context(), q.Get("category"), limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"products": products,
	})
}

// Get handles GET /products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Product not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, product)
}

// Filters handles GET /products/filters?category= and returns the seed
// data for the filter sidebar.
func (h *ProductHandler) Filters(w http.ResponseWriter, r *http.Request) {
	meta, err := h.service.FilterMetadata(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, meta)
}

// Create handles POST /products (admin only)
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	created, err := h.service.CreateProduct(r.Context(), claims.UserID, req.toModel())
	if err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			pkghttp.WriteBadRequest(w, "Invalid product")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, created)
}

// Update handles PUT /products/{id} (admin only)
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}
	id := chi.URLParam(r, "id")

	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	updated, err := h.service.UpdateProduct(r.Context(), claims.UserID, id, req.toModel())
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Product not found")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Invalid product")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /products/{id} (admin only)
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}
	id := chi.URLParam(r, "id")

	if err := h.service.DeleteProduct(r.Context(), claims.UserID, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Product not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
