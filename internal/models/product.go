package models

import (
	"time"
)

type Product struct {
	ID              string    `json:"id"`
	Amount          float64   `json:"amount"`
	Currency        string    `json:"currency"`
	Description     string    `json:"description"`
	MainImageURL    string    `json:"main_image_url,omitempty"`
	Images          []string  `json:"images"`
	AvailableSizes  []string  `json:"available_sizes"`
	AvailableColors []string  `json:"available_colors"` // hex strings
	Category        string    `json:"category"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// PriceRange is a closed interval [Lo, Hi] over display prices.
type PriceRange struct {
	Lo float64 `json:"lo"`
	Hi float64 `json:"hi"`
}

// FilterMetadata is the catalog-derived sidebar data: the bounding price
// range plus the distinct sizes and colors available in the current view.
type FilterMetadata struct {
	PriceRange PriceRange `json:"price_range"`
	Sizes      []string   `json:"sizes"`
	Colors     []string   `json:"colors"`
}
