// Package filter narrows an in-memory product list by price range, size and
// color, and keeps a user-adjustable price sub-range consistent as the
// catalog-derived bounding range changes (e.g. on category switch).
package filter

import (
	"sync"

	"github.com/jcastano/atelier/internal/models"
)

// Criteria is the mutable filter state. Selection slices are treated as
// sets: membership matters, order does not. PriceFilter is the user's
// sub-range; PriceRange is the catalog bounding range. Invariant held by
// the engine: PriceFilter.Lo >= PriceRange.Lo and PriceFilter.Hi <=
// PriceRange.Hi whenever both are set, except on the direct
// SetPriceFilter path (the caller owns validity there).
type Criteria struct {
	SelectedSizes  []string
	SelectedColors []string
	PriceFilter    *models.PriceRange
	PriceRange     *models.PriceRange
}

// Apply returns the products passing the criteria, preserving input order.
// A product passes if its price lies within the effective price filter
// inclusive, and each non-empty selection set intersects the product's
// available values. Pure: neither argument is mutated.
func Apply(products []*models.Product, c Criteria) []*models.Product {
	// Fall back to the bounding range when no sub-range is set yet.
	price := c.PriceFilter
	if price == nil {
		price = c.PriceRange
	}

	visible := make([]*models.Product, 0, len(products))
	for _, p := range products {
		if price != nil && (p.Amount < price.Lo || p.Amount > price.Hi) {
			continue
		}
		if len(c.SelectedSizes) > 0 && !intersects(c.SelectedSizes, p.AvailableSizes) {
			continue
		}
		if len(c.SelectedColors) > 0 && !intersects(c.SelectedColors, p.AvailableColors) {
			continue
		}
		visible = append(visible, p)
	}
	return visible
}

func intersects(selected, available []string) bool {
	for _, s := range selected {
		for _, a := range available {
			if s == a {
				return true
			}
		}
	}
	return false
}

// Engine is an injectable container for Criteria. Each browsing session
// gets its own instance; there is no package-level state.
type Engine struct {
	mu sync.Mutex
	c  Criteria
}

func NewEngine() *Engine {
	return &Engine{}
}

// Criteria returns a snapshot of the current state. The returned value
// shares no mutable storage with the engine.
func (e *Engine) Criteria() Criteria {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Criteria {
	out := Criteria{
		SelectedSizes:  append([]string(nil), e.c.SelectedSizes...),
		SelectedColors: append([]string(nil), e.c.SelectedColors...),
	}
	if e.c.PriceFilter != nil {
		pf := *e.c.PriceFilter
		out.PriceFilter = &pf
	}
	if e.c.PriceRange != nil {
		pr := *e.c.PriceRange
		out.PriceRange = &pr
	}
	return out
}

// Visible applies the current criteria to products.
func (e *Engine) Visible(products []*models.Product) []*models.Product {
	return Apply(products, e.Criteria())
}

// SetPriceRange updates the bounding range. When no sub-range exists yet
// the sub-range is initialized to the full new range; otherwise each bound
// is clamped independently into the new range. Returns true if the
// sub-range changed.
func (e *Engine) SetPriceRange(r models.PriceRange) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.c.PriceRange = &models.PriceRange{Lo: r.Lo, Hi: r.Hi}

	if e.c.PriceFilter == nil {
		e.c.PriceFilter = &models.PriceRange{Lo: r.Lo, Hi: r.Hi}
		return true
	}

	clampedLo := e.c.PriceFilter.Lo
	if clampedLo < r.Lo {
		clampedLo = r.Lo
	}
	clampedHi := e.c.PriceFilter.Hi
	if clampedHi > r.Hi {
		clampedHi = r.Hi
	}

	if clampedLo == e.c.PriceFilter.Lo && clampedHi == e.c.PriceFilter.Hi {
		return false
	}

	e.c.PriceFilter = &models.PriceRange{Lo: clampedLo, Hi: clampedHi}
	return true
}

// SetPriceFilter overwrites the sub-range directly. The caller (a range
// slider) guarantees lo <= hi; the engine does not re-validate against
// the bounding range on this path.
func (e *Engine) SetPriceFilter(r models.PriceRange) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.c.PriceFilter = &models.PriceRange{Lo: r.Lo, Hi: r.Hi}
}

// ToggleSize adds the size if absent, removes it if present.
func (e *Engine) ToggleSize(size string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.c.SelectedSizes = toggle(e.c.SelectedSizes, size)
}

// ToggleColor adds the color if absent, removes it if present.
func (e *Engine) ToggleColor(color string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.c.SelectedColors = toggle(e.c.SelectedColors, color)
}

func toggle(set []string, value string) []string {
	for i, v := range set {
		if v == value {
			return append(set[:i], set[i+1:]...)
		}
	}
	return append(set, value)
}

// Reset clears the selection sets and restores the sub-range to the full
// bounding range.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.c.SelectedSizes = nil
	e.c.SelectedColors = nil
	if e.c.PriceRange != nil {
		pr := *e.c.PriceRange
		e.c.PriceFilter = &pr
	} else {
		e.c.PriceFilter = nil
	}
}
