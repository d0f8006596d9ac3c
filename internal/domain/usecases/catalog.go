// Package usecases contains application business rules.
// Clean Architecture: Usecases orchestrate entities and depend on port interfaces.
package usecases

import (
	"sync/atomic"

	"github.com/tamsal/storefront/internal/domain/entities"
	"github.com/tamsal/storefront/internal/domain/ports"
)

// Catalog is an immutable snapshot of products, categories and store locations.
type Catalog struct {
	products   []entities.Product
	index      map[string]int
	categories []string
	locations  []entities.StoreLocation
}

// CatalogEntry is the machine-readable product summary sent to the estimator.
type CatalogEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Unit string `json:"unit"`
}

// NewCatalog builds a snapshot. Later duplicates of an ID are ignored.
// When categories is empty it is derived from the products in order of first appearance.
func NewCatalog(data *ports.CatalogData) *Catalog {
	c := &Catalog{index: make(map[string]int)}
	if data == nil {
		return c
	}

	for _, p := range data.Products {
		if _, dup := c.index[p.ID]; dup {
			continue
		}
		c.index[p.ID] = len(c.products)
		c.products = append(c.products, p)
	}

	if len(data.Categories) > 0 {
		c.categories = append([]string(nil), data.Categories...)
	} else {
		seen := make(map[string]bool)
		for _, p := range c.products {
			name := p.Category.In(entities.ReferenceLanguage)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			c.categories = append(c.categories, name)
		}
	}

	c.locations = append([]entities.StoreLocation(nil), data.Locations...)
	return c
}

// Products returns the products in catalog order.
func (c *Catalog) Products() []entities.Product {
	return append([]entities.Product(nil), c.products...)
}

// Len is the number of products.
func (c *Catalog) Len() int {
	return len(c.products)
}

// Find looks a product up by ID.
func (c *Catalog) Find(id string) (entities.Product, bool) {
	i, ok := c.index[id]
	if !ok {
		return entities.Product{}, false
	}
	return c.products[i], true
}

// Categories returns the filterable categories, starting with the "All" sentinel.
func (c *Catalog) Categories() []string {
	out := make([]string, 0, len(c.categories)+1)
	out = append(out, entities.CategoryAll)
	return append(out, c.categories...)
}

// Locations returns the store locations.
func (c *Catalog) Locations() []entities.StoreLocation {
	return append([]entities.StoreLocation(nil), c.locations...)
}

// Summary lists ID, reference name and reference unit for every product.
func (c *Catalog) Summary() []CatalogEntry {
	out := make([]CatalogEntry, len(c.products))
	for i, p := range c.products {
		out[i] = CatalogEntry{
			ID:   p.ID,
			Name: p.Name.In(entities.ReferenceLanguage),
			Unit: p.Unit.In(entities.ReferenceLanguage),
		}
	}
	return out
}

// CatalogStore holds the current catalog snapshot. Reloads swap the whole snapshot.
type CatalogStore struct {
	current atomic.Pointer[Catalog]
}

// NewCatalogStore creates a store seeded with catalog.
func NewCatalogStore(catalog *Catalog) *CatalogStore {
	s := &CatalogStore{}
	if catalog == nil {
		catalog = NewCatalog(nil)
	}
	s.current.Store(catalog)
	return s
}

// Current returns the active snapshot.
func (s *CatalogStore) Current() *Catalog {
	return s.current.Load()
}

// Replace installs a new snapshot.
func (s *CatalogStore) Replace(catalog *Catalog) {
	if catalog != nil {
		s.current.Store(catalog)
	}
}
