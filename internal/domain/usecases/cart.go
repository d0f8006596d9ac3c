package usecases

import (
	"github.com/tamsal/storefront/internal/domain/entities"
)

// Cart owns the selected lines, at most one per product ID, in insertion order.
// A Cart is not safe for concurrent use; the owner serializes access.
type Cart struct {
	lines []entities.CartLine
}

// NewCart creates an empty cart.
func NewCart() *Cart {
	return &Cart{}
}

// AddItem increments the line for product, or creates it with fields localized at lang.
// quantity must be positive; callers validate it.
func (c *Cart) AddItem(product entities.Product, quantity int, lang entities.Language) entities.CartLine {
	if i := c.indexOf(product.ID); i >= 0 {
		c.lines[i].Quantity += quantity
		return c.lines[i]
	}

	line := entities.CartLine{
		ProductID: product.ID,
		Name:      product.Name.In(lang),
		Category:  product.Category.In(lang),
		Unit:      product.Unit.In(lang),
		Image:     product.Image,
		Price:     product.Price,
		Quantity:  quantity,
	}
	c.lines = append(c.lines, line)
	return line
}

// RemoveItem deletes the line for id. Removing an absent id is a no-op.
func (c *Cart) RemoveItem(id string) {
	i := c.indexOf(id)
	if i < 0 {
		return
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
}

// AddSuggestions adds every suggested item found in catalog and drops unknown IDs.
// It returns the number of items added.
func (c *Cart) AddSuggestions(catalog *Catalog, items []entities.SuggestedItem, lang entities.Language) int {
	added := 0
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		product, ok := catalog.Find(item.ID)
		if !ok {
			continue
		}
		c.AddItem(product, item.Quantity, lang)
		added++
	}
	return added
}

// Clear removes every line.
func (c *Cart) Clear() {
	c.lines = nil
}

// Total is the sum of price times quantity over all lines.
func (c *Cart) Total() int64 {
	var total int64
	for _, l := range c.lines {
		total += l.Subtotal()
	}
	return total
}

// ItemCount is the sum of quantities, shown as the cart badge.
func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// Len is the number of distinct lines.
func (c *Cart) Len() int {
	return len(c.lines)
}

// Lines returns a copy of the lines.
func (c *Cart) Lines() []entities.CartLine {
	return append([]entities.CartLine(nil), c.lines...)
}

func (c *Cart) indexOf(id string) int {
	for i, l := range c.lines {
		if l.ProductID == id {
			return i
		}
	}
	return -1
}
