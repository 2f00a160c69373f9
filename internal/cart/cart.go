// Package cart keeps the in-memory shopping cart of the storefront.
// A cart holds at most one line per product; adding a product again increases its quantity.
// Cart contents are never persisted.
package cart

import (
	"sync"

	"dlc_store/internal/models"
)

// Cart is an ordered collection of cart lines keyed by product id.
type Cart struct {
	mu    sync.RWMutex
	items []models.CartItem
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// Add puts one unit of product into the cart.
func (c *Cart) Add(product models.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.indexOf(product.ID); i >= 0 {
		c.items[i].Quantity++
		return
	}
	c.items = append(c.items, models.CartItem{Product: product, Quantity: 1})
}

// Remove deletes the line for productID. Unknown ids are ignored.
func (c *Cart) Remove(productID int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.remove(productID)
}

// SetQuantity replaces the quantity of a line; a quantity of zero or less removes it.
func (c *Cart) SetQuantity(productID, quantity int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if quantity <= 0 {
		c.remove(productID)
		return
	}
	if i := c.indexOf(productID); i >= 0 {
		c.items[i].Quantity = quantity
	}
}

// Total returns the sum of price times quantity over all lines.
func (c *Cart) Total() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := 0
	for _, item := range c.items {
		total += item.Subtotal()
	}
	return total
}

// Count returns the number of units in the cart.
func (c *Cart) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	count := 0
	for _, item := range c.items {
		count += item.Quantity
	}
	return count
}

// Len returns the number of distinct products.
func (c *Cart) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cart) IsEmpty() bool {
	return c.Len() == 0
}

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []models.CartItem {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return append([]models.CartItem(nil), c.items...)
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
}

func (c *Cart) indexOf(productID int) int {
	for i, item := range c.items {
		if item.ID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) remove(productID int) {
	if i := c.indexOf(productID); i >= 0 {
		c.items = append(c.items[:i], c.items[i+1:]...)
	}
}

// Merge folds lines with the same product id into the first of them, summing quantities.
// Line order follows first appearance.
func Merge(items []models.CartItem) []models.CartItem {
	merged := make([]models.CartItem, 0, len(items))
	index := make(map[int]int, len(items))
	for _, item := range items {
		if i, ok := index[item.ID]; ok {
			merged[i].Quantity += item.Quantity
			continue
		}
		index[item.ID] = len(merged)
		merged = append(merged, item)
	}
	return merged
}
