// Package cart holds the cashier's open order. Cart is a pure in-memory engine;
// Service persists one cart per user in Redis and hands it to the order service
// at checkout.
package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CatalogItem is the catalog view needed to add an item to a cart.
type CatalogItem struct {
	ID        uuid.UUID
	Name      string
	Category  string
	SellPrice decimal.Decimal
}

// Line is an item in the cart. Name, Category and SellPrice are copied when the
// item is first added and do not follow later catalog edits.
type Line struct {
	ItemID    uuid.UUID       `json:"item_id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	SellPrice decimal.Decimal `json:"sell_price"`
	Qty       int             `json:"qty"`
}

// LineTotal returns sellPrice x qty.
func (l Line) LineTotal() decimal.Decimal {
	return l.SellPrice.Mul(decimal.NewFromInt(int64(l.Qty)))
}

// Cart is an ordered list of lines, at most one per item. It is not safe for
// concurrent use.
type Cart struct {
	lines []Line
}

// New builds a cart from previously stored lines. Lines with qty below 1 are dropped.
func New(lines ...Line) *Cart {
	c := &Cart{lines: make([]Line, 0, len(lines))}
	for _, line := range lines {
		if line.Qty < 1 {
			continue
		}
		c.lines = append(c.lines, line)
	}
	return c
}

func (c *Cart) index(itemID uuid.UUID) int {
	for i := range c.lines {
		if c.lines[i].ItemID == itemID {
			return i
		}
	}
	return -1
}

// Add increments the line for item, or appends a new line with qty 1.
// Stock is not checked here.
func (c *Cart) Add(item CatalogItem) {
	if i := c.index(item.ID); i >= 0 {
		c.lines[i].Qty++
		return
	}
	c.lines = append(c.lines, Line{
		ItemID:    item.ID,
		Name:      item.Name,
		Category:  item.Category,
		SellPrice: item.SellPrice,
		Qty:       1,
	})
}

// UpdateQuantity sets the line qty to max(0, qty) and removes the line at 0.
// It reports whether the item was in the cart.
func (c *Cart) UpdateQuantity(itemID uuid.UUID, qty int) bool {
	i := c.index(itemID)
	if i < 0 {
		return false
	}
	if qty <= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
		return true
	}
	c.lines[i].Qty = qty
	return true
}

// Remove drops the line whatever its qty and reports whether it existed.
func (c *Cart) Remove(itemID uuid.UUID) bool {
	i := c.index(itemID)
	if i < 0 {
		return false
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	return true
}

func (c *Cart) Clear() {
	c.lines = c.lines[:0]
}

// Total is recomputed from the lines on every call.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.lines {
		total = total.Add(line.LineTotal())
	}
	return total
}

// ItemCount returns the sum of line quantities.
func (c *Cart) ItemCount() int {
	n := 0
	for _, line := range c.lines {
		n += line.Qty
	}
	return n
}

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}
