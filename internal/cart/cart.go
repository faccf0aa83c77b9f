// Package cart holds the in-progress sale for one register. A Cart is an
// explicit aggregate: all mutation goes through its methods and every
// read returns copies, so handler goroutines can share one instance.
package cart

import (
	"sync"

	"github.com/shopspring/decimal"

	"greenleafpos/backend/internal/domain"
)

var one = decimal.NewFromInt(1)

type Cart struct {
	mu     sync.Mutex
	lines  []domain.CartLine
	errors map[string]string
}

func New() *Cart {
	return &Cart{errors: make(map[string]string)}
}

// NormalizeQuantity rounds a requested quantity to what the register can
// sell: tenths for products sold by weight, whole units otherwise. Ties
// round half up. Non-positive requests normalize to one before rounding.
func NormalizeQuantity(product domain.Product, qty decimal.Decimal) decimal.Decimal {
	if qty.LessThanOrEqual(decimal.Zero) {
		qty = one
	}
	if product.RequiresFractionalQuantity {
		return qty.Round(1)
	}
	return qty.Round(0)
}

// AddItem merges qty into the product's existing line, or appends a new
// line priced at the product's current base price. The unit price already
// captured on an existing line is kept; only quantity and total move.
func (c *Cart) AddItem(product domain.Product, qty decimal.Decimal) {
	qty = NormalizeQuantity(product, qty)

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].Product.ID == product.ID {
			combined := c.lines[i].Quantity.Add(qty)
			c.lines[i].Quantity = combined
			c.lines[i].LineTotal = combined.Mul(c.lines[i].UnitPrice)
			return
		}
	}
	c.lines = append(c.lines, domain.CartLine{
		Product:   product,
		Quantity:  qty,
		UnitPrice: product.BasePrice,
		LineTotal: qty.Mul(product.BasePrice),
	})
}

// UpdateQuantity replaces a line's quantity. A non-positive quantity is
// rejected: the line keeps its current quantity and carries a validation
// error until a valid update, removal, or clear.
func (c *Cart) UpdateQuantity(productID string, qty decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].Product.ID != productID {
			continue
		}
		if qty.LessThanOrEqual(decimal.Zero) {
			c.errors[productID] = "Quantity must be at least 1"
			return
		}
		normalized := NormalizeQuantity(c.lines[i].Product, qty)
		c.lines[i].Quantity = normalized
		c.lines[i].LineTotal = normalized.Mul(c.lines[i].UnitPrice)
		delete(c.errors, productID)
		return
	}
}

// RemoveItem drops the product's line and any validation error attached
// to it. Removing an absent product is a no-op.
func (c *Cart) RemoveItem(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.lines {
		if c.lines[i].Product.ID == productID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			break
		}
	}
	delete(c.errors, productID)
}

// Subtotal sums line totals. An empty cart totals zero.
func (c *Cart) Subtotal() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := decimal.Zero
	for i := range c.lines {
		total = total.Add(c.lines[i].LineTotal)
	}
	return total
}

func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
	c.errors = make(map[string]string)
}

// SetValidationError attaches an inline message to a product line. An
// empty message retracts the entry, so async validators can clear a
// stale error once stock recovers.
func (c *Cart) SetValidationError(productID string, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if msg == "" {
		delete(c.errors, productID)
		return
	}
	c.errors[productID] = msg
}

// ValidationError returns the message attached to a product line, with
// ok=false when the line is clean.
func (c *Cart) ValidationError(productID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg, ok := c.errors[productID]
	return msg, ok
}

// Lines returns a snapshot of the cart in insertion order.
func (c *Cart) Lines() []domain.CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// Len reports the number of distinct product lines.
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}
