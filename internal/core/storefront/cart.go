package storefront

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/vendorhub/storefront/internal/core/domain"
	"github.com/vendorhub/storefront/internal/core/policy"
)

// CartEntry is one line of the cart. UnitPrice is the price when the product
// was first added and does not follow later price changes.
type CartEntry struct {
	ProductID         string
	Title             string
	UnitPrice         decimal.Decimal
	Quantity          int
	AvailableQuantity int
}

// Subtotal is UnitPrice × Quantity.
func (e CartEntry) Subtotal() decimal.Decimal {
	return e.UnitPrice.Mul(decimal.NewFromInt(int64(e.Quantity)))
}

// Cart is the session-local product → quantity aggregate. No entry ever
// exceeds its product's last known stock.
type Cart struct {
	log zerolog.Logger

	mu      sync.Mutex
	entries map[string]*CartEntry
	order   []string
}

func NewCart(log zerolog.Logger) *Cart {
	return &Cart{log: log, entries: make(map[string]*CartEntry)}
}

// Add puts qty of product into the cart, or increments an existing entry,
// capping the quantity at the product's available stock.
func (c *Cart) Add(session *domain.Session, product domain.Product, qty int) (CartEntry, error) {
	if err := policy.Authorize(session, policy.ActionAddToCart, ""); err != nil {
		return CartEntry{}, fmt.Errorf("add to cart: %w", err)
	}
	if qty <= 0 {
		return CartEntry{}, fmt.Errorf("add to cart: %w: quantity must be positive, got %d", domain.ErrValidation, qty)
	}
	if product.Status != domain.StatusApproved {
		return CartEntry{}, fmt.Errorf("add to cart: %s: %w", product.ID, domain.ErrProductUnavailable)
	}
	if product.AvailableQuantity <= 0 {
		return CartEntry{}, fmt.Errorf("add to cart: %s: %w", product.ID, domain.ErrOutOfStock)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[product.ID]
	if !ok {
		e = &CartEntry{
			ProductID: product.ID,
			Title:     product.Title,
			UnitPrice: product.Price,
		}
		c.entries[product.ID] = e
		c.order = append(c.order, product.ID)
	}
	e.AvailableQuantity = product.AvailableQuantity
	e.Quantity = min(e.Quantity+qty, e.AvailableQuantity)

	c.log.Debug().Str("product_id", product.ID).Int("quantity", e.Quantity).Msg("cart entry updated")
	return *e, nil
}

// SetQuantity sets an entry's quantity. qty <= 0 removes the entry; a qty
// above the last known stock is capped silently.
func (c *Cart) SetQuantity(productID string, qty int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[productID]
	if !ok {
		return fmt.Errorf("set quantity: %s: %w", productID, domain.ErrNotInCart)
	}
	if qty <= 0 {
		c.removeLocked(productID)
		return nil
	}
	e.Quantity = min(qty, e.AvailableQuantity)
	return nil
}

// Remove deletes the entry if present.
func (c *Cart) Remove(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(productID)
}

func (c *Cart) removeLocked(productID string) {
	if _, ok := c.entries[productID]; !ok {
		return
	}
	delete(c.entries, productID)
	for i, id := range c.order {
		if id == productID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// TotalItems is the sum of all quantities.
func (c *Cart) TotalItems() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.entries {
		n += e.Quantity
	}
	return n
}

// TotalPrice sums the entries at their add-time unit prices.
func (c *Cart) TotalPrice() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := decimal.Zero
	for _, e := range c.entries {
		total = total.Add(e.Subtotal())
	}
	return total
}

// Entries returns a snapshot in insertion order.
func (c *Cart) Entries() []CartEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]CartEntry, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.entries[id])
	}
	return out
}

// Len is the number of distinct products in the cart.
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*CartEntry)
	c.order = nil
}

// Reconcile brings the cart in line with authoritative product data: stock is
// refreshed and quantities capped, and entries whose product is gone, no
// longer approved or sold out are dropped. Unit prices are kept. It returns
// the ids of the entries it changed or dropped.
func (c *Cart) Reconcile(products []domain.Product) []string {
	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var touched []string
	for _, id := range append([]string(nil), c.order...) {
		e := c.entries[id]
		p, ok := byID[id]
		if !ok || p.Status != domain.StatusApproved || p.AvailableQuantity <= 0 {
			c.removeLocked(id)
			touched = append(touched, id)
			c.log.Info().Str("product_id", id).Msg("cart entry dropped, product no longer purchasable")
			continue
		}
		if p.AvailableQuantity != e.AvailableQuantity || e.Quantity > p.AvailableQuantity {
			e.AvailableQuantity = p.AvailableQuantity
			if e.Quantity > p.AvailableQuantity {
				e.Quantity = p.AvailableQuantity
				touched = append(touched, id)
			}
		}
	}
	return touched
}
