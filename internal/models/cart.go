package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is one product variant in a shopping cart.
type CartItem struct {
	ProductID    string          `json:"product_id"`
	ProductName  string          `json:"product_name"`
	ProductImage string          `json:"product_image"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"`
	Size         string          `json:"size,omitempty"`
	Color        string          `json:"color,omitempty"`
}

// CartItemKey identifies a line in a cart. Two additions with the same key
// merge into one line.
type CartItemKey struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

// Key returns the merge key of the item.
func (i CartItem) Key() CartItemKey {
	return CartItemKey{ProductID: i.ProductID, Size: i.Size, Color: i.Color}
}

// LineTotal is price times quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ToOrderItem snapshots the cart line for persistence on an order.
func (i CartItem) ToOrderItem() OrderItem {
	return OrderItem{
		ProductID:    i.ProductID,
		ProductName:  i.ProductName,
		ProductImage: i.ProductImage,
		Quantity:     i.Quantity,
		Price:        i.Price,
		Size:         i.Size,
		Color:        i.Color,
	}
}

// Cart is a user's pending selection.
type Cart struct {
	UserID    string     `json:"user_id"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (c *Cart) indexOf(key CartItemKey) int {
	for i, item := range c.Items {
		if item.Key() == key {
			return i
		}
	}
	return -1
}

// Add merges item into the cart. Quantities for an existing key are summed.
func (c *Cart) Add(item CartItem) {
	if idx := c.indexOf(item.Key()); idx >= 0 {
		c.Items[idx].Quantity += item.Quantity
		return
	}
	c.Items = append(c.Items, item)
}

// Remove drops the line with the given key. It reports whether a line was removed.
func (c *Cart) Remove(key CartItemKey) bool {
	idx := c.indexOf(key)
	if idx < 0 {
		return false
	}
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	return true
}

// SetQuantity replaces the quantity of a line. A quantity of zero or less
// removes the line. It reports whether the key was present.
func (c *Cart) SetQuantity(key CartItemKey, quantity int) bool {
	if quantity <= 0 {
		return c.Remove(key)
	}
	idx := c.indexOf(key)
	if idx < 0 {
		return false
	}
	c.Items[idx].Quantity = quantity
	return true
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Items = nil
}

// TotalItems is the number of units across all lines.
func (c *Cart) TotalItems() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// Subtotal is the sum of price times quantity across all lines.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}
