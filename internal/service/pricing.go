package service

import (
	"github.com/shopspring/decimal"

	"github.com/menswear-india/storefront-service/internal/models"
)

const moneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// CalculateTax returns subtotal * rate / 100 at full precision.
func CalculateTax(subtotal, ratePercentage decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(ratePercentage).Div(hundred)
}

// RoundMoney rounds to paise, half away from zero.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(moneyPlaces)
}

// ShippingPolicy decides the shipping fee from the order subtotal.
type ShippingPolicy struct {
	FreeThreshold decimal.Decimal
	FlatFee       decimal.Decimal
}

// DefaultShippingPolicy ships free from 1999 and charges 99 below it.
func DefaultShippingPolicy() ShippingPolicy {
	return ShippingPolicy{
		FreeThreshold: decimal.NewFromInt(1999),
		FlatFee:       decimal.NewFromInt(99),
	}
}

// Fee is zero once subtotal reaches the threshold, otherwise the flat fee.
func (p ShippingPolicy) Fee(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(p.FreeThreshold) {
		return decimal.Zero
	}
	return p.FlatFee
}

// RemainingForFree is how much more the buyer must add to ship for free.
func (p ShippingPolicy) RemainingForFree(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(p.FreeThreshold) {
		return decimal.Zero
	}
	return p.FreeThreshold.Sub(subtotal)
}

// AmountBreakdown holds the independent components of a charge at full
// precision. Totals are derived, never stored on the breakdown.
type AmountBreakdown struct {
	Subtotal    decimal.Decimal
	TaxRate     decimal.Decimal
	TaxAmount   decimal.Decimal
	ShippingFee decimal.Decimal
}

// CheckoutTotal is subtotal plus tax. This is the figure charged at checkout.
func (b AmountBreakdown) CheckoutTotal() decimal.Decimal {
	return b.Subtotal.Add(b.TaxAmount)
}

// CartTotal is subtotal plus shipping, shown on the cart summary before an
// address is known.
func (b AmountBreakdown) CartTotal() decimal.Decimal {
	return b.Subtotal.Add(b.ShippingFee)
}

// GrandTotal is subtotal plus shipping plus tax.
func (b AmountBreakdown) GrandTotal() decimal.Decimal {
	return b.Subtotal.Add(b.ShippingFee).Add(b.TaxAmount)
}

// Rounded converts the breakdown to display and persistence precision.
// Totals are summed from the rounded components so that they always add up.
func (b AmountBreakdown) Rounded() RoundedAmounts {
	subtotal := RoundMoney(b.Subtotal)
	tax := RoundMoney(b.TaxAmount)
	shipping := RoundMoney(b.ShippingFee)

	return RoundedAmounts{
		Subtotal:    subtotal,
		TaxRate:     b.TaxRate,
		TaxAmount:   tax,
		ShippingFee: shipping,
		Total:       subtotal.Add(tax),
		CartTotal:   subtotal.Add(shipping),
		GrandTotal:  subtotal.Add(shipping).Add(tax),
	}
}

// RoundedAmounts is an AmountBreakdown at two decimal places.
type RoundedAmounts struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	ShippingFee decimal.Decimal `json:"shipping_fee"`
	Total       decimal.Decimal `json:"total"`
	CartTotal   decimal.Decimal `json:"cart_total"`
	GrandTotal  decimal.Decimal `json:"grand_total"`
}

// OrderAmountCalculator composes subtotal, shipping and tax. It is pure:
// equal inputs always give equal outputs.
type OrderAmountCalculator struct {
	shipping ShippingPolicy
}

// NewOrderAmountCalculator creates a calculator with the given shipping policy.
func NewOrderAmountCalculator(shipping ShippingPolicy) *OrderAmountCalculator {
	return &OrderAmountCalculator{shipping: shipping}
}

// Shipping returns the policy in use.
func (c *OrderAmountCalculator) Shipping() ShippingPolicy {
	return c.shipping
}

// Compose builds the breakdown for a subtotal taxed at ratePercentage.
// Inputs are assumed valid; range checks belong to the caller.
func (c *OrderAmountCalculator) Compose(subtotal, ratePercentage decimal.Decimal) AmountBreakdown {
	return AmountBreakdown{
		Subtotal:    subtotal,
		TaxRate:     ratePercentage,
		TaxAmount:   CalculateTax(subtotal, ratePercentage),
		ShippingFee: c.shipping.Fee(subtotal),
	}
}

// Subtotal sums price times quantity over order lines.
func Subtotal(items []models.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}
