package order

import (
	"github.com/shopspring/decimal"

	"github.com/grainly/storefront/internal/domain/cart"
)

// Shipping and tax rules. Shipping is free once the subtotal reaches the
// threshold; tax is a flat percentage of the subtotal.
var (
	freeShippingThreshold = decimal.NewFromInt(1000)
	flatShippingCost      = decimal.NewFromInt(50)
	taxRate               = decimal.NewFromFloat(0.05)
)

// Pricing is the computed financial breakdown of an order.
type Pricing struct {
	Subtotal     float64
	ShippingCost float64
	Tax          float64
	Total        float64
}

// ComputePricing derives the order totals from the cart's line items using
// exact decimal arithmetic, rounding each figure to 2 decimal places. The
// cart's snapshot prices are authoritative; the live catalog is not consulted.
func ComputePricing(items []cart.Item) Pricing {
	subtotal := decimal.Zero
	for _, item := range items {
		price := decimal.NewFromFloat(item.Price)
		qty := decimal.NewFromInt(int64(item.Quantity))
		subtotal = subtotal.Add(price.Mul(qty))
	}

	shipping := flatShippingCost
	if subtotal.GreaterThanOrEqual(freeShippingThreshold) {
		shipping = decimal.Zero
	}
	tax := subtotal.Mul(taxRate).Round(2)
	total := subtotal.Add(shipping).Add(tax)

	return Pricing{
		Subtotal:     subtotal.Round(2).InexactFloat64(),
		ShippingCost: shipping.InexactFloat64(),
		Tax:          tax.InexactFloat64(),
		Total:        total.Round(2).InexactFloat64(),
	}
}
