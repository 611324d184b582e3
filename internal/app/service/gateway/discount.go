package gateway

import (
	"github.com/shopspring/decimal"

	"github.com/agriev/we-sdk-payments/pkg/types"
)

var (
	half = decimal.New(5, -1) // 0.5
	cent = decimal.New(1, -2) // 0.01
)

// ApplyDiscount funds part of a purchase from the player's bonus balance.
// Items are walked in order; at most 50% of each line subtotal may come from
// bonuses. New unit prices round UP to 2 decimals so rounding never
// under-charges, and the remaining balance is decremented by the subtotal
// actually removed, so the total discount can never exceed available.
// Returns the discounted items and the total discount applied.
func ApplyDiscount(items []types.PurchaseItem, available decimal.Decimal) ([]types.PurchaseItem, decimal.Decimal) {
	out := make([]types.PurchaseItem, len(items))
	copy(out, items)

	originalTotal := decimal.Zero
	for i := range items {
		originalTotal = originalTotal.Add(items[i].Subtotal())
	}

	remaining := available
	for i := range out {
		if out[i].Quantity <= 0 || out[i].Price.Sign() <= 0 {
			continue
		}
		qty := decimal.NewFromInt(out[i].Quantity)
		// sub-cent per-unit remainder is treated as zero
		if remaining.Div(qty).LessThan(cent) {
			break
		}
		lineCap := out[i].Subtotal().Mul(half).RoundDown(2)
		use := decimal.Min(lineCap, remaining)
		newPrice := out[i].Price.Sub(use.Div(qty)).RoundUp(2)
		removed := out[i].Price.Sub(newPrice).Mul(qty)
		if removed.Sign() <= 0 {
			continue
		}
		out[i].Price = newPrice
		remaining = remaining.Sub(removed)
	}

	newTotal := decimal.Zero
	for i := range out {
		newTotal = newTotal.Add(out[i].Subtotal())
	}
	return out, originalTotal.Sub(newTotal)
}
