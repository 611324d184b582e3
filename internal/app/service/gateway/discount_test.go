package gateway

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/agriev/we-sdk-payments/pkg/types"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type line struct {
	qty   int64
	price string
}

func items(lines ...line) []types.PurchaseItem {
	out := make([]types.PurchaseItem, 0, len(lines))
	for i, l := range lines {
		out = append(out, types.PurchaseItem{
			Name:     "item_" + string(rune('a'+i)),
			Quantity: l.qty,
			Price:    dec(l.price),
		})
	}
	return out
}

func total(items []types.PurchaseItem) decimal.Decimal {
	t := decimal.Zero
	for i := range items {
		t = t.Add(items[i].Subtotal())
	}
	return t
}

func TestApplyDiscountSingleItem(t *testing.T) {
	in := items(line{4, "15"}, line{2, "20"}, line{1, "0.3"})

	out, discount := ApplyDiscount(in, dec("10"))

	require.True(t, dec("10").Equal(discount), "discount = %s", discount)
	require.True(t, dec("12.5").Equal(out[0].Price))
	require.True(t, dec("20").Equal(out[1].Price))
	require.True(t, dec("0.3").Equal(out[2].Price))
	require.True(t, dec("90.3").Equal(total(out)))
}

func TestApplyDiscountCapsEachLineAtHalf(t *testing.T) {
	in := items(line{4, "15"}, line{2, "20"}, line{1, "0.3"})

	out, discount := ApplyDiscount(in, dec("1000"))

	// line caps: 30.00, 20.00, 0.15
	require.True(t, dec("50.15").Equal(discount), "discount = %s", discount)
	require.True(t, dec("7.5").Equal(out[0].Price))
	require.True(t, dec("10").Equal(out[1].Price))
	require.True(t, dec("0.15").Equal(out[2].Price))
}

func TestApplyDiscountSubCentRemainderStops(t *testing.T) {
	in := items(line{4, "15"}, line{1, "3"})

	out, discount := ApplyDiscount(in, dec("0.02"))

	require.True(t, discount.IsZero(), "discount = %s", discount)
	require.True(t, dec("15").Equal(out[0].Price))
}

func TestApplyDiscountRoundsPriceUp(t *testing.T) {
	// 1.00 / 3 does not divide evenly; the new unit price must round up so
	// the player is never under-charged.
	in := items(line{3, "0.99"})

	out, discount := ApplyDiscount(in, dec("1.00"))

	require.True(t, dec("0.66").Equal(out[0].Price))
	require.True(t, dec("0.99").Equal(discount), "discount = %s", discount)
}

func TestApplyDiscountSkipsDegenerateItems(t *testing.T) {
	in := []types.PurchaseItem{
		{Name: "freebie", Quantity: 2, Price: decimal.Zero},
		{Name: "ghost", Quantity: 0, Price: dec("10")},
		{Name: "real", Quantity: 1, Price: dec("10")},
	}

	out, discount := ApplyDiscount(in, dec("100"))

	require.True(t, dec("5").Equal(discount), "discount = %s", discount)
	require.True(t, out[0].Price.IsZero())
	require.True(t, dec("5").Equal(out[2].Price))
}

func TestApplyDiscountConservation(t *testing.T) {
	carts := [][]types.PurchaseItem{
		items(line{4, "15"}, line{2, "20"}, line{1, "0.3"}),
		items(line{1, "0.01"}),
		items(line{3, "0.99"}, line{7, "1.13"}),
		items(line{100, "249.99"}),
		items(line{1, "5"}, line{1, "5"}, line{1, "5"}, line{1, "5"}),
	}
	balances := []decimal.Decimal{
		decimal.Zero, dec("0.01"), dec("0.03"), dec("1"), dec("9.99"),
		dec("10"), dec("100"), dec("12345.67"),
	}

	for _, cart := range carts {
		original := total(cart)
		for _, b := range balances {
			out, discount := ApplyDiscount(cart, b)

			require.True(t, discount.LessThanOrEqual(b),
				"discount %s exceeds balance %s", discount, b)
			require.True(t, discount.Sign() >= 0, "negative discount %s", discount)
			require.True(t, total(out).Add(discount).Equal(original),
				"newTotal %s + discount %s != originalTotal %s", total(out), discount, original)
			for i := range out {
				require.True(t, out[i].Price.Equal(out[i].Price.Round(2)),
					"price %s not a whole cent", out[i].Price)
			}
		}
	}
}

func TestXsollaDiscountFromWebhookBody(t *testing.T) {
	x := &Xsolla{}

	d, err := x.Discount([]byte(`{"custom_parameters":{"discount":"10.00"}}`))
	require.NoError(t, err)
	require.True(t, dec("10").Equal(d))

	d, err = x.Discount([]byte(`{"notification_type":"payment"}`))
	require.NoError(t, err)
	require.True(t, d.IsZero())

	_, err = x.Discount([]byte(`{"custom_parameters":{"discount":"abc"}}`))
	require.Error(t, err)
}

func TestUkassaDiscountFromWebhookBody(t *testing.T) {
	u := &Ukassa{}

	d, err := u.Discount([]byte(`{"object":{"metadata":{"external_id":"42","discount":"10.00"}}}`))
	require.NoError(t, err)
	require.True(t, dec("10").Equal(d))

	d, err = u.Discount([]byte(`{"object":{"metadata":{"external_id":"42"}}}`))
	require.NoError(t, err)
	require.True(t, d.IsZero())

	_, err = u.Discount([]byte(`{"object":{"metadata":{"discount":"ten"}}}`))
	require.Error(t, err)
}
