package types

import "github.com/shopspring/decimal"

type PaymentSystem string

const (
	PaymentSystemXsolla PaymentSystem = "xsolla"
	PaymentSystemUkassa PaymentSystem = "ukassa"
)

func (s PaymentSystem) Valid() bool {
	return s == PaymentSystemXsolla || s == PaymentSystemUkassa
}

// PurchaseItem is one line item of a purchase as submitted by the game client.
type PurchaseItem struct {
	Name     string          `json:"name"`
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

func (i *PurchaseItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(i.Quantity))
}

type Purchase struct {
	Currency    string          `json:"currency"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Items       []PurchaseItem  `json:"items"`
}

// Total sums quantity*price over all items.
func (p *Purchase) Total() decimal.Decimal {
	total := decimal.Zero
	for i := range p.Items {
		total = total.Add(p.Items[i].Subtotal())
	}
	return total
}
