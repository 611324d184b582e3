package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/agriev/we-sdk-payments/internal/models"
	"github.com/agriev/we-sdk-payments/internal/platform/xsolla"
	"github.com/agriev/we-sdk-payments/pkg/types"
)

// xsollaDiscountCurrencies lists the currencies the bonus discount applies
// to on Xsolla checkouts.
var xsollaDiscountCurrencies = map[string]bool{"RUB": true}

type Xsolla struct {
	client *xsolla.Client
	log    *zap.SugaredLogger
}

func NewXsolla(client *xsolla.Client, log *zap.SugaredLogger) *Xsolla {
	return &Xsolla{client: client, log: log}
}

func (x *Xsolla) Name() string { return string(types.PaymentSystemXsolla) }

type xsollaMoney struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

type xsollaTokenItem struct {
	Name     string      `json:"name"`
	Quantity int64       `json:"quantity"`
	Price    xsollaMoney `json:"price"`
}

type xsollaTokenRequest struct {
	User struct {
		ID struct {
			Value string `json:"value"`
		} `json:"id"`
	} `json:"user"`
	Settings struct {
		ProjectID  string `json:"project_id"`
		ExternalID string `json:"external_id"`
		Mode       string `json:"mode,omitempty"`
	} `json:"settings"`
	Purchase struct {
		Checkout struct {
			Amount   decimal.Decimal `json:"amount"`
			Currency string          `json:"currency"`
		} `json:"checkout"`
		Description struct {
			Value string `json:"value"`
		} `json:"description"`
		Items []xsollaTokenItem `json:"items"`
	} `json:"purchase"`
	CustomParameters map[string]string `json:"custom_parameters"`
}

func (x *Xsolla) CreateSession(ctx context.Context, project *models.PaymentProject, req *SessionRequest) (*SessionDescriptor, error) {
	items := req.Purchase.Items
	discount := decimal.Zero
	if xsollaDiscountCurrencies[req.Purchase.Currency] && req.BonusBalance.Sign() > 0 {
		items, discount = ApplyDiscount(items, req.BonusBalance)
	}

	var body xsollaTokenRequest
	body.User.ID.Value = req.Payment.PlayerID
	body.Settings.ProjectID = project.ProjectID
	body.Settings.ExternalID = strconv.FormatInt(req.Payment.ID, 10)
	if req.Debug {
		body.Settings.Mode = "sandbox"
	}
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
		body.Purchase.Items = append(body.Purchase.Items, xsollaTokenItem{
			Name:     it.Name,
			Quantity: it.Quantity,
			Price:    xsollaMoney{Amount: it.Price, Currency: req.Purchase.Currency},
		})
	}
	body.Purchase.Checkout.Amount = total
	body.Purchase.Checkout.Currency = req.Purchase.Currency
	body.Purchase.Description.Value = req.Purchase.Description
	// The discount rides along as a custom parameter; the paid webhook
	// echoes it back for the ledger debit.
	body.CustomParameters = map[string]string{"discount": discount.StringFixed(2)}

	token, err := x.client.CreateToken(ctx, project.ProjectID, project.SecretKey, &body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &SessionDescriptor{Token: token, System: x.Name(), Discount: discount}, nil
}

// Discount reads custom_parameters.discount from a paid-webhook body.
// A missing field means no discount was applied at session-creation time.
func (x *Xsolla) Discount(body []byte) (decimal.Decimal, error) {
	var probe struct {
		CustomParameters struct {
			Discount string `json:"discount"`
		} `json:"custom_parameters"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return decimal.Zero, fmt.Errorf("decoding custom parameters: %w", err)
	}
	if probe.CustomParameters.Discount == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(probe.CustomParameters.Discount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing discount %q: %w", probe.CustomParameters.Discount, err)
	}
	return d, nil
}
