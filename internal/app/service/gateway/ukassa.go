package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/agriev/we-sdk-payments/internal/models"
	"github.com/agriev/we-sdk-payments/internal/platform/ukassa"
	"github.com/agriev/we-sdk-payments/pkg/types"
)

type Ukassa struct {
	client *ukassa.Client
	log    *zap.SugaredLogger
}

func NewUkassa(client *ukassa.Client, log *zap.SugaredLogger) *Ukassa {
	return &Ukassa{client: client, log: log}
}

func (u *Ukassa) Name() string { return string(types.PaymentSystemUkassa) }

type ukassaCreateRequest struct {
	Amount struct {
		Value    string `json:"value"`
		Currency string `json:"currency"`
	} `json:"amount"`
	Capture      bool   `json:"capture"`
	Description  string `json:"description"`
	Confirmation struct {
		Type string `json:"type"`
	} `json:"confirmation"`
	Metadata map[string]string `json:"metadata"`
}

type ukassaCreateResponse struct {
	ID           string `json:"id"`
	Confirmation struct {
		ConfirmationToken string `json:"confirmation_token"`
	} `json:"confirmation"`
}

func (u *Ukassa) CreateSession(ctx context.Context, project *models.PaymentProject, req *SessionRequest) (*SessionDescriptor, error) {
	// Ukassa checkouts are RUB only, so the discount is always eligible.
	items, discount := ApplyDiscount(req.Purchase.Items, req.BonusBalance)
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}

	var body ukassaCreateRequest
	body.Amount.Value = total.StringFixed(2)
	body.Amount.Currency = req.Purchase.Currency
	body.Capture = true
	body.Description = req.Purchase.Description
	body.Confirmation.Type = "embedded"
	body.Metadata = map[string]string{
		"external_id": strconv.FormatInt(req.Payment.ID, 10),
		"discount":    discount.StringFixed(2),
	}

	raw, err := u.client.CreatePayment(ctx, project.ProjectID, project.SecretKey, uuid.NewString(), &body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var res ukassaCreateResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("%w: decoding create response: %v", ErrUnavailable, err)
	}
	if res.Confirmation.ConfirmationToken == "" {
		return nil, fmt.Errorf("%w: empty confirmation token", ErrUnavailable)
	}
	return &SessionDescriptor{
		Token:     res.Confirmation.ConfirmationToken,
		System:    u.Name(),
		SessionID: res.ID,
		Discount:  discount,
	}, nil
}

// Discount reads object.metadata.discount from a payment.succeeded body.
func (u *Ukassa) Discount(body []byte) (decimal.Decimal, error) {
	var probe struct {
		Object struct {
			Metadata struct {
				Discount string `json:"discount"`
			} `json:"metadata"`
		} `json:"object"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return decimal.Zero, fmt.Errorf("decoding metadata: %w", err)
	}
	if probe.Object.Metadata.Discount == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(probe.Object.Metadata.Discount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing discount %q: %w", probe.Object.Metadata.Discount, err)
	}
	return d, nil
}
