package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/agriev/we-sdk-payments/internal/app/service/gateway"
	"github.com/agriev/we-sdk-payments/internal/app/service/payment"
	"github.com/agriev/we-sdk-payments/internal/app/service/statemachine"
	"github.com/agriev/we-sdk-payments/internal/app/service/webhook"
	"github.com/agriev/we-sdk-payments/internal/models"
	"github.com/agriev/we-sdk-payments/internal/platform/xsolla"
	"github.com/agriev/we-sdk-payments/pkg/types"
)

// Xsolla transaction report statuses.
const (
	xsollaStatusDone     = "done"
	xsollaStatusCanceled = "canceled"
)

// xsollaDetails is the slice of the transaction-details report the
// synchronizers read.
type xsollaDetails struct {
	Transaction struct {
		ID         int64  `json:"id"`
		ExternalID string `json:"external_id"`
		Status     string `json:"status"`
	} `json:"transaction"`
	Purchase struct {
		Checkout struct {
			Currency string          `json:"currency"`
			Amount   decimal.Decimal `json:"amount"`
		} `json:"checkout"`
	} `json:"purchase"`
	User struct {
		ID string `json:"id"`
	} `json:"user"`
}

type xsollaBase struct {
	payments payment.Manager
	hooks    *webhook.Handler
	client   *xsolla.Client
	log      *zap.SugaredLogger
}

// Fetch is the two-step report lookup: a simple search by external_id
// yields the gateway's own transaction id, then the detail report is
// fetched by that id. A detail row whose external_id does not match ours is
// a corrupted response, not an update.
func (x *xsollaBase) Fetch(ctx context.Context, p *models.Payment) (json.RawMessage, error) {
	project, err := x.payments.Project(ctx, types.PaymentSystemXsolla, p.GameID)
	if err != nil {
		return nil, err
	}
	externalID := strconv.FormatInt(p.ID, 10)
	summaries, err := x.client.SearchTransactions(ctx, project.ProjectID, project.SecretKey, externalID)
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return nil, nil
	}
	raw, err := x.client.TransactionDetails(ctx, project.ProjectID, project.SecretKey, summaries[0].ID)
	if err != nil {
		return nil, err
	}
	var details xsollaDetails
	if err := json.Unmarshal(raw, &details); err != nil {
		return nil, fmt.Errorf("decoding transaction details: %w", err)
	}
	if details.Transaction.ExternalID != externalID {
		return nil, fmt.Errorf("details report for external_id %q instead of %q",
			details.Transaction.ExternalID, externalID)
	}
	return raw, nil
}

// storedDiscount recovers the bonus discount recorded in the pending event
// when the checkout session was created. A payment without a stored session
// had no discount applied.
func (x *xsollaBase) storedDiscount(p *models.Payment) decimal.Decimal {
	ev := p.FindEvent(statemachine.EventPending, string(types.PaymentSystemXsolla))
	if ev == nil {
		return decimal.Zero
	}
	var desc gateway.SessionDescriptor
	if err := json.Unmarshal(ev.Payload, &desc); err != nil {
		x.log.Warnw("decoding stored session failed", "payment_id", p.ID, "err", err)
		return decimal.Zero
	}
	return desc.Discount
}

// replay synthesizes the notification body the live webhook would have
// carried and pushes it through the shared ingestion path. The live payment
// notification echoes the discount back in custom_parameters, so the replay
// has to carry it too or the ledger debit would be skipped.
func (x *xsollaBase) replay(ctx context.Context, p *models.Payment, notificationType string, details *xsollaDetails) error {
	body := map[string]any{
		"notification_type": notificationType,
		"purchase": map[string]any{
			"checkout": map[string]any{
				"currency": details.Purchase.Checkout.Currency,
				"amount":   details.Purchase.Checkout.Amount,
			},
		},
		"user": map[string]any{"id": p.PlayerID},
		"transaction": map[string]any{
			"id":          details.Transaction.ID,
			"external_id": details.Transaction.ExternalID,
		},
		"custom_parameters": map[string]string{
			"discount": x.storedDiscount(p).StringFixed(2),
		},
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal replayed notification: %w", err)
	}
	return x.hooks.Process(ctx, string(types.PaymentSystemXsolla), raw)
}

func decodeDetails(res json.RawMessage) (*xsollaDetails, error) {
	var details xsollaDetails
	if err := json.Unmarshal(res, &details); err != nil {
		return nil, fmt.Errorf("decoding transaction details: %w", err)
	}
	return &details, nil
}

type xsollaPaymentSync struct{ xsollaBase }

func newXsollaPayment(payments payment.Manager, hooks *webhook.Handler, client *xsolla.Client, log *zap.SugaredLogger) *xsollaPaymentSync {
	return &xsollaPaymentSync{xsollaBase{payments: payments, hooks: hooks, client: client, log: log}}
}

func (x *xsollaPaymentSync) NeedsCheck(p *models.Payment) bool {
	return !p.HasEvent(statemachine.EventPaid, "")
}

func (x *xsollaPaymentSync) HasUpdate(res json.RawMessage) (bool, error) {
	if len(res) == 0 {
		return false, nil
	}
	details, err := decodeDetails(res)
	if err != nil {
		return false, err
	}
	return details.Transaction.Status == xsollaStatusDone || details.Transaction.Status == xsollaStatusCanceled, nil
}

func (x *xsollaPaymentSync) Apply(ctx context.Context, p *models.Payment, res json.RawMessage) error {
	details, err := decodeDetails(res)
	if err != nil {
		return err
	}
	// A transaction the gateway closed as canceled never produced a payment
	// webhook; it is replayed as a refund so the payment leaves pending.
	if details.Transaction.Status == xsollaStatusCanceled {
		return x.replay(ctx, p, "refund", details)
	}
	return x.replay(ctx, p, "payment", details)
}

type xsollaRefundSync struct{ xsollaBase }

func newXsollaRefund(payments payment.Manager, hooks *webhook.Handler, client *xsolla.Client, log *zap.SugaredLogger) *xsollaRefundSync {
	return &xsollaRefundSync{xsollaBase{payments: payments, hooks: hooks, client: client, log: log}}
}

func (x *xsollaRefundSync) NeedsCheck(p *models.Payment) bool {
	return !p.HasEvent(statemachine.EventRefunded, "")
}

func (x *xsollaRefundSync) HasUpdate(res json.RawMessage) (bool, error) {
	if len(res) == 0 {
		return false, nil
	}
	details, err := decodeDetails(res)
	if err != nil {
		return false, err
	}
	return details.Transaction.Status == xsollaStatusCanceled, nil
}

func (x *xsollaRefundSync) Apply(ctx context.Context, p *models.Payment, res json.RawMessage) error {
	details, err := decodeDetails(res)
	if err != nil {
		return err
	}
	return x.replay(ctx, p, "refund", details)
}
