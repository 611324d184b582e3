package sync

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/agriev/we-sdk-payments/internal/app/service/gateway"
	"github.com/agriev/we-sdk-payments/internal/app/service/payment"
	"github.com/agriev/we-sdk-payments/internal/app/service/statemachine"
	"github.com/agriev/we-sdk-payments/internal/app/service/webhook"
	"github.com/agriev/we-sdk-payments/internal/models"
	"github.com/agriev/we-sdk-payments/internal/platform/ukassa"
	"github.com/agriev/we-sdk-payments/pkg/types"
)

const ukassaStatusSucceeded = "succeeded"

type ukassaBase struct {
	payments payment.Manager
	hooks    *webhook.Handler
	client   *ukassa.Client
	log      *zap.SugaredLogger
}

// sessionID recovers the gateway-assigned payment id stored in the pending
// event when the checkout session was created.
func (u *ukassaBase) sessionID(p *models.Payment) (string, error) {
	ev := p.FindEvent(statemachine.EventPending, string(types.PaymentSystemUkassa))
	if ev == nil {
		return "", fmt.Errorf("payment %d has no ukassa checkout session", p.ID)
	}
	var desc gateway.SessionDescriptor
	if err := json.Unmarshal(ev.Payload, &desc); err != nil {
		return "", fmt.Errorf("decoding stored session: %w", err)
	}
	if desc.SessionID == "" {
		return "", fmt.Errorf("payment %d session has no gateway id", p.ID)
	}
	return desc.SessionID, nil
}

// replay wraps a gateway payment/refund object in the notification envelope
// the live webhook would have carried.
func (u *ukassaBase) replay(ctx context.Context, event string, object json.RawMessage) error {
	body, err := json.Marshal(map[string]any{
		"type":   "notification",
		"event":  event,
		"object": object,
	})
	if err != nil {
		return fmt.Errorf("marshal replayed notification: %w", err)
	}
	return u.hooks.Process(ctx, string(types.PaymentSystemUkassa), body)
}

type ukassaPaymentSync struct{ ukassaBase }

func newUkassaPayment(payments payment.Manager, hooks *webhook.Handler, client *ukassa.Client, log *zap.SugaredLogger) *ukassaPaymentSync {
	return &ukassaPaymentSync{ukassaBase{payments: payments, hooks: hooks, client: client, log: log}}
}

func (u *ukassaPaymentSync) NeedsCheck(p *models.Payment) bool {
	return !p.HasEvent(statemachine.EventPaid, "")
}

func (u *ukassaPaymentSync) Fetch(ctx context.Context, p *models.Payment) (json.RawMessage, error) {
	id, err := u.sessionID(p)
	if err != nil {
		return nil, err
	}
	project, err := u.payments.Project(ctx, types.PaymentSystemUkassa, p.GameID)
	if err != nil {
		return nil, err
	}
	return u.client.GetPayment(ctx, project.ProjectID, project.SecretKey, id)
}

func (u *ukassaPaymentSync) HasUpdate(res json.RawMessage) (bool, error) {
	if len(res) == 0 {
		return false, nil
	}
	var probe struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(res, &probe); err != nil {
		return false, fmt.Errorf("decoding payment object: %w", err)
	}
	return probe.Status == ukassaStatusSucceeded, nil
}

func (u *ukassaPaymentSync) Apply(ctx context.Context, p *models.Payment, res json.RawMessage) error {
	return u.replay(ctx, "payment.succeeded", res)
}

type ukassaRefundSync struct{ ukassaBase }

func newUkassaRefund(payments payment.Manager, hooks *webhook.Handler, client *ukassa.Client, log *zap.SugaredLogger) *ukassaRefundSync {
	return &ukassaRefundSync{ukassaBase{payments: payments, hooks: hooks, client: client, log: log}}
}

func (u *ukassaRefundSync) NeedsCheck(p *models.Payment) bool {
	return !p.HasEvent(statemachine.EventRefunded, "")
}

// Fetch resolves the gateway payment id from the paid event's webhook body
// and returns the first succeeded refund attached to it, nil when none.
func (u *ukassaRefundSync) Fetch(ctx context.Context, p *models.Payment) (json.RawMessage, error) {
	paid := p.FindEvent(statemachine.EventPaid, string(types.PaymentSystemUkassa))
	if paid == nil {
		return nil, fmt.Errorf("payment %d has no ukassa paid event", p.ID)
	}
	var probe struct {
		Object struct {
			ID string `json:"id"`
		} `json:"object"`
	}
	if err := json.Unmarshal(paid.Payload, &probe); err != nil {
		return nil, fmt.Errorf("decoding paid event payload: %w", err)
	}
	if probe.Object.ID == "" {
		return nil, fmt.Errorf("payment %d paid event has no gateway id", p.ID)
	}

	project, err := u.payments.Project(ctx, types.PaymentSystemUkassa, p.GameID)
	if err != nil {
		return nil, err
	}
	items, err := u.client.ListRefunds(ctx, project.ProjectID, project.SecretKey, probe.Object.ID)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		var refund struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal(item, &refund); err != nil {
			continue
		}
		if refund.Status == ukassaStatusSucceeded {
			return item, nil
		}
	}
	return nil, nil
}

func (u *ukassaRefundSync) HasUpdate(res json.RawMessage) (bool, error) {
	return len(res) > 0, nil
}

func (u *ukassaRefundSync) Apply(ctx context.Context, p *models.Payment, res json.RawMessage) error {
	return u.replay(ctx, "refund.succeeded", res)
}
