// Package webhook ingests gateway notifications. A notification is decoded
// against its gateway's schema family, resolved to a payment and applied as
// an event, with decode + event write + bonus debit in one transaction. Both
// live deliveries and reconciliation replays come through here, so there is
// a single definition of what each event's payload looks like.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/agriev/we-sdk-payments/internal/app/service/bonus"
	"github.com/agriev/we-sdk-payments/internal/app/service/callback"
	"github.com/agriev/we-sdk-payments/internal/app/service/directory"
	"github.com/agriev/we-sdk-payments/internal/app/service/gateway"
	"github.com/agriev/we-sdk-payments/internal/app/service/payment"
	"github.com/agriev/we-sdk-payments/internal/app/service/statemachine"
	"github.com/agriev/we-sdk-payments/internal/app/service/webhooklog"
	"github.com/agriev/we-sdk-payments/internal/models"
	"github.com/agriev/we-sdk-payments/pkg/logctx"
	"github.com/agriev/we-sdk-payments/pkg/response"
	"github.com/agriev/we-sdk-payments/pkg/types"
)

var eventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "payments_webhook_events_total",
	Help: "Inbound gateway notifications by system, event and outcome.",
}, []string{"system", "event", "outcome"})

func init() {
	prometheus.MustRegister(eventsTotal)
}

// Decoded is the gateway-independent result of schema dispatch.
type Decoded struct {
	// Kind is the gateway's own discriminator value.
	Kind string
	// Trigger is the event the notification maps to; empty for
	// notifications that advance no state (user validation).
	Trigger statemachine.EventType
	// PaymentID is our transaction id when the notification carries it.
	PaymentID int64
	// GatewayPaymentID resolves Ukassa refunds, which carry only the
	// gateway-assigned payment id.
	GatewayPaymentID string
	PlayerID         string
}

type Handler struct {
	log      *zap.SugaredLogger
	db       *gorm.DB
	recorder *payment.Recorder
	ledger   *bonus.Ledger
	gateways *gateway.Registry
	logs     *webhooklog.Service
	dir      directory.Directory
	notifier *callback.Notifier
}

func NewHandler(
	log *zap.SugaredLogger,
	db *gorm.DB,
	recorder *payment.Recorder,
	ledger *bonus.Ledger,
	gateways *gateway.Registry,
	logs *webhooklog.Service,
	dir directory.Directory,
	notifier *callback.Notifier,
) *Handler {
	return &Handler{
		log: log, db: db, recorder: recorder, ledger: ledger,
		gateways: gateways, logs: logs, dir: dir, notifier: notifier,
	}
}

// Process handles one notification body for the named gateway. The body must
// already be authenticated by the HTTP layer (signature or IP allow-list).
// Returned errors are either *Error with a taxonomy code or internal errors
// the HTTP layer maps to a generic failure.
func (h *Handler) Process(ctx context.Context, system string, body []byte) error {
	log := logctx.FromCtx(ctx, h.log)

	if !json.Valid(body) {
		eventsTotal.WithLabelValues(system, "", "invalid_json").Inc()
		return Errf(response.ErrorCodeInvalidJSON, "body is not valid JSON")
	}

	var (
		d    *Decoded
		fail *Error
	)
	switch types.PaymentSystem(system) {
	case types.PaymentSystemXsolla:
		d, fail = decodeXsolla(body)
	case types.PaymentSystemUkassa:
		d, fail = decodeUkassa(body)
	default:
		fail = Errf(response.ErrorCodeInvalidParameter, "unknown payment system %q", system)
	}

	received := &models.WebhookLog{
		PaymentSystem: system,
		TraceID:       logctx.TraceIDFromCtx(ctx),
		Data:          datatypes.JSON(body),
		Status:        models.WebhookLogStatusReceived,
	}
	if d != nil {
		received.Event = d.Kind
		if d.PaymentID != 0 {
			received.PaymentID = lo.ToPtr(d.PaymentID)
		}
	}
	h.logs.Save(ctx, received)

	if fail == nil {
		fail = h.dispatch(ctx, system, d, body)
	}

	outcome := &models.WebhookLog{
		PaymentSystem: system,
		TraceID:       received.TraceID,
		Event:         received.Event,
		PaymentID:     received.PaymentID,
		Status:        models.WebhookLogStatusHandled,
	}
	if fail != nil {
		outcome.Status = models.WebhookLogStatusHandleFailed
		outcome.Result = lo.ToPtr(datatypes.JSON(fmt.Appendf(nil, `{"error":%q}`, fail.Code)))
		log.Warnw("webhook rejected", "system", system, "err", fail)
		eventsTotal.WithLabelValues(system, outcome.Event, string(fail.Code)).Inc()
		h.logs.Save(ctx, outcome)
		return fail
	}
	outcome.Result = lo.ToPtr(datatypes.JSON(`{"ok":true}`))
	eventsTotal.WithLabelValues(system, outcome.Event, "ok").Inc()
	h.logs.Save(ctx, outcome)
	return nil
}

func (h *Handler) dispatch(ctx context.Context, system string, d *Decoded, body []byte) *Error {
	switch d.Trigger {
	case "":
		// User validation: answer whether the player exists, no event.
		ok, err := h.dir.PlayerExists(ctx, d.PlayerID)
		if err != nil {
			return Errf(response.ErrorCodeInvalidUser, "checking player %q: %v", d.PlayerID, err)
		}
		if !ok {
			return Errf(response.ErrorCodeInvalidUser, "player %q not found", d.PlayerID)
		}
		return nil
	case statemachine.EventPaid:
		return h.applyPaid(ctx, system, d, body)
	case statemachine.EventCanceled:
		return h.applyCanceled(ctx, system, d, body)
	case statemachine.EventRefunded:
		return h.applyRefunded(ctx, system, d, body)
	}
	return Errf(response.ErrorCodeInvalidParameter, "unhandled trigger %q", d.Trigger)
}

// applyPaid writes the paid event and debits the bonus ledger. The debit and
// the event share one transaction, serialized on the player's balance row,
// so N concurrent deliveries of the same webhook produce exactly one paid
// event and at most one debit.
func (h *Handler) applyPaid(ctx context.Context, system string, d *Decoded, body []byte) *Error {
	log := logctx.FromCtx(ctx, h.log)

	var (
		fail *Error
		paid *models.Payment
	)
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, ferr := h.resolve(tx, d.PaymentID)
		if ferr != nil {
			fail = ferr
			return nil
		}

		balance, err := h.ledger.Lock(tx, p.PlayerID)
		if err != nil {
			return err
		}

		// Re-checked after taking the lock: a concurrent delivery that
		// committed first makes this one a no-op.
		var replays int64
		err = tx.Model(&models.Event{}).
			Where("payment_id = ? AND type = ? AND payment_system = ?", p.ID, statemachine.EventPaid, system).
			Count(&replays).Error
		if err != nil {
			return fmt.Errorf("check paid events: %w", err)
		}
		if replays > 0 {
			log.Infow("paid webhook replay ignored", "payment_id", p.ID, "system", system)
			return nil
		}

		// The discount is debited only on the very first successful payment
		// event for this payment, across all gateways.
		var prior int64
		err = tx.Model(&models.Event{}).
			Where("payment_id = ? AND type = ?", p.ID, statemachine.EventPaid).
			Count(&prior).Error
		if err != nil {
			return fmt.Errorf("check prior payments: %w", err)
		}

		_, err = h.recorder.Append(tx, p, statemachine.EventPaid, &system, datatypes.JSON(body))
		if errors.Is(err, statemachine.ErrGuard) {
			return nil
		}
		if err != nil {
			return err
		}

		if prior == 0 {
			adapter, ok := h.gateways.Get(system)
			if !ok {
				fail = Errf(response.ErrorCodeInvalidParameter, "unknown payment system %q", system)
				return errRollback
			}
			discount, err := adapter.Discount(body)
			if err != nil {
				fail = Errf(response.ErrorCodeInvalidParameter, "reading discount: %v", err)
				return errRollback
			}
			if discount.IsPositive() {
				if _, err := h.ledger.SafeWithdraw(tx, balance, discount); err != nil {
					return err
				}
			}
		}
		paid = p
		return nil
	})
	if err != nil && !errors.Is(err, errRollback) {
		return Errf(response.ErrorCodeInvalidParameter, "applying paid event: %v", err)
	}
	if fail != nil {
		return fail
	}
	if paid != nil && paid.State == statemachine.StatePaid {
		h.notifier.Notify(paid)
	}
	return nil
}

// errRollback aborts the surrounding transaction when the taxonomy error is
// already captured.
var errRollback = errors.New("rollback")

func (h *Handler) applyCanceled(ctx context.Context, system string, d *Decoded, body []byte) *Error {
	return h.applyPlain(ctx, system, statemachine.EventCanceled, d, body)
}

func (h *Handler) applyRefunded(ctx context.Context, system string, d *Decoded, body []byte) *Error {
	return h.applyPlain(ctx, system, statemachine.EventRefunded, d, body)
}

// applyPlain handles the triggers without a ledger side effect. A guard
// failure commits whatever the recorder decided to write (nothing for the
// suppressed triggers, an error event otherwise) and still acknowledges the
// delivery so the gateway stops retrying.
func (h *Handler) applyPlain(ctx context.Context, system string, trigger statemachine.EventType, d *Decoded, body []byte) *Error {
	var fail *Error
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var (
			p    *models.Payment
			ferr *Error
		)
		if d.GatewayPaymentID != "" {
			p, ferr = h.resolveByGatewayID(tx, system, d.GatewayPaymentID)
		} else {
			p, ferr = h.resolve(tx, d.PaymentID)
		}
		if ferr != nil {
			fail = ferr
			return nil
		}
		_, err := h.recorder.Append(tx, p, trigger, &system, datatypes.JSON(body))
		if errors.Is(err, statemachine.ErrGuard) {
			return nil
		}
		return err
	})
	if err != nil {
		return Errf(response.ErrorCodeInvalidParameter, "applying %s event: %v", trigger, err)
	}
	return fail
}

func (h *Handler) resolve(tx *gorm.DB, id int64) (*models.Payment, *Error) {
	var p models.Payment
	err := tx.Preload("Events").Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, Errf(response.ErrorCodeInvalidParameter, "payment %d not found", id)
	}
	if err != nil {
		return nil, Errf(response.ErrorCodeInvalidParameter, "loading payment %d: %v", id, err)
	}
	return &p, nil
}

// resolveByGatewayID finds the payment whose paid event recorded the given
// gateway-assigned id (Ukassa refunds carry no external_id).
func (h *Handler) resolveByGatewayID(tx *gorm.DB, system, gatewayID string) (*models.Payment, *Error) {
	var p models.Payment
	err := tx.Joins("JOIN event ON event.payment_id = payment.id").
		Where("event.type = ? AND event.payment_system = ? AND event.payload -> 'object' ->> 'id' = ?",
			statemachine.EventPaid, system, gatewayID).
		Preload("Events").
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, Errf(response.ErrorCodeInvalidParameter, "no payment for gateway id %q", gatewayID)
	}
	if err != nil {
		return nil, Errf(response.ErrorCodeInvalidParameter, "resolving gateway id %q: %v", gatewayID, err)
	}
	return &p, nil
}

var Module = fx.Options(
	fx.Provide(NewHandler),
)
