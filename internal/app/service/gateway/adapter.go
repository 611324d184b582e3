// Package gateway holds the outbound payment-system adapters. Each adapter
// converts the internal purchase representation into its gateway's request
// shape, applies the bonus discount when eligible and creates the checkout
// session.
package gateway

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"

	"github.com/agriev/we-sdk-payments/internal/models"
	"github.com/agriev/we-sdk-payments/pkg/types"
)

// ErrUnavailable marks gateway transport failures. They surface to clients
// as 503 and never cause a state transition; reconciliation repairs the
// payment later if the session was actually created.
var ErrUnavailable = errors.New("payment system unavailable")

// SessionDescriptor is what the purchasing client needs to open the gateway
// checkout. It is stored in the pending event's payload so a repeated redeem
// returns the same session instead of creating a duplicate.
type SessionDescriptor struct {
	Token  string `json:"token"`
	System string `json:"system"`
	// SessionID is the gateway-assigned payment id when the gateway hands
	// one out at creation time (Ukassa); reconciliation looks payments up
	// by it. Empty for Xsolla, which is queried by external_id instead.
	SessionID string `json:"session_id,omitempty"`
	// Discount echoes the bonus amount deducted from the checkout total so
	// the webhook-time ledger debit never has to re-derive it.
	Discount decimal.Decimal `json:"discount"`
}

type SessionRequest struct {
	Payment      *models.Payment
	Purchase     *types.Purchase
	Debug        bool
	BonusBalance decimal.Decimal
}

type PaymentSystem interface {
	Name() string
	CreateSession(ctx context.Context, project *models.PaymentProject, req *SessionRequest) (*SessionDescriptor, error)
	// Discount extracts the discount embedded in the gateway's custom
	// metadata at session-creation time from a paid-webhook body.
	Discount(body []byte) (decimal.Decimal, error)
}

// Registry is the immutable name-to-adapter map, built explicitly at
// process start and passed to the HTTP layer.
type Registry struct {
	systems map[string]PaymentSystem
}

func NewRegistry(x *Xsolla, u *Ukassa) *Registry {
	return &Registry{systems: map[string]PaymentSystem{
		x.Name(): x,
		u.Name(): u,
	}}
}

func (r *Registry) Get(name string) (PaymentSystem, bool) {
	s, ok := r.systems[name]
	return s, ok
}

var Module = fx.Options(
	fx.Provide(NewXsolla),
	fx.Provide(NewUkassa),
	fx.Provide(NewRegistry),
)
