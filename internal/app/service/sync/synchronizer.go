// Package sync repairs payments whose webhook was plausibly lost. A
// synchronizer polls its gateway for the payment's fate and, when the
// gateway confirms completion, replays the missing notification through the
// same ingestion path a live webhook takes.
package sync

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/agriev/we-sdk-payments/internal/app/service/payment"
	"github.com/agriev/we-sdk-payments/internal/app/service/webhook"
	"github.com/agriev/we-sdk-payments/internal/models"
	"github.com/agriev/we-sdk-payments/internal/platform/ukassa"
	"github.com/agriev/we-sdk-payments/internal/platform/xsolla"
	"github.com/agriev/we-sdk-payments/pkg/types"
)

type Direction string

const (
	DirectionPayment Direction = "payment"
	DirectionRefund  Direction = "refund"
)

// Synchronizer is one (gateway, direction) reconciliation strategy.
type Synchronizer interface {
	// NeedsCheck reports whether the direction's terminal event is still
	// missing. False means the payment needs no gateway round trip.
	NeedsCheck(p *models.Payment) bool
	// Fetch asks the gateway for the payment's current fate.
	Fetch(ctx context.Context, p *models.Payment) (json.RawMessage, error)
	// HasUpdate reports whether the fetched response completes the payment.
	HasUpdate(res json.RawMessage) (bool, error)
	// Apply replays the completion as a gateway-native notification body
	// through the webhook ingestion path.
	Apply(ctx context.Context, p *models.Payment, res json.RawMessage) error
}

// Result is one row of a bulk sync outcome.
type Result struct {
	PaymentID int64
	Updated   bool
	Error     string
}

// SyncMany runs one synchronizer over a batch. A failure on one payment is
// recorded in its row and never aborts the rest.
func SyncMany(ctx context.Context, payments []*models.Payment, s Synchronizer) []Result {
	results := make([]Result, 0, len(payments))
	for _, p := range payments {
		results = append(results, syncOne(ctx, p, s))
	}
	return results
}

func syncOne(ctx context.Context, p *models.Payment, s Synchronizer) Result {
	r := Result{PaymentID: p.ID}
	if !s.NeedsCheck(p) {
		return r
	}
	res, err := s.Fetch(ctx, p)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	ok, err := s.HasUpdate(res)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	if !ok {
		return r
	}
	if err := s.Apply(ctx, p, res); err != nil {
		r.Error = err.Error()
		return r
	}
	r.Updated = true
	return r
}

// WriteCSV emits the operator-facing report, one row per payment.
func WriteCSV(w io.Writer, results []Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "updated", "error"}); err != nil {
		return err
	}
	for _, r := range results {
		row := []string{strconv.FormatInt(r.PaymentID, 10), strconv.FormatBool(r.Updated), r.Error}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type key struct {
	system    types.PaymentSystem
	direction Direction
}

// Set holds the four synchronizers, keyed by (gateway, direction).
type Set struct {
	m map[key]Synchronizer
}

func NewSet(
	payments payment.Manager,
	hooks *webhook.Handler,
	xc *xsolla.Client,
	uc *ukassa.Client,
	log *zap.SugaredLogger,
) *Set {
	return &Set{m: map[key]Synchronizer{
		{types.PaymentSystemXsolla, DirectionPayment}: newXsollaPayment(payments, hooks, xc, log),
		{types.PaymentSystemXsolla, DirectionRefund}:  newXsollaRefund(payments, hooks, xc, log),
		{types.PaymentSystemUkassa, DirectionPayment}: newUkassaPayment(payments, hooks, uc, log),
		{types.PaymentSystemUkassa, DirectionRefund}:  newUkassaRefund(payments, hooks, uc, log),
	}}
}

func (s *Set) Get(system types.PaymentSystem, direction Direction) (Synchronizer, error) {
	sync, ok := s.m[key{system, direction}]
	if !ok {
		return nil, fmt.Errorf("no synchronizer for %s/%s", system, direction)
	}
	return sync, nil
}

var Module = fx.Options(
	fx.Provide(NewSet),
)
