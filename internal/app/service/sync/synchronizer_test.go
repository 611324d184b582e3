package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"github.com/agriev/we-sdk-payments/internal/app/service/statemachine"
	"github.com/agriev/we-sdk-payments/internal/models"
)

type fakeSync struct {
	needsCheck bool
	fetched    int
	fetchErr   error
	response   json.RawMessage
	hasUpdate  bool
	applyErr   error
	applied    int
}

func (f *fakeSync) NeedsCheck(*models.Payment) bool { return f.needsCheck }

func (f *fakeSync) Fetch(context.Context, *models.Payment) (json.RawMessage, error) {
	f.fetched++
	return f.response, f.fetchErr
}

func (f *fakeSync) HasUpdate(json.RawMessage) (bool, error) { return f.hasUpdate, nil }

func (f *fakeSync) Apply(context.Context, *models.Payment, json.RawMessage) error {
	f.applied++
	return f.applyErr
}

func TestSyncManySkipsSettledPayments(t *testing.T) {
	s := &fakeSync{needsCheck: false}
	p := &models.Payment{ID: 42, State: statemachine.StatePaid}

	results := SyncMany(context.Background(), []*models.Payment{p}, s)
	require.Len(t, results, 1)
	require.Equal(t, Result{PaymentID: 42}, results[0])
	require.Zero(t, s.fetched, "settled payments must not hit the gateway")
}

func TestSyncManyDoesNotAbortOnFailure(t *testing.T) {
	s := &fakeSync{needsCheck: true, fetchErr: errors.New("gateway down")}
	pending := []*models.Payment{
		{ID: 1, State: statemachine.StatePending},
		{ID: 2, State: statemachine.StatePending},
	}

	results := SyncMany(context.Background(), pending, s)
	require.Len(t, results, 2)
	for _, r := range results {
		require.False(t, r.Updated)
		require.Equal(t, "gateway down", r.Error)
	}
	require.Equal(t, 2, s.fetched)
}

func TestSyncManyAppliesUpdates(t *testing.T) {
	s := &fakeSync{needsCheck: true, response: json.RawMessage(`{"status":"succeeded"}`), hasUpdate: true}
	p := &models.Payment{ID: 7, State: statemachine.StatePending}

	results := SyncMany(context.Background(), []*models.Payment{p}, s)
	require.Equal(t, []Result{{PaymentID: 7, Updated: true}}, results)
	require.Equal(t, 1, s.applied)
}

func TestSyncManyNoUpdateIsNotAnError(t *testing.T) {
	s := &fakeSync{needsCheck: true, response: json.RawMessage(`{"status":"pending"}`)}
	p := &models.Payment{ID: 7, State: statemachine.StatePending}

	results := SyncMany(context.Background(), []*models.Payment{p}, s)
	require.Equal(t, []Result{{PaymentID: 7}}, results)
	require.Zero(t, s.applied)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, []Result{
		{PaymentID: 1, Updated: true},
		{PaymentID: 2, Error: "gateway down"},
	})
	require.NoError(t, err)
	require.Equal(t, "id,updated,error\n1,true,\n2,false,gateway down\n", buf.String())
}

func TestNeedsCheckLooksAtTerminalEvents(t *testing.T) {
	paid := &models.Payment{ID: 1, State: statemachine.StatePaid, Events: []*models.Event{
		{PaymentID: 1, Type: statemachine.EventPaid, PaymentSystem: lo.ToPtr("xsolla")},
	}}
	pending := &models.Payment{ID: 2, State: statemachine.StatePending, Events: []*models.Event{
		{PaymentID: 2, Type: statemachine.EventPending, PaymentSystem: lo.ToPtr("xsolla")},
	}}

	xp := &xsollaPaymentSync{}
	require.False(t, xp.NeedsCheck(paid))
	require.True(t, xp.NeedsCheck(pending))

	// Refund sync still has work to do on a merely-paid payment.
	xr := &xsollaRefundSync{}
	require.True(t, xr.NeedsCheck(paid))

	up := &ukassaPaymentSync{}
	require.False(t, up.NeedsCheck(paid))
	require.True(t, up.NeedsCheck(pending))
}

func TestXsollaHasUpdateStatuses(t *testing.T) {
	xp := &xsollaPaymentSync{}
	for status, want := range map[string]bool{"done": true, "canceled": true, "created": false} {
		res := json.RawMessage(`{"transaction":{"id":1,"external_id":"42","status":"` + status + `"}}`)
		got, err := xp.HasUpdate(res)
		require.NoError(t, err)
		require.Equal(t, want, got, "status %s", status)
	}
	ok, err := xp.HasUpdate(nil)
	require.NoError(t, err)
	require.False(t, ok)

	xr := &xsollaRefundSync{}
	for status, want := range map[string]bool{"done": false, "canceled": true} {
		res := json.RawMessage(`{"transaction":{"id":1,"external_id":"42","status":"` + status + `"}}`)
		got, err := xr.HasUpdate(res)
		require.NoError(t, err)
		require.Equal(t, want, got, "status %s", status)
	}
}

func TestUkassaSessionIDFromPendingEvent(t *testing.T) {
	u := &ukassaBase{}
	p := &models.Payment{ID: 3, Events: []*models.Event{
		{
			PaymentID:     3,
			Type:          statemachine.EventPending,
			PaymentSystem: lo.ToPtr("ukassa"),
			Payload:       []byte(`{"token":"conf","system":"ukassa","session_id":"gw-77","discount":"0"}`),
		},
	}}
	id, err := u.sessionID(p)
	require.NoError(t, err)
	require.Equal(t, "gw-77", id)

	_, err = u.sessionID(&models.Payment{ID: 4})
	require.Error(t, err)
}
