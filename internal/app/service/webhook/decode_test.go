package webhook

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agriev/we-sdk-payments/internal/app/service/statemachine"
	"github.com/agriev/we-sdk-payments/pkg/response"
)

const xsollaPaymentFixture = `{
	"notification_type": "payment",
	"purchase": {"checkout": {"currency": "RUB", "amount": 100.3}},
	"user": {"id": "player-1", "ip": "185.30.20.15"},
	"transaction": {"id": 9000001, "external_id": "42", "payment_date": "2026-08-01T10:00:00+03:00", "dry_run": 0},
	"settings": {"project_id": 12345}
}`

func TestDecodeXsollaPayment(t *testing.T) {
	d, fail := decodeXsolla([]byte(xsollaPaymentFixture))
	require.Nil(t, fail)
	require.Equal(t, "payment", d.Kind)
	require.Equal(t, statemachine.EventPaid, d.Trigger)
	require.Equal(t, int64(42), d.PaymentID)
	require.Equal(t, "player-1", d.PlayerID)
}

func TestDecodeXsollaRejectsNonPositiveAmount(t *testing.T) {
	for _, amount := range []string{"0", "-5"} {
		body := `{"notification_type":"payment",
			"purchase":{"checkout":{"currency":"RUB","amount":` + amount + `}},
			"transaction":{"id":1,"external_id":"42"},
			"settings":{"project_id":12345}}`
		_, fail := decodeXsolla([]byte(body))
		require.NotNil(t, fail)
		require.Equal(t, response.ErrorCodeIncorrectAmount, fail.Code)
	}
}

func TestDecodeXsollaUserValidation(t *testing.T) {
	body := `{"notification_type":"user_validation","user":{"id":"player-7"},"settings":{"project_id":12345}}`
	d, fail := decodeXsolla([]byte(body))
	require.Nil(t, fail)
	require.Equal(t, "user_validation", d.Kind)
	require.Empty(t, d.Trigger)
	require.Equal(t, "player-7", d.PlayerID)

	_, fail = decodeXsolla([]byte(`{"notification_type":"user_validation","user":{},"settings":{}}`))
	require.NotNil(t, fail)
	require.Equal(t, response.ErrorCodeInvalidUser, fail.Code)
}

func TestDecodeXsollaRefund(t *testing.T) {
	body := `{"notification_type":"refund",
		"purchase":{"checkout":{"currency":"RUB","amount":50}},
		"user":{"id":"player-1"},
		"transaction":{"id":9000001,"external_id":"42"},
		"refund_details":{"code":4,"reason":"Potential fraud"},
		"settings":{"project_id":12345}}`
	d, fail := decodeXsolla([]byte(body))
	require.Nil(t, fail)
	require.Equal(t, statemachine.EventRefunded, d.Trigger)
	require.Equal(t, int64(42), d.PaymentID)
}

func TestDecodeXsollaUnknownType(t *testing.T) {
	_, fail := decodeXsolla([]byte(`{"notification_type":"afs_reject"}`))
	require.NotNil(t, fail)
	require.Equal(t, response.ErrorCodeInvalidParameter, fail.Code)
}

func TestDecodeXsollaBadExternalID(t *testing.T) {
	for _, ext := range []string{`""`, `"not-a-number"`} {
		body := `{"notification_type":"payment",
			"purchase":{"checkout":{"currency":"RUB","amount":10}},
			"transaction":{"id":1,"external_id":` + ext + `},
			"settings":{"project_id":12345}}`
		_, fail := decodeXsolla([]byte(body))
		require.NotNil(t, fail)
		require.Equal(t, response.ErrorCodeInvalidParameter, fail.Code)
	}
}

func TestPeekXsollaProject(t *testing.T) {
	id, err := PeekXsollaProject([]byte(xsollaPaymentFixture))
	require.NoError(t, err)
	require.Equal(t, "12345", id)
}

const ukassaSucceededFixture = `{
	"type": "notification",
	"event": "payment.succeeded",
	"object": {
		"id": "22d6d597-000f-5000-9000-145f6df21d6f",
		"status": "succeeded",
		"paid": true,
		"amount": {"value": "90.30", "currency": "RUB"},
		"payment_method": {"type": "bank_card", "id": "22d6d597", "card": {"card_type": "Mir", "first6": "220000", "last4": "0004"}},
		"metadata": {"external_id": "42", "discount": "10.00"}
	}
}`

func TestDecodeUkassaSucceeded(t *testing.T) {
	d, fail := decodeUkassa([]byte(ukassaSucceededFixture))
	require.Nil(t, fail)
	require.Equal(t, statemachine.EventPaid, d.Trigger)
	require.Equal(t, int64(42), d.PaymentID)
}

func TestDecodeUkassaCanceled(t *testing.T) {
	body := `{"event":"payment.canceled","object":{
		"id":"22d6d597-000f-5000-9000-145f6df21d6f","status":"canceled",
		"amount":{"value":"90.30","currency":"RUB"},
		"cancellation_details":{"party":"yoo_money","reason":"expired_on_confirmation"},
		"metadata":{"external_id":"42"}}}`
	d, fail := decodeUkassa([]byte(body))
	require.Nil(t, fail)
	require.Equal(t, statemachine.EventCanceled, d.Trigger)
	require.Equal(t, int64(42), d.PaymentID)
}

func TestDecodeUkassaCanceledUnknownParty(t *testing.T) {
	body := `{"event":"payment.canceled","object":{
		"id":"x","status":"canceled",
		"amount":{"value":"90.30","currency":"RUB"},
		"cancellation_details":{"party":"someone"},
		"metadata":{"external_id":"42"}}}`
	_, fail := decodeUkassa([]byte(body))
	require.NotNil(t, fail)
	require.Equal(t, response.ErrorCodeInvalidParameter, fail.Code)
}

func TestDecodeUkassaRefund(t *testing.T) {
	body := `{"event":"refund.succeeded","object":{
		"id":"r-1","payment_id":"22d6d597-000f-5000-9000-145f6df21d6f",
		"status":"succeeded","amount":{"value":"90.30","currency":"RUB"}}}`
	d, fail := decodeUkassa([]byte(body))
	require.Nil(t, fail)
	require.Equal(t, statemachine.EventRefunded, d.Trigger)
	require.Equal(t, "22d6d597-000f-5000-9000-145f6df21d6f", d.GatewayPaymentID)
	require.Zero(t, d.PaymentID)
}

func TestDecodeUkassaRejects(t *testing.T) {
	cases := map[string]struct {
		body string
		code response.ErrorCode
	}{
		"zero amount": {
			body: `{"event":"payment.succeeded","object":{"id":"x","amount":{"value":"0","currency":"RUB"},"metadata":{"external_id":"42"}}}`,
			code: response.ErrorCodeIncorrectAmount,
		},
		"unknown method type": {
			body: `{"event":"payment.succeeded","object":{"id":"x","amount":{"value":"10","currency":"RUB"},"payment_method":{"type":"barter"},"metadata":{"external_id":"42"}}}`,
			code: response.ErrorCodeInvalidParameter,
		},
		"unknown card type": {
			body: `{"event":"payment.succeeded","object":{"id":"x","amount":{"value":"10","currency":"RUB"},"payment_method":{"type":"bank_card","card":{"card_type":"Maestro"}},"metadata":{"external_id":"42"}}}`,
			code: response.ErrorCodeInvalidParameter,
		},
		"bad external id": {
			body: `{"event":"payment.succeeded","object":{"id":"x","amount":{"value":"10","currency":"RUB"},"metadata":{"external_id":"abc"}}}`,
			code: response.ErrorCodeInvalidParameter,
		},
		"unknown event": {
			body: `{"event":"deal.closed","object":{}}`,
			code: response.ErrorCodeInvalidParameter,
		},
		"refund without payment id": {
			body: `{"event":"refund.succeeded","object":{"id":"r-1","amount":{"value":"10","currency":"RUB"}}}`,
			code: response.ErrorCodeInvalidParameter,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, fail := decodeUkassa([]byte(tc.body))
			require.NotNil(t, fail)
			require.Equal(t, tc.code, fail.Code)
		})
	}
}
