package webhook

import (
	"encoding/json"
	"strconv"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/agriev/we-sdk-payments/internal/app/service/statemachine"
	"github.com/agriev/we-sdk-payments/pkg/response"
)

// Ukassa event names.
const (
	ukassaPaymentSucceeded = "payment.succeeded"
	ukassaPaymentCanceled  = "payment.canceled"
	ukassaRefundSucceeded  = "refund.succeeded"
)

// Gateway-declared closed enumerations. Values outside these lists mean the
// payload does not match the schema we integrate against.
var (
	ukassaMethodTypes = []string{
		"bank_card", "yoo_money", "sberbank", "qiwi", "webmoney", "cash",
		"mobile_balance", "alfabank", "tinkoff_bank", "sbp",
		"apple_pay", "google_pay", "installments",
	}
	ukassaCardTypes = []string{
		"MasterCard", "Visa", "Mir", "UnionPay", "JCB",
		"AmericanExpress", "DinersClub", "Unknown",
	}
	ukassaCancellationParties = []string{"yoo_money", "payment_network", "merchant"}
)

type ukassaAmount struct {
	Value    decimal.Decimal `json:"value"`
	Currency string          `json:"currency"`
}

type ukassaCard struct {
	CardType    string `json:"card_type"`
	First6      string `json:"first6"`
	Last4       string `json:"last4"`
	ExpiryMonth string `json:"expiry_month"`
	ExpiryYear  string `json:"expiry_year"`
	IssuerName  string `json:"issuer_name"`
}

type ukassaPaymentMethod struct {
	Type  string      `json:"type"`
	ID    string      `json:"id"`
	Saved bool        `json:"saved"`
	Title string      `json:"title"`
	Card  *ukassaCard `json:"card"`
}

type ukassaMetadata struct {
	ExternalID string `json:"external_id"`
	Discount   string `json:"discount"`
}

type ukassaPaymentObject struct {
	ID                  string               `json:"id"`
	Status              string               `json:"status"`
	Paid                bool                 `json:"paid"`
	Amount              ukassaAmount         `json:"amount"`
	Description         string               `json:"description"`
	PaymentMethod       *ukassaPaymentMethod `json:"payment_method"`
	Metadata            ukassaMetadata       `json:"metadata"`
	CancellationDetails *struct {
		Party  string `json:"party"`
		Reason string `json:"reason"`
	} `json:"cancellation_details"`
}

type ukassaRefundObject struct {
	ID        string       `json:"id"`
	PaymentID string       `json:"payment_id"`
	Status    string       `json:"status"`
	Amount    ukassaAmount `json:"amount"`
}

func decodeUkassa(body []byte) (*Decoded, *Error) {
	var head struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(body, &head); err != nil {
		return nil, Errf(response.ErrorCodeInvalidParameter, "reading event: %v", err)
	}

	switch head.Event {
	case ukassaPaymentSucceeded, ukassaPaymentCanceled:
		var v struct {
			Object ukassaPaymentObject `json:"object"`
		}
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, Errf(response.ErrorCodeInvalidParameter, "%s body: %v", head.Event, err)
		}
		if fail := validateUkassaPayment(&v.Object, head.Event); fail != nil {
			return nil, fail
		}
		id, err := strconv.ParseInt(v.Object.Metadata.ExternalID, 10, 64)
		if err != nil {
			return nil, Errf(response.ErrorCodeInvalidParameter,
				"metadata.external_id %q is not a transaction id", v.Object.Metadata.ExternalID)
		}
		trigger := statemachine.EventPaid
		if head.Event == ukassaPaymentCanceled {
			trigger = statemachine.EventCanceled
		}
		return &Decoded{Kind: head.Event, Trigger: trigger, PaymentID: id}, nil

	case ukassaRefundSucceeded:
		var v struct {
			Object ukassaRefundObject `json:"object"`
		}
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, Errf(response.ErrorCodeInvalidParameter, "refund body: %v", err)
		}
		if !v.Object.Amount.Value.IsPositive() {
			return nil, Errf(response.ErrorCodeIncorrectAmount, "refund amount %s", v.Object.Amount.Value)
		}
		if v.Object.PaymentID == "" {
			return nil, Errf(response.ErrorCodeInvalidParameter, "refund without payment_id")
		}
		return &Decoded{
			Kind:             head.Event,
			Trigger:          statemachine.EventRefunded,
			GatewayPaymentID: v.Object.PaymentID,
		}, nil
	}
	return nil, Errf(response.ErrorCodeInvalidParameter, "unknown event %q", head.Event)
}

func validateUkassaPayment(obj *ukassaPaymentObject, event string) *Error {
	if !obj.Amount.Value.IsPositive() {
		return Errf(response.ErrorCodeIncorrectAmount, "payment amount %s", obj.Amount.Value)
	}
	if obj.PaymentMethod != nil {
		if !lo.Contains(ukassaMethodTypes, obj.PaymentMethod.Type) {
			return Errf(response.ErrorCodeInvalidParameter,
				"unknown payment_method.type %q", obj.PaymentMethod.Type)
		}
		if card := obj.PaymentMethod.Card; card != nil && !lo.Contains(ukassaCardTypes, card.CardType) {
			return Errf(response.ErrorCodeInvalidParameter, "unknown card_type %q", card.CardType)
		}
	}
	if event == ukassaPaymentCanceled {
		if obj.CancellationDetails == nil {
			return Errf(response.ErrorCodeInvalidParameter, "canceled payment without cancellation_details")
		}
		if !lo.Contains(ukassaCancellationParties, obj.CancellationDetails.Party) {
			return Errf(response.ErrorCodeInvalidParameter,
				"unknown cancellation party %q", obj.CancellationDetails.Party)
		}
	}
	return nil
}
