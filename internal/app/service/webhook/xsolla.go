package webhook

import (
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/agriev/we-sdk-payments/internal/app/service/statemachine"
	"github.com/agriev/we-sdk-payments/pkg/response"
)

// Xsolla notification types. The discriminator is read first and the body is
// then parsed against the single matching schema.
const (
	xsollaUserValidation = "user_validation"
	xsollaPayment        = "payment"
	xsollaRefund         = "refund"
)

type xsollaSettings struct {
	ProjectID json.Number `json:"project_id"`
}

type xsollaUser struct {
	ID      string `json:"id"`
	IP      string `json:"ip"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Country string `json:"country"`
}

type xsollaTransaction struct {
	ID            int64  `json:"id"`
	ExternalID    string `json:"external_id"`
	PaymentDate   string `json:"payment_date"`
	PaymentMethod int64  `json:"payment_method"`
	DryRun        int    `json:"dry_run"`
}

type xsollaCheckout struct {
	Currency string          `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
}

type xsollaPurchase struct {
	Checkout xsollaCheckout `json:"checkout"`
}

type xsollaUserValidationBody struct {
	NotificationType string         `json:"notification_type"`
	User             xsollaUser     `json:"user"`
	Settings         xsollaSettings `json:"settings"`
}

type xsollaPaymentBody struct {
	NotificationType string            `json:"notification_type"`
	Purchase         xsollaPurchase    `json:"purchase"`
	User             xsollaUser        `json:"user"`
	Transaction      xsollaTransaction `json:"transaction"`
	Settings         xsollaSettings    `json:"settings"`
}

type xsollaRefundBody struct {
	NotificationType string            `json:"notification_type"`
	Purchase         xsollaPurchase    `json:"purchase"`
	User             xsollaUser        `json:"user"`
	Transaction      xsollaTransaction `json:"transaction"`
	RefundDetails    struct {
		Code   int64  `json:"code"`
		Reason string `json:"reason"`
	} `json:"refund_details"`
	Settings xsollaSettings `json:"settings"`
}

// PeekXsollaProject extracts settings.project_id without a full decode, so
// the HTTP layer can look up the project secret before verifying the body
// signature.
func PeekXsollaProject(body []byte) (string, error) {
	var probe struct {
		Settings xsollaSettings `json:"settings"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return "", err
	}
	return probe.Settings.ProjectID.String(), nil
}

func decodeXsolla(body []byte) (*Decoded, *Error) {
	var head struct {
		NotificationType string `json:"notification_type"`
	}
	if err := json.Unmarshal(body, &head); err != nil {
		return nil, Errf(response.ErrorCodeInvalidParameter, "reading notification_type: %v", err)
	}

	switch head.NotificationType {
	case xsollaUserValidation:
		var v xsollaUserValidationBody
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, Errf(response.ErrorCodeInvalidParameter, "user_validation body: %v", err)
		}
		if v.User.ID == "" {
			return nil, Errf(response.ErrorCodeInvalidUser, "user_validation without user.id")
		}
		return &Decoded{Kind: head.NotificationType, PlayerID: v.User.ID}, nil

	case xsollaPayment:
		var v xsollaPaymentBody
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, Errf(response.ErrorCodeInvalidParameter, "payment body: %v", err)
		}
		if !v.Purchase.Checkout.Amount.IsPositive() {
			return nil, Errf(response.ErrorCodeIncorrectAmount,
				"checkout amount %s", v.Purchase.Checkout.Amount)
		}
		id, fail := xsollaExternalID(v.Transaction)
		if fail != nil {
			return nil, fail
		}
		return &Decoded{
			Kind:      head.NotificationType,
			Trigger:   statemachine.EventPaid,
			PaymentID: id,
			PlayerID:  v.User.ID,
		}, nil

	case xsollaRefund:
		var v xsollaRefundBody
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, Errf(response.ErrorCodeInvalidParameter, "refund body: %v", err)
		}
		id, fail := xsollaExternalID(v.Transaction)
		if fail != nil {
			return nil, fail
		}
		return &Decoded{
			Kind:      head.NotificationType,
			Trigger:   statemachine.EventRefunded,
			PaymentID: id,
			PlayerID:  v.User.ID,
		}, nil
	}
	return nil, Errf(response.ErrorCodeInvalidParameter,
		"unknown notification_type %q", head.NotificationType)
}

func xsollaExternalID(tr xsollaTransaction) (int64, *Error) {
	if tr.ExternalID == "" {
		return 0, Errf(response.ErrorCodeInvalidParameter, "transaction without external_id")
	}
	id, err := strconv.ParseInt(tr.ExternalID, 10, 64)
	if err != nil {
		return 0, Errf(response.ErrorCodeInvalidParameter, "external_id %q is not a transaction id", tr.ExternalID)
	}
	return id, nil
}
