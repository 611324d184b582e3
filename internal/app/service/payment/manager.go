package payment

import (
	"context"
	"time"

	"gorm.io/datatypes"

	"github.com/agriev/we-sdk-payments/internal/app/service/statemachine"
	"github.com/agriev/we-sdk-payments/internal/models"
	"github.com/agriev/we-sdk-payments/pkg/types"
)

type IssueTokenRequest struct {
	GameSessionID    string         `json:"game_sid"`
	PlayerID         string         `json:"player_id"`
	GameID           string         `json:"app_id"`
	DebugMode        bool           `json:"debug_mode"`
	Purchase         types.Purchase `json:"purchase"`
	CustomParameters datatypes.JSON `json:"custom_parameters,omitempty"`
}

type IssueTokenResponse struct {
	TransactionID int64  `json:"transaction_id"`
	Token         string `json:"token"`
}

type RedeemRequest struct {
	Token         string `json:"token"`
	PaymentSystem string `json:"payment_system"`

	// PlayerID comes from the authenticated player, not the body.
	PlayerID string `json:"-"`
}

type RedeemResponse struct {
	Token  string `json:"token"`
	System string `json:"system"`
}

// View is the developer-facing projection of a payment.
type View struct {
	TransactionID int64      `json:"transaction_id"`
	State         string     `json:"state"`
	GameID        string     `json:"app_id"`
	PlayerID      string     `json:"player_id"`
	GameSessionID string     `json:"game_sid"`
	PaymentSystem *string    `json:"payment_system"`
	Created       time.Time  `json:"created"`
	Updated       *time.Time `json:"updated,omitempty"`
}

func NewView(p *models.Payment) *View {
	v := &View{
		TransactionID: p.ID,
		State:         string(p.State),
		GameID:        p.GameID,
		PlayerID:      p.PlayerID,
		GameSessionID: p.GameSessionID,
		PaymentSystem: p.PaymentSystem,
		Created:       p.CreatedAt,
	}
	if !p.UpdatedAt.IsZero() {
		v.Updated = &p.UpdatedAt
	}
	return v
}

type ListRequest struct {
	GameID        string
	PlayerID      string
	GameSessionID string
	TransactionID *int64
	State         string
	Page          int
}

type ListResponse struct {
	Count   int64   `json:"count"`
	Results []*View `json:"results"`
}

// PageToken is the opaque continuation object returned by Filter.
type PageToken struct {
	Page int `json:"page"`
}

type FilterResponse struct {
	Count    int64      `json:"count"`
	Next     *PageToken `json:"next"`
	Previous *PageToken `json:"previous"`
	Results  []*View    `json:"results"`
}

// Scan request/response for the admin listing (operator filters).
type ScanPaymentsRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ScanPaymentsResponse struct {
	Items []*models.Payment `json:"items"`
	Total int64             `json:"total"`
}

// Manager is the payment lifecycle service consumed by the HTTP layer,
// the webhook handler and the reconciliation synchronizers.
type Manager interface {
	// Issue a redeemable token for a new purchase (first event of the log).
	IssueToken(ctx context.Context, req *IssueTokenRequest) (*IssueTokenResponse, error)
	// Exchange a token for a gateway checkout session.
	Redeem(ctx context.Context, req *RedeemRequest) (*RedeemResponse, error)
	// Developer reads.
	Get(ctx context.Context, gameID string, transactionID int64) (*models.Payment, error)
	GetByToken(ctx context.Context, token string) (*models.Payment, error)
	List(ctx context.Context, req *ListRequest) (*ListResponse, error)
	Filter(ctx context.Context, req *ListRequest) (*FilterResponse, error)
	// Developer-confirmed transitions (payment_confirmed / refund_confirmed only).
	UpdateState(ctx context.Context, gameID string, transactionID int64, target statemachine.EventType) (*models.Payment, error)
	// Webhook/sync resolution, events preloaded.
	FindByID(ctx context.Context, id int64) (*models.Payment, error)
	// Admin listing and bulk-sync selection.
	ScanPayments(ctx context.Context, req *ScanPaymentsRequest) (*ScanPaymentsResponse, error)
	LoadForSync(ctx context.Context, ids []int64) ([]*models.Payment, error)
	// Gateway project configuration.
	Project(ctx context.Context, system types.PaymentSystem, gameID string) (*models.PaymentProject, error)
	ProjectByProjectID(ctx context.Context, system types.PaymentSystem, projectID string) (*models.PaymentProject, error)
}
