package models

import (
	"time"

	"github.com/agriev/we-sdk-payments/internal/app/service/statemachine"
)

// Payment is one purchase attempt. Its id is exposed to game developers as
// transaction_id and to the gateways as external_id. State is advanced only
// by appending an Event; the row itself is never hard-deleted.
type Payment struct {
	ID    int64              `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	State statemachine.State `gorm:"column:state;type:varchar(32);not null;index" json:"state"`
	// Token is the opaque redemption string handed to the client device.
	// Immutable after creation.
	Token         string  `gorm:"column:token;type:varchar(64);uniqueIndex;not null" json:"token"`
	GameID        string  `gorm:"column:game_id;type:varchar(64);not null;index" json:"game_id"`
	PlayerID      string  `gorm:"column:player_id;type:varchar(64);not null;index" json:"player_id"`
	GameSessionID string  `gorm:"column:game_session_id;type:varchar(64);not null" json:"game_session_id"`
	PaymentSystem *string `gorm:"column:payment_system;type:varchar(32)" json:"payment_system"`
	// LastEventID is a weak reference to the most recent successful event,
	// kept for fast reads. The event log is the authoritative record.
	LastEventID *int64    `gorm:"column:last_event_id" json:"last_event_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Events []*Event `gorm:"foreignKey:PaymentID" json:"-"`
}

func (Payment) TableName() string { return "payment" }

// HasEvent reports whether an event of the given type exists among the
// preloaded events, optionally scoped to one payment system.
func (p *Payment) HasEvent(typ statemachine.EventType, system string) bool {
	return p.FindEvent(typ, system) != nil
}

// FindEvent returns the first preloaded event of the given type, optionally
// scoped to one payment system (empty system matches any).
func (p *Payment) FindEvent(typ statemachine.EventType, system string) *Event {
	if p == nil {
		return nil
	}
	for _, ev := range p.Events {
		if ev.Type != typ {
			continue
		}
		if system != "" && (ev.PaymentSystem == nil || *ev.PaymentSystem != system) {
			continue
		}
		return ev
	}
	return nil
}
