package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/agriev/we-sdk-payments/internal/app/service/statemachine"
)

// Event is one immutable state-transition record. Rows are append-only: no
// updates, no deletes. The FK is RESTRICT so a payment cannot be removed
// while its financial trail exists.
type Event struct {
	ID        int64                  `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	PaymentID int64                  `gorm:"column:payment_id;not null;index" json:"payment_id"`
	Payment   *Payment               `gorm:"foreignKey:PaymentID;constraint:OnDelete:RESTRICT" json:"-"`
	Type      statemachine.EventType `gorm:"column:type;type:varchar(32);not null;index" json:"type"`
	// PaymentSystem is set on gateway-originated events (pending, paid,
	// canceled, refunded) and nil on client-originated ones.
	PaymentSystem *string `gorm:"column:payment_system;type:varchar(32)" json:"payment_system"`
	// Payload carries the event-specific blob: the original purchase request
	// for created, the gateway session for pending, the full webhook body
	// for paid/canceled/refunded.
	Payload   datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

func (Event) TableName() string { return "event" }
