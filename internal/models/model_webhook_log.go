package models

import (
	"time"

	"gorm.io/datatypes"
)

type WebhookLogStatus string

const (
	WebhookLogStatusReceived     WebhookLogStatus = "received"
	WebhookLogStatusHandled      WebhookLogStatus = "handled"
	WebhookLogStatusHandleFailed WebhookLogStatus = "handle_failed"
)

// WebhookLog is the audit trail of inbound gateway notifications: one
// "received" row per delivery, then a "handled"/"handle_failed" row with the
// outcome. Used for problem diagnosis, never for state decisions.
type WebhookLog struct {
	ID            string           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	PaymentSystem string           `gorm:"column:payment_system;type:varchar(32);not null" json:"payment_system"`
	PaymentID     *int64           `gorm:"column:payment_id" json:"payment_id"`
	TraceID       string           `gorm:"column:trace_id;type:varchar(128)" json:"trace_id"`
	Event         string           `gorm:"column:event;type:varchar(64)" json:"event"`
	Data          datatypes.JSON   `gorm:"column:data;type:jsonb" json:"data"`
	Result        *datatypes.JSON  `gorm:"column:result;type:jsonb" json:"result"`
	Status        WebhookLogStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

func (WebhookLog) TableName() string { return "webhook_log" }
