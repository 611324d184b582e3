package models

import "time"

// PaymentProject is the per-(game, gateway) merchant configuration. The
// secret key verifies inbound webhook signatures and authenticates outbound
// API calls for that project.
type PaymentProject struct {
	ID            int64  `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	PaymentSystem string `gorm:"column:payment_system;type:varchar(32);not null;uniqueIndex:unique_system_game,priority:1" json:"payment_system"`
	GameID        string `gorm:"column:game_id;type:varchar(64);not null;uniqueIndex:unique_system_game,priority:2" json:"game_id"`
	// ProjectID is the gateway-assigned project/merchant/shop id.
	ProjectID string    `gorm:"column:project_id;type:varchar(64);not null;index" json:"project_id"`
	SecretKey string    `gorm:"column:secret_key;type:varchar(128);not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PaymentProject) TableName() string { return "payment_project" }
