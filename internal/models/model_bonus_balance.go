package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BonusBalance is the player's virtual-currency ledger row. It is the only
// row the payments core locks explicitly (SELECT ... FOR UPDATE) so a paid
// webhook delivered twice can never debit twice.
type BonusBalance struct {
	ID        int64           `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	PlayerID  string          `gorm:"column:player_id;type:varchar(64);not null;uniqueIndex" json:"player_id"`
	Balance   decimal.Decimal `gorm:"column:balance;type:numeric(12,2);not null;default:0" json:"balance"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (BonusBalance) TableName() string { return "bonus_balance" }
