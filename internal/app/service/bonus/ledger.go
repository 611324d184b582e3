// Package bonus fronts the player bonus-balance ledger. The payments core
// only reads balances and performs the webhook-triggered debit; crediting
// balances belongs to the platform.
package bonus

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agriev/we-sdk-payments/internal/models"
)

type Ledger struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewLedger(db *gorm.DB, log *zap.SugaredLogger) *Ledger {
	return &Ledger{db: db, log: log}
}

// Balance reads the player's current balance without locking. Used when
// computing the discount at session-creation time; the authoritative check
// happens again under lock when the paid webhook lands.
func (l *Ledger) Balance(ctx context.Context, playerID string) (decimal.Decimal, error) {
	var row models.BonusBalance
	err := l.db.WithContext(ctx).Where("player_id = ?", playerID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("load bonus balance: %w", err)
	}
	return row.Balance, nil
}

// Lock takes the player's balance row FOR UPDATE inside the caller's
// transaction, creating a zero row when none exists. This is the lock that
// serializes concurrent deliveries of the same paid webhook.
func (l *Ledger) Lock(tx *gorm.DB, playerID string) (*models.BonusBalance, error) {
	var row models.BonusBalance
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("player_id = ?", playerID).
		FirstOrCreate(&row, models.BonusBalance{PlayerID: playerID, Balance: decimal.Zero}).Error
	if err != nil {
		return nil, fmt.Errorf("lock bonus balance: %w", err)
	}
	return &row, nil
}

// SafeWithdraw debits up to amount from a row previously taken with Lock.
// The debit clamps at the available balance so it can never go negative.
// Returns the amount actually withdrawn.
func (l *Ledger) SafeWithdraw(tx *gorm.DB, row *models.BonusBalance, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.Sign() <= 0 {
		return decimal.Zero, nil
	}
	debit := decimal.Min(amount, row.Balance)
	if debit.Sign() <= 0 {
		return decimal.Zero, nil
	}
	newBalance := row.Balance.Sub(debit)
	if err := tx.Model(&models.BonusBalance{}).
		Where("id = ?", row.ID).
		Update("balance", newBalance).Error; err != nil {
		return decimal.Zero, fmt.Errorf("withdraw bonuses: %w", err)
	}
	row.Balance = newBalance
	l.log.Infow("bonuses_withdrawn", "player_id", row.PlayerID, "amount", debit.String(), "balance", newBalance.String())
	return debit, nil
}

var Module = fx.Options(
	fx.Provide(NewLedger),
)
