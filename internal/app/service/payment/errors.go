package payment

import "errors"

var (
	// ErrNotFound means no payment matches the given id or token.
	ErrNotFound = errors.New("payment not found")
	// ErrAmountMismatch means purchase.amount differs from the items total.
	ErrAmountMismatch = errors.New("cost of all purchased items is not equal to the total purchase cost")
	// ErrInvalidState rejects a developer state update whose source-state
	// guard fails.
	ErrInvalidState = errors.New("invalid state")
	// ErrPlayerMismatch means the authenticated player does not own the payment.
	ErrPlayerMismatch = errors.New("payment belongs to another player")
	// ErrUnknownSystem rejects a payment system name outside the registry.
	ErrUnknownSystem = errors.New("unknown payment system")
	// ErrUnknownPlayer rejects a purchase for a player the directory does not know.
	ErrUnknownPlayer = errors.New("player not found")
	// ErrProjectNotFound means no gateway project is configured for the game.
	ErrProjectNotFound = errors.New("payment project is not configured for this game")
)
