// Package directory consumes the platform's game/player directory. Only the
// interface the payments core needs is defined here; the platform service
// owns the data. The default implementation reads the static registry from
// config, which is how deployments without the directory service run.
package directory

import (
	"context"
	"errors"

	"go.uber.org/fx"

	"github.com/agriev/we-sdk-payments/pkg/config"
)

var (
	ErrUnknownGame   = errors.New("game is not registered")
	ErrUnknownPlayer = errors.New("player not found")
)

type Directory interface {
	// GameSecret returns the per-game secret key used for request signing.
	GameSecret(ctx context.Context, gameID string) (string, error)
	// CallbackURL returns the game's result-callback endpoint, empty when unset.
	CallbackURL(ctx context.Context, gameID string) (string, error)
	// PlayerExists answers the gateways' user-validation checks.
	PlayerExists(ctx context.Context, playerID string) (bool, error)
	// ResolvePlayerToken maps a player auth token to a player id.
	ResolvePlayerToken(ctx context.Context, token string) (string, error)
}

type configDirectory struct {
	cfg *config.Config
}

func New(cfg *config.Config) Directory {
	return &configDirectory{cfg: cfg}
}

func (d *configDirectory) GameSecret(_ context.Context, gameID string) (string, error) {
	if g := d.cfg.GetGameByID(gameID); g != nil {
		return g.SecretKey, nil
	}
	return "", ErrUnknownGame
}

func (d *configDirectory) CallbackURL(_ context.Context, gameID string) (string, error) {
	if g := d.cfg.GetGameByID(gameID); g != nil {
		return g.CallbackURL, nil
	}
	return "", ErrUnknownGame
}

func (d *configDirectory) PlayerExists(_ context.Context, playerID string) (bool, error) {
	if playerID == "" {
		return false, nil
	}
	// Without a player registry configured every non-empty id is accepted;
	// the platform directory answers this in production.
	if len(d.cfg.PlayerTokens) == 0 {
		return true, nil
	}
	for _, id := range d.cfg.PlayerTokens {
		if id == playerID {
			return true, nil
		}
	}
	return false, nil
}

func (d *configDirectory) ResolvePlayerToken(_ context.Context, token string) (string, error) {
	if id, ok := d.cfg.PlayerTokens[token]; ok && id != "" {
		return id, nil
	}
	return "", ErrUnknownPlayer
}

var Module = fx.Options(
	fx.Provide(New),
)
