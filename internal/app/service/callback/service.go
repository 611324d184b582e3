// Package callback delivers payment results to the game developer's backend.
// Delivery is best effort: the payment's own state never depends on whether
// the game heard about it, and failures are only logged.
package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/agriev/we-sdk-payments/internal/app/service/directory"
	"github.com/agriev/we-sdk-payments/internal/models"
	"github.com/agriev/we-sdk-payments/pkg/signature"
)

const (
	attempts       = 3
	attemptTimeout = 5 * time.Second
	retryDelay     = time.Second
)

type Notifier struct {
	dir  directory.Directory
	http *http.Client
	log  *zap.SugaredLogger
}

func NewNotifier(dir directory.Directory, log *zap.SugaredLogger) *Notifier {
	return &Notifier{
		dir:  dir,
		http: &http.Client{Timeout: attemptTimeout},
		log:  log,
	}
}

type resultBody struct {
	TransactionID int64  `json:"transaction_id"`
	State         string `json:"state"`
}

// Notify posts the payment's new state to the game's callback URL in the
// background. Games without a configured URL are skipped.
func (n *Notifier) Notify(p *models.Payment) {
	go n.deliver(p.GameID, p.ID, string(p.State))
}

func (n *Notifier) deliver(gameID string, transactionID int64, state string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(attempts)*(attemptTimeout+retryDelay))
	defer cancel()

	url, err := n.dir.CallbackURL(ctx, gameID)
	if err != nil || url == "" {
		return
	}
	secret, err := n.dir.GameSecret(ctx, gameID)
	if err != nil {
		n.log.Warnw("callback skipped, no game secret", "game_id", gameID, "err", err)
		return
	}

	body, err := json.Marshal(resultBody{TransactionID: transactionID, State: state})
	if err != nil {
		n.log.Errorw("callback body marshal failed", "game_id", gameID, "err", err)
		return
	}

	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryDelay):
			}
		}
		if n.post(ctx, url, secret, body) {
			return
		}
	}
	n.log.Warnw("callback delivery failed",
		"game_id", gameID, "transaction_id", transactionID, "state", state, "attempts", attempts)
}

func (n *Notifier) post(ctx context.Context, url, secret string, body []byte) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Signature "+signature.HMACSHA256(body, secret))

	res, err := n.http.Do(req)
	if err != nil {
		return false
	}
	defer res.Body.Close()
	return res.StatusCode >= 200 && res.StatusCode < 300
}

var Module = fx.Options(
	fx.Provide(NewNotifier),
)
