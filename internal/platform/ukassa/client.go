// Package ukassa is the raw HTTP client for the YooKassa (Ukassa) API.
package ukassa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/agriev/we-sdk-payments/pkg/config"
)

// ErrUnavailable marks transport failures and non-2xx replies.
var ErrUnavailable = errors.New("ukassa api unavailable")

type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.SugaredLogger
}

func NewClient(cfg *config.Config, log *zap.SugaredLogger) *Client {
	timeout := time.Duration(cfg.Ukassa.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: cfg.Ukassa.BaseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// CreatePayment creates a payment with an embedded confirmation token. The
// Idempotence-Key header makes gateway-side session creation replay-safe.
func (c *Client) CreatePayment(ctx context.Context, shopID, secretKey, idempotenceKey string, body any) (json.RawMessage, error) {
	url := c.baseURL + "/payments"
	headers := map[string]string{"Idempotence-Key": idempotenceKey}
	return c.do(ctx, http.MethodPost, url, shopID, secretKey, headers, body)
}

// GetPayment fetches one payment object by the gateway-assigned id.
func (c *Client) GetPayment(ctx context.Context, shopID, secretKey, paymentID string) (json.RawMessage, error) {
	url := c.baseURL + "/payments/" + paymentID
	return c.do(ctx, http.MethodGet, url, shopID, secretKey, nil, nil)
}

type refundList struct {
	Items []json.RawMessage `json:"items"`
}

// ListRefunds returns the refund objects attached to a gateway payment.
func (c *Client) ListRefunds(ctx context.Context, shopID, secretKey, paymentID string) ([]json.RawMessage, error) {
	url := c.baseURL + "/refunds?payment_id=" + paymentID
	raw, err := c.do(ctx, http.MethodGet, url, shopID, secretKey, nil, nil)
	if err != nil {
		return nil, err
	}
	var res refundList
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("%w: decoding refund list: %v", ErrUnavailable, err)
	}
	return res.Items, nil
}

func (c *Client) do(ctx context.Context, method, url, shopID, secretKey string, headers map[string]string, body any) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(shopID, secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warnw("ukassa_request_failed", "url", url, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warnw("ukassa_bad_status", "url", url, "status", resp.StatusCode, "body", string(raw))
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	return raw, nil
}
