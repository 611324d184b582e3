// Package xsolla is the raw HTTP client for the Xsolla merchant API. It
// knows endpoints and auth, nothing about payments semantics.
package xsolla

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

// ErrUnavailable marks transport failures and non-2xx replies. Callers treat
// them as retryable, never as client input errors.
var ErrUnavailable = errors.New("xsolla api unavailable")

type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.SugaredLogger
}

func NewClient(cfg *config.Config, log *zap.SugaredLogger) *Client {
	timeout := time.Duration(cfg.Xsolla.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: cfg.Xsolla.BaseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

type tokenResponse struct {
	Token string `json:"token"`
}

// CreateToken creates a checkout token for the given merchant project.
func (c *Client) CreateToken(ctx context.Context, merchantID, apiKey string, body any) (string, error) {
	url := fmt.Sprintf("%s/merchant/v2/merchants/%s/token", c.baseURL, merchantID)
	raw, err := c.do(ctx, http.MethodPost, url, merchantID, apiKey, body)
	if err != nil {
		return "", err
	}
	var res tokenResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return "", fmt.Errorf("%w: decoding token response: %v", ErrUnavailable, err)
	}
	if res.Token == "" {
		return "", fmt.Errorf("%w: empty token in response", ErrUnavailable)
	}
	return res.Token, nil
}

// TransactionSummary is one row of the simple transaction search report.
type TransactionSummary struct {
	ID         int64  `json:"id"`
	ExternalID string `json:"external_id"`
	Status     string `json:"status"`
}

// SearchTransactions runs the "simple search" report by external_id.
func (c *Client) SearchTransactions(ctx context.Context, merchantID, apiKey, externalID string) ([]TransactionSummary, error) {
	url := fmt.Sprintf("%s/merchant/v2/merchants/%s/reports/transactions/search.json?type=simple&external_id=%s",
		c.baseURL, merchantID, externalID)
	raw, err := c.do(ctx, http.MethodGet, url, merchantID, apiKey, nil)
	if err != nil {
		return nil, err
	}
	var res []TransactionSummary
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("%w: decoding search response: %v", ErrUnavailable, err)
	}
	return res, nil
}

// TransactionDetails fetches the full report row for one gateway transaction.
func (c *Client) TransactionDetails(ctx context.Context, merchantID, apiKey string, transactionID int64) (json.RawMessage, error) {
	url := fmt.Sprintf("%s/merchant/v2/merchants/%s/reports/transactions/%d/details",
		c.baseURL, merchantID, transactionID)
	return c.do(ctx, http.MethodGet, url, merchantID, apiKey, nil)
}

func (c *Client) do(ctx context.Context, method, url, merchantID, apiKey string, body any) (json.RawMessage, error) {
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
	req.SetBasicAuth(merchantID, apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warnw("xsolla_request_failed", "url", url, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warnw("xsolla_bad_status", "url", url, "status", resp.StatusCode, "body", string(raw))
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	return raw, nil
}
