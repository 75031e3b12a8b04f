// Package client is the Go client for the indexer query API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// ErrNotFound is returned when the queried account or transaction has not
// been indexed.
var ErrNotFound = errors.New("not found")

// Account is an indexed account record.
type Account struct {
	Address  string          `json:"address"`
	Owner    string          `json:"owner,omitempty"`
	Slot     uint64          `json:"slot"`
	Kind     string          `json:"kind"`
	Payload  json.RawMessage `json:"payload"`
	BlobHash string          `json:"blob_hash,omitempty"`
}

// Transaction is an indexed transaction summary.
type Transaction struct {
	Signature string    `json:"signature"`
	Slot      uint64    `json:"slot"`
	BlockTime time.Time `json:"block_time"`
	Err       *string   `json:"err,omitempty"`
	Addresses []string  `json:"addresses,omitempty"`
}

// StateEntry is a live in-memory account summary.
type StateEntry struct {
	Address string `json:"address"`
	Kind    string `json:"kind"`
	Slot    uint64 `json:"slot"`
}

// Client is the HTTP client for the indexer query API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new query API client.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// GetAccount retrieves the latest indexed record for an account.
func (c *Client) GetAccount(ctx context.Context, address string) (*Account, error) {
	u := fmt.Sprintf("%s/api/v1/accounts/%s", c.baseURL, url.PathEscape(address))

	var account Account
	if err := c.getJSON(ctx, u, &account); err != nil {
		return nil, err
	}

	c.logger.Debug("account retrieved", "address", address, "kind", account.Kind)
	return &account, nil
}

// GetTransaction retrieves an indexed transaction by signature.
func (c *Client) GetTransaction(ctx context.Context, signature string) (*Transaction, error) {
	u := fmt.Sprintf("%s/api/v1/transactions/%s", c.baseURL, url.PathEscape(signature))

	var txn Transaction
	if err := c.getJSON(ctx, u, &txn); err != nil {
		return nil, err
	}

	c.logger.Debug("transaction retrieved", "signature", signature, "slot", txn.Slot)
	return &txn, nil
}

// ListTransactions retrieves recent transactions mentioning an address,
// newest first. A limit of 0 uses the server default.
func (c *Client) ListTransactions(ctx context.Context, address string, limit int) ([]*Transaction, error) {
	u := fmt.Sprintf("%s/api/v1/accounts/%s/transactions", c.baseURL, url.PathEscape(address))
	if limit > 0 {
		u = fmt.Sprintf("%s?limit=%d", u, limit)
	}

	var page struct {
		Address      string         `json:"address"`
		Transactions []*Transaction `json:"transactions"`
	}
	if err := c.getJSON(ctx, u, &page); err != nil {
		return nil, err
	}

	c.logger.Debug("transactions listed", "address", address, "count", len(page.Transactions))
	return page.Transactions, nil
}

// ListState retrieves live in-memory accounts of one kind from the indexer's
// state table. Intended for operational inspection.
func (c *Client) ListState(ctx context.Context, kind string) ([]*StateEntry, error) {
	u := fmt.Sprintf("%s/api/v1/state/accounts?kind=%s", c.baseURL, url.QueryEscape(kind))

	var page struct {
		Kind     string        `json:"kind"`
		Count    int           `json:"count"`
		Accounts []*StateEntry `json:"accounts"`
	}
	if err := c.getJSON(ctx, u, &page); err != nil {
		return nil, err
	}

	c.logger.Debug("state listed", "kind", kind, "count", page.Count)
	return page.Accounts, nil
}

func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return c.parseErrorResponse(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) parseErrorResponse(resp *http.Response) error {
	var errResp struct {
		Error string `json:"error"`
	}

	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return fmt.Errorf("request failed: %s", errResp.Error)
}
