// Package solana wraps the ledger RPC and websocket endpoints behind narrow
// interfaces the rest of the indexer consumes, and converts wire-level
// transaction payloads into pipeline units.
package solana

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/cypherlabs/cypher-indexer/service/metrics"
	"github.com/cypherlabs/cypher-indexer/service/pipeline"
)

// RPCClient is an interface for the ledger RPC operations we need.
// This allows us to mock the RPC layer in tests without hitting real nodes.
type RPCClient interface {
	GetSlot(ctx context.Context, commitment rpc.CommitmentType) (uint64, error)

	GetBlockWithOpts(
		ctx context.Context,
		slot uint64,
		opts *rpc.GetBlockOpts,
	) (*rpc.GetBlockResult, error)

	GetTransaction(
		ctx context.Context,
		signature solana.Signature,
		opts *rpc.GetTransactionOpts,
	) (*rpc.GetTransactionResult, error)

	GetSignaturesForAddress(
		ctx context.Context,
		address solana.PublicKey,
		opts *rpc.GetSignaturesForAddressOpts,
	) ([]*rpc.TransactionSignature, error)
}

// Client provides block and transaction fetching with retries. It wraps the
// RPC client with the conversions the pipeline needs.
type Client struct {
	rpc      RPCClient
	logger   *slog.Logger
	metrics  *metrics.Metrics
	endpoint string // RPC endpoint identifier for metrics labels
}

// NewClient creates a new ledger client.
// If metrics is nil, no metrics will be recorded.
func NewClient(rpcClient RPCClient, endpoint string, m *metrics.Metrics, logger *slog.Logger) *Client {
	return &Client{
		rpc:      rpcClient,
		logger:   logger,
		metrics:  m,
		endpoint: endpoint,
	}
}

// CurrentSlot returns the latest confirmed slot.
func (c *Client) CurrentSlot(ctx context.Context) (uint64, error) {
	start := time.Now()
	slot, err := c.rpc.GetSlot(ctx, rpc.CommitmentConfirmed)
	c.recordCall("GetSlot", start, err)
	if err != nil {
		return 0, fmt.Errorf("get slot: %w", err)
	}
	return slot, nil
}

// FetchBlock fetches a confirmed block and converts its transactions into
// pipeline units. Transactions whose payload cannot be decoded are skipped
// with a warning rather than failing the block.
func (c *Client) FetchBlock(ctx context.Context, slot uint64) (*pipeline.Block, error) {
	maxVersion := uint64(0)
	includeRewards := false
	opts := &rpc.GetBlockOpts{
		Encoding:                       solana.EncodingBase64,
		TransactionDetails:             rpc.TransactionDetailsFull,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVersion,
		Rewards:                        &includeRewards,
	}

	result, err := c.getBlockWithRetry(ctx, slot, opts)
	if err != nil {
		return nil, fmt.Errorf("get block %d: %w", slot, err)
	}

	block := &pipeline.Block{Slot: slot}
	for i := range result.Transactions {
		txm := &result.Transactions[i]
		tx, err := txm.GetTransaction()
		if err != nil {
			c.logger.WarnContext(ctx, "skipping undecodable transaction in block",
				"slot", slot, "index", i, "error", err)
			continue
		}
		unit := convertTransaction(slot, result.BlockTime, tx, txm.Meta)
		block.Transactions = append(block.Transactions, unit)
	}

	c.logger.DebugContext(ctx, "fetched block",
		"slot", slot, "transactions", len(block.Transactions))

	return block, nil
}

// FetchTransaction fetches and converts a single transaction by signature.
func (c *Client) FetchTransaction(ctx context.Context, signature solana.Signature) (*pipeline.Transaction, error) {
	maxVersion := uint64(0)
	opts := &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVersion,
	}

	start := time.Now()
	result, err := c.rpc.GetTransaction(ctx, signature, opts)
	c.recordCall("GetTransaction", start, err)
	if err != nil {
		return nil, fmt.Errorf("get transaction %s: %w", signature, err)
	}
	if result == nil || result.Transaction == nil {
		return nil, fmt.Errorf("transaction %s not found", signature)
	}

	tx, err := result.Transaction.GetTransaction()
	if err != nil {
		return nil, fmt.Errorf("decode transaction %s: %w", signature, err)
	}

	unit := convertTransaction(result.Slot, result.BlockTime, tx, result.Meta)
	return &unit, nil
}

// ListSignatures returns up to limit signatures that mention address, newest
// first, stopping at until when set. Used by the backfill command.
func (c *Client) ListSignatures(ctx context.Context, address solana.PublicKey, limit int, until *solana.Signature) ([]*rpc.TransactionSignature, error) {
	opts := &rpc.GetSignaturesForAddressOpts{Limit: &limit}
	if until != nil {
		opts.Until = *until
	}

	start := time.Now()
	sigs, err := c.rpc.GetSignaturesForAddress(ctx, address, opts)
	c.recordCall("GetSignaturesForAddress", start, err)
	if err != nil {
		return nil, fmt.Errorf("get signatures for %s: %w", address, err)
	}
	return sigs, nil
}

// getBlockWithRetry retries transient block fetch failures with exponential
// backoff. Rate limiting (429) gets a longer backoff than other errors.
func (c *Client) getBlockWithRetry(ctx context.Context, slot uint64, opts *rpc.GetBlockOpts) (*rpc.GetBlockResult, error) {
	const maxAttempts = 3

	var result *rpc.GetBlockResult
	var err error
	for attempt := range maxAttempts {
		start := time.Now()
		result, err = c.rpc.GetBlockWithOpts(ctx, slot, opts)
		c.recordCall("GetBlock", start, err)
		if err == nil {
			return result, nil
		}

		backoff := time.Duration(1<<uint(attempt)) * time.Second
		reason := "timeout_or_error"
		if strings.Contains(err.Error(), "429") {
			backoff = time.Duration(2<<uint(attempt)) * time.Second
			reason = "rate_limit"
		}
		if c.metrics != nil {
			c.metrics.RecordRPCRetry("GetBlock", reason)
		}
		c.logger.WarnContext(ctx, "block fetch failed, retrying",
			"slot", slot,
			"attempt", attempt+1,
			"backoff_seconds", backoff.Seconds(),
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, err
}

func (c *Client) recordCall(method string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordRPCCall(method, status, c.endpoint, time.Since(start).Seconds())
}
