package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/cypherlabs/cypher-indexer/service/metrics"
	"github.com/cypherlabs/cypher-indexer/service/pipeline"
)

// LedgerClient is the slice of the RPC client the poller needs.
type LedgerClient interface {
	CurrentSlot(ctx context.Context) (uint64, error)
	FetchBlock(ctx context.Context, slot uint64) (*pipeline.Block, error)
}

// DefaultPollInterval is used when no interval is configured.
const DefaultPollInterval = 2 * time.Second

// BlockPoller walks confirmed blocks in ascending slot order. On each tick it
// catches up from the last processed slot to the chain tip. A block that
// cannot be fetched is retried on the next tick; processing never skips ahead
// past a failed slot.
type BlockPoller struct {
	client   LedgerClient
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics

	nextSlot uint64
}

// NewBlockPoller creates a poller. startSlot 0 means start from the current
// chain tip at first tick.
func NewBlockPoller(client LedgerClient, interval time.Duration, startSlot uint64, logger *slog.Logger, m *metrics.Metrics) *BlockPoller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &BlockPoller{
		client:   client,
		interval: interval,
		logger:   logger,
		metrics:  m,
		nextSlot: startSlot,
	}
}

func (p *BlockPoller) Name() string { return "poller" }

// Run polls until ctx is cancelled.
func (p *BlockPoller) Run(ctx context.Context, proc *pipeline.Processor) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.catchUp(ctx, proc); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				p.logger.WarnContext(ctx, "poll tick failed", "error", err)
			}
		}
	}
}

func (p *BlockPoller) catchUp(ctx context.Context, proc *pipeline.Processor) error {
	tip, err := p.client.CurrentSlot(ctx)
	if err != nil {
		return err
	}
	if p.nextSlot == 0 {
		p.nextSlot = tip
	}

	for p.nextSlot <= tip {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		block, err := p.client.FetchBlock(ctx, p.nextSlot)
		if err != nil {
			// Retried on the next tick so no slot is skipped.
			return err
		}
		if p.metrics != nil {
			p.metrics.RecordUnitIngested(p.Name(), "block")
		}
		res := proc.ProcessBlock(ctx, *block)
		if res.Status == pipeline.Failed {
			p.logger.ErrorContext(ctx, "block processing failed",
				"slot", p.nextSlot, "errors", len(res.Errs))
		}
		p.nextSlot++
	}
	return nil
}
