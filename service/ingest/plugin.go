package ingest

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gagliardetto/solana-go"

	"github.com/cypherlabs/cypher-indexer/service/metrics"
	"github.com/cypherlabs/cypher-indexer/service/pipeline"
)

// ErrQueueFull is returned by OnAccountUpdate when the bounded queue is at
// capacity. The caller decides whether to drop or retry.
var ErrQueueFull = errors.New("ingest: plugin queue full")

// DefaultQueueSize bounds the plugin queue when no size is configured.
const DefaultQueueSize = 1000

// PluginAdapter receives account updates pushed synchronously from an
// embedding host (a validator-side plugin). The callback copies the payload
// before enqueueing, so the host may reuse its buffers immediately after
// OnAccountUpdate returns. A single worker drains the queue in FIFO order.
type PluginAdapter struct {
	queue   chan pipeline.AccountUpdate
	owners  map[solana.PublicKey]struct{}
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewPluginAdapter creates a plugin adapter with the given queue capacity.
// When owners is non-empty, updates for accounts owned by other programs are
// discarded at the callback.
func NewPluginAdapter(queueSize int, owners []solana.PublicKey, logger *slog.Logger, m *metrics.Metrics) *PluginAdapter {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	allow := make(map[solana.PublicKey]struct{}, len(owners))
	for _, o := range owners {
		allow[o] = struct{}{}
	}
	return &PluginAdapter{
		queue:   make(chan pipeline.AccountUpdate, queueSize),
		owners:  allow,
		logger:  logger,
		metrics: m,
	}
}

func (a *PluginAdapter) Name() string { return "plugin" }

// OnAccountUpdate is the push callback invoked by the embedding host. It
// never blocks: a full queue returns ErrQueueFull and the update is dropped.
// The data slice is deep-copied before this function returns.
func (a *PluginAdapter) OnAccountUpdate(address, owner solana.PublicKey, data []byte, slot uint64) error {
	if len(a.owners) > 0 {
		if _, ok := a.owners[owner]; !ok {
			return nil
		}
	}

	cp := make([]byte, len(data))
	copy(cp, data)
	u := pipeline.AccountUpdate{
		Address: address,
		Owner:   owner,
		Data:    cp,
		Slot:    slot,
	}

	select {
	case a.queue <- u:
		if a.metrics != nil {
			a.metrics.RecordUnitIngested(a.Name(), "account")
			a.metrics.SetPluginQueueDepth(len(a.queue))
		}
		return nil
	default:
		if a.metrics != nil {
			a.metrics.RecordUnitDropped(a.Name(), "account")
		}
		return ErrQueueFull
	}
}

// Run drains the queue until ctx is cancelled. Processing failures are
// logged and the worker moves on to the next update.
func (a *PluginAdapter) Run(ctx context.Context, proc *pipeline.Processor) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u := <-a.queue:
			if a.metrics != nil {
				a.metrics.SetPluginQueueDepth(len(a.queue))
			}
			if err := proc.ProcessAccountUpdate(ctx, u); err != nil {
				a.logger.WarnContext(ctx, "failed to process account update",
					"address", u.Address.String(),
					"slot", u.Slot,
					"error", err,
				)
			}
		}
	}
}
