package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	solanago "github.com/gagliardetto/solana-go"

	"github.com/cypherlabs/cypher-indexer/service/metrics"
	"github.com/cypherlabs/cypher-indexer/service/pipeline"
	"github.com/cypherlabs/cypher-indexer/service/solana"
)

// TransactionFetcher resolves a log notification into a full transaction.
type TransactionFetcher interface {
	FetchTransaction(ctx context.Context, signature solanago.Signature) (*pipeline.Transaction, error)
}

// LogListener subscribes to live transaction logs mentioning the indexed
// programs. Each notification is resolved into a full transaction over RPC;
// when that fetch fails, the logs alone are still indexed so no event is
// lost.
type LogListener struct {
	subscriber solana.LogSubscriber
	fetcher    TransactionFetcher
	programs   []solanago.PublicKey
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewLogListener creates a listener for the given programs.
func NewLogListener(subscriber solana.LogSubscriber, fetcher TransactionFetcher, programs []solanago.PublicKey, logger *slog.Logger, m *metrics.Metrics) *LogListener {
	return &LogListener{
		subscriber: subscriber,
		fetcher:    fetcher,
		programs:   programs,
		logger:     logger,
		metrics:    m,
	}
}

func (l *LogListener) Name() string { return "stream" }

// Run opens one subscription per program and processes notifications until
// ctx is cancelled. A dropped subscription is reopened with backoff.
func (l *LogListener) Run(ctx context.Context, proc *pipeline.Processor) error {
	var wg sync.WaitGroup
	errCh := make(chan error, len(l.programs))

	for _, program := range l.programs {
		wg.Add(1)
		go func(program solanago.PublicKey) {
			defer wg.Done()
			errCh <- l.watchProgram(ctx, proc, program)
		}(program)
	}

	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return ctx.Err()
}

func (l *LogListener) watchProgram(ctx context.Context, proc *pipeline.Processor, program solanago.PublicKey) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		stream, err := l.subscriber.SubscribeLogs(ctx, program)
		if err != nil {
			l.logger.WarnContext(ctx, "log subscription failed, retrying",
				"program", program.String(), "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(5 * time.Second):
			}
			continue
		}

		l.logger.InfoContext(ctx, "subscribed to program logs", "program", program.String())
		err = l.consume(ctx, proc, stream)
		stream.Unsubscribe()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.logger.WarnContext(ctx, "log stream dropped, resubscribing",
			"program", program.String(), "error", err)
	}
}

func (l *LogListener) consume(ctx context.Context, proc *pipeline.Processor, stream solana.LogStream) error {
	for {
		result, err := stream.Recv(ctx)
		if err != nil {
			return err
		}
		if l.metrics != nil {
			l.metrics.RecordUnitIngested(l.Name(), "transaction")
		}

		signature := result.Value.Signature
		slot := result.Context.Slot

		tx, err := l.fetcher.FetchTransaction(ctx, signature)
		if err != nil {
			l.logger.WarnContext(ctx, "full transaction unavailable, indexing logs only",
				"signature", signature.String(), "error", err)
			proc.ProcessLogs(ctx, signature, slot, result.Value.Logs)
			continue
		}
		proc.ProcessTransaction(ctx, *tx)
	}
}
