// Package ingest contains the ingestion adapters that feed the pipeline:
// an in-process push-callback adapter, a websocket log listener, and a
// block poller. Adapters run until their context is cancelled and never
// stop on per-unit failures.
package ingest

import (
	"context"

	"github.com/cypherlabs/cypher-indexer/service/pipeline"
)

// Source is an ingestion adapter. Run blocks until ctx is cancelled or the
// adapter hits an unrecoverable error.
type Source interface {
	Name() string
	Run(ctx context.Context, proc *pipeline.Processor) error
}
