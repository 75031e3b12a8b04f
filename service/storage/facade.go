package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cypherlabs/cypher-indexer/service/decode"
	"github.com/cypherlabs/cypher-indexer/service/metrics"
)

// DefaultCacheTTL bounds how long a cache entry may serve reads before the
// next read is forced back to the read-of-record backend. There is no
// stale-but-serve state.
const DefaultCacheTTL = 3600 * time.Second

// Backend is a durable write target. Every configured backend receives every
// record (fan-out).
type Backend interface {
	Name() string
	StoreAccount(ctx context.Context, rec *AccountRecord) error
	StoreInstruction(ctx context.Context, rec *InstructionRecord) error
	StoreEvent(ctx context.Context, rec *EventRecord) error
	StoreTransaction(ctx context.Context, rec *TransactionRecord) error
}

// Reader is the single read-of-record backend. Reads deliberately go to one
// authoritative durable store; treating two backends as equally authoritative
// invites split-brain answers.
type Reader interface {
	Name() string
	GetAccount(ctx context.Context, address string) (*AccountRecord, error)
	GetTransaction(ctx context.Context, signature string) (*TransactionRecord, error)
	GetTransactionsByAddress(ctx context.Context, address string, limit int) ([]*TransactionRecord, error)
}

// Cache is the fast key-value layer on the read path. A miss is the false
// bool result from the Get methods, not an error.
type Cache interface {
	GetAccount(ctx context.Context, address string) (*AccountRecord, bool, error)
	SetAccount(ctx context.Context, rec *AccountRecord, ttl time.Duration) error
	GetTransaction(ctx context.Context, signature string) (*TransactionRecord, bool, error)
	SetTransaction(ctx context.Context, rec *TransactionRecord, ttl time.Duration) error
}

// BlobStore archives opaque payloads by content hash.
type BlobStore interface {
	Put(ctx context.Context, data []byte) (string, error)
	Get(ctx context.Context, hash string) ([]byte, error)
}

// Facade composes the independent backend clients behind one write/read API.
// It is a cheap handle: copies share the same underlying clients and pools.
type Facade struct {
	backends []Backend
	reader   Reader
	cache    Cache
	blobs    BlobStore
	ttl      time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Options configures optional facade collaborators.
type Options struct {
	Cache    Cache
	Blobs    BlobStore
	CacheTTL time.Duration
	Metrics  *metrics.Metrics
}

// NewFacade wires the fan-out set, the read-of-record backend, and the
// optional cache/blob layers.
func NewFacade(backends []Backend, reader Reader, logger *slog.Logger, opts Options) *Facade {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Facade{
		backends: backends,
		reader:   reader,
		cache:    opts.Cache,
		blobs:    opts.Blobs,
		ttl:      ttl,
		logger:   logger,
		metrics:  opts.Metrics,
	}
}

// fanOut applies op to every backend. Policy is best-effort: each backend is
// attempted regardless of sibling failures, because the backends have
// independent availability and one slow analytical store must not block the
// ingestion path. All failures are collected and returned joined; a non-nil
// return can therefore still mean partial success.
func (f *Facade) fanOut(ctx context.Context, op string, fn func(Backend) error) error {
	var errs []error
	for _, b := range f.backends {
		start := time.Now()
		err := fn(b)
		if f.metrics != nil {
			f.metrics.RecordBackendWrite(b.Name(), op, time.Since(start).Seconds(), err)
		}
		if err != nil {
			f.logger.ErrorContext(ctx, "backend write failed",
				"backend", b.Name(),
				"op", op,
				"error", err,
			)
			errs = append(errs, &BackendError{Backend: b.Name(), Op: op, Err: err})
		}
	}
	return errors.Join(errs...)
}

// StoreAccount persists a decoded account to every durable backend. Raw bytes
// of unknown-layout accounts are archived in the blob store first so the
// durable rows can reference them by content hash.
func (f *Facade) StoreAccount(ctx context.Context, acct decode.ParsedAccount, slot uint64) error {
	rec, err := buildAccountRecord(acct, slot)
	if err != nil {
		return err
	}

	if unknown, ok := acct.(*decode.UnknownAccount); ok && f.blobs != nil && len(unknown.Data) > 0 {
		hash, err := f.blobs.Put(ctx, unknown.Data)
		if err != nil {
			// Blob archival is an enrichment; the durable row still lands.
			f.logger.WarnContext(ctx, "blob archive failed", "address", rec.Address, "error", err)
		} else {
			rec.BlobHash = hash
		}
	}

	return f.fanOut(ctx, "store_account", func(b Backend) error {
		return b.StoreAccount(ctx, rec)
	})
}

// StoreInstruction persists a decoded instruction keyed by (signature, slot,
// program).
func (f *Facade) StoreInstruction(ctx context.Context, ix decode.ParsedInstruction, slot uint64, signature string) error {
	rec, err := buildInstructionRecord(ix, slot, signature)
	if err != nil {
		return err
	}
	return f.fanOut(ctx, "store_instruction", func(b Backend) error {
		return b.StoreInstruction(ctx, rec)
	})
}

// StoreEvent persists a decoded log event keyed by (signature, slot).
func (f *Facade) StoreEvent(ctx context.Context, ev decode.ParsedEvent, slot uint64, signature string) error {
	rec, err := buildEventRecord(ev, slot, signature)
	if err != nil {
		return err
	}
	return f.fanOut(ctx, "store_event", func(b Backend) error {
		return b.StoreEvent(ctx, rec)
	})
}

// StoreTransaction persists the per-transaction summary row.
func (f *Facade) StoreTransaction(ctx context.Context, rec *TransactionRecord) error {
	return f.fanOut(ctx, "store_transaction", func(b Backend) error {
		return b.StoreTransaction(ctx, rec)
	})
}

// GetAccount serves the cache-aside read path: cache hit returns immediately;
// a miss reads the read-of-record backend, populates the cache with the
// configured TTL, and returns. Population is write-through to the cache only.
func (f *Facade) GetAccount(ctx context.Context, address string) (*AccountRecord, error) {
	if f.cache != nil {
		rec, ok, err := f.cache.GetAccount(ctx, address)
		if err != nil {
			f.logger.WarnContext(ctx, "cache read failed", "address", address, "error", err)
		} else if ok {
			f.recordCache("account", true)
			return rec, nil
		} else {
			f.recordCache("account", false)
		}
	}

	rec, err := f.reader.GetAccount(ctx, address)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, &BackendError{Backend: f.reader.Name(), Op: "get_account", Err: err}
	}

	if f.cache != nil {
		if err := f.cache.SetAccount(ctx, rec, f.ttl); err != nil {
			f.logger.WarnContext(ctx, "cache populate failed", "address", address, "error", err)
		}
	}
	return rec, nil
}

// GetTransaction is the cache-aside read path for transaction summaries.
func (f *Facade) GetTransaction(ctx context.Context, signature string) (*TransactionRecord, error) {
	if f.cache != nil {
		rec, ok, err := f.cache.GetTransaction(ctx, signature)
		if err != nil {
			f.logger.WarnContext(ctx, "cache read failed", "signature", signature, "error", err)
		} else if ok {
			f.recordCache("transaction", true)
			return rec, nil
		} else {
			f.recordCache("transaction", false)
		}
	}

	rec, err := f.reader.GetTransaction(ctx, signature)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, &BackendError{Backend: f.reader.Name(), Op: "get_transaction", Err: err}
	}

	if f.cache != nil {
		if err := f.cache.SetTransaction(ctx, rec, f.ttl); err != nil {
			f.logger.WarnContext(ctx, "cache populate failed", "signature", signature, "error", err)
		}
	}
	return rec, nil
}

// GetTransactionsByAddress lists recent transactions touching address,
// straight from the read-of-record backend. List results are not cached: the
// result set changes with every ingested transaction.
func (f *Facade) GetTransactionsByAddress(ctx context.Context, address string, limit int) ([]*TransactionRecord, error) {
	recs, err := f.reader.GetTransactionsByAddress(ctx, address, limit)
	if err != nil {
		return nil, &BackendError{Backend: f.reader.Name(), Op: "get_transactions_by_address", Err: err}
	}
	return recs, nil
}

// GetBlob fetches archived raw bytes by content hash.
func (f *Facade) GetBlob(ctx context.Context, hash string) ([]byte, error) {
	if f.blobs == nil {
		return nil, ErrNotFound
	}
	return f.blobs.Get(ctx, hash)
}

func (f *Facade) recordCache(kind string, hit bool) {
	if f.metrics != nil {
		f.metrics.RecordCacheLookup(kind, hit)
	}
}
