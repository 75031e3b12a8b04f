package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// ClickHouseBackend is the columnar analytical store. Write-only from the
// facade's point of view: analytical queries run out-of-band against the
// ClickHouse cluster, not through the indexer.
type ClickHouseBackend struct {
	conn   driver.Conn
	logger *slog.Logger
}

// NewClickHouseBackend opens a connection from a ClickHouse DSN
// (e.g. "clickhouse://localhost:9000/cypher_indexer") and verifies it.
func NewClickHouseBackend(ctx context.Context, dsn string, logger *slog.Logger) (*ClickHouseBackend, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	opts.DialTimeout = 10 * time.Second

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	logger.Info("connected to clickhouse", "addr", opts.Addr)
	return &ClickHouseBackend{conn: conn, logger: logger}, nil
}

func (b *ClickHouseBackend) Name() string { return "clickhouse" }

func (b *ClickHouseBackend) StoreAccount(ctx context.Context, rec *AccountRecord) error {
	return b.insert(ctx,
		"INSERT INTO accounts (address, owner, slot, kind, payload, blob_hash) VALUES (?, ?, ?, ?, ?, ?)",
		rec.Address, rec.Owner, rec.Slot, rec.Kind, string(rec.Payload), rec.BlobHash,
	)
}

func (b *ClickHouseBackend) StoreInstruction(ctx context.Context, rec *InstructionRecord) error {
	return b.insert(ctx,
		"INSERT INTO instructions (signature, slot, program_id, kind, payload) VALUES (?, ?, ?, ?, ?)",
		rec.Signature, rec.Slot, rec.ProgramID, rec.Kind, string(rec.Payload),
	)
}

func (b *ClickHouseBackend) StoreEvent(ctx context.Context, rec *EventRecord) error {
	return b.insert(ctx,
		"INSERT INTO events (signature, slot, kind, payload) VALUES (?, ?, ?, ?)",
		rec.Signature, rec.Slot, rec.Kind, string(rec.Payload),
	)
}

func (b *ClickHouseBackend) StoreTransaction(ctx context.Context, rec *TransactionRecord) error {
	var txErr string
	if rec.Err != nil {
		txErr = *rec.Err
	}
	return b.insert(ctx,
		"INSERT INTO transactions (signature, slot, block_time, err, addresses) VALUES (?, ?, ?, ?, ?)",
		rec.Signature, rec.Slot, rec.BlockTime, txErr, rec.Addresses,
	)
}

func (b *ClickHouseBackend) insert(ctx context.Context, query string, args ...any) error {
	if err := b.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("clickhouse insert: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (b *ClickHouseBackend) Close() error {
	return b.conn.Close()
}
