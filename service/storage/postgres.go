package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBackend mirrors indexed records into Postgres. It is an optional
// durable sink for deployments that want relational access alongside the
// analytical store.
type PostgresBackend struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresBackend connects to Postgres and verifies the connection.
func NewPostgresBackend(ctx context.Context, dsn string, logger *slog.Logger) (*PostgresBackend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	logger.Info("connected to postgres")
	return &PostgresBackend{pool: pool, logger: logger}, nil
}

func (b *PostgresBackend) Name() string { return "postgres" }

func (b *PostgresBackend) StoreAccount(ctx context.Context, rec *AccountRecord) error {
	_, err := b.pool.Exec(ctx, `
		INSERT INTO accounts (address, owner, slot, kind, payload, blob_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (address, slot) DO UPDATE
		SET owner = EXCLUDED.owner, kind = EXCLUDED.kind,
		    payload = EXCLUDED.payload, blob_hash = EXCLUDED.blob_hash`,
		rec.Address, rec.Owner, rec.Slot, rec.Kind, rec.Payload, rec.BlobHash,
	)
	if err != nil {
		return fmt.Errorf("insert account %s: %w", rec.Address, err)
	}
	return nil
}

func (b *PostgresBackend) StoreInstruction(ctx context.Context, rec *InstructionRecord) error {
	_, err := b.pool.Exec(ctx, `
		INSERT INTO instructions (signature, slot, program_id, kind, payload)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT DO NOTHING`,
		rec.Signature, rec.Slot, rec.ProgramID, rec.Kind, rec.Payload,
	)
	if err != nil {
		return fmt.Errorf("insert instruction %s: %w", rec.Signature, err)
	}
	return nil
}

func (b *PostgresBackend) StoreEvent(ctx context.Context, rec *EventRecord) error {
	_, err := b.pool.Exec(ctx, `
		INSERT INTO events (signature, slot, kind, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING`,
		rec.Signature, rec.Slot, rec.Kind, rec.Payload,
	)
	if err != nil {
		return fmt.Errorf("insert event %s: %w", rec.Signature, err)
	}
	return nil
}

func (b *PostgresBackend) StoreTransaction(ctx context.Context, rec *TransactionRecord) error {
	_, err := b.pool.Exec(ctx, `
		INSERT INTO transactions (signature, slot, block_time, err, addresses)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (signature) DO NOTHING`,
		rec.Signature, rec.Slot, rec.BlockTime, rec.Err, rec.Addresses,
	)
	if err != nil {
		return fmt.Errorf("insert transaction %s: %w", rec.Signature, err)
	}
	return nil
}

// Close releases the connection pool.
func (b *PostgresBackend) Close() {
	b.pool.Close()
}
