package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"

	"cloud.google.com/go/bigtable"
)

// Bigtable table and column family names.
const (
	accountTable     = "accounts"
	transactionTable = "transactions"
	instructionTable = "instructions"
	eventTable       = "events"
	txByAddressTable = "tx_by_address"

	recordFamily = "d"
	recordColumn = "rec"
)

// BigtableBackend is the wide-column store. It is both a fan-out write target
// and the read-of-record for the query path: row lookups by exact key are what
// Bigtable is good at, which is exactly the shape of GetAccount and
// GetTransaction.
type BigtableBackend struct {
	client *bigtable.Client
	logger *slog.Logger

	accounts     *bigtable.Table
	transactions *bigtable.Table
	instructions *bigtable.Table
	events       *bigtable.Table
	txByAddress  *bigtable.Table
}

// NewBigtableBackend opens the Bigtable data client for the given project,
// instance, and app profile.
func NewBigtableBackend(ctx context.Context, project, instance, appProfile string, logger *slog.Logger) (*BigtableBackend, error) {
	client, err := bigtable.NewClientWithConfig(ctx, project, instance, bigtable.ClientConfig{AppProfile: appProfile})
	if err != nil {
		return nil, fmt.Errorf("open bigtable client: %w", err)
	}

	logger.Info("connected to bigtable", "project", project, "instance", instance)
	return &BigtableBackend{
		client:       client,
		logger:       logger,
		accounts:     client.Open(accountTable),
		transactions: client.Open(transactionTable),
		instructions: client.Open(instructionTable),
		events:       client.Open(eventTable),
		txByAddress:  client.Open(txByAddressTable),
	}, nil
}

// NewBigtableBackendFromClient wraps an already-open data client. Used by
// tests running against the emulator.
func NewBigtableBackendFromClient(client *bigtable.Client, logger *slog.Logger) *BigtableBackend {
	return &BigtableBackend{
		client:       client,
		logger:       logger,
		accounts:     client.Open(accountTable),
		transactions: client.Open(transactionTable),
		instructions: client.Open(instructionTable),
		events:       client.Open(eventTable),
		txByAddress:  client.Open(txByAddressTable),
	}
}

func (b *BigtableBackend) Name() string { return "bigtable" }

func (b *BigtableBackend) apply(ctx context.Context, tbl *bigtable.Table, rowKey string, ts bigtable.Timestamp, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal row %s: %w", rowKey, err)
	}
	mut := bigtable.NewMutation()
	mut.Set(recordFamily, recordColumn, ts, payload)
	if err := tbl.Apply(ctx, rowKey, mut); err != nil {
		return fmt.Errorf("apply row %s: %w", rowKey, err)
	}
	return nil
}

// slotTimestamp maps a slot onto a cell timestamp (millisecond granularity,
// so reads ordered by cell version are ordered by slot).
func slotTimestamp(slot uint64) bigtable.Timestamp {
	return bigtable.Timestamp(slot * 1000)
}

// StoreAccount writes account state at row key address. Cells are stamped
// with a slot-derived timestamp rather than wall time: updates can arrive out
// of slot order, and readers must take the highest slot, not the latest
// arrival.
func (b *BigtableBackend) StoreAccount(ctx context.Context, rec *AccountRecord) error {
	return b.apply(ctx, b.accounts, rec.Address, slotTimestamp(rec.Slot), rec)
}

func (b *BigtableBackend) StoreInstruction(ctx context.Context, rec *InstructionRecord) error {
	rowKey := fmt.Sprintf("%s#%020d#%s", rec.Signature, rec.Slot, rec.ProgramID)
	return b.apply(ctx, b.instructions, rowKey, bigtable.Now(), rec)
}

func (b *BigtableBackend) StoreEvent(ctx context.Context, rec *EventRecord) error {
	rowKey := fmt.Sprintf("%s#%020d#%s", rec.Signature, rec.Slot, rec.Kind)
	return b.apply(ctx, b.events, rowKey, bigtable.Now(), rec)
}

// StoreTransaction writes the summary row and one index row per involved
// address. Index rows embed the full record so address listings need no
// second lookup; their keys use an inverted slot so a prefix scan returns
// newest first.
func (b *BigtableBackend) StoreTransaction(ctx context.Context, rec *TransactionRecord) error {
	if err := b.apply(ctx, b.transactions, rec.Signature, bigtable.Now(), rec); err != nil {
		return err
	}
	for _, addr := range rec.Addresses {
		rowKey := fmt.Sprintf("%s#%020d#%s", addr, math.MaxUint64-rec.Slot, rec.Signature)
		if err := b.apply(ctx, b.txByAddress, rowKey, bigtable.Now(), rec); err != nil {
			return err
		}
	}
	return nil
}

func (b *BigtableBackend) readRow(ctx context.Context, tbl *bigtable.Table, rowKey string, out any) error {
	row, err := tbl.ReadRow(ctx, rowKey, bigtable.RowFilter(bigtable.LatestNFilter(1)))
	if err != nil {
		return fmt.Errorf("read row %s: %w", rowKey, err)
	}
	items := row[recordFamily]
	if len(items) == 0 {
		return ErrNotFound
	}
	if err := json.Unmarshal(items[0].Value, out); err != nil {
		return fmt.Errorf("unmarshal row %s: %w", rowKey, err)
	}
	return nil
}

func (b *BigtableBackend) GetAccount(ctx context.Context, address string) (*AccountRecord, error) {
	rec := &AccountRecord{}
	if err := b.readRow(ctx, b.accounts, address, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (b *BigtableBackend) GetTransaction(ctx context.Context, signature string) (*TransactionRecord, error) {
	rec := &TransactionRecord{}
	if err := b.readRow(ctx, b.transactions, signature, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (b *BigtableBackend) GetTransactionsByAddress(ctx context.Context, address string, limit int) ([]*TransactionRecord, error) {
	var recs []*TransactionRecord
	var scanErr error

	err := b.txByAddress.ReadRows(ctx, bigtable.PrefixRange(address+"#"),
		func(row bigtable.Row) bool {
			items := row[recordFamily]
			if len(items) == 0 {
				return true
			}
			rec := &TransactionRecord{}
			if err := json.Unmarshal(items[0].Value, rec); err != nil {
				scanErr = fmt.Errorf("unmarshal row %s: %w", row.Key(), err)
				return false
			}
			recs = append(recs, rec)
			return true
		},
		bigtable.LimitRows(int64(limit)),
		bigtable.RowFilter(bigtable.LatestNFilter(1)),
	)
	if err != nil {
		return nil, fmt.Errorf("scan tx_by_address: %w", err)
	}
	if scanErr != nil {
		return nil, scanErr
	}
	return recs, nil
}

// Close releases the data client.
func (b *BigtableBackend) Close() error {
	return b.client.Close()
}
