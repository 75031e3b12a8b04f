// Package pipeline turns raw ledger payloads into decoded records: it runs
// the tag-dispatch decoders, applies side effects to the in-memory state
// table, and hands the results to the storage layer. One malformed record
// never aborts the unit it arrived in; failures are collected per phase.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/cypherlabs/cypher-indexer/service/decode"
	"github.com/cypherlabs/cypher-indexer/service/metrics"
	"github.com/cypherlabs/cypher-indexer/service/nats"
	"github.com/cypherlabs/cypher-indexer/service/state"
	"github.com/cypherlabs/cypher-indexer/service/storage"
)

// Store is the slice of the storage facade the processor writes through.
// Narrowed to an interface so tests can count and fail writes.
type Store interface {
	StoreAccount(ctx context.Context, acct decode.ParsedAccount, slot uint64) error
	StoreInstruction(ctx context.Context, ix decode.ParsedInstruction, slot uint64, signature string) error
	StoreEvent(ctx context.Context, ev decode.ParsedEvent, slot uint64, signature string) error
	StoreTransaction(ctx context.Context, rec *storage.TransactionRecord) error
}

// Processor decodes, applies, and persists ledger updates. It is safe for
// concurrent use by multiple ingestion adapters.
type Processor struct {
	store     Store
	state     *state.Table
	publisher nats.Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewProcessor creates a processor. Publisher and metrics may be nil; both
// are optional.
func NewProcessor(store Store, table *state.Table, publisher nats.Publisher, logger *slog.Logger, m *metrics.Metrics) *Processor {
	return &Processor{
		store:     store,
		state:     table,
		publisher: publisher,
		logger:    logger,
		metrics:   m,
	}
}

// State exposes the live account table for admin queries.
func (p *Processor) State() *state.Table {
	return p.state
}

// ProcessAccountUpdate decodes one account write, updates the state table,
// and persists the decoded record. A stale update (older slot than the one
// already tracked) is skipped in memory but still written to storage, where
// cell versions keep full history.
func (p *Processor) ProcessAccountUpdate(ctx context.Context, u AccountUpdate) error {
	acct, err := decode.Account(u.Address, u.Data, u.Owner)
	if err != nil {
		if p.metrics != nil {
			p.metrics.RecordDecodeFailure("account")
		}
		return fmt.Errorf("decode account %s: %w", u.Address, err)
	}
	if p.metrics != nil {
		p.metrics.RecordDecoded("account", acct.Kind())
	}

	applied := p.state.Update(u.Address, acct, u.Slot)
	if p.metrics != nil {
		p.metrics.RecordStateUpdate(applied)
		p.metrics.SetStateTableSize(p.state.Len())
	}
	if !applied {
		p.logger.DebugContext(ctx, "skipped stale account update",
			"address", u.Address.String(), "slot", u.Slot)
	}

	if err := p.store.StoreAccount(ctx, acct, u.Slot); err != nil {
		return fmt.Errorf("store account %s: %w", u.Address, err)
	}

	p.notifyAccount(ctx, u.Address.String(), acct.Kind(), u.Slot)
	return nil
}

// ProcessTransaction runs a transaction through three independent phases:
// instructions, log events, and post-execution account snapshots. A failure
// in one phase never blocks the others.
func (p *Processor) ProcessTransaction(ctx context.Context, tx Transaction) Result {
	var errs []error

	errs = append(errs, p.processInstructions(ctx, tx)...)
	errs = append(errs, p.processEvents(ctx, tx.Signature.String(), tx.Slot, tx.LogMessages)...)
	errs = append(errs, p.processPostAccounts(ctx, tx)...)

	rec := &storage.TransactionRecord{
		Signature: tx.Signature.String(),
		Slot:      tx.Slot,
		Err:       tx.Err,
		Addresses: make([]string, 0, len(tx.AccountKeys)),
	}
	if tx.BlockTime != nil {
		rec.BlockTime = *tx.BlockTime
	}
	for _, k := range tx.AccountKeys {
		rec.Addresses = append(rec.Addresses, k.String())
	}
	if err := p.store.StoreTransaction(ctx, rec); err != nil {
		errs = append(errs, fmt.Errorf("store transaction %s: %w", rec.Signature, err))
	}

	result := Result{Status: Succeeded}
	if len(errs) > 0 {
		result = Result{Status: Partial, Errs: errs}
		p.logger.WarnContext(ctx, "transaction processed with failures",
			"signature", rec.Signature, "slot", tx.Slot, "failures", len(errs))
	}

	p.notifyTransaction(ctx, rec, result.Status.String())
	return result
}

// ProcessLogs indexes log events for a transaction whose full payload could
// not be fetched. Only the event phase runs.
func (p *Processor) ProcessLogs(ctx context.Context, signature solana.Signature, slot uint64, logs []string) Result {
	errs := p.processEvents(ctx, signature.String(), slot, logs)
	if len(errs) > 0 {
		return Result{Status: Partial, Errs: errs}
	}
	return Result{Status: Succeeded}
}

// ProcessBlock processes every transaction in a confirmed block. Transactions
// fail independently; the result enumerates per-transaction errors.
func (p *Processor) ProcessBlock(ctx context.Context, block Block) Result {
	var errs []error
	failed := 0

	for i := range block.Transactions {
		tx := block.Transactions[i]
		res := p.ProcessTransaction(ctx, tx)
		if res.Status != Succeeded {
			failed++
			for _, err := range res.Errs {
				errs = append(errs, fmt.Errorf("tx %s: %w", tx.Signature, err))
			}
		}
	}

	p.logger.InfoContext(ctx, "processed block",
		"slot", block.Slot, "transactions", len(block.Transactions), "failed", failed)

	return makeResult(len(block.Transactions), failed, errs)
}

func (p *Processor) processInstructions(ctx context.Context, tx Transaction) []error {
	var errs []error
	signature := tx.Signature.String()

	for i, compiled := range tx.Instructions {
		programID := solana.PublicKey{}
		if int(compiled.ProgramIDIndex) < len(tx.AccountKeys) {
			programID = tx.AccountKeys[compiled.ProgramIDIndex]
		}

		parsed, err := decode.Instruction(programID, compiled, tx.AccountKeys)
		if err != nil {
			if p.metrics != nil {
				p.metrics.RecordDecodeFailure("instruction")
			}
			errs = append(errs, fmt.Errorf("instruction %d: %w", i, err))
			continue
		}
		if p.metrics != nil {
			p.metrics.RecordDecoded("instruction", parsed.Kind())
		}

		p.applyInstruction(ctx, parsed, compiled, tx.AccountKeys)

		if err := p.store.StoreInstruction(ctx, parsed, tx.Slot, signature); err != nil {
			errs = append(errs, fmt.Errorf("store instruction %d: %w", i, err))
		}
	}
	return errs
}

// applyInstruction mirrors an instruction's effect onto tracked accounts.
// Untracked accounts are left alone; a variant mismatch is logged and
// dropped since storage still records the instruction itself.
func (p *Processor) applyInstruction(ctx context.Context, parsed decode.ParsedInstruction, compiled solana.CompiledInstruction, keys []solana.PublicKey) {
	var err error
	switch v := parsed.(type) {
	case *decode.TransferInstruction:
		// Account layout: [source_token, destination_token, authority].
		source, ok1 := decode.ResolveAccount(compiled, keys, 0)
		destination, ok2 := decode.ResolveAccount(compiled, keys, 1)
		if ok1 && ok2 {
			err = p.state.ApplyTransfer(source, destination, v.Amount)
		}
	case *decode.MintInstruction:
		// Account layout: [mint, destination_token, mint_authority].
		if mint, ok := decode.ResolveAccount(compiled, keys, 0); ok {
			err = p.state.ApplyMint(mint, v.Amount)
		}
	case *decode.BurnInstruction:
		// Account layout: [source_token, mint, authority].
		if mint, ok := decode.ResolveAccount(compiled, keys, 1); ok {
			err = p.state.ApplyBurn(mint, v.Amount)
		}
	}
	if err != nil {
		p.logger.WarnContext(ctx, "state apply failed",
			"kind", parsed.Kind(), "error", err)
	}
}

func (p *Processor) processEvents(ctx context.Context, signature string, slot uint64, logs []string) []error {
	var errs []error
	i := 0
	for ev, err := range decode.Logs(logs) {
		i++
		if err != nil {
			if p.metrics != nil {
				p.metrics.RecordDecodeFailure("event")
			}
			errs = append(errs, fmt.Errorf("event %d: %w", i, err))
			continue
		}
		if p.metrics != nil {
			p.metrics.RecordDecoded("event", ev.Kind())
		}
		if err := p.store.StoreEvent(ctx, ev, slot, signature); err != nil {
			errs = append(errs, fmt.Errorf("store event %d: %w", i, err))
		}
	}
	return errs
}

func (p *Processor) processPostAccounts(ctx context.Context, tx Transaction) []error {
	var errs []error
	for _, snap := range tx.PostAccounts {
		u := AccountUpdate{
			Address: snap.Address,
			Owner:   snap.Owner,
			Data:    snap.Data,
			Slot:    tx.Slot,
		}
		if err := p.ProcessAccountUpdate(ctx, u); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (p *Processor) notifyAccount(ctx context.Context, address, kind string, slot uint64) {
	if p.publisher == nil {
		return
	}
	event := &nats.AccountUpdateEvent{
		Address:     address,
		Kind:        kind,
		Slot:        slot,
		PublishedAt: time.Now().UTC(),
	}
	if err := p.publisher.PublishAccountUpdate(ctx, event); err != nil {
		p.logger.WarnContext(ctx, "failed to publish account update",
			"address", address, "error", err)
		if p.metrics != nil {
			p.metrics.RecordNATSPublish("cypher.accounts", "error")
		}
		return
	}
	if p.metrics != nil {
		p.metrics.RecordNATSPublish("cypher.accounts", "success")
	}
}

func (p *Processor) notifyTransaction(ctx context.Context, rec *storage.TransactionRecord, status string) {
	if p.publisher == nil {
		return
	}
	event := &nats.TransactionEvent{
		Signature:   rec.Signature,
		Slot:        rec.Slot,
		Status:      status,
		Addresses:   rec.Addresses,
		PublishedAt: time.Now().UTC(),
	}
	if err := p.publisher.PublishTransaction(ctx, event); err != nil {
		p.logger.WarnContext(ctx, "failed to publish transaction",
			"signature", rec.Signature, "error", err)
		if p.metrics != nil {
			p.metrics.RecordNATSPublish("cypher.txns", "error")
		}
		return
	}
	if p.metrics != nil {
		p.metrics.RecordNATSPublish("cypher.txns", "success")
	}
}
