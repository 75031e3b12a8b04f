// Package storage fans derived records out to the configured durable backends
// and serves cache-aside reads. It is the only package that knows every
// backend's physical layout; the rest of the system deals in the logical keys
// (address, slot) and (signature, slot, program).
package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cypherlabs/cypher-indexer/service/decode"
)

// AccountRecord is the backend-facing projection of a parsed account, keyed by
// (address, slot).
type AccountRecord struct {
	Address string          `json:"address"`
	Owner   string          `json:"owner,omitempty"`
	Slot    uint64          `json:"slot"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`

	// BlobHash references raw undecoded bytes archived in the blob store,
	// set only for unknown-layout accounts.
	BlobHash string `json:"blob_hash,omitempty"`
}

// InstructionRecord is keyed by (signature, slot, program).
type InstructionRecord struct {
	Signature string          `json:"signature"`
	Slot      uint64          `json:"slot"`
	ProgramID string          `json:"program_id"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
}

// EventRecord is keyed by (signature, slot).
type EventRecord struct {
	Signature string          `json:"signature"`
	Slot      uint64          `json:"slot"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
}

// TransactionRecord is the per-transaction summary row that backs
// GetTransaction and GetTransactionsByAddress.
type TransactionRecord struct {
	Signature string    `json:"signature"`
	Slot      uint64    `json:"slot"`
	BlockTime time.Time `json:"block_time"`
	Err       *string   `json:"err,omitempty"`
	Addresses []string  `json:"addresses,omitempty"`
}

func buildAccountRecord(acct decode.ParsedAccount, slot uint64) (*AccountRecord, error) {
	rec := &AccountRecord{Slot: slot, Kind: acct.Kind()}

	var body any
	switch a := acct.(type) {
	case *decode.MintAccount:
		rec.Address = a.Address.String()
		body = map[string]any{
			"supply":         a.Supply,
			"decimals":       a.Decimals,
			"mint_authority": a.MintAuthority.String(),
		}
		if a.FreezeAuthority != nil {
			body.(map[string]any)["freeze_authority"] = a.FreezeAuthority.String()
		}
	case *decode.TokenAccount:
		rec.Address = a.Address.String()
		m := map[string]any{
			"mint":             a.Mint.String(),
			"owner":            a.Owner.String(),
			"amount":           a.Amount,
			"state":            a.State,
			"delegated_amount": a.DelegatedAmount,
		}
		if a.Delegate != nil {
			m["delegate"] = a.Delegate.String()
		}
		if a.IsNative != nil {
			m["is_native"] = *a.IsNative
		}
		if a.CloseAuthority != nil {
			m["close_authority"] = a.CloseAuthority.String()
		}
		rec.Owner = a.Owner.String()
		body = m
	case *decode.MetadataAccount:
		rec.Address = a.Address.String()
		body = map[string]any{
			"update_authority": a.UpdateAuthority.String(),
			"mint":             a.Mint.String(),
			"name":             a.Name,
			"symbol":           a.Symbol,
			"uri":              a.URI,
		}
	case *decode.UnknownAccount:
		rec.Address = a.Address.String()
		rec.Owner = a.Owner.String()
		body = map[string]any{
			"data_len": len(a.Data),
		}
	default:
		return nil, fmt.Errorf("unhandled account variant %T", acct)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal account payload: %w", err)
	}
	rec.Payload = payload
	return rec, nil
}

func buildInstructionRecord(ix decode.ParsedInstruction, slot uint64, signature string) (*InstructionRecord, error) {
	rec := &InstructionRecord{
		Signature: signature,
		Slot:      slot,
		Kind:      ix.Kind(),
		ProgramID: decode.CypherProgramID.String(),
	}

	var body any
	switch v := ix.(type) {
	case *decode.InitializeInstruction:
		m := map[string]any{
			"decimals":       v.Decimals,
			"mint_authority": v.MintAuthority.String(),
		}
		if v.FreezeAuthority != nil {
			m["freeze_authority"] = v.FreezeAuthority.String()
		}
		body = m
	case *decode.TransferInstruction:
		body = map[string]any{"amount": v.Amount}
	case *decode.MintInstruction:
		body = map[string]any{"amount": v.Amount}
	case *decode.BurnInstruction:
		body = map[string]any{"amount": v.Amount}
	case *decode.CreateAssociatedAccountInstruction:
		rec.ProgramID = decode.AssociatedCypherProgramID.String()
		body = map[string]any{
			"funding":    v.Funding.String(),
			"associated": v.Associated.String(),
			"wallet":     v.Wallet.String(),
			"mint":       v.Mint.String(),
		}
	case *decode.UnknownInstruction:
		rec.ProgramID = v.ProgramID.String()
		body = map[string]any{"data_len": len(v.Data)}
	default:
		return nil, fmt.Errorf("unhandled instruction variant %T", ix)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal instruction payload: %w", err)
	}
	rec.Payload = payload
	return rec, nil
}

func buildEventRecord(ev decode.ParsedEvent, slot uint64, signature string) (*EventRecord, error) {
	rec := &EventRecord{Signature: signature, Slot: slot, Kind: ev.Kind()}

	var body any
	switch v := ev.(type) {
	case *decode.TransferEvent:
		body = v
	case *decode.MintEvent:
		body = v
	case *decode.BurnEvent:
		body = v
	case *decode.JSONEvent:
		rec.Payload = v.Raw
		return rec, nil
	case *decode.PlainEvent:
		body = map[string]any{"text": v.Text}
	default:
		return nil, fmt.Errorf("unhandled event variant %T", ev)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}
	rec.Payload = payload
	return rec, nil
}
