package pipeline

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// AccountUpdate is a single account write observed on the ledger. Data is
// owned by the update; producers must not retain or mutate it after handoff.
type AccountUpdate struct {
	Address solana.PublicKey
	Owner   solana.PublicKey
	Data    []byte
	Slot    uint64
}

// AccountSnapshot captures an account's bytes as of the end of a transaction.
type AccountSnapshot struct {
	Address solana.PublicKey
	Owner   solana.PublicKey
	Data    []byte
}

// Transaction is the processing unit handed to the pipeline by the ingestion
// adapters. It carries everything needed to decode instructions, log events,
// and post-execution account state.
type Transaction struct {
	Signature    solana.Signature
	Slot         uint64
	BlockTime    *time.Time
	Err          *string
	AccountKeys  []solana.PublicKey
	Instructions []solana.CompiledInstruction
	LogMessages  []string
	PostAccounts []AccountSnapshot
}

// Block is an ordered batch of transactions confirmed at the same slot.
type Block struct {
	Slot         uint64
	Transactions []Transaction
}
