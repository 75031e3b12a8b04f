package solana

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/cypherlabs/cypher-indexer/service/pipeline"
)

// convertTransaction maps a decoded wire transaction plus its execution meta
// into a pipeline unit. Post-execution account snapshots are not available
// over RPC; they arrive only through the plugin adapter.
func convertTransaction(slot uint64, blockTime *solana.UnixTimeSeconds, tx *solana.Transaction, meta *rpc.TransactionMeta) pipeline.Transaction {
	unit := pipeline.Transaction{
		Slot:         slot,
		AccountKeys:  tx.Message.AccountKeys,
		Instructions: tx.Message.Instructions,
	}

	if len(tx.Signatures) > 0 {
		unit.Signature = tx.Signatures[0]
	}
	if blockTime != nil {
		t := blockTime.Time()
		unit.BlockTime = &t
	}
	if meta != nil {
		unit.LogMessages = meta.LogMessages
		if meta.Err != nil {
			s := fmt.Sprintf("%v", meta.Err)
			unit.Err = &s
		}
	}

	return unit
}
