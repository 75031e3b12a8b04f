package solana

import (
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(seed byte) solana.PublicKey {
	var pk solana.PublicKey
	for i := range pk {
		pk[i] = seed
	}
	return pk
}

func TestConvertTransaction(t *testing.T) {
	var sig solana.Signature
	sig[0] = 0x42

	tx := &solana.Transaction{
		Signatures: []solana.Signature{sig},
		Message: solana.Message{
			AccountKeys: []solana.PublicKey{testKey(1), testKey(2)},
			Instructions: []solana.CompiledInstruction{
				{ProgramIDIndex: 1, Data: solana.Base58{0x01}},
			},
		},
	}
	blockTime := solana.UnixTimeSeconds(1700000000)
	meta := &rpc.TransactionMeta{
		LogMessages: []string{"Program log: hello"},
	}

	unit := convertTransaction(42, &blockTime, tx, meta)

	assert.Equal(t, sig, unit.Signature)
	assert.Equal(t, uint64(42), unit.Slot)
	require.NotNil(t, unit.BlockTime)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), unit.BlockTime.UTC())
	assert.Equal(t, []solana.PublicKey{testKey(1), testKey(2)}, unit.AccountKeys)
	require.Len(t, unit.Instructions, 1)
	assert.Equal(t, []string{"Program log: hello"}, unit.LogMessages)
	assert.Nil(t, unit.Err)
	assert.Empty(t, unit.PostAccounts)
}

func TestConvertTransaction_FailedTransaction(t *testing.T) {
	tx := &solana.Transaction{
		Signatures: []solana.Signature{{}},
	}
	meta := &rpc.TransactionMeta{
		Err: map[string]any{"InstructionError": []any{0, "Custom"}},
	}

	unit := convertTransaction(1, nil, tx, meta)

	require.NotNil(t, unit.Err)
	assert.Contains(t, *unit.Err, "InstructionError")
	assert.Nil(t, unit.BlockTime)
}

func TestConvertTransaction_NoMeta(t *testing.T) {
	tx := &solana.Transaction{}

	unit := convertTransaction(1, nil, tx, nil)

	assert.Equal(t, solana.Signature{}, unit.Signature)
	assert.Empty(t, unit.LogMessages)
	assert.Nil(t, unit.Err)
}
