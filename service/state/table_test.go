package state

import (
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cypherlabs/cypher-indexer/service/decode"
)

func testKey(seed byte) solana.PublicKey {
	var pk solana.PublicKey
	for i := range pk {
		pk[i] = seed
	}
	return pk
}

func mintAt(addr solana.PublicKey, supply uint64) *decode.MintAccount {
	return &decode.MintAccount{Address: addr, Supply: supply, Decimals: 6, MintAuthority: testKey(200)}
}

func tokenAt(addr solana.PublicKey, amount uint64) *decode.TokenAccount {
	return &decode.TokenAccount{Address: addr, Mint: testKey(201), Owner: testKey(202), Amount: amount}
}

func TestTable_UpdateAndGet(t *testing.T) {
	table := NewTable()
	addr := testKey(1)

	assert.True(t, table.Update(addr, mintAt(addr, 100), 10))

	entry, ok := table.Get(addr)
	require.True(t, ok)
	assert.Equal(t, uint64(10), entry.Slot)
	assert.Equal(t, uint64(100), entry.Account.(*decode.MintAccount).Supply)
	assert.Equal(t, 1, table.Len())
}

func TestTable_StaleSlotRejected(t *testing.T) {
	table := NewTable()
	addr := testKey(1)

	require.True(t, table.Update(addr, mintAt(addr, 100), 10))
	assert.False(t, table.Update(addr, mintAt(addr, 1), 9))

	entry, ok := table.Get(addr)
	require.True(t, ok)
	assert.Equal(t, uint64(10), entry.Slot)
	assert.Equal(t, uint64(100), entry.Account.(*decode.MintAccount).Supply)

	// An equal slot replaces the entry.
	assert.True(t, table.Update(addr, mintAt(addr, 2), 10))
	entry, _ = table.Get(addr)
	assert.Equal(t, uint64(2), entry.Account.(*decode.MintAccount).Supply)
}

func TestTable_ConcurrentUpdatesSameAddress(t *testing.T) {
	table := NewTable()
	addr := testKey(1)
	const writers = 32

	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// All writers use the same slot, so every update is accepted
			// and the final value is one of the submitted accounts.
			table.Update(addr, mintAt(addr, uint64(i)), 5)
		}(i)
	}
	wg.Wait()

	entry, ok := table.Get(addr)
	require.True(t, ok)
	supply := entry.Account.(*decode.MintAccount).Supply
	assert.Less(t, supply, uint64(writers))
	assert.Equal(t, 1, table.Len())
}

func TestTable_Remove(t *testing.T) {
	table := NewTable()
	addr := testKey(1)

	table.Update(addr, mintAt(addr, 100), 1)
	table.Remove(addr)

	_, ok := table.Get(addr)
	assert.False(t, ok)
	assert.Equal(t, 0, table.Len())

	// Removing an absent address is a no-op.
	table.Remove(addr)
}

func TestTable_ByKind(t *testing.T) {
	table := NewTable()
	mintAddr := testKey(1)
	tokenAddr := testKey(2)
	token2Addr := testKey(3)

	table.Update(mintAddr, mintAt(mintAddr, 100), 1)
	table.Update(tokenAddr, tokenAt(tokenAddr, 5), 1)
	table.Update(token2Addr, tokenAt(token2Addr, 7), 1)

	mints := table.ByKind(decode.KindMint)
	require.Len(t, mints, 1)
	assert.Equal(t, mintAddr, mints[0].Address)

	tokens := table.ByKind(decode.KindToken)
	assert.Len(t, tokens, 2)

	assert.Empty(t, table.ByKind(decode.KindMetadata))
}
