package ingest

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cypherlabs/cypher-indexer/service/decode"
	"github.com/cypherlabs/cypher-indexer/service/pipeline"
	"github.com/cypherlabs/cypher-indexer/service/state"
	"github.com/cypherlabs/cypher-indexer/service/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testKey(seed byte) solana.PublicKey {
	var pk solana.PublicKey
	for i := range pk {
		pk[i] = seed
	}
	return pk
}

// channelStore forwards stored records to channels so tests can observe
// processing order without polling.
type channelStore struct {
	accounts chan decode.ParsedAccount
	events   chan decode.ParsedEvent
	txns     chan *storage.TransactionRecord
}

func newChannelStore() *channelStore {
	return &channelStore{
		accounts: make(chan decode.ParsedAccount, 64),
		events:   make(chan decode.ParsedEvent, 64),
		txns:     make(chan *storage.TransactionRecord, 64),
	}
}

func (s *channelStore) StoreAccount(ctx context.Context, acct decode.ParsedAccount, slot uint64) error {
	s.accounts <- acct
	return nil
}

func (s *channelStore) StoreInstruction(ctx context.Context, ix decode.ParsedInstruction, slot uint64, signature string) error {
	return nil
}

func (s *channelStore) StoreEvent(ctx context.Context, ev decode.ParsedEvent, slot uint64, signature string) error {
	s.events <- ev
	return nil
}

func (s *channelStore) StoreTransaction(ctx context.Context, rec *storage.TransactionRecord) error {
	s.txns <- rec
	return nil
}

func (s *channelStore) next(t *testing.T) decode.ParsedAccount {
	t.Helper()
	select {
	case acct := <-s.accounts:
		return acct
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stored account")
		return nil
	}
}

func (s *channelStore) nextEvent(t *testing.T) decode.ParsedEvent {
	t.Helper()
	select {
	case ev := <-s.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stored event")
		return nil
	}
}

func (s *channelStore) nextTxn(t *testing.T) *storage.TransactionRecord {
	t.Helper()
	select {
	case rec := <-s.txns:
		return rec
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stored transaction")
		return nil
	}
}

func mintData(addr solana.PublicKey, supply uint64) []byte {
	return decode.EncodeAccount(&decode.MintAccount{
		Address:       addr,
		Supply:        supply,
		Decimals:      6,
		MintAuthority: testKey(0xAA),
	})
}

func TestPluginAdapter_QueueFull(t *testing.T) {
	a := NewPluginAdapter(2, nil, testLogger(), nil)

	addr := testKey(1)
	require.NoError(t, a.OnAccountUpdate(addr, testKey(2), mintData(addr, 1), 1))
	require.NoError(t, a.OnAccountUpdate(addr, testKey(2), mintData(addr, 2), 2))

	err := a.OnAccountUpdate(addr, testKey(2), mintData(addr, 3), 3)
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestPluginAdapter_OwnerFilter(t *testing.T) {
	allowed := testKey(0x10)
	a := NewPluginAdapter(8, []solana.PublicKey{allowed}, testLogger(), nil)

	addr := testKey(1)
	// Filtered updates are dropped silently, not errors.
	require.NoError(t, a.OnAccountUpdate(addr, testKey(0x20), mintData(addr, 1), 1))
	require.NoError(t, a.OnAccountUpdate(addr, allowed, mintData(addr, 2), 2))
	assert.Len(t, a.queue, 1)
}

func TestPluginAdapter_RunDrainsFIFO(t *testing.T) {
	a := NewPluginAdapter(8, nil, testLogger(), nil)
	store := newChannelStore()
	proc := pipeline.NewProcessor(store, state.NewTable(), nil, testLogger(), nil)

	for seed := byte(1); seed <= 3; seed++ {
		addr := testKey(seed)
		require.NoError(t, a.OnAccountUpdate(addr, testKey(0xFF), mintData(addr, uint64(seed)), uint64(seed)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx, proc)

	for seed := byte(1); seed <= 3; seed++ {
		acct := store.next(t)
		mint, ok := acct.(*decode.MintAccount)
		require.True(t, ok)
		assert.Equal(t, testKey(seed), mint.Address)
		assert.Equal(t, uint64(seed), mint.Supply)
	}
}

func TestPluginAdapter_CopiesCallerBuffer(t *testing.T) {
	a := NewPluginAdapter(8, nil, testLogger(), nil)
	store := newChannelStore()
	proc := pipeline.NewProcessor(store, state.NewTable(), nil, testLogger(), nil)

	addr := testKey(1)
	buf := mintData(addr, 777)
	require.NoError(t, a.OnAccountUpdate(addr, testKey(2), buf, 5))

	// The host may reuse its buffer the moment the callback returns.
	for i := range buf {
		buf[i] = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx, proc)

	mint, ok := store.next(t).(*decode.MintAccount)
	require.True(t, ok)
	assert.Equal(t, uint64(777), mint.Supply)
}

func TestPluginAdapter_RunStopsOnCancel(t *testing.T) {
	a := NewPluginAdapter(8, nil, testLogger(), nil)
	proc := pipeline.NewProcessor(newChannelStore(), state.NewTable(), nil, testLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx, proc) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
