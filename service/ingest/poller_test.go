package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cypherlabs/cypher-indexer/service/pipeline"
	"github.com/cypherlabs/cypher-indexer/service/state"
)

// fakeLedger serves empty blocks up to a fixed tip and records fetch order.
type fakeLedger struct {
	tip       uint64
	failSlots map[uint64]error
	fetched   []uint64
}

func (f *fakeLedger) CurrentSlot(ctx context.Context) (uint64, error) {
	return f.tip, nil
}

func (f *fakeLedger) FetchBlock(ctx context.Context, slot uint64) (*pipeline.Block, error) {
	f.fetched = append(f.fetched, slot)
	if err, ok := f.failSlots[slot]; ok {
		return nil, err
	}
	return &pipeline.Block{Slot: slot}, nil
}

func newTestProcessor() *pipeline.Processor {
	return pipeline.NewProcessor(newChannelStore(), state.NewTable(), nil, testLogger(), nil)
}

func TestBlockPoller_CatchUpAscending(t *testing.T) {
	ledger := &fakeLedger{tip: 5}
	p := NewBlockPoller(ledger, time.Second, 3, testLogger(), nil)

	require.NoError(t, p.catchUp(context.Background(), newTestProcessor()))

	assert.Equal(t, []uint64{3, 4, 5}, ledger.fetched)
	assert.Equal(t, uint64(6), p.nextSlot)
}

func TestBlockPoller_StartSlotZeroStartsAtTip(t *testing.T) {
	ledger := &fakeLedger{tip: 100}
	p := NewBlockPoller(ledger, time.Second, 0, testLogger(), nil)

	require.NoError(t, p.catchUp(context.Background(), newTestProcessor()))

	assert.Equal(t, []uint64{100}, ledger.fetched)
	assert.Equal(t, uint64(101), p.nextSlot)
}

func TestBlockPoller_FailedFetchRetriedWithoutSkipping(t *testing.T) {
	fetchErr := errors.New("block not available")
	ledger := &fakeLedger{tip: 5, failSlots: map[uint64]error{4: fetchErr}}
	p := NewBlockPoller(ledger, time.Second, 3, testLogger(), nil)
	proc := newTestProcessor()

	err := p.catchUp(context.Background(), proc)
	assert.ErrorIs(t, err, fetchErr)
	assert.Equal(t, []uint64{3, 4}, ledger.fetched)
	assert.Equal(t, uint64(4), p.nextSlot)

	// Once the slot becomes fetchable, catch-up resumes from it.
	delete(ledger.failSlots, 4)
	require.NoError(t, p.catchUp(context.Background(), proc))
	assert.Equal(t, []uint64{3, 4, 4, 5}, ledger.fetched)
	assert.Equal(t, uint64(6), p.nextSlot)
}

func TestBlockPoller_RunStopsOnCancel(t *testing.T) {
	ledger := &fakeLedger{tip: 1}
	p := NewBlockPoller(ledger, 10*time.Millisecond, 1, testLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, newTestProcessor()) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
