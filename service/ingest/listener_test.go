package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cypherlabs/cypher-indexer/service/decode"
	"github.com/cypherlabs/cypher-indexer/service/pipeline"
	"github.com/cypherlabs/cypher-indexer/service/solana"
	"github.com/cypherlabs/cypher-indexer/service/state"
)

func testSig(seed byte) solanago.Signature {
	var sig solanago.Signature
	for i := range sig {
		sig[i] = seed
	}
	return sig
}

// stubLogStream feeds prepared notifications to the listener. Closing the
// results channel simulates a dropped websocket connection.
type stubLogStream struct {
	results      chan *ws.LogResult
	unsubscribed chan struct{}
	once         sync.Once
}

func newStubLogStream(results ...*ws.LogResult) *stubLogStream {
	st := &stubLogStream{
		results:      make(chan *ws.LogResult, len(results)+1),
		unsubscribed: make(chan struct{}),
	}
	for _, r := range results {
		st.results <- r
	}
	return st
}

func (s *stubLogStream) drop() { close(s.results) }

func (s *stubLogStream) Recv(ctx context.Context) (*ws.LogResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res, ok := <-s.results:
		if !ok {
			return nil, errors.New("connection reset")
		}
		return res, nil
	}
}

func (s *stubLogStream) Unsubscribe() {
	s.once.Do(func() { close(s.unsubscribed) })
}

// stubSubscriber hands out queued streams in order, then empty blocking ones.
type stubSubscriber struct {
	mu     sync.Mutex
	queued []*stubLogStream
	opened []*stubLogStream
}

func (s *stubSubscriber) SubscribeLogs(ctx context.Context, mentions solanago.PublicKey) (solana.LogStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st *stubLogStream
	if len(s.queued) > 0 {
		st = s.queued[0]
		s.queued = s.queued[1:]
	} else {
		st = newStubLogStream()
	}
	s.opened = append(s.opened, st)
	return st, nil
}

func (s *stubSubscriber) Close() {}

func (s *stubSubscriber) openCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.opened)
}

type stubFetcher struct {
	txs map[solanago.Signature]*pipeline.Transaction
	err error
}

func (f *stubFetcher) FetchTransaction(ctx context.Context, signature solanago.Signature) (*pipeline.Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	tx, ok := f.txs[signature]
	if !ok {
		return nil, errors.New("unknown signature")
	}
	return tx, nil
}

func logNotification(sig solanago.Signature, slot uint64, logs ...string) *ws.LogResult {
	res := &ws.LogResult{}
	res.Context.Slot = slot
	res.Value.Signature = sig
	res.Value.Logs = logs
	return res
}

func waitClosed(t *testing.T, ch chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestLogListener_ProcessesNotifications(t *testing.T) {
	store := newChannelStore()
	proc := pipeline.NewProcessor(store, state.NewTable(), nil, testLogger(), nil)

	sig := testSig(1)
	fetcher := &stubFetcher{txs: map[solanago.Signature]*pipeline.Transaction{
		sig: {
			Signature: sig,
			Slot:      9,
			LogMessages: []string{
				"Program log: " + `{"type":"cypher_mint","to":"dest","amount":500}`,
			},
		},
	}}
	stream := newStubLogStream(logNotification(sig, 9))
	sub := &stubSubscriber{queued: []*stubLogStream{stream}}

	l := NewLogListener(sub, fetcher, []solanago.PublicKey{testKey(0x30)}, testLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx, proc) }()

	// The notification is resolved into the full transaction and indexed.
	rec := store.nextTxn(t)
	assert.Equal(t, sig.String(), rec.Signature)
	assert.Equal(t, uint64(9), rec.Slot)
	ev := store.nextEvent(t)
	assert.Equal(t, decode.KindEventMint, ev.Kind())

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestLogListener_FallsBackToLogsOnFetchFailure(t *testing.T) {
	store := newChannelStore()
	proc := pipeline.NewProcessor(store, state.NewTable(), nil, testLogger(), nil)

	sig := testSig(2)
	fetcher := &stubFetcher{err: errors.New("node behind")}
	stream := newStubLogStream(logNotification(sig, 14,
		"Program log: "+`{"type":"cypher_burn","from":"src","amount":25}`,
	))
	sub := &stubSubscriber{queued: []*stubLogStream{stream}}

	l := NewLogListener(sub, fetcher, []solanago.PublicKey{testKey(0x30)}, testLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx, proc) }()

	// The events survive even though the full transaction could not be fetched.
	ev := store.nextEvent(t)
	assert.Equal(t, decode.KindEventBurn, ev.Kind())
	assert.Empty(t, store.txns)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestLogListener_ResubscribesAfterDrop(t *testing.T) {
	store := newChannelStore()
	proc := pipeline.NewProcessor(store, state.NewTable(), nil, testLogger(), nil)

	sig := testSig(3)
	fetcher := &stubFetcher{txs: map[solanago.Signature]*pipeline.Transaction{
		sig: {Signature: sig, Slot: 21},
	}}
	dropped := newStubLogStream()
	dropped.drop()
	replacement := newStubLogStream(logNotification(sig, 21))
	sub := &stubSubscriber{queued: []*stubLogStream{dropped, replacement}}

	l := NewLogListener(sub, fetcher, []solanago.PublicKey{testKey(0x30)}, testLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx, proc) }()

	rec := store.nextTxn(t)
	assert.Equal(t, sig.String(), rec.Signature)

	// The first stream was torn down before the second was opened.
	waitClosed(t, dropped.unsubscribed, "unsubscribe of dropped stream")
	require.GreaterOrEqual(t, sub.openCount(), 2)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestLogListener_CancelUnsubscribes(t *testing.T) {
	store := newChannelStore()
	proc := pipeline.NewProcessor(store, state.NewTable(), nil, testLogger(), nil)

	stream := newStubLogStream()
	sub := &stubSubscriber{queued: []*stubLogStream{stream}}
	l := NewLogListener(sub, &stubFetcher{}, []solanago.PublicKey{testKey(0x30)}, testLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx, proc) }()

	require.Eventually(t, func() bool { return sub.openCount() >= 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	waitClosed(t, stream.unsubscribed, "unsubscribe on shutdown")
}
