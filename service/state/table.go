// Package state maintains the authoritative in-memory view of current account
// state, keyed by address. It is written concurrently by all ingestion
// adapters through the shared pipeline.
package state

import (
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/cypherlabs/cypher-indexer/service/decode"
)

const shardCount = 32

// Entry is the value held per address: the latest decoded account and the
// slot it was observed at.
type Entry struct {
	Account decode.ParsedAccount
	Slot    uint64
}

// Keyed pairs an address with its entry, for scans.
type Keyed struct {
	Address solana.PublicKey
	Entry   Entry
}

type shard struct {
	mu      sync.RWMutex
	entries map[solana.PublicKey]Entry
}

// Table is a sharded concurrent map from account address to its latest
// decoded state. Readers never observe a half-written entry; no cross-key
// guarantee is provided or needed.
type Table struct {
	shards [shardCount]shard
}

// NewTable creates an empty state table.
func NewTable() *Table {
	t := &Table{}
	for i := range t.shards {
		t.shards[i].entries = make(map[solana.PublicKey]Entry)
	}
	return t
}

func (t *Table) shardFor(addr solana.PublicKey) *shard {
	return &t.shards[addr[0]%shardCount]
}

// Update upserts the entry for addr. Because the three adapters deliver with
// no cross-adapter ordering guarantee, updates carry their slot and a stale
// update (incoming slot below the stored one) is rejected as a no-op. Returns
// whether the table was modified.
func (t *Table) Update(addr solana.PublicKey, account decode.ParsedAccount, slot uint64) bool {
	s := t.shardFor(addr)
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.entries[addr]; ok && slot < cur.Slot {
		return false
	}
	s.entries[addr] = Entry{Account: account, Slot: slot}
	return true
}

// Get returns the current entry for addr, if any.
func (t *Table) Get(addr solana.PublicKey) (Entry, bool) {
	s := t.shardFor(addr)
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[addr]
	return e, ok
}

// Remove deletes the entry for addr. Entries are never expired automatically;
// this is an explicit administrative operation.
func (t *Table) Remove(addr solana.PublicKey) {
	s := t.shardFor(addr)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, addr)
}

// ByKind returns all entries whose account variant matches kind. O(n) full
// scan; for administrative and debug queries only, never the ingestion path.
func (t *Table) ByKind(kind string) []Keyed {
	var out []Keyed
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.RLock()
		for addr, e := range s.entries {
			if e.Account.Kind() == kind {
				out = append(out, Keyed{Address: addr, Entry: e})
			}
		}
		s.mu.RUnlock()
	}
	return out
}

// Len returns the number of tracked accounts.
func (t *Table) Len() int {
	n := 0
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}
