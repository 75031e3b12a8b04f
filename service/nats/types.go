package nats

import "time"

// AccountUpdateEvent is published whenever a tracked account changes.
// Subject: "cypher.accounts.{address}".
type AccountUpdateEvent struct {
	Address string `json:"address"`
	Kind    string `json:"kind"`
	Slot    uint64 `json:"slot"`

	PublishedAt time.Time `json:"published_at"`
}

// TransactionEvent is published after a transaction has been indexed.
// Subject: "cypher.txns.{signature}".
type TransactionEvent struct {
	Signature string   `json:"signature"`
	Slot      uint64   `json:"slot"`
	Status    string   `json:"status"`
	Addresses []string `json:"addresses,omitempty"`

	PublishedAt time.Time `json:"published_at"`
}
