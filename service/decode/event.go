package decode

import (
	"encoding/json"
	"iter"
	"strings"
)

// programLogPrefix marks log lines emitted by a program via sol_log. Only
// lines under this prefix are eligible for event decoding; everything else
// (invoke/success/compute lines) is skipped.
const programLogPrefix = "Program log: "

// Event type discriminants recognized in JSON-shaped program logs.
const (
	EventTypeTransfer = "cypher_transfer"
	EventTypeMint     = "cypher_mint"
	EventTypeBurn     = "cypher_burn"
)

// Event kind names for storage records.
const (
	KindEventTransfer = "transfer"
	KindEventMint     = "mint"
	KindEventBurn     = "burn"
	KindEventJSON     = "json"
	KindEventPlain    = "plain"
)

// ParsedEvent is one decoded program log event.
type ParsedEvent interface {
	Kind() string

	isParsedEvent()
}

// TransferEvent reports a token transfer logged by the Cypher program.
type TransferEvent struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

func (*TransferEvent) Kind() string   { return KindEventTransfer }
func (*TransferEvent) isParsedEvent() {}

// MintEvent reports newly minted tokens.
type MintEvent struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

func (*MintEvent) Kind() string   { return KindEventMint }
func (*MintEvent) isParsedEvent() {}

// BurnEvent reports burned tokens.
type BurnEvent struct {
	From   string `json:"from"`
	Amount uint64 `json:"amount"`
}

func (*BurnEvent) Kind() string   { return KindEventBurn }
func (*BurnEvent) isParsedEvent() {}

// JSONEvent preserves a well-formed JSON log body that carries no "type"
// discriminant. Kept opaque for downstream consumers.
type JSONEvent struct {
	Raw json.RawMessage
}

func (*JSONEvent) Kind() string   { return KindEventJSON }
func (*JSONEvent) isParsedEvent() {}

// PlainEvent preserves a non-JSON program log body verbatim.
type PlainEvent struct {
	Text string
}

func (*PlainEvent) Kind() string   { return KindEventPlain }
func (*PlainEvent) isParsedEvent() {}

// Logs decodes program log events out of a transaction's log messages.
//
// The returned sequence is finite, restartable, and preserves input order 1:1
// for eligible lines; ineligible lines are silently skipped. Decoding is
// best-effort per line: a malformed or unrecognized event yields a non-nil
// error for that one line and the sequence continues with the next.
func Logs(logs []string) iter.Seq2[ParsedEvent, error] {
	return func(yield func(ParsedEvent, error) bool) {
		for _, line := range logs {
			body, ok := strings.CutPrefix(line, programLogPrefix)
			if !ok {
				continue
			}
			if !yield(decodeLogBody(body)) {
				return
			}
		}
	}
}

func decodeLogBody(body string) (ParsedEvent, error) {
	trimmed := strings.TrimSpace(body)
	if !strings.HasPrefix(trimmed, "{") {
		return &PlainEvent{Text: body}, nil
	}

	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(trimmed), &envelope); err != nil {
		return nil, &InvalidEventFormatError{Line: body, Err: err}
	}

	switch envelope.Type {
	case EventTypeTransfer:
		ev := &TransferEvent{}
		if err := json.Unmarshal([]byte(trimmed), ev); err != nil {
			return nil, &InvalidEventFormatError{Line: body, Err: err}
		}
		return ev, nil
	case EventTypeMint:
		ev := &MintEvent{}
		if err := json.Unmarshal([]byte(trimmed), ev); err != nil {
			return nil, &InvalidEventFormatError{Line: body, Err: err}
		}
		return ev, nil
	case EventTypeBurn:
		ev := &BurnEvent{}
		if err := json.Unmarshal([]byte(trimmed), ev); err != nil {
			return nil, &InvalidEventFormatError{Line: body, Err: err}
		}
		return ev, nil
	case "":
		// JSON without a type discriminant is carried through opaquely.
		return &JSONEvent{Raw: json.RawMessage(trimmed)}, nil
	default:
		return nil, &UnknownEventTypeError{Type: envelope.Type}
	}
}
