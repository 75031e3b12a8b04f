package decode

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ErrEmptyData is returned when an account update carries no data at all.
// This is the only way account decoding can fail outright; every non-empty
// payload decodes to a known variant or falls back to Unknown.
var ErrEmptyData = errors.New("account data is empty")

// ErrMissingAccountMeta is returned when an instruction references an account
// meta slot that does not exist or points outside the account-key table.
var ErrMissingAccountMeta = errors.New("instruction account meta out of range")

// MalformedPayloadError indicates a payload whose leading tag selected a known
// schema but whose remaining bytes are too short (or otherwise invalid) for it.
// Callers should treat this as a soft failure scoped to the one record.
type MalformedPayloadError struct {
	Kind string // which schema the tag selected
	Err  error
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("malformed %s payload: %v", e.Kind, e.Err)
}

func (e *MalformedPayloadError) Unwrap() error { return e.Err }

// UnknownInstructionTagError indicates an instruction for a known program whose
// sub-discriminant byte does not match any documented instruction shape.
//
// Note the asymmetry with account decoding: instructions addressed to a known
// program must match a known shape or be flagged, whereas accounts with an
// unrecognized tag silently decode to Unknown. An undocumented account layout
// is forward compatibility, but an undocumented instruction under our own
// program is a bug worth surfacing.
type UnknownInstructionTagError struct {
	ProgramID solana.PublicKey
	Tag       byte
}

func (e *UnknownInstructionTagError) Error() string {
	return fmt.Sprintf("unknown instruction tag %d for program %s", e.Tag, e.ProgramID)
}

// InvalidEventFormatError indicates a program log line that looked like JSON
// but could not be parsed.
type InvalidEventFormatError struct {
	Line string
	Err  error
}

func (e *InvalidEventFormatError) Error() string {
	return fmt.Sprintf("invalid event format: %v", e.Err)
}

func (e *InvalidEventFormatError) Unwrap() error { return e.Err }

// UnknownEventTypeError indicates a well-formed JSON event whose "type" field
// is not one of the documented event types.
type UnknownEventTypeError struct {
	Type string
}

func (e *UnknownEventTypeError) Error() string {
	return fmt.Sprintf("unknown event type %q", e.Type)
}
