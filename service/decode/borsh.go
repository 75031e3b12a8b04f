package decode

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// The Cypher on-chain layouts are Borsh-style: fixed-width integers are
// little-endian, strings are u32 length-prefixed UTF-8, and Option<T> is a
// one-byte presence flag followed by T when present.

// payloadReader walks a byte slice and records the first error it hits, so
// field reads can be chained without checking an error after every call.
type payloadReader struct {
	buf []byte
	off int
	err error
}

func newPayloadReader(buf []byte) *payloadReader {
	return &payloadReader{buf: buf}
}

func (r *payloadReader) fail(what string) {
	if r.err == nil {
		r.err = fmt.Errorf("truncated payload reading %s at offset %d", what, r.off)
	}
}

func (r *payloadReader) take(n int, what string) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.buf) {
		r.fail(what)
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *payloadReader) u8(what string) uint8 {
	b := r.take(1, what)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *payloadReader) u32(what string) uint32 {
	b := r.take(4, what)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *payloadReader) u64(what string) uint64 {
	b := r.take(8, what)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *payloadReader) pubkey(what string) solana.PublicKey {
	b := r.take(solana.PublicKeyLength, what)
	if b == nil {
		return solana.PublicKey{}
	}
	return solana.PublicKeyFromBytes(b)
}

func (r *payloadReader) optionPubkey(what string) *solana.PublicKey {
	if r.u8(what) == 0 {
		return nil
	}
	pk := r.pubkey(what)
	if r.err != nil {
		return nil
	}
	return &pk
}

func (r *payloadReader) optionU64(what string) *uint64 {
	if r.u8(what) == 0 {
		return nil
	}
	v := r.u64(what)
	if r.err != nil {
		return nil
	}
	return &v
}

func (r *payloadReader) str(what string) string {
	n := r.u32(what)
	if r.err != nil {
		return ""
	}
	b := r.take(int(n), what)
	if b == nil {
		return ""
	}
	return string(b)
}

// payloadWriter is the encoding counterpart, used to serialize parsed records
// back into their wire layout (fixtures, blob archival).
type payloadWriter struct {
	buf []byte
}

func (w *payloadWriter) u8(v uint8)   { w.buf = append(w.buf, v) }
func (w *payloadWriter) u32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }
func (w *payloadWriter) u64(v uint64) { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }

func (w *payloadWriter) pubkey(pk solana.PublicKey) {
	w.buf = append(w.buf, pk.Bytes()...)
}

func (w *payloadWriter) optionPubkey(pk *solana.PublicKey) {
	if pk == nil {
		w.u8(0)
		return
	}
	w.u8(1)
	w.pubkey(*pk)
}

func (w *payloadWriter) optionU64(v *uint64) {
	if v == nil {
		w.u8(0)
		return
	}
	w.u8(1)
	w.u64(*v)
}

func (w *payloadWriter) str(s string) {
	w.u32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}
