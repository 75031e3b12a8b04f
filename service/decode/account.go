package decode

import (
	"github.com/gagliardetto/solana-go"
)

// Account data tag discriminants. The first byte of account data selects the
// schema for the rest of the payload.
const (
	AccountTagMint     = uint8(0)
	AccountTagToken    = uint8(1)
	AccountTagMetadata = uint8(2)
)

// Account kind names, used for storage records and state table filtering.
const (
	KindMint     = "mint"
	KindToken    = "token"
	KindMetadata = "metadata"
	KindUnknown  = "unknown"
)

// ParsedAccount is the decoded representation of an account's data. Exactly
// one of the concrete types below implements it.
type ParsedAccount interface {
	// Kind returns the variant name ("mint", "token", "metadata", "unknown").
	Kind() string

	isParsedAccount()
}

// MintAccount is the decoded state of a Cypher mint.
type MintAccount struct {
	Address         solana.PublicKey
	Supply          uint64
	Decimals        uint8
	MintAuthority   solana.PublicKey
	FreezeAuthority *solana.PublicKey
}

func (*MintAccount) Kind() string     { return KindMint }
func (*MintAccount) isParsedAccount() {}

// TokenAccount is the decoded state of a Cypher token holding account.
type TokenAccount struct {
	Address         solana.PublicKey
	Mint            solana.PublicKey
	Owner           solana.PublicKey
	Amount          uint64
	Delegate        *solana.PublicKey
	State           uint8
	IsNative        *uint64
	DelegatedAmount uint64
	CloseAuthority  *solana.PublicKey
}

func (*TokenAccount) Kind() string     { return KindToken }
func (*TokenAccount) isParsedAccount() {}

// MetadataAccount is the decoded state of a Cypher metadata account.
type MetadataAccount struct {
	Address         solana.PublicKey
	UpdateAuthority solana.PublicKey
	Mint            solana.PublicKey
	Name            string
	Symbol          string
	URI             string
}

func (*MetadataAccount) Kind() string     { return KindMetadata }
func (*MetadataAccount) isParsedAccount() {}

// UnknownAccount preserves the raw bytes of an account whose leading tag we do
// not recognize. Undocumented layouts never error; they round-trip through
// storage untouched so a later version can decode them.
type UnknownAccount struct {
	Address solana.PublicKey
	Owner   solana.PublicKey
	Data    []byte
}

func (*UnknownAccount) Kind() string     { return KindUnknown }
func (*UnknownAccount) isParsedAccount() {}

// Account decodes raw account data into its parsed representation.
//
// The only hard failure is empty data (ErrEmptyData). A recognized tag with a
// payload too short for its schema yields MalformedPayloadError; callers must
// treat that as scoped to this one record, not abort a surrounding batch. Any
// unrecognized tag decodes to UnknownAccount.
func Account(address solana.PublicKey, data []byte, owner solana.PublicKey) (ParsedAccount, error) {
	if len(data) == 0 {
		return nil, ErrEmptyData
	}

	switch data[0] {
	case AccountTagMint:
		return decodeMintAccount(address, data[1:])
	case AccountTagToken:
		return decodeTokenAccount(address, data[1:])
	case AccountTagMetadata:
		return decodeMetadataAccount(address, data[1:])
	default:
		raw := make([]byte, len(data))
		copy(raw, data)
		return &UnknownAccount{Address: address, Owner: owner, Data: raw}, nil
	}
}

func decodeMintAccount(address solana.PublicKey, payload []byte) (ParsedAccount, error) {
	r := newPayloadReader(payload)
	acct := &MintAccount{Address: address}
	acct.Supply = r.u64("supply")
	acct.Decimals = r.u8("decimals")
	acct.MintAuthority = r.pubkey("mint_authority")
	acct.FreezeAuthority = r.optionPubkey("freeze_authority")
	if r.err != nil {
		return nil, &MalformedPayloadError{Kind: KindMint, Err: r.err}
	}
	return acct, nil
}

func decodeTokenAccount(address solana.PublicKey, payload []byte) (ParsedAccount, error) {
	r := newPayloadReader(payload)
	acct := &TokenAccount{Address: address}
	acct.Mint = r.pubkey("mint")
	acct.Owner = r.pubkey("owner")
	acct.Amount = r.u64("amount")
	acct.Delegate = r.optionPubkey("delegate")
	acct.State = r.u8("state")
	acct.IsNative = r.optionU64("is_native")
	acct.DelegatedAmount = r.u64("delegated_amount")
	acct.CloseAuthority = r.optionPubkey("close_authority")
	if r.err != nil {
		return nil, &MalformedPayloadError{Kind: KindToken, Err: r.err}
	}
	return acct, nil
}

func decodeMetadataAccount(address solana.PublicKey, payload []byte) (ParsedAccount, error) {
	r := newPayloadReader(payload)
	acct := &MetadataAccount{Address: address}
	acct.UpdateAuthority = r.pubkey("update_authority")
	acct.Mint = r.pubkey("mint")
	acct.Name = r.str("name")
	acct.Symbol = r.str("symbol")
	acct.URI = r.str("uri")
	if r.err != nil {
		return nil, &MalformedPayloadError{Kind: KindMetadata, Err: r.err}
	}
	return acct, nil
}

// EncodeAccount serializes a parsed account back into its tagged wire layout.
// Account(EncodeAccount(x)) reproduces x for every known variant; Unknown
// accounts return their preserved raw bytes.
func EncodeAccount(acct ParsedAccount) []byte {
	w := &payloadWriter{}
	switch a := acct.(type) {
	case *MintAccount:
		w.u8(AccountTagMint)
		w.u64(a.Supply)
		w.u8(a.Decimals)
		w.pubkey(a.MintAuthority)
		w.optionPubkey(a.FreezeAuthority)
	case *TokenAccount:
		w.u8(AccountTagToken)
		w.pubkey(a.Mint)
		w.pubkey(a.Owner)
		w.u64(a.Amount)
		w.optionPubkey(a.Delegate)
		w.u8(a.State)
		w.optionU64(a.IsNative)
		w.u64(a.DelegatedAmount)
		w.optionPubkey(a.CloseAuthority)
	case *MetadataAccount:
		w.u8(AccountTagMetadata)
		w.pubkey(a.UpdateAuthority)
		w.pubkey(a.Mint)
		w.str(a.Name)
		w.str(a.Symbol)
		w.str(a.URI)
	case *UnknownAccount:
		return a.Data
	}
	return w.buf
}
