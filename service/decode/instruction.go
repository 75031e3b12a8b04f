package decode

import (
	"github.com/gagliardetto/solana-go"
)

// Program identities the instruction decoder recognizes.
var (
	// CypherProgramID is the Cypher token program.
	CypherProgramID = solana.MustPublicKeyFromBase58("CyphrkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")

	// AssociatedCypherProgramID is the associated-account program.
	AssociatedCypherProgramID = solana.MustPublicKeyFromBase58("ACyphrGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
)

// Cypher program instruction sub-discriminants (payload byte 0).
const (
	CypherInstructionInitialize = uint8(0)
	CypherInstructionTransfer   = uint8(1)
	CypherInstructionMint       = uint8(2)
	CypherInstructionBurn       = uint8(3)
)

// Associated-account program sub-discriminants.
const (
	AssociatedInstructionCreate = uint8(0)
)

// Instruction kind names for storage records.
const (
	KindInitialize       = "initialize"
	KindTransfer         = "transfer"
	KindMintTo           = "mint"
	KindBurn             = "burn"
	KindCreateAssociated = "create_associated_account"
)

// ParsedInstruction is the decoded representation of one compiled instruction.
type ParsedInstruction interface {
	Kind() string

	isParsedInstruction()
}

// InitializeInstruction creates a new Cypher mint.
// Accounts: [mint].
type InitializeInstruction struct {
	Decimals        uint8
	MintAuthority   solana.PublicKey
	FreezeAuthority *solana.PublicKey
}

func (*InitializeInstruction) Kind() string         { return KindInitialize }
func (*InitializeInstruction) isParsedInstruction() {}

// TransferInstruction moves tokens between token accounts.
// Accounts: [source_token, destination_token, authority].
type TransferInstruction struct {
	Amount uint64
}

func (*TransferInstruction) Kind() string         { return KindTransfer }
func (*TransferInstruction) isParsedInstruction() {}

// MintInstruction mints new tokens into a token account.
// Accounts: [mint, destination_token, mint_authority].
type MintInstruction struct {
	Amount uint64
}

func (*MintInstruction) Kind() string         { return KindMintTo }
func (*MintInstruction) isParsedInstruction() {}

// BurnInstruction destroys tokens from a token account.
// Accounts: [source_token, mint, authority].
type BurnInstruction struct {
	Amount uint64
}

func (*BurnInstruction) Kind() string         { return KindBurn }
func (*BurnInstruction) isParsedInstruction() {}

// CreateAssociatedAccountInstruction creates the canonical token account for a
// (wallet, mint) pair. All four fields come from the instruction's account
// metas rather than its payload.
type CreateAssociatedAccountInstruction struct {
	Funding    solana.PublicKey
	Associated solana.PublicKey
	Wallet     solana.PublicKey
	Mint       solana.PublicKey
}

func (*CreateAssociatedAccountInstruction) Kind() string         { return KindCreateAssociated }
func (*CreateAssociatedAccountInstruction) isParsedInstruction() {}

// UnknownInstruction preserves an instruction addressed to a program outside
// the allow-list. Never an error.
type UnknownInstruction struct {
	ProgramID solana.PublicKey
	Data      []byte
}

func (*UnknownInstruction) Kind() string         { return KindUnknown }
func (*UnknownInstruction) isParsedInstruction() {}

// Instruction decodes one compiled instruction. Dispatch is two-level: the
// program identity selects the instruction family, then payload byte 0 selects
// the shape. Unknown programs decode to UnknownInstruction without error; a
// known program with an unrecognized sub-discriminant is an
// UnknownInstructionTagError.
func Instruction(programID solana.PublicKey, ix solana.CompiledInstruction, accountKeys []solana.PublicKey) (ParsedInstruction, error) {
	switch {
	case programID.Equals(CypherProgramID):
		return decodeCypherInstruction(ix)
	case programID.Equals(AssociatedCypherProgramID):
		return decodeAssociatedInstruction(ix, accountKeys)
	default:
		raw := make([]byte, len(ix.Data))
		copy(raw, ix.Data)
		return &UnknownInstruction{ProgramID: programID, Data: raw}, nil
	}
}

func decodeCypherInstruction(ix solana.CompiledInstruction) (ParsedInstruction, error) {
	if len(ix.Data) == 0 {
		return nil, &MalformedPayloadError{Kind: "instruction", Err: ErrEmptyData}
	}
	tag := ix.Data[0]
	payload := ix.Data[1:]

	switch tag {
	case CypherInstructionInitialize:
		r := newPayloadReader(payload)
		out := &InitializeInstruction{}
		out.Decimals = r.u8("decimals")
		out.MintAuthority = r.pubkey("mint_authority")
		out.FreezeAuthority = r.optionPubkey("freeze_authority")
		if r.err != nil {
			return nil, &MalformedPayloadError{Kind: KindInitialize, Err: r.err}
		}
		return out, nil

	case CypherInstructionTransfer:
		amount, err := decodeAmount(payload, KindTransfer)
		if err != nil {
			return nil, err
		}
		return &TransferInstruction{Amount: amount}, nil

	case CypherInstructionMint:
		amount, err := decodeAmount(payload, KindMintTo)
		if err != nil {
			return nil, err
		}
		return &MintInstruction{Amount: amount}, nil

	case CypherInstructionBurn:
		amount, err := decodeAmount(payload, KindBurn)
		if err != nil {
			return nil, err
		}
		return &BurnInstruction{Amount: amount}, nil

	default:
		return nil, &UnknownInstructionTagError{ProgramID: CypherProgramID, Tag: tag}
	}
}

func decodeAmount(payload []byte, kind string) (uint64, error) {
	r := newPayloadReader(payload)
	amount := r.u64("amount")
	if r.err != nil {
		return 0, &MalformedPayloadError{Kind: kind, Err: r.err}
	}
	return amount, nil
}

func decodeAssociatedInstruction(ix solana.CompiledInstruction, accountKeys []solana.PublicKey) (ParsedInstruction, error) {
	if len(ix.Data) == 0 {
		return nil, &MalformedPayloadError{Kind: "instruction", Err: ErrEmptyData}
	}
	tag := ix.Data[0]
	if tag != AssociatedInstructionCreate {
		return nil, &UnknownInstructionTagError{ProgramID: AssociatedCypherProgramID, Tag: tag}
	}

	// Account metas: [funding, associated, wallet, mint].
	out := &CreateAssociatedAccountInstruction{}
	for i, dst := range []*solana.PublicKey{&out.Funding, &out.Associated, &out.Wallet, &out.Mint} {
		pk, ok := ResolveAccount(ix, accountKeys, i)
		if !ok {
			return nil, &MalformedPayloadError{Kind: KindCreateAssociated, Err: ErrMissingAccountMeta}
		}
		*dst = pk
	}
	return out, nil
}

// ResolveAccount maps the i-th account meta of a compiled instruction through
// the transaction's account-key table.
func ResolveAccount(ix solana.CompiledInstruction, accountKeys []solana.PublicKey, i int) (solana.PublicKey, bool) {
	if i >= len(ix.Accounts) {
		return solana.PublicKey{}, false
	}
	keyIndex := int(ix.Accounts[i])
	if keyIndex >= len(accountKeys) {
		return solana.PublicKey{}, false
	}
	return accountKeys[keyIndex], true
}
