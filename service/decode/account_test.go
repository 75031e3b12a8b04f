package decode

import (
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(seed byte) solana.PublicKey {
	var pk solana.PublicKey
	for i := range pk {
		pk[i] = seed
	}
	return pk
}

func TestAccount_MintRoundTrip(t *testing.T) {
	freeze := testKey(3)
	tests := []struct {
		name string
		acct *MintAccount
	}{
		{
			name: "with freeze authority",
			acct: &MintAccount{
				Address:         testKey(1),
				Supply:          1_000_000,
				Decimals:        6,
				MintAuthority:   testKey(2),
				FreezeAuthority: &freeze,
			},
		},
		{
			name: "without freeze authority",
			acct: &MintAccount{
				Address:       testKey(1),
				Supply:        0,
				Decimals:      9,
				MintAuthority: testKey(2),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := EncodeAccount(tt.acct)
			require.NotEmpty(t, data)
			assert.Equal(t, AccountTagMint, data[0])

			parsed, err := Account(tt.acct.Address, data, testKey(9))
			require.NoError(t, err)
			assert.Equal(t, tt.acct, parsed)
		})
	}
}

func TestAccount_TokenRoundTrip(t *testing.T) {
	delegate := testKey(4)
	isNative := uint64(2_039_280)
	closeAuth := testKey(5)

	acct := &TokenAccount{
		Address:         testKey(1),
		Mint:            testKey(2),
		Owner:           testKey(3),
		Amount:          42_000,
		Delegate:        &delegate,
		State:           1,
		IsNative:        &isNative,
		DelegatedAmount: 7,
		CloseAuthority:  &closeAuth,
	}

	data := EncodeAccount(acct)
	assert.Equal(t, AccountTagToken, data[0])

	parsed, err := Account(acct.Address, data, testKey(9))
	require.NoError(t, err)
	assert.Equal(t, acct, parsed)
}

func TestAccount_MetadataRoundTrip(t *testing.T) {
	acct := &MetadataAccount{
		Address:         testKey(1),
		UpdateAuthority: testKey(2),
		Mint:            testKey(3),
		Name:            "Cypher Token",
		Symbol:          "CYP",
		URI:             "https://example.com/meta.json",
	}

	data := EncodeAccount(acct)
	assert.Equal(t, AccountTagMetadata, data[0])

	parsed, err := Account(acct.Address, data, testKey(9))
	require.NoError(t, err)
	assert.Equal(t, acct, parsed)
}

func TestAccount_UnknownTagNeverErrors(t *testing.T) {
	data := []byte{0xFF, 1, 2, 3}
	owner := testKey(9)

	parsed, err := Account(testKey(1), data, owner)
	require.NoError(t, err)

	unknown, ok := parsed.(*UnknownAccount)
	require.True(t, ok)
	assert.Equal(t, KindUnknown, unknown.Kind())
	assert.Equal(t, data, unknown.Data)
	assert.Equal(t, owner, unknown.Owner)

	// The decoder keeps its own copy of the raw bytes.
	data[1] = 99
	assert.Equal(t, byte(1), unknown.Data[1])
}

func TestAccount_EmptyData(t *testing.T) {
	parsed, err := Account(testKey(1), nil, testKey(9))
	assert.Nil(t, parsed)
	assert.ErrorIs(t, err, ErrEmptyData)

	parsed, err = Account(testKey(1), []byte{}, testKey(9))
	assert.Nil(t, parsed)
	assert.ErrorIs(t, err, ErrEmptyData)
}

func TestAccount_TruncatedKnownTag(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		kind string
	}{
		{"mint with only tag", []byte{AccountTagMint}, KindMint},
		{"mint cut mid supply", []byte{AccountTagMint, 1, 2, 3}, KindMint},
		{"token cut mid mint", append([]byte{AccountTagToken}, make([]byte, 16)...), KindToken},
		{"metadata cut mid authority", append([]byte{AccountTagMetadata}, make([]byte, 40)...), KindMetadata},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := Account(testKey(1), tt.data, testKey(9))
			assert.Nil(t, parsed)

			var malformed *MalformedPayloadError
			require.True(t, errors.As(err, &malformed))
			assert.Equal(t, tt.kind, malformed.Kind)
		})
	}
}
