package state

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/cypherlabs/cypher-indexer/service/decode"
)

// InvalidAccountVariantError is returned when an instruction effect targets an
// account of the wrong variant, e.g. a mint-supply change aimed at a token
// account. Variant mismatches are typed errors, never panics.
type InvalidAccountVariantError struct {
	Address solana.PublicKey
	Want    string
	Got     string
}

func (e *InvalidAccountVariantError) Error() string {
	return fmt.Sprintf("account %s is %s, expected %s", e.Address, e.Got, e.Want)
}

// mutate replaces the entry for addr with the output of fn, holding the shard
// lock across the read-modify-write. fn receives a value copy; entries are
// replaced wholesale so concurrent readers never see partial writes. Accounts
// not present in the table are skipped: effects only adjust state we already
// track, the authoritative value arrives with the account update itself.
func (t *Table) mutate(addr solana.PublicKey, fn func(Entry) (Entry, error)) error {
	s := t.shardFor(addr)
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.entries[addr]
	if !ok {
		return nil
	}
	next, err := fn(cur)
	if err != nil {
		return err
	}
	s.entries[addr] = next
	return nil
}

// ApplyMint credits amount to the supply of the mint account at addr.
func (t *Table) ApplyMint(addr solana.PublicKey, amount uint64) error {
	return t.mutate(addr, func(e Entry) (Entry, error) {
		mint, ok := e.Account.(*decode.MintAccount)
		if !ok {
			return e, &InvalidAccountVariantError{Address: addr, Want: decode.KindMint, Got: e.Account.Kind()}
		}
		next := *mint
		next.Supply += amount
		e.Account = &next
		return e, nil
	})
}

// ApplyBurn debits amount from the supply of the mint account at addr.
func (t *Table) ApplyBurn(addr solana.PublicKey, amount uint64) error {
	return t.mutate(addr, func(e Entry) (Entry, error) {
		mint, ok := e.Account.(*decode.MintAccount)
		if !ok {
			return e, &InvalidAccountVariantError{Address: addr, Want: decode.KindMint, Got: e.Account.Kind()}
		}
		next := *mint
		if amount > next.Supply {
			next.Supply = 0
		} else {
			next.Supply -= amount
		}
		e.Account = &next
		return e, nil
	})
}

// ApplyTransfer debits amount from the source token account's balance and, if
// tracked, credits it to the destination token account. A transfer adjusts
// holder balances only; total mint supply is unchanged.
func (t *Table) ApplyTransfer(source, destination solana.PublicKey, amount uint64) error {
	err := t.mutate(source, func(e Entry) (Entry, error) {
		tok, ok := e.Account.(*decode.TokenAccount)
		if !ok {
			return e, &InvalidAccountVariantError{Address: source, Want: decode.KindToken, Got: e.Account.Kind()}
		}
		next := *tok
		if amount > next.Amount {
			next.Amount = 0
		} else {
			next.Amount -= amount
		}
		e.Account = &next
		return e, nil
	})
	if err != nil {
		return err
	}

	return t.mutate(destination, func(e Entry) (Entry, error) {
		tok, ok := e.Account.(*decode.TokenAccount)
		if !ok {
			return e, &InvalidAccountVariantError{Address: destination, Want: decode.KindToken, Got: e.Account.Kind()}
		}
		next := *tok
		next.Amount += amount
		e.Account = &next
		return e, nil
	})
}
