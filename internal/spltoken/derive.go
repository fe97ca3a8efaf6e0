// Package spltoken derives associated token accounts and builds the
// instructions that create them and move balances between them.
package spltoken

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"splpay/internal/cluster"
)

// ErrDerivationExhausted means no valid off-curve address exists within
// the bump range of the program-derived-address scheme. Practically
// unreachable, but it must never be silently ignored.
var ErrDerivationExhausted = errors.New("token account derivation exhausted")

// Derive computes the deterministic associated token account address for
// an owner and mint. Pure: identical inputs always yield the identical
// address, so the result is recomputed everywhere instead of stored.
func Derive(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	seeds := [][]byte{
		owner.Bytes(),
		cluster.TokenProgramID.Bytes(),
		mint.Bytes(),
	}
	addr, _, err := solana.FindProgramAddress(seeds, cluster.AssociatedTokenProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: owner %s mint %s: %v", ErrDerivationExhausted, owner, mint, err)
	}
	return addr, nil
}
