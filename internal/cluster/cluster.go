package cluster

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Well-known program and sysvar identifiers. These are the same on every
// cluster; call sites must reference them from here instead of repeating
// the base58 literals.
var (
	SystemProgramID          = solana.MustPublicKeyFromBase58("11111111111111111111111111111111")
	TokenProgramID           = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	AssociatedTokenProgramID = solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	SysvarRentID             = solana.MustPublicKeyFromBase58("SysvarRent111111111111111111111111111111111")
	MemoProgramID            = solana.MustPublicKeyFromBase58("MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr")
)

// Cluster groups the per-deployment identifiers that differ between
// mainnet, devnet and testnet.
type Cluster struct {
	Name        string
	RPCURL      string
	ExplorerTag string
	USDCMint    solana.PublicKey
}

var (
	Mainnet = Cluster{
		Name:        "mainnet",
		RPCURL:      "https://api.mainnet-beta.solana.com",
		ExplorerTag: "mainnet",
		USDCMint:    solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"),
	}
	Devnet = Cluster{
		Name:        "devnet",
		RPCURL:      "https://api.devnet.solana.com",
		ExplorerTag: "devnet",
		USDCMint:    solana.MustPublicKeyFromBase58("4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU"),
	}
	Testnet = Cluster{
		Name:        "testnet",
		RPCURL:      "https://api.testnet.solana.com",
		ExplorerTag: "testnet",
		USDCMint:    solana.MustPublicKeyFromBase58("CpMah17kQEL2wqyMKt3mZBdTnZbkbfx4nqmQMFDP5vwp"),
	}
)

// ByName resolves a cluster from its configured name.
func ByName(name string) (Cluster, error) {
	switch name {
	case "mainnet", "mainnet-beta":
		return Mainnet, nil
	case "devnet":
		return Devnet, nil
	case "testnet":
		return Testnet, nil
	default:
		return Cluster{}, fmt.Errorf("unknown cluster %q", name)
	}
}

// ExplorerTxURL returns the explorer link for a transaction signature.
func (c Cluster) ExplorerTxURL(sig solana.Signature) string {
	return "https://explorer.solana.com/tx/" + sig.String() + "?cluster=" + c.ExplorerTag
}
