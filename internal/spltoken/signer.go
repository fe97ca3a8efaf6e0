package spltoken

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Signer approves transactions for one owner address. Checkout payments
// are signed by the payer's own wallet; this interface exists so the
// provisioner and the batch tooling can work against a server-held
// keypair without the pipeline ever touching key material directly.
type Signer interface {
	PublicKey() solana.PublicKey
	SignTransaction(tx *solana.Transaction) error
}

// LocalSigner signs with a keypair loaded from configuration, the way
// the admin provisioning path funds account creation.
type LocalSigner struct {
	key solana.PrivateKey
}

// NewLocalSigner parses a base58-encoded private key.
func NewLocalSigner(secretBase58 string) (*LocalSigner, error) {
	key, err := solana.PrivateKeyFromBase58(secretBase58)
	if err != nil {
		return nil, fmt.Errorf("parse payer secret: %w", err)
	}
	return &LocalSigner{key: key}, nil
}

func (s *LocalSigner) PublicKey() solana.PublicKey {
	return s.key.PublicKey()
}

func (s *LocalSigner) SignTransaction(tx *solana.Transaction) error {
	_, err := tx.Sign(func(pk solana.PublicKey) *solana.PrivateKey {
		if pk.Equals(s.key.PublicKey()) {
			return &s.key
		}
		return nil
	})
	return err
}
