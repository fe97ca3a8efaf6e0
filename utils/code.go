// Package utils holds the transaction wire codec shared by the relay
// and the CLI tooling.
package utils

import (
	"encoding/base64"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// DecodeBase64Tx deserializes a base64-encoded transaction as received
// from a signing wallet.
func DecodeBase64Tx(b64 string) (*solana.Transaction, error) {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	return solana.TransactionFromDecoder(bin.NewBinDecoder(data))
}

// EncodeBase64Tx serializes a transaction for hand-off to a signer.
func EncodeBase64Tx(tx *solana.Transaction) (string, error) {
	enc, err := tx.MarshalBinary()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(enc), nil
}
