package payment

import (
	"errors"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"splpay/internal/spltoken"
)

var ErrMissingBlockhash = errors.New("recent blockhash is required")

// TransferParams describes one transfer attempt. RecentBlockhash is
// caller-supplied and the caller owns its freshness: a stale blockhash
// fails at submission and is not retried here.
type TransferParams struct {
	SenderOwner    solana.PublicKey
	RecipientOwner solana.PublicKey
	Mint           solana.PublicKey
	MintDecimals   uint8
	Amount         decimal.Decimal
	Reference      solana.PublicKey

	// CreateRecipient prepends a create-account instruction funded by
	// the sender. Set it when the caller has established (for example
	// via the provisioner's existence check) that the recipient token
	// account is absent.
	CreateRecipient bool

	RecentBlockhash solana.Hash
}

// BuildTransfer assembles the unsigned transfer transaction: an
// optional create-account instruction strictly before the transfer
// instruction, fee payer set to the sender. Signing is the wallet's
// job, never this package's.
func BuildTransfer(p TransferParams) (*solana.Transaction, error) {
	amount, err := ToBaseUnits(p.Amount, p.MintDecimals)
	if err != nil {
		return nil, err
	}
	if p.RecentBlockhash.IsZero() {
		return nil, ErrMissingBlockhash
	}

	source, err := spltoken.Derive(p.SenderOwner, p.Mint)
	if err != nil {
		return nil, err
	}
	destination, err := spltoken.Derive(p.RecipientOwner, p.Mint)
	if err != nil {
		return nil, err
	}

	var instructions []solana.Instruction
	if p.CreateRecipient {
		instructions = append(instructions,
			spltoken.CreateAccountInstruction(p.SenderOwner, p.RecipientOwner, p.Mint, destination))
	}
	instructions = append(instructions,
		spltoken.TransferInstruction(source, destination, p.SenderOwner, amount, p.Reference))

	return solana.NewTransaction(
		instructions,
		p.RecentBlockhash,
		solana.TransactionPayer(p.SenderOwner),
	)
}
