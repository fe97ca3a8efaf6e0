package spltoken

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"

	"splpay/internal/cluster"
)

// CreateAccountInstruction builds the create-associated-token-account
// instruction for owner and mint, funded by payer. The account argument
// must be the address returned by Derive(owner, mint).
func CreateAccountInstruction(payer, owner, mint, account solana.PublicKey) solana.Instruction {
	accounts := solana.AccountMetaSlice{
		{PublicKey: payer, IsSigner: true, IsWritable: true},
		{PublicKey: account, IsSigner: false, IsWritable: true},
		{PublicKey: owner, IsSigner: false, IsWritable: false},
		{PublicKey: mint, IsSigner: false, IsWritable: false},
		{PublicKey: cluster.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: cluster.TokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: cluster.SysvarRentID, IsSigner: false, IsWritable: false},
	}
	return solana.NewInstruction(cluster.AssociatedTokenProgramID, accounts, nil)
}

// TransferInstruction builds the token transfer instruction:
// discriminator 3 followed by the amount as a little-endian uint64 in
// base units. A non-zero reference rides along as a readonly non-signer
// account, so indexers can locate the transfer by reference alone
// without trusting a client-reported signature.
func TransferInstruction(source, destination, authority solana.PublicKey, amount uint64, reference solana.PublicKey) solana.Instruction {
	data := make([]byte, 9)
	data[0] = 3 // Transfer
	binary.LittleEndian.PutUint64(data[1:], amount)

	accounts := solana.AccountMetaSlice{
		{PublicKey: source, IsSigner: false, IsWritable: true},
		{PublicKey: destination, IsSigner: false, IsWritable: true},
		{PublicKey: authority, IsSigner: true, IsWritable: false},
	}
	if !reference.IsZero() {
		accounts = append(accounts, &solana.AccountMeta{PublicKey: reference, IsSigner: false, IsWritable: false})
	}
	return solana.NewInstruction(cluster.TokenProgramID, accounts, data)
}
