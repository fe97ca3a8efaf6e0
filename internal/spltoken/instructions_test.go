package spltoken

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"splpay/internal/cluster"
)

func TestTransferInstructionLayout(t *testing.T) {
	source := solana.NewWallet().PublicKey()
	dest := solana.NewWallet().PublicKey()
	authority := solana.NewWallet().PublicKey()
	reference := solana.NewWallet().PublicKey()

	inst := TransferInstruction(source, dest, authority, 12_500_000, reference)
	require.Equal(t, cluster.TokenProgramID, inst.ProgramID())

	data, err := inst.Data()
	require.NoError(t, err)
	require.Len(t, data, 9)
	require.Equal(t, byte(3), data[0])
	require.Equal(t, uint64(12_500_000), binary.LittleEndian.Uint64(data[1:]))

	accounts := inst.Accounts()
	require.Len(t, accounts, 4)

	require.Equal(t, source, accounts[0].PublicKey)
	require.True(t, accounts[0].IsWritable)
	require.False(t, accounts[0].IsSigner)

	require.Equal(t, dest, accounts[1].PublicKey)
	require.True(t, accounts[1].IsWritable)
	require.False(t, accounts[1].IsSigner)

	require.Equal(t, authority, accounts[2].PublicKey)
	require.True(t, accounts[2].IsSigner)
	require.False(t, accounts[2].IsWritable)

	// The reference tag must never sign and never be written to.
	require.Equal(t, reference, accounts[3].PublicKey)
	require.False(t, accounts[3].IsSigner)
	require.False(t, accounts[3].IsWritable)
}

func TestTransferInstructionWithoutReference(t *testing.T) {
	inst := TransferInstruction(
		solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(),
		1, solana.PublicKey{},
	)
	require.Len(t, inst.Accounts(), 3)
}

func TestCreateAccountInstructionLayout(t *testing.T) {
	payer := solana.NewWallet().PublicKey()
	owner := solana.NewWallet().PublicKey()
	mint := cluster.Mainnet.USDCMint
	account, err := Derive(owner, mint)
	require.NoError(t, err)

	inst := CreateAccountInstruction(payer, owner, mint, account)
	require.Equal(t, cluster.AssociatedTokenProgramID, inst.ProgramID())

	data, err := inst.Data()
	require.NoError(t, err)
	require.Empty(t, data)

	accounts := inst.Accounts()
	require.Len(t, accounts, 7)

	require.Equal(t, payer, accounts[0].PublicKey)
	require.True(t, accounts[0].IsSigner)
	require.True(t, accounts[0].IsWritable)

	require.Equal(t, account, accounts[1].PublicKey)
	require.False(t, accounts[1].IsSigner)
	require.True(t, accounts[1].IsWritable)

	require.Equal(t, owner, accounts[2].PublicKey)
	require.Equal(t, mint, accounts[3].PublicKey)
	require.Equal(t, cluster.SystemProgramID, accounts[4].PublicKey)
	require.Equal(t, cluster.TokenProgramID, accounts[5].PublicKey)
	require.Equal(t, cluster.SysvarRentID, accounts[6].PublicKey)
	for _, meta := range accounts[2:] {
		require.False(t, meta.IsSigner)
		require.False(t, meta.IsWritable)
	}
}
