package cluster

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/sirupsen/logrus"
)

// Checkpoint is a recent ledger state marker bounding a transaction's
// validity window.
type Checkpoint struct {
	Blockhash            solana.Hash
	LastValidBlockHeight uint64
}

// Confirmation reports the observed outcome of a submitted transaction.
// TxErr carries the on-chain execution error, if any.
type Confirmation struct {
	Confirmed bool
	TxErr     error
}

// Network is the narrow RPC surface the payment pipeline consumes.
// GetAccountInfo returns a nil account when the address does not exist
// on chain.
type Network interface {
	GetAccountInfo(ctx context.Context, addr solana.PublicKey) (*rpc.Account, error)
	GetLatestCheckpoint(ctx context.Context) (Checkpoint, error)
	SubmitTransaction(ctx context.Context, signed []byte) (solana.Signature, error)
	ConfirmTransaction(ctx context.Context, sig solana.Signature) (Confirmation, error)
	SignaturesForAddress(ctx context.Context, addr solana.PublicKey, limit int) ([]*rpc.TransactionSignature, error)
	GetTransaction(ctx context.Context, sig solana.Signature) (*rpc.GetTransactionResult, error)
}

// Client implements Network over a JSON-RPC endpoint.
type Client struct {
	rpc *rpc.Client
	log *logrus.Entry
}

func NewClient(rpcURL string, log *logrus.Entry) *Client {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Client{
		rpc: rpc.New(rpcURL),
		log: log.WithField("component", "rpc"),
	}
}

func (c *Client) GetAccountInfo(ctx context.Context, addr solana.PublicKey) (*rpc.Account, error) {
	out, err := c.rpc.GetAccountInfo(ctx, addr)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getAccountInfo %s: %w", addr, err)
	}
	if out == nil {
		return nil, nil
	}
	return out.Value, nil
}

// GetLatestCheckpoint fetches a finalized blockhash, falling back to
// confirmed commitment when the node cannot serve finalized.
func (c *Client) GetLatestCheckpoint(ctx context.Context) (Checkpoint, error) {
	bh, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		c.log.WithError(err).Warn("finalized blockhash unavailable, trying confirmed")
		bh, err = c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
		if err != nil {
			return Checkpoint{}, fmt.Errorf("getLatestBlockhash: %w", err)
		}
	}
	return Checkpoint{
		Blockhash:            bh.Value.Blockhash,
		LastValidBlockHeight: bh.Value.LastValidBlockHeight,
	}, nil
}

// SubmitTransaction broadcasts a signed serialized transaction with
// skipPreflight set, so a blockhash that is slightly behind the node's
// latest is still judged by the chain rather than rejected up front.
func (c *Client) SubmitTransaction(ctx context.Context, signed []byte) (solana.Signature, error) {
	encoded := base64.StdEncoding.EncodeToString(signed)
	var sig solana.Signature
	err := c.rpc.RPCCallForInto(ctx, &sig, "sendTransaction", []interface{}{
		encoded,
		map[string]interface{}{
			"skipPreflight":       true,
			"preflightCommitment": "confirmed",
			"encoding":            "base64",
		},
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("sendTransaction: %w", err)
	}
	if sig.IsZero() {
		return solana.Signature{}, errors.New("sendTransaction returned a zero signature")
	}
	return sig, nil
}

func (c *Client) ConfirmTransaction(ctx context.Context, sig solana.Signature) (Confirmation, error) {
	statuses, err := c.rpc.GetSignatureStatuses(ctx, false, sig)
	if err != nil {
		return Confirmation{}, fmt.Errorf("getSignatureStatuses: %w", err)
	}
	if statuses == nil || len(statuses.Value) == 0 || statuses.Value[0] == nil {
		return Confirmation{}, nil
	}
	st := statuses.Value[0]
	if st.Err != nil {
		return Confirmation{TxErr: fmt.Errorf("transaction failed on chain: %v", st.Err)}, nil
	}
	confirmed := st.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
		st.ConfirmationStatus == rpc.ConfirmationStatusFinalized
	return Confirmation{Confirmed: confirmed}, nil
}

func (c *Client) SignaturesForAddress(ctx context.Context, addr solana.PublicKey, limit int) ([]*rpc.TransactionSignature, error) {
	sigs, err := c.rpc.GetSignaturesForAddressWithOpts(ctx, addr, &rpc.GetSignaturesForAddressOpts{
		Limit: &limit,
	})
	if err != nil {
		return nil, fmt.Errorf("getSignaturesForAddress %s: %w", addr, err)
	}
	return sigs, nil
}

func (c *Client) GetTransaction(ctx context.Context, sig solana.Signature) (*rpc.GetTransactionResult, error) {
	out, err := c.rpc.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding: solana.EncodingBase64,
	})
	if err != nil {
		return nil, fmt.Errorf("getTransaction %s: %w", sig, err)
	}
	return out, nil
}
