// Package checkout accepts wallet-signed transactions and broadcasts
// them, the server-side half of the interactive payment path.
package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"splpay/internal/cluster"
	"splpay/utils"
)

var (
	ErrInvalidRequest  = errors.New("invalid request")
	ErrBadTransaction  = errors.New("bad transaction")
	ErrBroadcastFailed = errors.New("broadcast failed")
)

// RelayResult reports a broadcast transaction.
type RelayResult struct {
	Signature   string
	ExplorerURL string
}

// Relay validates and broadcasts serialized signed transactions. It
// never signs anything: the wallet has already done that, and a
// submission failure surfaces immediately instead of being retried.
type Relay struct {
	net     cluster.Network
	cluster cluster.Cluster
	log     *logrus.Entry
}

func NewRelay(net cluster.Network, cl cluster.Cluster, log *logrus.Entry) *Relay {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Relay{
		net:     net,
		cluster: cl,
		log:     log.WithField("component", "relay"),
	}
}

// SubmitSigned decodes a base64-serialized signed transaction, checks
// it actually carries its required signatures, and broadcasts it.
func (r *Relay) SubmitSigned(ctx context.Context, serializedTx string) (RelayResult, error) {
	if serializedTx == "" {
		return RelayResult{}, ErrInvalidRequest
	}
	tx, err := utils.DecodeBase64Tx(serializedTx)
	if err != nil {
		return RelayResult{}, fmt.Errorf("%w: %v", ErrBadTransaction, err)
	}

	required := int(tx.Message.Header.NumRequiredSignatures)
	if len(tx.Signatures) < required {
		return RelayResult{}, fmt.Errorf("%w: %d of %d signatures present", ErrBadTransaction, len(tx.Signatures), required)
	}
	for i := 0; i < required; i++ {
		if tx.Signatures[i].IsZero() {
			return RelayResult{}, fmt.Errorf("%w: signature %d is missing", ErrBadTransaction, i)
		}
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		return RelayResult{}, fmt.Errorf("%w: serialize: %v", ErrBadTransaction, err)
	}

	sig, err := r.net.SubmitTransaction(ctx, raw)
	if err != nil {
		return RelayResult{}, fmt.Errorf("%w: %v", ErrBroadcastFailed, err)
	}

	conf, err := r.net.ConfirmTransaction(ctx, sig)
	if err != nil {
		r.log.WithError(err).WithField("signature", sig.String()).
			Warn("could not verify broadcast status")
	} else if conf.TxErr != nil {
		return RelayResult{}, fmt.Errorf("%w: %v", ErrBroadcastFailed, conf.TxErr)
	}

	r.log.WithField("signature", sig.String()).Info("transaction broadcast")
	return RelayResult{
		Signature:   sig.String(),
		ExplorerURL: r.cluster.ExplorerTxURL(sig),
	}, nil
}
