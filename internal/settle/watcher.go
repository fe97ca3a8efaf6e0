// Package settle watches the chain for transfers tagged with open
// order references and records the outcome in the order store. It is
// the write side of the status store the reconciler reads.
package settle

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/sirupsen/logrus"

	"splpay/internal/cluster"
	"splpay/internal/store"
)

// OrderStore is the slice of the store the watcher needs.
type OrderStore interface {
	OpenOrders(ctx context.Context) ([]store.Order, error)
	MarkPaid(ctx context.Context, reference, signature string, blockHeight uint64) error
	MarkFailed(ctx context.Context, reference, reason string) error
}

// Watcher polls signatures by reference address. Because the transfer
// instruction carries the reference as an account, a single signature
// lookup on the reference finds the settling transaction without any
// client-reported hint.
type Watcher struct {
	net      cluster.Network
	orders   OrderStore
	interval time.Duration
	log      *logrus.Entry
}

func NewWatcher(net cluster.Network, orders OrderStore, interval time.Duration, log *logrus.Entry) *Watcher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Watcher{
		net:      net,
		orders:   orders,
		interval: interval,
		log:      log.WithField("component", "settle"),
	}
}

// Run sweeps open orders on a fixed interval until the context is
// cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info("settlement watcher stopped")
			return
		case <-ticker.C:
		}
		w.Sweep(ctx)
	}
}

// Sweep checks every open order once. Per-order failures are logged
// and do not stop the sweep.
func (w *Watcher) Sweep(ctx context.Context) {
	orders, err := w.orders.OpenOrders(ctx)
	if err != nil {
		w.log.WithError(err).Error("load open orders")
		return
	}
	for i := range orders {
		if ctx.Err() != nil {
			return
		}
		if err := w.settleOrder(ctx, &orders[i]); err != nil {
			w.log.WithError(err).WithField("order_id", orders[i].OrderID).Warn("settle order")
		}
	}
}

func (w *Watcher) settleOrder(ctx context.Context, order *store.Order) error {
	reference, err := solana.PublicKeyFromBase58(order.Reference)
	if err != nil {
		return fmt.Errorf("order %s has malformed reference: %w", order.OrderID, err)
	}

	sigs, err := w.net.SignaturesForAddress(ctx, reference, 10)
	if err != nil {
		return err
	}
	if len(sigs) == 0 {
		return nil // nothing on chain yet, keep waiting
	}

	// Oldest first: the first transaction touching the reference is the
	// payment attempt; a reference is single-use by construction.
	for i := len(sigs) - 1; i >= 0; i-- {
		sigInfo := sigs[i]
		if sigInfo.BlockTime == nil || *sigInfo.BlockTime == 0 {
			continue // not yet finalized
		}
		if sigInfo.Err != nil {
			w.log.WithFields(logrus.Fields{
				"order_id":  order.OrderID,
				"signature": sigInfo.Signature.String(),
			}).Info("payment transaction failed on chain")
			return w.orders.MarkFailed(ctx, order.Reference, fmt.Sprintf("transaction failed: %v", sigInfo.Err))
		}

		received, err := w.amountReceived(ctx, sigInfo.Signature, order)
		if err != nil {
			return err
		}
		if received == 0 {
			continue // touched the reference but moved nothing to us
		}
		if received < order.Amount {
			// Underpaid transfers stay open; the watcher never guesses
			// at partial settlement.
			w.log.WithFields(logrus.Fields{
				"order_id": order.OrderID,
				"expected": order.Amount,
				"received": received,
			}).Warn("underpaid transfer ignored")
			continue
		}
		w.log.WithFields(logrus.Fields{
			"order_id":  order.OrderID,
			"signature": sigInfo.Signature.String(),
			"amount":    received,
		}).Info("payment settled")
		return w.orders.MarkPaid(ctx, order.Reference, sigInfo.Signature.String(), sigInfo.Slot)
	}
	return nil
}

// amountReceived computes how many base units of the order's mint the
// recipient gained in the transaction, from the pre/post token balance
// deltas.
func (w *Watcher) amountReceived(ctx context.Context, sig solana.Signature, order *store.Order) (uint64, error) {
	tx, err := w.net.GetTransaction(ctx, sig)
	if err != nil {
		return 0, err
	}
	if tx == nil || tx.Meta == nil {
		return 0, nil
	}

	mint, err := solana.PublicKeyFromBase58(order.Mint)
	if err != nil {
		return 0, fmt.Errorf("order %s has malformed mint: %w", order.OrderID, err)
	}
	owner, err := solana.PublicKeyFromBase58(order.RecipientOwner)
	if err != nil {
		return 0, fmt.Errorf("order %s has malformed recipient owner: %w", order.OrderID, err)
	}

	post := findBalance(tx.Meta.PostTokenBalances, mint, owner)
	if post == nil {
		return 0, nil
	}
	postAmount, err := rawAmount(post)
	if err != nil {
		return 0, err
	}
	var preAmount uint64
	if pre := findBalance(tx.Meta.PreTokenBalances, mint, owner); pre != nil {
		if preAmount, err = rawAmount(pre); err != nil {
			return 0, err
		}
	}
	if postAmount <= preAmount {
		return 0, nil
	}
	return postAmount - preAmount, nil
}

func findBalance(balances []rpc.TokenBalance, mint, owner solana.PublicKey) *rpc.TokenBalance {
	for i := range balances {
		b := &balances[i]
		if b.Mint != mint {
			continue
		}
		if b.Owner == nil || !b.Owner.Equals(owner) {
			continue
		}
		return b
	}
	return nil
}

// rawAmount reads the balance in base units from the RPC string field,
// avoiding the float rounding of UiAmount.
func rawAmount(b *rpc.TokenBalance) (uint64, error) {
	if b.UiTokenAmount == nil {
		return 0, nil
	}
	amount, err := strconv.ParseUint(b.UiTokenAmount.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse token balance %q: %w", b.UiTokenAmount.Amount, err)
	}
	return amount, nil
}
