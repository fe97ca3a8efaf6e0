// Package reconcile resolves a payment reference against the status
// store through bounded polling: pending → processing → one of paid,
// failed or timedOut.
package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"splpay/internal/store"
)

// Status is the reconciler-facing view of an attempt. It extends the
// store statuses with the terminal timeout the store never records.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusPaid       Status = "paid"
	StatusFailed     Status = "failed"
	StatusTimedOut   Status = "timedOut"
)

// Terminal reports whether the status ends polling.
func (s Status) Terminal() bool {
	return s == StatusPaid || s == StatusFailed || s == StatusTimedOut
}

// UserMessage is the human-readable outcome for terminal states. The
// timeout message deliberately differs from the failure one: a timed
// out confirmation may still have succeeded on chain, so the user must
// contact support rather than pay again.
func (s Status) UserMessage() string {
	switch s {
	case StatusPaid:
		return "Payment confirmed."
	case StatusFailed:
		return "Payment failed. No funds were received for this order; it is safe to retry."
	case StatusTimedOut:
		return "Payment confirmation timed out. If your wallet shows the payment as sent it may still be honored; contact support with your order id instead of paying again."
	default:
		return "Payment is being processed."
	}
}

const (
	DefaultInterval    = 3 * time.Second
	DefaultMaxAttempts = 60
)

// Update is delivered to the observer on every poll tick and on the
// terminal transition.
type Update struct {
	Reference    string
	OrderID      string
	Status       Status
	AttemptCount int
	Signature    string
}

// Observer receives Updates. It is called from the poll goroutine.
type Observer func(Update)

// Reconciler runs at most one poll loop per reference. Distinct
// references poll independently; they share nothing but the map of
// cancel handles.
type Reconciler struct {
	source      store.StatusSource
	interval    time.Duration
	maxAttempts int
	log         *logrus.Entry

	mu     sync.Mutex
	active map[string]context.CancelFunc
}

func New(source store.StatusSource, interval time.Duration, maxAttempts int, log *logrus.Entry) *Reconciler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Reconciler{
		source:      source,
		interval:    interval,
		maxAttempts: maxAttempts,
		log:         log.WithField("component", "reconciler"),
		active:      make(map[string]context.CancelFunc),
	}
}

// Start begins polling for reference. It returns false, without
// touching the running loop, when a loop for this reference is already
// active; two interval timers for one reference would double the
// network load and the terminal callbacks.
func (r *Reconciler) Start(ctx context.Context, reference, orderID string, observe Observer) bool {
	r.mu.Lock()
	if _, running := r.active[reference]; running {
		r.mu.Unlock()
		return false
	}
	loopCtx, cancel := context.WithCancel(ctx)
	r.active[reference] = cancel
	r.mu.Unlock()

	go r.loop(loopCtx, reference, orderID, observe)
	return true
}

// Cancel stops the loop for reference. No further ticks fire and no
// state transition is recorded; the attempt is simply no longer
// observed.
func (r *Reconciler) Cancel(reference string) {
	r.mu.Lock()
	cancel, running := r.active[reference]
	delete(r.active, reference)
	r.mu.Unlock()
	if running {
		cancel()
	}
}

// Active reports whether a loop is currently polling reference.
func (r *Reconciler) Active(reference string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, running := r.active[reference]
	return running
}

func (r *Reconciler) release(reference string) {
	r.mu.Lock()
	cancel, running := r.active[reference]
	delete(r.active, reference)
	r.mu.Unlock()
	if running {
		cancel()
	}
}

func (r *Reconciler) loop(ctx context.Context, reference, orderID string, observe Observer) {
	defer r.release(reference)

	log := r.log.WithFields(logrus.Fields{"reference": reference, "order_id": orderID})
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	attempts := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			return
		}
		attempts++

		result, err := r.source.CheckStatus(ctx, reference, orderID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// Transport errors and missing orders do not abort the
			// attempt: the order row may lag the checkout by a beat.
			// The attempt limit still bounds them.
			if errors.Is(err, store.ErrOrderNotFound) {
				log.WithField("attempt", attempts).Warn("order not visible yet")
			} else {
				log.WithError(err).WithField("attempt", attempts).Warn("status check failed")
			}
			result = store.StatusResult{Status: store.StatusPending}
		}

		update := Update{
			Reference:    reference,
			OrderID:      orderID,
			AttemptCount: attempts,
			Signature:    result.Signature,
		}
		switch result.Status {
		case store.StatusPaid:
			update.Status = StatusPaid
		case store.StatusFailed:
			update.Status = StatusFailed
		case store.StatusProcessing:
			update.Status = StatusProcessing
		default:
			update.Status = StatusPending
		}

		if ctx.Err() != nil {
			return
		}
		observe(update)

		if update.Status.Terminal() {
			log.WithField("status", update.Status).Info("reconciliation finished")
			return
		}
		if attempts >= r.maxAttempts {
			if ctx.Err() != nil {
				return
			}
			observe(Update{
				Reference:    reference,
				OrderID:      orderID,
				Status:       StatusTimedOut,
				AttemptCount: attempts,
			})
			log.WithField("attempts", attempts).Warn("reconciliation timed out")
			return
		}
	}
}
