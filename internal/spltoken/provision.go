package spltoken

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"splpay/internal/cluster"
)

var (
	ErrInsufficientFunds = errors.New("payer has insufficient funds")
	ErrSubmitFailed      = errors.New("account creation submission failed")
	ErrConfirmFailed     = errors.New("account creation not confirmed")
)

// EnsureResult reports whether EnsureAccount had to create the account.
// Signature is zero when no transaction was submitted.
type EnsureResult struct {
	Account   solana.PublicKey
	Created   bool
	Signature solana.Signature
}

// Provisioner creates associated token accounts on demand. It makes a
// single attempt per call; retry policy belongs to the caller.
type Provisioner struct {
	net cluster.Network
	log *logrus.Entry

	// Confirmation polling after submission.
	ConfirmInterval time.Duration
	ConfirmAttempts int
}

func NewProvisioner(net cluster.Network, log *logrus.Entry) *Provisioner {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Provisioner{
		net:             net,
		log:             log.WithField("component", "provisioner"),
		ConfirmInterval: 2 * time.Second,
		ConfirmAttempts: 30,
	}
}

// EnsureAccount derives the token account for (owner, mint), creates it
// funded by payer when absent, and waits for the creation to confirm.
// The chain enforces a single account per (owner, mint, program), so a
// racing duplicate creation that fails with "already in use" is treated
// as success: the account exists either way.
func (p *Provisioner) EnsureAccount(ctx context.Context, payer Signer, owner, mint solana.PublicKey) (EnsureResult, error) {
	account, err := Derive(owner, mint)
	if err != nil {
		return EnsureResult{}, err
	}

	info, err := p.net.GetAccountInfo(ctx, account)
	if err != nil {
		return EnsureResult{}, fmt.Errorf("check account %s: %w", account, err)
	}
	if info != nil {
		return EnsureResult{Account: account, Created: false}, nil
	}

	cp, err := p.net.GetLatestCheckpoint(ctx)
	if err != nil {
		return EnsureResult{}, fmt.Errorf("%w: %v", ErrSubmitFailed, err)
	}

	inst := CreateAccountInstruction(payer.PublicKey(), owner, mint, account)
	tx, err := solana.NewTransaction(
		[]solana.Instruction{inst},
		cp.Blockhash,
		solana.TransactionPayer(payer.PublicKey()),
	)
	if err != nil {
		return EnsureResult{}, fmt.Errorf("%w: build transaction: %v", ErrSubmitFailed, err)
	}
	if err := payer.SignTransaction(tx); err != nil {
		return EnsureResult{}, fmt.Errorf("%w: sign: %v", ErrSubmitFailed, err)
	}
	raw, err := tx.MarshalBinary()
	if err != nil {
		return EnsureResult{}, fmt.Errorf("%w: serialize: %v", ErrSubmitFailed, err)
	}

	sig, err := p.net.SubmitTransaction(ctx, raw)
	if err != nil {
		// A concurrent caller may have won the race between our existence
		// check and the submission.
		if info, checkErr := p.net.GetAccountInfo(ctx, account); checkErr == nil && info != nil {
			return EnsureResult{Account: account, Created: false}, nil
		}
		if isInsufficientFunds(err) {
			return EnsureResult{}, fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
		}
		return EnsureResult{}, fmt.Errorf("%w: %v", ErrSubmitFailed, err)
	}

	p.log.WithFields(logrus.Fields{
		"account":   account.String(),
		"owner":     owner.String(),
		"signature": sig.String(),
	}).Info("submitted token account creation")

	created, err := p.awaitConfirmation(ctx, sig, account)
	if err != nil {
		return EnsureResult{}, err
	}
	if !created {
		return EnsureResult{Account: account, Created: false}, nil
	}
	return EnsureResult{Account: account, Created: true, Signature: sig}, nil
}

func (p *Provisioner) awaitConfirmation(ctx context.Context, sig solana.Signature, account solana.PublicKey) (bool, error) {
	for attempt := 0; attempt < p.ConfirmAttempts; attempt++ {
		conf, err := p.net.ConfirmTransaction(ctx, sig)
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrConfirmFailed, err)
		}
		if conf.TxErr != nil {
			// "already in use" on execution means another creation landed
			// first; the account exists, which is what was asked for.
			if info, checkErr := p.net.GetAccountInfo(ctx, account); checkErr == nil && info != nil {
				return false, nil
			}
			return false, fmt.Errorf("%w: %v", ErrSubmitFailed, conf.TxErr)
		}
		if conf.Confirmed {
			return true, nil
		}
		select {
		case <-ctx.Done():
			return false, fmt.Errorf("%w: %v", ErrConfirmFailed, ctx.Err())
		case <-time.After(p.ConfirmInterval):
		}
	}
	return false, fmt.Errorf("%w: signature %s still pending after %d checks", ErrConfirmFailed, sig, p.ConfirmAttempts)
}

func isInsufficientFunds(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "insufficient funds") || strings.Contains(msg, "insufficient lamports")
}
