// Package store persists payment orders and exposes the narrow status
// lookup the reconciler polls. Settlement writes happen here too, but
// only the settlement watcher calls those paths.
package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Status is the settlement state of an order as recorded off chain.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusPaid       Status = "paid"
	StatusFailed     Status = "failed"
)

// ErrOrderNotFound distinguishes a missing order from a genuinely
// pending one.
var ErrOrderNotFound = errors.New("order not found")

// StatusResult is one status observation. Signature is set once the
// order is paid.
type StatusResult struct {
	Status    Status
	Signature string
}

// StatusSource is the read interface the reconciler polls.
type StatusSource interface {
	CheckStatus(ctx context.Context, reference, orderID string) (StatusResult, error)
}

// Order is one checkout attempt awaiting (or past) settlement. The
// reference is unique per attempt and never reused.
type Order struct {
	gorm.Model
	OrderID        string `gorm:"uniqueIndex;size:64"`
	Reference      string `gorm:"uniqueIndex;size:44"`
	RecipientOwner string `gorm:"size:44"`
	Recipient      string `gorm:"size:44"` // recipient token account
	Mint           string `gorm:"size:44"`
	Amount         uint64 // base units at mint precision
	Label          string `gorm:"size:200"`
	Message        string `gorm:"size:200"`
	Status         string `gorm:"size:20;default:'pending'"`
	TxSignature    string `gorm:"size:88"`
	BlockHeight    uint64
	LastError      string `gorm:"size:500"`
}
