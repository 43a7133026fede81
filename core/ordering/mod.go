// Package ordering defines the interface of the ordering service. The service
// decides the order of the transactions, executes them one after the other and
// reports the outcome of each of them.
//
// Documentation Last Review: 14.10.2026
//
package ordering

import (
	"context"

	"go.dedis.ch/coffeetrace/core/access"
	"go.dedis.ch/coffeetrace/core/txn/signed"
)

// Receipt is the outcome of a transaction that has been executed.
type Receipt struct {
	ID        []byte
	Nonce     uint64
	Identity  access.Address
	Accepted  bool
	Message   string `json:",omitempty"`
	Timestamp uint64
}

// Service is the interface of an ordering service.
type Service interface {
	// Submit executes the transaction and returns its receipt. An error is
	// returned when the transaction could not be ordered at all.
	Submit(ctx context.Context, tx *signed.Transaction) (Receipt, error)

	// GetReceipt returns the receipt of a transaction already ordered.
	GetReceipt(id []byte) (Receipt, error)

	// Watch returns a channel populated with the receipts of the transactions
	// submitted after the call, until the context is done.
	Watch(ctx context.Context) <-chan Receipt
}
