// Package execution defines the service that applies a transaction to a
// snapshot of the store.
package execution

import (
	"go.dedis.ch/coffeetrace/core/store"
	"go.dedis.ch/coffeetrace/core/txn"
)

// Step is a context of execution. It contains the transaction to execute and
// the time at which the ledger accepts it.
type Step struct {
	// Current is the transaction to execute.
	Current txn.Transaction

	// Timestamp is the acceptance time of the transaction, in seconds since
	// the epoch, assigned by the ordering service.
	Timestamp uint64
}

// Result is the result of a transaction execution.
type Result struct {
	// Accepted is the success state of the transaction.
	Accepted bool

	// Message gives a change to the execution to explain why a transaction has
	// failed.
	Message string
}

// Service is the execution service that defines the primitives to execute a
// transaction.
type Service interface {
	// Execute must apply the transaction to the snapshot and return the result
	// of it. An error means the execution could not be performed, whereas a
	// refused transaction is reported in the result.
	Execute(snap store.Snapshot, step Step) (Result, error)
}
