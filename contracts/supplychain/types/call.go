package types

import "go.dedis.ch/coffeetrace/core/access"

// Call describes a write: the identity performing it and the time at which the
// ledger accepts it.
type Call struct {
	Caller    access.Address
	Timestamp uint64
}
