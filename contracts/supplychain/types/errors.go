package types

import "golang.org/x/xerrors"

// The errors below are the taxonomy of the rejections of the supply chain. A
// rejected operation never leaves a mutation or an event behind. Callers
// compare with xerrors.Is as the errors are always wrapped with context.
var (
	// ErrNotOwner is returned when a privileged operation is attempted by an
	// identity other than the owner.
	ErrNotOwner = xerrors.New("caller is not the owner")

	// ErrInvalidTarget is returned when the null identity is provided where a
	// real one is required.
	ErrInvalidTarget = xerrors.New("invalid target identity")

	// ErrInvalidRole is returned for a role outside of the enumeration.
	ErrInvalidRole = xerrors.New("invalid role")

	// ErrUnauthorized is returned when the role of the caller does not match
	// the stage, or when the caller is not active.
	ErrUnauthorized = xerrors.New("unauthorized")

	// ErrUnknownBatch is returned for a batch that has never been registered.
	ErrUnknownBatch = xerrors.New("unknown batch")

	// ErrStageOutOfOrder is returned when the stage is not the next one of the
	// batch, which includes a stage already completed.
	ErrStageOutOfOrder = xerrors.New("stage out of order")

	// ErrInconsistent is returned when the stages recorded on a batch have a
	// gap. The ledger never produces such a batch.
	ErrInconsistent = xerrors.New("inconsistent batch")
)
