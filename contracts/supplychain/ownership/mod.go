// Package ownership implements the access control of the supply chain: a
// single owner identity that can be transferred or renounced.
//
// Renouncing sets the owner to the null identity. Nothing can sign for it, so
// the privileged operations are disabled for good.
//
// Documentation Last Review: 14.10.2026
//
package ownership

import (
	"go.dedis.ch/coffeetrace/contracts/supplychain/events"
	"go.dedis.ch/coffeetrace/contracts/supplychain/types"
	"go.dedis.ch/coffeetrace/core/access"
	"go.dedis.ch/coffeetrace/core/store"
	"go.dedis.ch/coffeetrace/core/store/prefixed"
	"golang.org/x/xerrors"
)

// Namespace is the prefix of the keys of the ownership in the store.
const Namespace = "coffeetrace.ownership"

const (
	// AttrPrevious is the attribute of the ownership events that holds the
	// previous owner.
	AttrPrevious = "previous"

	// AttrNew is the attribute of the transfer event that holds the new owner.
	AttrNew = "new"
)

var (
	ownerKey       = []byte("owner")
	initializedKey = []byte("initialized")
)

// Init stores the initial owner. It can only happen once, including after the
// ownership has been renounced.
func Init(snap store.Snapshot, owner access.Address) error {
	if owner.IsNull() {
		return xerrors.Errorf("initial owner: %w", types.ErrInvalidTarget)
	}

	s := prefixed.NewSnapshot(Namespace, snap)

	flag, err := s.Get(initializedKey)
	if err != nil {
		return xerrors.Errorf("failed to read: %v", err)
	}

	if flag != nil {
		return xerrors.New("ownership already initialized")
	}

	err = s.Set(initializedKey, []byte{1})
	if err != nil {
		return xerrors.Errorf("failed to store flag: %v", err)
	}

	err = s.Set(ownerKey, owner.Bytes())
	if err != nil {
		return xerrors.Errorf("failed to store owner: %v", err)
	}

	return nil
}

// Owner returns the current owner, or the null identity when the ownership has
// never been initialized or has been renounced.
func Owner(snap store.Readable) (access.Address, error) {
	data, err := prefixed.NewReadable(Namespace, snap).Get(ownerKey)
	if err != nil {
		return access.NullAddress, xerrors.Errorf("failed to read: %v", err)
	}

	var owner access.Address

	if len(data) == 0 {
		return owner, nil
	}

	if len(data) != access.AddressLength {
		return owner, xerrors.Errorf("invalid owner of %d bytes", len(data))
	}

	copy(owner[:], data)

	return owner, nil
}

// IsOwner returns true when the address is the current owner. The null identity
// is never the owner.
func IsOwner(snap store.Readable, addr access.Address) (bool, error) {
	if addr.IsNull() {
		return false, nil
	}

	owner, err := Owner(snap)
	if err != nil {
		return false, err
	}

	return owner.Equal(addr), nil
}

// TransferOwnership gives the ownership to a new identity. Only the owner can
// do it.
func TransferOwnership(snap store.Snapshot, call types.Call, newOwner access.Address) error {
	previous, err := checkOwner(snap, call)
	if err != nil {
		return err
	}

	if newOwner.IsNull() {
		return xerrors.Errorf("new owner: %w", types.ErrInvalidTarget)
	}

	err = prefixed.NewSnapshot(Namespace, snap).Set(ownerKey, newOwner.Bytes())
	if err != nil {
		return xerrors.Errorf("failed to store owner: %v", err)
	}

	_, err = events.NewLog(snap).Append(types.Event{
		Kind:      types.EventOwnershipTransferred,
		Actor:     call.Caller,
		Subject:   newOwner.Bytes(),
		Timestamp: call.Timestamp,
		Attributes: map[string]string{
			AttrPrevious: previous.String(),
			AttrNew:      newOwner.String(),
		},
	})
	if err != nil {
		return xerrors.Errorf("failed to append event: %v", err)
	}

	return nil
}

// RenounceOwnership sets the owner to the null identity. Only the owner can do
// it and it cannot be undone.
func RenounceOwnership(snap store.Snapshot, call types.Call) error {
	previous, err := checkOwner(snap, call)
	if err != nil {
		return err
	}

	err = prefixed.NewSnapshot(Namespace, snap).Set(ownerKey, access.NullAddress.Bytes())
	if err != nil {
		return xerrors.Errorf("failed to store owner: %v", err)
	}

	_, err = events.NewLog(snap).Append(types.Event{
		Kind:      types.EventOwnershipRenounced,
		Actor:     call.Caller,
		Subject:   previous.Bytes(),
		Timestamp: call.Timestamp,
		Attributes: map[string]string{
			AttrPrevious: previous.String(),
		},
	})
	if err != nil {
		return xerrors.Errorf("failed to append event: %v", err)
	}

	return nil
}

func checkOwner(snap store.Readable, call types.Call) (access.Address, error) {
	owner, err := Owner(snap)
	if err != nil {
		return owner, xerrors.Errorf("failed to read owner: %v", err)
	}

	if owner.IsNull() || !owner.Equal(call.Caller) {
		return owner, xerrors.Errorf("%v: %w", call.Caller, types.ErrNotOwner)
	}

	return owner, nil
}
