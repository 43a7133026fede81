// Package users implements the registry of the participants of the supply
// chain and the role gate of the stage writes.
//
// A participant writes its own profile. The owner can write the profile of any
// identity except the null one. Profiles are never deleted; a participant is
// disabled by clearing its active flag.
//
// Documentation Last Review: 14.10.2026
//
package users

import (
	"encoding/json"

	"go.dedis.ch/coffeetrace"
	"go.dedis.ch/coffeetrace/contracts/supplychain/events"
	"go.dedis.ch/coffeetrace/contracts/supplychain/ownership"
	"go.dedis.ch/coffeetrace/contracts/supplychain/types"
	"go.dedis.ch/coffeetrace/core/access"
	"go.dedis.ch/coffeetrace/core/store"
	"go.dedis.ch/coffeetrace/core/store/prefixed"
	"golang.org/x/xerrors"
)

// Namespace is the prefix of the keys of the profiles in the store.
const Namespace = "coffeetrace.users"

const (
	// AttrRole is the attribute of the user events that holds the new role.
	AttrRole = "role"

	// AttrPreviousRole is the attribute of the role update event that holds
	// the role before the update.
	AttrPreviousRole = "previous_role"
)

// UpdateUser writes the profile of the caller.
func UpdateUser(snap store.Snapshot, call types.Call, profile types.User) error {
	if call.Caller.IsNull() {
		return xerrors.Errorf("caller: %w", types.ErrInvalidTarget)
	}

	return write(snap, call, call.Caller, profile)
}

// UpdateUserForAdmin writes the profile of the target on behalf of the owner.
func UpdateUserForAdmin(snap store.Snapshot, call types.Call,
	target access.Address, profile types.User) error {

	ok, err := ownership.IsOwner(snap, call.Caller)
	if err != nil {
		return xerrors.Errorf("failed to read owner: %v", err)
	}

	if !ok {
		return xerrors.Errorf("%v: %w", call.Caller, types.ErrNotOwner)
	}

	if target.IsNull() {
		return xerrors.Errorf("user: %w", types.ErrInvalidTarget)
	}

	return write(snap, call, target, profile)
}

// GetUser returns the profile of the identity, or the zero profile if it has
// never been written.
func GetUser(snap store.Readable, addr access.Address) (types.User, error) {
	var user types.User

	data, err := prefixed.NewReadable(Namespace, snap).Get(addr[:])
	if err != nil {
		return user, xerrors.Errorf("failed to read: %v", err)
	}

	if data == nil {
		return user, nil
	}

	err = json.Unmarshal(data, &user)
	if err != nil {
		return user, xerrors.Errorf("failed to decode user: %v", err)
	}

	return user, nil
}

// Authorize returns nil if the identity holds the role and is active,
// otherwise ErrUnauthorized.
func Authorize(snap store.Readable, addr access.Address, role types.Role) error {
	user, err := GetUser(snap, addr)
	if err != nil {
		return xerrors.Errorf("failed to read user: %v", err)
	}

	if !user.IsActive {
		return xerrors.Errorf("%v is not active: %w", addr, types.ErrUnauthorized)
	}

	if user.Role != role {
		return xerrors.Errorf("%v is %q instead of %q: %w", addr, user.Role, role,
			types.ErrUnauthorized)
	}

	return nil
}

func write(snap store.Snapshot, call types.Call, target access.Address, profile types.User) error {
	if !profile.Role.Valid() {
		return xerrors.Errorf("role %d: %w", profile.Role, types.ErrInvalidRole)
	}

	prev, err := GetUser(snap, target)
	if err != nil {
		return xerrors.Errorf("failed to read user: %v", err)
	}

	data, err := json.Marshal(profile)
	if err != nil {
		return xerrors.Errorf("failed to encode user: %v", err)
	}

	err = prefixed.NewSnapshot(Namespace, snap).Set(target[:], data)
	if err != nil {
		return xerrors.Errorf("failed to store user: %v", err)
	}

	log := events.NewLog(snap)

	_, err = log.Append(types.Event{
		Kind:       types.EventUserUpdate,
		Actor:      call.Caller,
		Subject:    target.Bytes(),
		Timestamp:  call.Timestamp,
		Attributes: map[string]string{AttrRole: profile.Role.String()},
	})
	if err != nil {
		return xerrors.Errorf("failed to append event: %v", err)
	}

	if prev.Role != profile.Role {
		_, err = log.Append(types.Event{
			Kind:      types.EventUserRoleUpdate,
			Actor:     call.Caller,
			Subject:   target.Bytes(),
			Timestamp: call.Timestamp,
			Attributes: map[string]string{
				AttrRole:         profile.Role.String(),
				AttrPreviousRole: prev.Role.String(),
			},
		})
		if err != nil {
			return xerrors.Errorf("failed to append event: %v", err)
		}
	}

	coffeetrace.Logger.Info().
		Str("contract", "users").
		Str("actor", call.Caller.String()).
		Str("user", target.String()).
		Stringer("role", profile.Role).
		Msg("user updated")

	return nil
}
