package types

import (
	"golang.org/x/xerrors"
)

// Role is the capability of a participant. The set of roles is closed.
type Role uint8

const (
	// RoleNone is the role of a participant that has never been registered.
	// It cannot be assigned.
	RoleNone Role = iota

	// RoleFarmer records the harvesting of a batch.
	RoleFarmer

	// RoleFarmInspector records the inspection of a batch.
	RoleFarmInspector

	// RoleProcessor records the processing of a batch.
	RoleProcessor

	// RoleExporter records the exportation of a batch.
	RoleExporter

	// RoleImporter records the importation of a batch.
	RoleImporter

	// RoleAdmin is an administrative role without a stage.
	RoleAdmin
)

var roleNames = map[Role]string{
	RoleFarmer:        "Farmer",
	RoleFarmInspector: "FarmInspector",
	RoleProcessor:     "Processor",
	RoleExporter:      "Exporter",
	RoleImporter:      "Importer",
	RoleAdmin:         "Admin",
}

// Roles returns the roles that can be assigned, in their canonical order.
func Roles() []Role {
	return []Role{RoleFarmer, RoleFarmInspector, RoleProcessor, RoleExporter,
		RoleImporter, RoleAdmin}
}

// ParseRole returns the role of the given name. It returns ErrInvalidRole for
// any name outside of the enumeration, including the empty one.
func ParseRole(name string) (Role, error) {
	for role, n := range roleNames {
		if n == name {
			return role, nil
		}
	}

	return RoleNone, xerrors.Errorf("%q: %w", name, ErrInvalidRole)
}

// Valid returns true if the role can be assigned to a participant.
func (r Role) Valid() bool {
	_, found := roleNames[r]
	return found
}

// String implements fmt.Stringer. The role of an unregistered participant is
// the empty string.
func (r Role) String() string {
	return roleNames[r]
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	if r != RoleNone && !r.Valid() {
		return nil, xerrors.Errorf("%d: %w", r, ErrInvalidRole)
	}

	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. The empty text is the
// role of an unregistered participant.
func (r *Role) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*r = RoleNone
		return nil
	}

	role, err := ParseRole(string(text))
	if err != nil {
		return err
	}

	*r = role

	return nil
}
