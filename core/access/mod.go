// Package access defines the identity of the participants of the ledger.
//
// An identity is an address: a fixed-size token derived from a public key. The
// zero address is the null identity; it never matches a signer and is used to
// represent the absence of an owner.
//
// Documentation Last Review: 14.10.2026
//
package access

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/xerrors"
)

// AddressLength is the size in bytes of an address.
const AddressLength = 20

// Address is the unique identifier of a participant.
type Address [AddressLength]byte

// NullAddress is the null identity.
var NullAddress = Address{}

// NewAddress derives the address of a public key. The address is made of the
// last bytes of the hash of the public key.
func NewAddress(pubkey []byte) Address {
	digest := sha256.Sum256(pubkey)

	var addr Address
	copy(addr[:], digest[len(digest)-AddressLength:])

	return addr
}

// ParseAddress parses an hexadecimal representation of an address, with or
// without the 0x prefix.
func ParseAddress(text string) (Address, error) {
	var addr Address

	text = strings.TrimPrefix(strings.TrimSpace(text), "0x")

	buffer, err := hex.DecodeString(text)
	if err != nil {
		return addr, xerrors.Errorf("failed to decode address: %v", err)
	}

	if len(buffer) != AddressLength {
		return addr, xerrors.Errorf("invalid address length %d != %d",
			len(buffer), AddressLength)
	}

	copy(addr[:], buffer)

	return addr, nil
}

// IsNull returns true if the address is the null identity.
func (a Address) IsNull() bool {
	return a == NullAddress
}

// Equal returns true when both addresses are the same.
func (a Address) Equal(other Address) bool {
	return a == other
}

// Bytes returns a copy of the address as a slice.
func (a Address) Bytes() []byte {
	return append([]byte{}, a[:]...)
}

// String implements fmt.Stringer. It returns the 0x-prefixed hexadecimal
// representation of the address.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	addr, err := ParseAddress(string(text))
	if err != nil {
		return err
	}

	*a = addr

	return nil
}
