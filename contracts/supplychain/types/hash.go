package types

import (
	"encoding/hex"
	"strings"

	"golang.org/x/xerrors"
)

// HashLength is the size in bytes of the fixed-size tokens.
const HashLength = 32

// Hash is an opaque fixed-size content reference.
type Hash [HashLength]byte

// ParseHash parses the hexadecimal representation of a hash, with or without
// the 0x prefix.
func ParseHash(text string) (Hash, error) {
	var h Hash

	err := decodeFixed(text, h[:])
	if err != nil {
		return h, err
	}

	return h, nil
}

// IsZero returns true for the zero hash.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// String implements fmt.Stringer.
func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// MarshalText implements encoding.TextMarshaler.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(text []byte) error {
	return decodeFixed(string(text), h[:])
}

// BatchID is the unique identifier of a batch.
type BatchID [HashLength]byte

// ParseBatchID parses the hexadecimal representation of a batch identifier,
// with or without the 0x prefix.
func ParseBatchID(text string) (BatchID, error) {
	var id BatchID

	err := decodeFixed(text, id[:])
	if err != nil {
		return id, err
	}

	return id, nil
}

// String implements fmt.Stringer.
func (id BatchID) String() string {
	return "0x" + hex.EncodeToString(id[:])
}

// MarshalText implements encoding.TextMarshaler.
func (id BatchID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *BatchID) UnmarshalText(text []byte) error {
	return decodeFixed(string(text), id[:])
}

func decodeFixed(text string, out []byte) error {
	text = strings.TrimPrefix(strings.TrimSpace(text), "0x")

	buffer, err := hex.DecodeString(text)
	if err != nil {
		return xerrors.Errorf("failed to decode: %v", err)
	}

	if len(buffer) != len(out) {
		return xerrors.Errorf("invalid length %d != %d", len(buffer), len(out))
	}

	copy(out, buffer)

	return nil
}
