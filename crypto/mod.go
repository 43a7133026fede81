// Package crypto defines the cryptographic primitives used to authenticate the
// participants of the ledger.
//
// Documentation Last Review: 14.10.2026
//
package crypto

import (
	"encoding"
)

// PublicKey is a public identity that can be used to verify a signature.
type PublicKey interface {
	encoding.BinaryMarshaler
	encoding.TextMarshaler

	// Verify returns nil if the signature matches the message, otherwise an
	// error.
	Verify(msg []byte, sig Signature) error

	// Equal returns true if the other public key is the same.
	Equal(other PublicKey) bool
}

// Signature is a verifiable element for a unique message.
type Signature interface {
	encoding.BinaryMarshaler

	// Equal returns true if the other signature is the same.
	Equal(other Signature) bool
}

// Signer provides the primitives to sign and verify signatures.
type Signer interface {
	encoding.BinaryMarshaler

	// GetPublicKey returns the public key of the signer.
	GetPublicKey() PublicKey

	// Sign produces a signature of the message.
	Sign(msg []byte) (Signature, error)
}
