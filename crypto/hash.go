package crypto

import (
	"crypto/sha256"
	"hash"

	"golang.org/x/crypto/sha3"
	"golang.org/x/xerrors"
)

// HashAlgorithm is the digest used to derive the identifiers.
type HashAlgorithm int

const (
	// Sha256 is the algorithm of the transaction identifiers and the default
	// one of the batch identifiers.
	Sha256 HashAlgorithm = iota

	// Sha3_256 can be chosen for the batch identifiers at genesis.
	Sha3_256
)

var hashNames = map[HashAlgorithm]string{
	Sha256:   "sha256",
	Sha3_256: "sha3-256",
}

// ParseHashAlgorithm returns the algorithm of the given name, either "sha256"
// or "sha3-256".
func ParseHashAlgorithm(name string) (HashAlgorithm, error) {
	for algo, n := range hashNames {
		if n == name {
			return algo, nil
		}
	}

	return 0, xerrors.Errorf("unknown hash algorithm '%s'", name)
}

// Valid returns true for a supported algorithm.
func (a HashAlgorithm) Valid() bool {
	_, found := hashNames[a]
	return found
}

// String implements fmt.Stringer.
func (a HashAlgorithm) String() string {
	name, found := hashNames[a]
	if !found {
		return "unknown"
	}

	return name
}

// HashFactory creates the hash functions of a given algorithm.
type HashFactory struct {
	algo HashAlgorithm
}

// NewHashFactory returns a factory for the algorithm.
func NewHashFactory(a HashAlgorithm) HashFactory {
	return HashFactory{algo: a}
}

// New returns a new hash. It panics for an unknown algorithm.
func (f HashFactory) New() hash.Hash {
	switch f.algo {
	case Sha256:
		return sha256.New()
	case Sha3_256:
		return sha3.New256()
	default:
		panic("unknown hash algorithm")
	}
}

// Size returns the length in bytes of the digests of the algorithm.
func (f HashFactory) Size() int {
	return f.New().Size()
}
