package signed

import (
	"encoding/json"

	"go.dedis.ch/coffeetrace/crypto/bls"
	"golang.org/x/xerrors"
)

// transactionJSON is the JSON message of a signed transaction.
type transactionJSON struct {
	Nonce     uint64
	Args      map[string][]byte
	PublicKey []byte
	Signature []byte
}

// Serialize returns the JSON representation of the transaction.
func (t *Transaction) Serialize() ([]byte, error) {
	pubkey, err := t.pubkey.MarshalBinary()
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal public key: %v", err)
	}

	m := transactionJSON{
		Nonce:     t.nonce,
		Args:      t.args,
		PublicKey: pubkey,
	}

	if t.sig != nil {
		m.Signature, err = t.sig.MarshalBinary()
		if err != nil {
			return nil, xerrors.Errorf("failed to marshal signature: %v", err)
		}
	}

	data, err := json.Marshal(m)
	if err != nil {
		return nil, xerrors.Errorf("failed to encode: %v", err)
	}

	return data, nil
}

// Deserialize populates a BLS-signed transaction from its JSON representation.
// The signature, if any, is verified.
func Deserialize(data []byte) (*Transaction, error) {
	m := transactionJSON{}

	err := json.Unmarshal(data, &m)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode: %v", err)
	}

	pubkey, err := bls.NewPublicKey(m.PublicKey)
	if err != nil {
		return nil, xerrors.Errorf("public key: %v", err)
	}

	opts := make([]TransactionOption, 0, len(m.Args)+1)
	for key, value := range m.Args {
		opts = append(opts, WithArg(key, value))
	}

	if len(m.Signature) > 0 {
		opts = append(opts, WithSignature(bls.NewSignature(m.Signature)))
	}

	tx, err := NewTransaction(m.Nonce, pubkey, opts...)
	if err != nil {
		return nil, xerrors.Errorf("failed to create tx: %v", err)
	}

	return tx, nil
}
