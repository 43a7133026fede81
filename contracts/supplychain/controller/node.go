package controller

import (
	"context"

	"go.dedis.ch/coffeetrace/contracts/supplychain"
	"go.dedis.ch/coffeetrace/core/access"
	"go.dedis.ch/coffeetrace/core/execution/native"
	"go.dedis.ch/coffeetrace/core/ordering"
	"go.dedis.ch/coffeetrace/core/ordering/serial"
	"go.dedis.ch/coffeetrace/core/store"
	"go.dedis.ch/coffeetrace/core/store/kv"
	"go.dedis.ch/coffeetrace/core/store/mem"
	"go.dedis.ch/coffeetrace/core/txn"
	"go.dedis.ch/coffeetrace/core/txn/signed"
	"go.dedis.ch/coffeetrace/crypto"
	"go.dedis.ch/coffeetrace/crypto/bls"
	"go.dedis.ch/coffeetrace/crypto/loader"
	"golang.org/x/xerrors"
)

// node gathers the services opened for the duration of a command.
type node struct {
	cfg  Config
	db   kv.DB
	srvc *serial.Service
}

func openNode(cfg Config) (*node, error) {
	db, err := kv.New(cfg.DB)
	if err != nil {
		return nil, xerrors.Errorf("failed to open database: %v", err)
	}

	exec := native.NewExecution()
	supplychain.RegisterContract(exec, supplychain.NewContract())

	n := &node{
		cfg:  cfg,
		db:   db,
		srvc: serial.NewService(db, exec),
	}

	return n, nil
}

// Close releases the database.
func (n *node) Close() error {
	return n.db.Close()
}

// signer loads the private key of the participant. The key must exist.
func (n *node) signer() (crypto.Signer, error) {
	data, err := loader.NewFileLoader(n.cfg.Key).Load()
	if err != nil {
		return nil, xerrors.Errorf("failed to load key: %v", err)
	}

	signer, err := bls.NewSignerFromBytes(data)
	if err != nil {
		return nil, xerrors.Errorf("failed to restore signer: %v", err)
	}

	return signer, nil
}

// identity returns the address of the participant.
func (n *node) identity() (access.Address, error) {
	signer, err := n.signer()
	if err != nil {
		return access.NullAddress, err
	}

	data, err := signer.GetPublicKey().MarshalBinary()
	if err != nil {
		return access.NullAddress, xerrors.Errorf("failed to marshal public key: %v", err)
	}

	return access.NewAddress(data), nil
}

// submit signs a transaction for the supply chain contract and waits for its
// execution. It returns an error if the transaction is refused or rejected.
func (n *node) submit(cmd supplychain.Command, args ...txn.Arg) (ordering.Receipt, error) {
	signer, err := n.signer()
	if err != nil {
		return ordering.Receipt{}, err
	}

	mgr := signed.NewManager(signer, n.srvc)

	err = mgr.Sync()
	if err != nil {
		return ordering.Receipt{}, xerrors.Errorf("failed to sync manager: %v", err)
	}

	args = append(args,
		txn.Arg{Key: native.ContractArg, Value: []byte(supplychain.ContractName)},
		txn.Arg{Key: supplychain.CmdArg, Value: []byte(cmd)},
	)

	tx, err := mgr.Make(args...)
	if err != nil {
		return ordering.Receipt{}, xerrors.Errorf("failed to make tx: %v", err)
	}

	receipt, err := n.srvc.Submit(context.Background(), tx.(*signed.Transaction))
	if err != nil {
		return receipt, xerrors.Errorf("failed to submit: %v", err)
	}

	if !receipt.Accepted {
		return receipt, xerrors.Errorf("transaction rejected: %s", receipt.Message)
	}

	return receipt, nil
}

// view runs the function on the committed state. The snapshot discards the
// writes.
func (n *node) view(fn func(store.Snapshot) error) error {
	return n.srvc.View(func(r store.Readable) error {
		return fn(mem.NewLayer(r))
	})
}
