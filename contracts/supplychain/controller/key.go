package controller

import (
	"fmt"

	"go.dedis.ch/coffeetrace/cli"
	"go.dedis.ch/coffeetrace/contracts/supplychain/ledger"
	"go.dedis.ch/coffeetrace/contracts/supplychain/ownership"
	"go.dedis.ch/coffeetrace/core/access"
	"go.dedis.ch/coffeetrace/core/store"
	"go.dedis.ch/coffeetrace/crypto"
	"go.dedis.ch/coffeetrace/crypto/bls"
	"go.dedis.ch/coffeetrace/crypto/loader"
	"golang.org/x/xerrors"
)

func (c controller) setKeyCommands(builder cli.Builder) {
	cmd := builder.SetCommand("key")
	cmd.SetDescription("manage the key of the participant")

	sub := cmd.SetSubCommand("generate")
	sub.SetDescription("create a BLS key if it does not exist and print its address")
	sub.SetFlags(cli.PathFlag{
		Name:  "path",
		Usage: "path of the key file, instead of the configured one",
	})
	sub.SetAction(c.generateKey)

	sub = cmd.SetSubCommand("address")
	sub.SetDescription("print the address of the key")
	sub.SetAction(c.showAddress)
}

func (c controller) setGenesisCommand(builder cli.Builder) {
	cmd := builder.SetCommand("genesis")
	cmd.SetDescription("initialize the database with the owner of the supply chain")
	cmd.SetFlags(
		cli.StringFlag{
			Name:  "owner",
			Usage: "address of the owner, instead of the configured one",
		},
		cli.StringFlag{
			Name:  "hash",
			Usage: "algorithm of the batch identifiers, sha256 or sha3-256",
		},
	)
	cmd.SetAction(c.withNode(c.genesis))
}

func (c controller) generateKey(flags cli.Flags) error {
	cfg, err := c.config(flags)
	if err != nil {
		return err
	}

	path := flags.Path("path")
	if path == "" {
		path = cfg.Key
	}

	data, err := loader.NewFileLoader(path).LoadOrCreate(bls.Generator{})
	if err != nil {
		return xerrors.Errorf("failed to load or create key: %v", err)
	}

	return c.printAddress(data)
}

func (c controller) showAddress(flags cli.Flags) error {
	cfg, err := c.config(flags)
	if err != nil {
		return err
	}

	data, err := loader.NewFileLoader(cfg.Key).Load()
	if err != nil {
		return xerrors.Errorf("failed to load key: %v", err)
	}

	return c.printAddress(data)
}

func (c controller) printAddress(data []byte) error {
	signer, err := bls.NewSignerFromBytes(data)
	if err != nil {
		return xerrors.Errorf("failed to restore signer: %v", err)
	}

	pubkey, err := signer.GetPublicKey().MarshalBinary()
	if err != nil {
		return xerrors.Errorf("failed to marshal public key: %v", err)
	}

	fmt.Fprintln(c.out, access.NewAddress(pubkey))

	return nil
}

func (c controller) genesis(flags cli.Flags, n *node) error {
	text := flags.String("owner")
	if text == "" {
		text = n.cfg.Owner
	}

	if text == "" {
		return xerrors.New("missing owner")
	}

	owner, err := access.ParseAddress(text)
	if err != nil {
		return xerrors.Errorf("invalid owner: %v", err)
	}

	hashName := flags.String("hash")
	if hashName == "" {
		hashName = n.cfg.Hash
	}

	algo, err := crypto.ParseHashAlgorithm(hashName)
	if err != nil {
		return xerrors.Errorf("invalid hash: %v", err)
	}

	err = n.srvc.Bootstrap(func(snap store.Snapshot) error {
		err := ownership.Init(snap, owner)
		if err != nil {
			return err
		}

		return ledger.Init(snap, algo)
	})
	if err != nil {
		return xerrors.Errorf("failed to initialize: %v", err)
	}

	fmt.Fprintf(c.out, "owner: %v\nhash: %v\n", owner, algo)

	return nil
}
