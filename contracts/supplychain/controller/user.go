package controller

import (
	"fmt"

	"go.dedis.ch/coffeetrace/cli"
	"go.dedis.ch/coffeetrace/contracts/supplychain"
	"go.dedis.ch/coffeetrace/contracts/supplychain/ownership"
	"go.dedis.ch/coffeetrace/contracts/supplychain/types"
	"go.dedis.ch/coffeetrace/contracts/supplychain/users"
	"go.dedis.ch/coffeetrace/core/access"
	"go.dedis.ch/coffeetrace/core/store"
	"go.dedis.ch/coffeetrace/core/txn"
	"golang.org/x/xerrors"
)

var profileFlags = []cli.Flag{
	cli.StringFlag{Name: "name", Usage: "display name"},
	cli.StringFlag{Name: "contact", Usage: "contact number"},
	cli.StringFlag{Name: "role", Usage: "one of Farmer, FarmInspector, Processor, " +
		"Exporter, Importer, Admin", Required: true},
	cli.BoolFlag{Name: "inactive", Usage: "disable the participant"},
	cli.StringFlag{Name: "profile-hash", Usage: "hexadecimal hash of the profile"},
}

func (c controller) setUserCommands(builder cli.Builder) {
	cmd := builder.SetCommand("user")
	cmd.SetDescription("manage the profiles of the participants")

	sub := cmd.SetSubCommand("update")
	sub.SetDescription("write the profile of the participant")
	sub.SetFlags(profileFlags...)
	sub.SetAction(c.withNode(c.updateUser))

	sub = cmd.SetSubCommand("admin-update")
	sub.SetDescription("write the profile of another participant as the owner")
	sub.SetFlags(append([]cli.Flag{
		cli.StringFlag{Name: "user", Usage: "address of the participant", Required: true},
	}, profileFlags...)...)
	sub.SetAction(c.withNode(c.adminUpdateUser))

	sub = cmd.SetSubCommand("show")
	sub.SetDescription("print the profile of a participant")
	sub.SetFlags(cli.StringFlag{
		Name:  "user",
		Usage: "address of the participant, or the key owner if empty",
	})
	sub.SetAction(c.withNode(c.showUser))
}

func (c controller) setOwnerCommands(builder cli.Builder) {
	cmd := builder.SetCommand("owner")
	cmd.SetDescription("manage the ownership of the supply chain")

	sub := cmd.SetSubCommand("show")
	sub.SetDescription("print the current owner")
	sub.SetAction(c.withNode(c.showOwner))

	sub = cmd.SetSubCommand("transfer")
	sub.SetDescription("give the ownership to another participant")
	sub.SetFlags(cli.StringFlag{
		Name:     "user",
		Usage:    "address of the new owner",
		Required: true,
	})
	sub.SetAction(c.withNode(c.transferOwnership))

	sub = cmd.SetSubCommand("renounce")
	sub.SetDescription("leave the supply chain without owner, for good")
	sub.SetAction(c.withNode(c.renounceOwnership))
}

func (c controller) updateUser(flags cli.Flags, n *node) error {
	profile, err := readProfile(flags)
	if err != nil {
		return err
	}

	err = c.submitPayload(n, supplychain.CmdUpdateUser, profile)
	if err != nil {
		return err
	}

	fmt.Fprintln(c.out, "profile updated")

	return nil
}

func (c controller) adminUpdateUser(flags cli.Flags, n *node) error {
	target, err := access.ParseAddress(flags.String("user"))
	if err != nil {
		return xerrors.Errorf("invalid user: %v", err)
	}

	profile, err := readProfile(flags)
	if err != nil {
		return err
	}

	err = c.submitPayload(n, supplychain.CmdUpdateUserForAdmin, profile,
		txn.Arg{Key: supplychain.UserArg, Value: []byte(target.String())})
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "profile of %v updated\n", target)

	return nil
}

func (c controller) showUser(flags cli.Flags, n *node) error {
	var addr access.Address
	var err error

	if flags.String("user") != "" {
		addr, err = access.ParseAddress(flags.String("user"))
	} else {
		addr, err = n.identity()
	}

	if err != nil {
		return xerrors.Errorf("invalid user: %v", err)
	}

	var user types.User

	err = n.view(func(snap store.Snapshot) error {
		user, err = users.GetUser(snap, addr)
		return err
	})
	if err != nil {
		return xerrors.Errorf("failed to read user: %v", err)
	}

	return c.printJSON(struct {
		Address access.Address
		types.User
	}{addr, user})
}

func (c controller) showOwner(flags cli.Flags, n *node) error {
	var owner access.Address
	var err error

	err = n.view(func(snap store.Snapshot) error {
		owner, err = ownership.Owner(snap)
		return err
	})
	if err != nil {
		return xerrors.Errorf("failed to read owner: %v", err)
	}

	fmt.Fprintln(c.out, owner)

	return nil
}

func (c controller) transferOwnership(flags cli.Flags, n *node) error {
	target, err := access.ParseAddress(flags.String("user"))
	if err != nil {
		return xerrors.Errorf("invalid user: %v", err)
	}

	_, err = n.submit(supplychain.CmdTransferOwnership,
		txn.Arg{Key: supplychain.UserArg, Value: []byte(target.String())})
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "ownership transferred to %v\n", target)

	return nil
}

func (c controller) renounceOwnership(flags cli.Flags, n *node) error {
	_, err := n.submit(supplychain.CmdRenounceOwnership)
	if err != nil {
		return err
	}

	fmt.Fprintln(c.out, "ownership renounced")

	return nil
}

func readProfile(flags cli.Flags) (types.User, error) {
	profile := types.User{
		Name:      flags.String("name"),
		ContactNo: flags.String("contact"),
		IsActive:  !flags.Bool("inactive"),
	}

	role, err := types.ParseRole(flags.String("role"))
	if err != nil {
		return profile, xerrors.Errorf("invalid role: %w", err)
	}

	profile.Role = role

	text := flags.String("profile-hash")
	if text != "" {
		profile.ProfileHash, err = types.ParseHash(text)
		if err != nil {
			return profile, xerrors.Errorf("invalid profile hash: %v", err)
		}
	}

	return profile, nil
}
