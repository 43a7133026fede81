// Package main provides the command line application to operate a coffee
// supply chain ledger.
//
// Unix example:
//
//	# Create the key of the owner and initialize the database.
//	coffeetrace key generate
//	coffeetrace genesis --owner $(coffeetrace key address)
//
//	# Register a farmer and a batch.
//	coffeetrace --key farmer.key key generate
//	coffeetrace --key farmer.key user update --name Juan --role Farmer
//	coffeetrace --key farmer.key batch add --registration REG-1
//
//	# The global flags can be set in the environment.
//	COFFEETRACE_KEY=farmer.key coffeetrace batch next --batch 0x...
//
package main

import (
	"fmt"
	"io"
	"os"

	"go.dedis.ch/coffeetrace/cli"
	"go.dedis.ch/coffeetrace/cli/ucli"
	"go.dedis.ch/coffeetrace/contracts/supplychain/controller"
)

var printer io.Writer = os.Stderr

func main() {
	err := run(os.Args, controller.NewController())
	if err != nil {
		fmt.Fprintf(printer, "%+v\n", err)
		os.Exit(1)
	}
}

func run(args []string, inits ...cli.Initializer) error {
	builder := ucli.NewBuilder("coffeetrace", nil, controller.GlobalFlags...)
	builder.(*ucli.Builder).SetUsage("traceability ledger of coffee batches")
	builder.(*ucli.Builder).SetEnvPrefix("COFFEETRACE")

	for _, init := range inits {
		init.SetCommands(builder)
	}

	app := builder.Build()

	err := app.Run(args)
	if err != nil {
		return err
	}

	return nil
}
