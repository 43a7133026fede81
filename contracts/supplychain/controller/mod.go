// Package controller implements the commands of the application to operate the
// supply chain from the command line.
//
// Every command opens the database, executes a single transaction or a read,
// and closes the database. The writes are signed with the key of the
// participant.
//
// Documentation Last Review: 14.10.2026
//
package controller

import (
	"io"
	"os"

	"go.dedis.ch/coffeetrace"
	"go.dedis.ch/coffeetrace/cli"
	"golang.org/x/xerrors"
)

const (
	flagConfig   = "config"
	flagDB       = "db"
	flagKey      = "key"
	flagLogLevel = "log-level"
)

// GlobalFlags are the flags available to every command of the application.
var GlobalFlags = []cli.Flag{
	cli.PathFlag{
		Name:  flagConfig,
		Usage: "path to the YAML configuration file",
	},
	cli.PathFlag{
		Name:  flagDB,
		Usage: "path to the database file (default: " + defaultDB + ")",
	},
	cli.PathFlag{
		Name:  flagKey,
		Usage: "path to the private key file (default: " + defaultKey + ")",
	},
	cli.StringFlag{
		Name:  flagLogLevel,
		Usage: "level of the logs (default: " + defaultLogLevel + ")",
	},
}

// controller populates the commands of the supply chain.
//
// - implements cli.Initializer
type controller struct {
	out  io.Writer
	open func(Config) (*node, error)
}

// NewController creates a new controller that prints to the standard output.
func NewController() cli.Initializer {
	return controller{
		out:  os.Stdout,
		open: openNode,
	}
}

// SetCommands implements cli.Initializer.
func (c controller) SetCommands(builder cli.Builder) {
	c.setKeyCommands(builder)
	c.setGenesisCommand(builder)
	c.setBatchCommands(builder)
	c.setUserCommands(builder)
	c.setOwnerCommands(builder)
	c.setEventCommands(builder)
	c.setMetricsCommand(builder)
}

// withNode wraps an action that needs the services. The configuration is loaded
// and the node closed when the action returns.
func (c controller) withNode(fn func(cli.Flags, *node) error) cli.Action {
	return func(flags cli.Flags) error {
		cfg, err := c.config(flags)
		if err != nil {
			return err
		}

		n, err := c.open(cfg)
		if err != nil {
			return xerrors.Errorf("failed to open node: %v", err)
		}

		defer n.Close()

		return fn(flags, n)
	}
}

func (c controller) config(flags cli.Flags) (Config, error) {
	cfg, err := LoadConfig(flags)
	if err != nil {
		return cfg, xerrors.Errorf("failed to load config: %v", err)
	}

	err = coffeetrace.SetLogLevel(cfg.LogLevel)
	if err != nil {
		return cfg, xerrors.Errorf("invalid log level: %v", err)
	}

	return cfg, nil
}
