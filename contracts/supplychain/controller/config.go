package controller

import (
	"os"

	"go.dedis.ch/coffeetrace/cli"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

const (
	defaultDB       = "coffeetrace.db"
	defaultKey      = "private.key"
	defaultLogLevel = "warn"
	defaultHash     = "sha256"
)

// Config is the configuration of the application. It is read from a YAML file
// and every field can be overwritten by the global flag of the same name.
//
//	db: /var/lib/coffeetrace/state.db
//	key: /etc/coffeetrace/private.key
//	log_level: info
//	owner: 0x4c1b...
//	hash: sha3-256
type Config struct {
	// DB is the path to the database file.
	DB string `yaml:"db"`

	// Key is the path to the private key file of the participant.
	Key string `yaml:"key"`

	LogLevel string `yaml:"log_level"`

	// Owner is the address of the initial owner used by the genesis command
	// when no owner is given.
	Owner string `yaml:"owner"`

	// Hash is the algorithm of the batch identifiers, either sha256 or
	// sha3-256, chosen by the genesis command.
	Hash string `yaml:"hash"`
}

// LoadConfig reads the configuration file if any, then applies the global
// flags and the default values.
func LoadConfig(flags cli.Flags) (Config, error) {
	cfg := Config{}

	path := flags.Path(flagConfig)
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, xerrors.Errorf("failed to read config file: %v", err)
		}

		err = yaml.UnmarshalStrict(data, &cfg)
		if err != nil {
			return cfg, xerrors.Errorf("failed to unmarshal config: %v", err)
		}
	}

	override(&cfg.DB, flags.Path(flagDB), defaultDB)
	override(&cfg.Key, flags.Path(flagKey), defaultKey)
	override(&cfg.LogLevel, flags.String(flagLogLevel), defaultLogLevel)
	override(&cfg.Hash, "", defaultHash)

	return cfg, nil
}

func override(field *string, flag, def string) {
	if flag != "" {
		*field = flag
	}

	if *field == "" {
		*field = def
	}
}
