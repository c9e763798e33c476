// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
)

// envConfig holds the defaults for the global flags
type envConfig struct {
	State    string `env:"BATCHLEDGER_STATE"`
	Database string `env:"BATCHLEDGER_DB"`
	Events   string `env:"BATCHLEDGER_EVENTS"`
	LogLevel string `env:"BATCHLEDGER_LOG_LEVEL" envDefault:"info"`
}

func parseEnv() (envConfig, error) {
	var cfg envConfig
	if err := env.Parse(&cfg); err != nil {
		return envConfig{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

type globalFlags struct {
	flagset  *flag.FlagSet
	state    string
	database string
	events   string
	logLevel string
}

func newGlobalFlags(cfg envConfig) *globalFlags {
	f := &globalFlags{
		flagset: flag.NewFlagSet(os.Args[0], flag.ExitOnError),
	}
	f.flagset.StringVar(
		&f.state,
		"state",
		cfg.State,
		"CBOR ledger state file to load and save",
	)
	f.flagset.StringVar(
		&f.database,
		"db",
		cfg.Database,
		"SQLite database to load and save the ledger (overrides -state)",
	)
	f.flagset.StringVar(
		&f.events,
		"events",
		cfg.Events,
		"file to append CBOR event records to",
	)
	f.flagset.StringVar(
		&f.logLevel,
		"log-level",
		cfg.LogLevel,
		"log level (debug, info, warn, error)",
	)
	return f
}

func (f *globalFlags) logger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(f.logLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", f.logLevel, err)
	}
	return slog.New(
		slog.NewTextHandler(
			os.Stderr,
			&slog.HandlerOptions{Level: level},
		),
	), nil
}

func main() {
	cfg, err := parseEnv()
	if err != nil {
		fmt.Printf("ERROR: %s\n", err)
		os.Exit(1)
	}
	f := newGlobalFlags(cfg)
	if err := f.flagset.Parse(os.Args[1:]); err != nil {
		fmt.Printf("failed to parse command args: %s\n", err)
		os.Exit(1)
	}
	logger, err := f.logger()
	if err != nil {
		fmt.Printf("ERROR: %s\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	if len(f.flagset.Args()) == 0 {
		fmt.Printf("You must specify a subcommand (run, balances, events, account)\n")
		os.Exit(1)
	}
	switch f.flagset.Arg(0) {
	case "run":
		err = cmdRun(f, logger)
	case "balances":
		err = cmdBalances(f, logger)
	case "events":
		err = cmdEvents(f)
	case "account":
		err = cmdAccount(f)
	default:
		fmt.Printf("Unknown subcommand: %s\n", f.flagset.Arg(0))
		os.Exit(1)
	}
	if err != nil {
		fmt.Printf("ERROR: %s\n", err)
		os.Exit(1)
	}
}
