package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mosaicrun/remotebrowser/env"
	"github.com/mosaicrun/remotebrowser/log"
	"github.com/mosaicrun/remotebrowser/provider"
)

const defaultStateAddr = "localhost:7939"

// globalState carries what every subcommand needs: the environment-sourced
// config, the logger and the state server address.
type globalState struct {
	cfg       provider.Config
	logger    *log.Logger
	stateAddr string
	logLevel  string
}

func newRootCommand() *cobra.Command {
	gs := &globalState{}

	cmd := &cobra.Command{
		Use:          "remotebrowser",
		Short:        "Cloud browser sessions and agent evaluation scenarios",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return gs.setup()
		},
	}

	stateAddr := defaultStateAddr
	if addr, ok := env.Lookup(env.StateAddr); ok && addr != "" {
		stateAddr = addr
	}
	logLevel := "info"
	if lvl, ok := env.Lookup(env.LogLevel); ok && lvl != "" {
		logLevel = lvl
	}

	cmd.PersistentFlags().StringVar(&gs.stateAddr, "state-addr", stateAddr,
		"address of the session state server")
	cmd.PersistentFlags().StringVar(&gs.logLevel, "log-level", logLevel,
		"log level (debug, info, warn, error)")

	cmd.AddCommand(getCmdServe(gs))
	cmd.AddCommand(getCmdRun(gs))
	cmd.AddCommand(getCmdStatus(gs))

	return cmd
}

func (gs *globalState) setup() error {
	ll := logrus.New()
	gs.logger = log.New(ll, nil)
	if err := gs.logger.SetLevel(gs.logLevel); err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}

	cfg, err := provider.NewConfig(env.Lookup)
	if err != nil {
		return fmt.Errorf("reading environment config: %w", err)
	}
	gs.cfg = cfg
	return nil
}

func (gs *globalState) stateURL() string {
	return "http://" + gs.stateAddr
}
