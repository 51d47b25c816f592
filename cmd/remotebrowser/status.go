package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mosaicrun/remotebrowser/session"
)

func getCmdStatus(gs *globalState) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session telemetry from the state server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, gs)
		},
	}
}

func runStatus(cmd *cobra.Command, gs *globalState) error {
	out := cmd.OutOrStdout()

	client := session.NewClient(gs.stateURL(), gs.logger)
	tel, err := client.Telemetry(cmd.Context())
	if err != nil {
		return fmt.Errorf("querying state server at %s: %w", gs.stateAddr, err)
	}

	statusColor := color.New(color.FgYellow)
	switch tel.Status {
	case session.StatusRunning:
		statusColor = color.New(color.FgGreen)
	case session.StatusError:
		statusColor = color.New(color.FgRed)
	}

	fmt.Fprintf(out, "provider:  %s\n", tel.Provider)
	statusColor.Fprintf(out, "status:    %s\n", tel.Status)
	if tel.LiveURL.Valid {
		color.New(color.FgCyan).Fprintf(out, "live view: %s\n", tel.LiveURL.String)
	}
	if tel.InstanceID.Valid {
		fmt.Fprintf(out, "instance:  %s\n", tel.InstanceID.String)
	}
	if tel.CDPURL.Valid {
		fmt.Fprintf(out, "cdp url:   %s\n", tel.CDPURL.String)
	}
	if tel.Error.Valid {
		color.New(color.FgRed).Fprintf(out, "error:     %s\n", tel.Error.String)
	}
	return nil
}
