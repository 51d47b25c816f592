package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mosaicrun/remotebrowser/session"
)

const serverShutdownTimeout = 5 * time.Second

func getCmdServe(gs *globalState) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the session state server",
		Long: `Run the HTTP state server that owns the cloud browser session.
Other processes attach to it to share one browser instead of launching
their own.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, gs)
		},
	}
}

func runServe(cmd *cobra.Command, gs *globalState) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sc := session.NewContext(gs.cfg, gs.logger)
	srv := session.NewServer(gs.stateAddr, sc, gs.logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	color.New(color.FgCyan).Fprintf(cmd.OutOrStdout(),
		"state server listening on %s\n", gs.stateAddr)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	gs.logger.Infof("serve", "shutting down")
	sc.Shutdown(context.Background())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
