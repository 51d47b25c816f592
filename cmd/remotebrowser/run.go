package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mosaicrun/remotebrowser/browser"
	"github.com/mosaicrun/remotebrowser/scenario"
	"github.com/mosaicrun/remotebrowser/session"
	"github.com/mosaicrun/remotebrowser/storage"
)

type runCmd struct {
	gs *globalState

	artifactsDir string
	local        bool
}

func getCmdRun(gs *globalState) *cobra.Command {
	rc := &runCmd{gs: gs}

	cmd := &cobra.Command{
		Use:   "run <task.json>",
		Short: "Run an evaluation task against a browser session",
		Long: `Run a scenario task: attach to the state server (or launch a session
directly with --local), connect to the browser, print the task prompt,
and score the final response.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rc.run(cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&rc.artifactsDir, "artifacts", "",
		"directory to save the final screenshot and action history into")
	cmd.Flags().BoolVar(&rc.local, "local", false,
		"launch a browser session directly instead of attaching to the state server")

	return cmd
}

func (rc *runCmd) run(cmd *cobra.Command, taskPath string) error {
	ctx := cmd.Context()
	gs := rc.gs
	out := cmd.OutOrStdout()

	task, err := scenario.LoadTask(taskPath)
	if err != nil {
		return err
	}
	fn, ok := scenario.Lookup(task.Scenario)
	if !ok {
		return fmt.Errorf("unknown scenario %q (have: %s)",
			task.Scenario, strings.Join(scenario.Names(), ", "))
	}

	cdpURL, liveURL, cleanup, err := rc.connectSession(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if liveURL != "" {
		color.New(color.FgCyan).Fprintf(out, "live view: %s\n", liveURL)
	}

	h, err := browser.Connect(ctx, cdpURL, gs.logger)
	if err != nil {
		return fmt.Errorf("connecting to browser: %w", err)
	}
	defer func() { _ = h.Close() }()

	if gs.cfg.DisplayWidth.Valid && gs.cfg.DisplayHeight.Valid {
		err := h.SetViewport(ctx, int(gs.cfg.DisplayWidth.Int64), int(gs.cfg.DisplayHeight.Int64))
		if err != nil {
			gs.logger.Warnf("run", "setting viewport: %v", err)
		}
	}
	if gs.cfg.InitialURL.Valid && gs.cfg.InitialURL.String != "" {
		if err := h.Quiet().Navigate(ctx, gs.cfg.InitialURL.String); err != nil {
			gs.logger.Warnf("run", "loading initial URL: %v", err)
		}
	}

	senv := &scenario.Env{Page: h.Quiet(), Recorder: h.Recorder(), Logger: gs.logger}
	agent := &consoleAgent{in: cmd.InOrStdin(), out: out}

	reward, runErr := scenario.Run(ctx, fn, senv, agent, task.Args)

	if rc.artifactsDir != "" {
		rc.saveArtifacts(ctx, h, out)
	}

	if runErr != nil {
		return runErr
	}

	rewardColor := color.New(color.FgGreen, color.Bold)
	if reward == 0 {
		rewardColor = color.New(color.FgRed, color.Bold)
	}
	rewardColor.Fprintf(out, "reward: %.2f\n", reward)
	return nil
}

// connectSession resolves a CDP URL either through the state server or by
// launching a session directly. The returned cleanup tears down only what
// this run owns.
func (rc *runCmd) connectSession(ctx context.Context) (cdpURL, liveURL string, cleanup func(), err error) {
	gs := rc.gs

	if rc.local {
		sc := session.NewContext(gs.cfg, gs.logger)
		cdpURL, err = sc.Initialize(ctx)
		if err != nil {
			return "", "", nil, err
		}
		tel := sc.Telemetry()
		return cdpURL, tel.LiveURL.String, func() { sc.Shutdown(context.Background()) }, nil
	}

	client := session.NewClient(gs.stateURL(), gs.logger)
	if err = client.Attach(ctx); err != nil {
		return "", "", nil, fmt.Errorf("attaching to state server (try --local): %w", err)
	}
	cdpURL, err = client.Initialize(ctx)
	if err != nil {
		return "", "", nil, err
	}
	if tel, terr := client.Telemetry(ctx); terr == nil {
		liveURL = tel.LiveURL.String
	}
	// The state server owns the session; leave it running for reuse.
	return cdpURL, liveURL, func() {}, nil
}

func (rc *runCmd) saveArtifacts(ctx context.Context, h *browser.Handle, out io.Writer) {
	gs := rc.gs
	persister := storage.Local{}

	if png, err := h.ScreenshotPNG(ctx); err != nil {
		gs.logger.Warnf("run", "capturing screenshot: %v", err)
	} else if path, err := storage.SaveScreenshot(ctx, persister, rc.artifactsDir, png); err != nil {
		gs.logger.Warnf("run", "saving screenshot: %v", err)
	} else {
		fmt.Fprintf(out, "screenshot: %s\n", path)
	}

	if path, err := storage.SaveActions(ctx, persister, rc.artifactsDir, h.Recorder().Actions()); err != nil {
		gs.logger.Warnf("run", "saving action history: %v", err)
	} else {
		fmt.Fprintf(out, "actions: %s\n", path)
	}
}

// consoleAgent relays the task prompt to the operator and reads the final
// response from stdin. The response ends at a blank line or EOF.
type consoleAgent struct {
	in  io.Reader
	out io.Writer
}

func (a *consoleAgent) Respond(ctx context.Context, prompt string) (string, error) {
	color.New(color.FgYellow, color.Bold).Fprintln(a.out, "--- task prompt ---")
	fmt.Fprintln(a.out, prompt)
	color.New(color.FgYellow).Fprintln(a.out, "--- drive the browser, then enter the final response (blank line ends) ---")

	var lines []string
	scanner := bufio.NewScanner(a.in)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			break
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	return strings.Join(lines, "\n"), nil
}
