package scenario

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mosaicrun/remotebrowser/eval"
)

func init() {
	Register("answer", Answer)
	Register("fill-record", FillRecord)
	Register("wiki-speedrun", WikiSpeedrun)
	Register("complete-sheet-task", CompleteSheetTask)
	Register("sheet-from-file", SheetFromFile)
}

const (
	sheetNavAttempts   = 3
	sheetNavRetryDelay = 2 * time.Second
	sheetGridTimeout   = 20 * time.Second

	fileFetchTimeout = 60 * time.Second
)

// Answer sends the agent to a page and compares its final response against
// an expected answer. Without an expected value any completion scores full
// marks.
//
// Args: url, prompt, expected (optional), compare_mode (default "exact").
func Answer(ctx context.Context, env *Env, x *Exchange, args Args) error {
	url := args.String("url")
	if err := env.Page.Navigate(ctx, url); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}

	fullPrompt := fmt.Sprintf(
		"Starting at: %s\n\n%s\n\nWhen you have found the answer, respond with your final answer clearly.",
		url, args.String("prompt"))

	response, err := x.Prompt(ctx, fullPrompt)
	if err != nil {
		return err
	}

	reward := 1.0
	if args.Has("expected") {
		mode := eval.CompareMode(args.StringOr("compare_mode", "exact"))
		reward = eval.CompareAnswers(response, args.String("expected"), mode)
		env.Logger.Infof("scenario:answer", "expected:%q got:%q mode:%s reward:%.2f",
			args.String("expected"), response, mode, reward)
	}
	return x.Reward(reward)
}

// FillRecord asks the agent to fill form fields and verifies the values the
// page ends up holding. Each verify entry maps a selector to its expected
// value; the reward is the fraction that match.
//
// Args: url, prompt, fields (optional description map), verify.
func FillRecord(ctx context.Context, env *Env, x *Exchange, args Args) error {
	url := args.String("url")
	if err := env.Page.Navigate(ctx, url); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are on a page with form inputs.\n\n%s\n", args.String("prompt"))
	if fields := args.StringMap("fields"); len(fields) > 0 {
		sb.WriteString("\nFill in the following:\n")
		for name, value := range fields {
			fmt.Fprintf(&sb, "- %s: %s\n", name, value)
		}
	}
	sb.WriteString("\nUse the browser tools to locate and fill each field.")

	if _, err := x.Prompt(ctx, sb.String()); err != nil {
		return err
	}

	verify := args.StringMap("verify")
	if len(verify) == 0 {
		env.Logger.Warnf("scenario:fill-record", "no verify selectors provided, giving full credit")
		return x.Reward(1)
	}

	matches := 0
	for selector, expected := range verify {
		actual, err := env.Page.InputValue(ctx, selector)
		if err != nil {
			env.Logger.Warnf("scenario:fill-record", "checking %q: %v", selector, err)
			continue
		}
		if strings.TrimSpace(actual) == strings.TrimSpace(expected) {
			matches++
		}
	}
	return x.Reward(float64(matches) / float64(len(verify)))
}

// WikiSpeedrun starts the agent on one Wikipedia article and checks it
// reached the target article by clicking links, scoring higher for fewer
// clicks.
//
// Args: start_page, target_page, max_clicks (default 10), prompt (optional).
func WikiSpeedrun(ctx context.Context, env *Env, x *Exchange, args Args) error {
	startPage := args.String("start_page")
	targetPage := args.String("target_page")
	maxClicks := args.Int("max_clicks", 10)

	startURL := "https://en.wikipedia.org/wiki/" + startPage
	if err := env.Page.Navigate(ctx, startURL); err != nil {
		return fmt.Errorf("navigating to %s: %w", startURL, err)
	}

	prompt := args.String("prompt")
	if prompt == "" {
		title := func(page string) string { return strings.ReplaceAll(page, "_", " ") }
		prompt = fmt.Sprintf(`Wikipedia Speedrun Challenge!

Starting article: %s
Target article: %s

Navigate from the starting article to the target article by clicking links.
You can ONLY click on links within the article content, no search and no back button.

Try to reach the target in as few clicks as possible!
Maximum clicks allowed: %d

Click on article links to navigate. The goal is to reach: %s`,
			title(startPage), title(targetPage), maxClicks, title(targetPage))
	}

	if _, err := x.Prompt(ctx, prompt); err != nil {
		return err
	}

	currentURL, err := env.Page.URL(ctx)
	if err != nil {
		return fmt.Errorf("reading final URL: %w", err)
	}

	targetPattern := strings.ToLower("/wiki/" + targetPage)
	if !strings.Contains(strings.ToLower(currentURL), targetPattern) {
		env.Logger.Infof("scenario:wiki-speedrun", "target not reached, final URL %s", currentURL)
		return x.Reward(0)
	}

	clicks := maxClicks
	if raw, err := env.Page.Evaluate(ctx, "window.history.length"); err == nil {
		var length int
		if json.Unmarshal(raw, &length) == nil && length > 1 {
			clicks = length - 1
		} else {
			clicks = 1
		}
	}

	// Reaching the target always earns something; efficiency earns more.
	reward := 0.1
	if clicks <= maxClicks {
		reward = 1 - float64(clicks-1)/float64(maxClicks)
		if reward < 0.1 {
			reward = 0.1
		}
	}
	env.Logger.Infof("scenario:wiki-speedrun", "reached target in ~%d clicks, reward %.2f", clicks, reward)
	return x.Reward(reward)
}

// navigateToSheet loads a Google Sheet and waits for its grid to render,
// retrying the navigation when the sheet is slow to come up.
func navigateToSheet(ctx context.Context, env *Env, sheetURL string) error {
	var lastErr error
	for attempt := 1; attempt <= sheetNavAttempts; attempt++ {
		if attempt > 1 {
			env.Logger.Infof("scenario:sheets", "retrying sheet navigation (attempt %d/%d)", attempt, sheetNavAttempts)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(sheetNavRetryDelay):
			}
		}
		if err := env.Page.Navigate(ctx, sheetURL); err != nil {
			lastErr = err
			continue
		}
		if err := env.Page.WaitForSelector(ctx, ".grid-container", sheetGridTimeout); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("sheet did not load after %d attempts: %w", sheetNavAttempts, lastErr)
}

// CompleteSheetTask puts the agent in a Google Sheet and scores specific
// cells afterwards.
//
// Args: prompt, sheet_url, expected_cells, partial_rewarding (default true).
func CompleteSheetTask(ctx context.Context, env *Env, x *Exchange, args Args) error {
	sheetURL := args.String("sheet_url")
	if err := navigateToSheet(ctx, env, sheetURL); err != nil {
		return err
	}

	if _, err := x.Prompt(ctx, args.String("prompt")); err != nil {
		return err
	}

	result := eval.SheetsCellValues(ctx, env.Page,
		args.StringMap("expected_cells"), args.Bool("partial_rewarding", true))
	if result.Error != "" {
		env.Logger.Warnf("scenario:sheets", "cell evaluation: %s", result.Error)
	}
	return x.Reward(result.Reward)
}

// SheetFromFile verifies the task's source file is retrievable, sends the
// agent into the prepared sheet, and scores cells and text content. The
// final reward is the minimum across the requested checks.
//
// Args: prompt, sheet_url, file_url or file_bytes (base64),
// expected_cells (optional), expected_text (optional).
func SheetFromFile(ctx context.Context, env *Env, x *Exchange, args Args) error {
	switch {
	case args.Has("file_url"):
		if err := fetchFile(ctx, args.String("file_url")); err != nil {
			return err
		}
	case args.Has("file_bytes"):
		if _, err := base64.StdEncoding.DecodeString(args.String("file_bytes")); err != nil {
			return fmt.Errorf("decoding file bytes: %w", err)
		}
	default:
		return fmt.Errorf("no file_url or file_bytes provided")
	}

	if err := navigateToSheet(ctx, env, args.String("sheet_url")); err != nil {
		return err
	}

	if _, err := x.Prompt(ctx, args.String("prompt")); err != nil {
		return err
	}

	reward := 1.0
	if cells := args.StringMap("expected_cells"); len(cells) > 0 {
		result := eval.SheetsCellValues(ctx, env.Page, cells, true)
		if result.Reward < reward {
			reward = result.Reward
		}
	}
	if terms := args.Strings("expected_text"); len(terms) > 0 {
		result := eval.SheetContains(ctx, env.Page, terms, true)
		if result.Reward < reward {
			reward = result.Reward
		}
	}
	return x.Reward(reward)
}

// fetchFile downloads the task's source file to confirm it is reachable.
func fetchFile(ctx context.Context, fileURL string) error {
	ctx, cancel := context.WithTimeout(ctx, fileFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return fmt.Errorf("building file request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", fileURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching %s: unexpected status %d", fileURL, resp.StatusCode)
	}
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return fmt.Errorf("reading %s: %w", fileURL, err)
	}
	return nil
}
