// Package eval scores agent behavior against task criteria. Evaluators
// never panic and never propagate errors: any inspection failure becomes a
// zero-reward Result carrying the error text.
package eval

import (
	"context"
	"time"

	"github.com/mosaicrun/remotebrowser/browser"
)

// Page is the read-only page surface evaluators inspect. *browser.Handle
// and browser.Quiet both satisfy it.
type Page interface {
	URL(ctx context.Context) (string, error)
	Content(ctx context.Context) (string, error)
	ElementCount(ctx context.Context, selector string) (int, error)
	Cookies(ctx context.Context) ([]browser.Cookie, error)
	ClipboardText(ctx context.Context) (string, error)
}

// Sheet adds the unrecorded interactions the spreadsheet evaluators need on
// top of Page. browser.Quiet satisfies it.
type Sheet interface {
	Page
	ClickText(ctx context.Context, selector, text string) error
	ClickElement(ctx context.Context, selector string, timeout time.Duration) error
	Press(ctx context.Context, combo string) error
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error
}

// Mismatch records one cell whose value differed from the expectation.
type Mismatch struct {
	Cell     string `json:"cell"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// Result is the outcome of one evaluator. Reward is always in [0,1].
type Result struct {
	Reward     float64        `json:"reward"`
	Success    bool           `json:"success"`
	Error      string         `json:"error,omitempty"`
	Note       string         `json:"note,omitempty"`
	Found      []string       `json:"found,omitempty"`
	Missing    []string       `json:"missing,omitempty"`
	Mismatches []Mismatch     `json:"mismatches,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
}

// score builds a Result with the reward clamped to [0,1]. Every evaluator
// goes through it so no criteria combination can leak a reward outside the
// range.
func score(reward float64, success bool) Result {
	return Result{Reward: clamp01(reward), Success: success}
}

// failure is a zero-reward Result carrying an error message.
func failure(msg string) Result {
	return Result{Reward: 0, Success: false, Error: msg}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
