package scenario

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mosaicrun/remotebrowser/browser"
	"github.com/mosaicrun/remotebrowser/log"
)

// PageOps is the browser surface scenarios use for setup and scoring. All
// operations bypass the action recorder so only agent actions show up in
// the history. browser.Quiet satisfies it.
type PageOps interface {
	Navigate(ctx context.Context, url string) error
	URL(ctx context.Context) (string, error)
	Content(ctx context.Context) (string, error)
	ElementCount(ctx context.Context, selector string) (int, error)
	Cookies(ctx context.Context) ([]browser.Cookie, error)
	ClipboardText(ctx context.Context) (string, error)
	ClickText(ctx context.Context, selector, text string) error
	ClickElement(ctx context.Context, selector string, timeout time.Duration) error
	Press(ctx context.Context, combo string) error
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error
	Evaluate(ctx context.Context, expression string) (json.RawMessage, error)
	InputValue(ctx context.Context, selector string) (string, error)
}

var _ PageOps = browser.Quiet{}

// Env is what a scenario sees of the session: the quiet page surface, the
// agent action history, and a logger.
type Env struct {
	Page     PageOps
	Recorder *browser.Recorder
	Logger   *log.Logger
}

// Func is a scenario implementation. It must drive the Exchange through
// exactly one Prompt and one Reward.
type Func func(ctx context.Context, env *Env, x *Exchange, args Args) error

var (
	registryMu sync.RWMutex
	registry   = map[string]Func{}
)

// Register adds a scenario under name, replacing any existing entry.
func Register(name string, fn Func) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = fn
}

// Lookup returns the scenario registered under name.
func Lookup(name string) (Func, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	fn, ok := registry[name]
	return fn, ok
}

// Names returns the registered scenario names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes a scenario end to end and returns its reward.
//
// A setup failure still completes the protocol: the agent receives a
// synthetic error prompt and the run scores zero, with the setup error
// returned alongside. Protocol violations return a zero reward and an
// error wrapping ErrProtocol.
func Run(ctx context.Context, fn Func, env *Env, agent Agent, args Args) (float64, error) {
	x := &Exchange{agent: agent}

	err := fn(ctx, env, x, args)
	if err != nil {
		if errors.Is(err, ErrProtocol) {
			return 0, err
		}
		if x.state == StateSetup {
			env.Logger.Errorf("scenario", "setup failed: %v", err)
			prompt := fmt.Sprintf(
				"Task setup failed before the browser was ready: %v. No action is required.", err)
			if _, perr := x.Prompt(ctx, prompt); perr != nil {
				env.Logger.Warnf("scenario", "error prompt not delivered: %v", perr)
			}
			_ = x.Reward(0)
			return 0, fmt.Errorf("scenario setup: %w", err)
		}
		return 0, err
	}

	switch x.state {
	case StateSetup:
		return 0, protocolError("scenario ended without prompting")
	case StatePrompted:
		return 0, protocolError("scenario ended without a reward")
	}
	return x.reward, nil
}
