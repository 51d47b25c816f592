package domains

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	cdpr "github.com/chromedp/cdproto/runtime"
)

// Runtime exposes the CDP Runtime domain actions the module uses.
type Runtime interface {
	// Evaluate runs a javascript expression in the page and returns its
	// value serialized as JSON. Promises are awaited.
	Evaluate(ctx context.Context, expression string) (json.RawMessage, error)
}

var _ Runtime = &runtime{}

type runtime struct {
	exec cdp.Executor
}

// NewRuntime returns a new CDP Runtime domain wrapper.
func NewRuntime(exec cdp.Executor) Runtime {
	return &runtime{exec}
}

func (r *runtime) Evaluate(ctx context.Context, expression string) (json.RawMessage, error) {
	action := cdpr.Evaluate(expression).
		WithReturnByValue(true).
		WithAwaitPromise(true).
		WithUserGesture(true)

	remote, exc, err := action.Do(cdp.WithExecutor(ctx, r.exec))
	if err != nil {
		return nil, fmt.Errorf("evaluating expression: %w", err)
	}
	if exc != nil {
		return nil, fmt.Errorf("evaluating expression: %s", exc.Text)
	}
	if remote == nil {
		return nil, nil
	}

	return json.RawMessage(remote.Value), nil
}
