package domains

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	cdpt "github.com/chromedp/cdproto/target"
)

// Target exposes the CDP Target domain actions the module uses.
type Target interface {
	GetTargets(ctx context.Context) ([]*cdpt.Info, error)
	AttachToTarget(ctx context.Context, targetID string) (sessionID string, err error)
	CreateTarget(ctx context.Context, url string) (targetID string, err error)
}

var _ Target = &target{}

type target struct {
	exec cdp.Executor
}

// NewTarget returns a new CDP Target domain wrapper.
func NewTarget(exec cdp.Executor) Target {
	return &target{exec}
}

func (t *target) GetTargets(ctx context.Context) ([]*cdpt.Info, error) {
	action := cdpt.GetTargets()

	infos, err := action.Do(cdp.WithExecutor(ctx, t.exec))
	if err != nil {
		return nil, fmt.Errorf("getting targets: %w", err)
	}

	return infos, nil
}

func (t *target) AttachToTarget(ctx context.Context, targetID string) (string, error) {
	action := cdpt.AttachToTarget(cdpt.ID(targetID)).WithFlatten(true)

	sid, err := action.Do(cdp.WithExecutor(ctx, t.exec))
	if err != nil {
		return "", fmt.Errorf("attaching to target %q: %w", targetID, err)
	}

	return string(sid), nil
}

func (t *target) CreateTarget(ctx context.Context, url string) (string, error) {
	action := cdpt.CreateTarget(url)

	tid, err := action.Do(cdp.WithExecutor(ctx, t.exec))
	if err != nil {
		return "", fmt.Errorf("creating target for %q: %w", url, err)
	}

	return string(tid), nil
}
