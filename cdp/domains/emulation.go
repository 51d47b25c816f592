package domains

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	cdpe "github.com/chromedp/cdproto/emulation"
)

// Emulation exposes the CDP Emulation domain actions the module uses.
type Emulation interface {
	SetDeviceMetricsOverride(ctx context.Context, width, height int64) error
}

var _ Emulation = &emulation{}

type emulation struct {
	exec cdp.Executor
}

// NewEmulation returns a new CDP Emulation domain wrapper.
func NewEmulation(exec cdp.Executor) Emulation {
	return &emulation{exec}
}

func (e *emulation) SetDeviceMetricsOverride(ctx context.Context, width, height int64) error {
	action := cdpe.SetDeviceMetricsOverride(width, height, 1.0, false)
	if err := action.Do(cdp.WithExecutor(ctx, e.exec)); err != nil {
		return fmt.Errorf("overriding device metrics to %dx%d: %w", width, height, err)
	}

	return nil
}
