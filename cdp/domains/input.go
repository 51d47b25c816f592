package domains

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	cdpi "github.com/chromedp/cdproto/input"
)

// Input exposes the CDP Input domain actions the module uses.
type Input interface {
	// ClickAt dispatches a full mouse press and release at viewport
	// coordinates.
	ClickAt(ctx context.Context, x, y float64, button string, clickCount int) error
	// InsertText types text into the focused element in one shot.
	InsertText(ctx context.Context, text string) error
	// PressKey dispatches a keyDown/keyUp pair. modifiers is the CDP
	// modifier bitmask (alt=1, ctrl=2, meta=4, shift=8).
	PressKey(ctx context.Context, key, code string, modifiers int64) error
	// Scroll dispatches a mouse wheel event at the given coordinates.
	Scroll(ctx context.Context, x, y, deltaX, deltaY float64) error
}

var _ Input = &input{}

type input struct {
	exec cdp.Executor
}

// NewInput returns a new CDP Input domain wrapper.
func NewInput(exec cdp.Executor) Input {
	return &input{exec}
}

func (i *input) ClickAt(ctx context.Context, x, y float64, button string, clickCount int) error {
	ctx = cdp.WithExecutor(ctx, i.exec)

	mb := cdpi.MouseButton(button)
	if mb == "" {
		mb = cdpi.Left
	}

	press := cdpi.DispatchMouseEvent(cdpi.MousePressed, x, y).
		WithButton(mb).
		WithClickCount(int64(clickCount))
	if err := press.Do(ctx); err != nil {
		return fmt.Errorf("dispatching mouse press at (%.0f,%.0f): %w", x, y, err)
	}

	release := cdpi.DispatchMouseEvent(cdpi.MouseReleased, x, y).
		WithButton(mb).
		WithClickCount(int64(clickCount))
	if err := release.Do(ctx); err != nil {
		return fmt.Errorf("dispatching mouse release at (%.0f,%.0f): %w", x, y, err)
	}

	return nil
}

func (i *input) InsertText(ctx context.Context, text string) error {
	action := cdpi.InsertText(text)
	if err := action.Do(cdp.WithExecutor(ctx, i.exec)); err != nil {
		return fmt.Errorf("inserting text: %w", err)
	}

	return nil
}

func (i *input) PressKey(ctx context.Context, key, code string, modifiers int64) error {
	ctx = cdp.WithExecutor(ctx, i.exec)
	mods := cdpi.Modifier(modifiers)

	down := cdpi.DispatchKeyEvent(cdpi.KeyDown).
		WithKey(key).
		WithCode(code).
		WithModifiers(mods)
	if len(key) == 1 && modifiers == 0 {
		down = down.WithText(key)
	}
	if err := down.Do(ctx); err != nil {
		return fmt.Errorf("dispatching keyDown %q: %w", key, err)
	}

	up := cdpi.DispatchKeyEvent(cdpi.KeyUp).
		WithKey(key).
		WithCode(code).
		WithModifiers(mods)
	if err := up.Do(ctx); err != nil {
		return fmt.Errorf("dispatching keyUp %q: %w", key, err)
	}

	return nil
}

func (i *input) Scroll(ctx context.Context, x, y, deltaX, deltaY float64) error {
	action := cdpi.DispatchMouseEvent(cdpi.MouseWheel, x, y).
		WithDeltaX(deltaX).
		WithDeltaY(deltaY)
	if err := action.Do(cdp.WithExecutor(ctx, i.exec)); err != nil {
		return fmt.Errorf("dispatching mouse wheel: %w", err)
	}

	return nil
}
