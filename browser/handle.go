package browser

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto"
	cdpnetwork "github.com/chromedp/cdproto/network"
	cdppage "github.com/chromedp/cdproto/page"

	"github.com/mosaicrun/remotebrowser/cdp"
	"github.com/mosaicrun/remotebrowser/cdp/domains"
	"github.com/mosaicrun/remotebrowser/keyboard"
	"github.com/mosaicrun/remotebrowser/log"
)

const (
	readyPollInterval = 250 * time.Millisecond
	readyPollAttempts = 40

	selectorPollInterval = 200 * time.Millisecond
)

// Handle drives one remote browser page and records everything it does.
type Handle struct {
	client *cdp.Client

	page      domains.Page
	runtime   domains.Runtime
	input     domains.Input
	network   domains.Network
	emulation domains.Emulation

	sessionID string
	rec       *Recorder
	logger    *log.Logger

	viewportWidth  int
	viewportHeight int

	stopDialogWatch func()
}

// Connect attaches to the remote browser at wsURL, picks its first page
// target, and starts the dialog watcher. The returned Handle must be closed.
func Connect(ctx context.Context, wsURL string, logger *log.Logger) (*Handle, error) {
	client := cdp.NewClient(ctx, logger)
	if err := client.Connect(ctx, wsURL); err != nil {
		return nil, err
	}

	sessionCtx, err := client.AttachToPage(ctx)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("attaching to page: %w", err)
	}

	h := &Handle{
		client:    client,
		page:      client.Page,
		runtime:   client.Runtime,
		input:     client.Input,
		network:   client.Network,
		emulation: client.Emulation,
		sessionID: cdp.GetSessionID(sessionCtx),
		rec:       NewRecorder(),
		logger:    logger,
	}

	if err := h.page.Enable(sessionCtx); err != nil {
		_ = client.Close()
		return nil, err
	}
	if err := h.network.Enable(sessionCtx); err != nil {
		_ = client.Close()
		return nil, err
	}

	events, cancel := client.Subscribe(sessionCtx, cdproto.EventPageJavascriptDialogOpening)
	h.stopDialogWatch = cancel
	go h.watchDialogs(sessionCtx, events)

	return h, nil
}

// newHandle wires a Handle directly onto domain implementations. Used by
// tests.
func newHandle(
	page domains.Page, runtime domains.Runtime, input domains.Input,
	network domains.Network, emulation domains.Emulation, logger *log.Logger,
) *Handle {
	return &Handle{
		page:      page,
		runtime:   runtime,
		input:     input,
		network:   network,
		emulation: emulation,
		rec:       NewRecorder(),
		logger:    logger,
	}
}

// Recorder returns the action history of this handle.
func (h *Handle) Recorder() *Recorder { return h.rec }

// Close stops the dialog watcher and tears down the CDP connection.
func (h *Handle) Close() error {
	if h.stopDialogWatch != nil {
		h.stopDialogWatch()
	}
	if h.client != nil {
		return h.client.Close()
	}
	return nil
}

func (h *Handle) sctx(ctx context.Context) context.Context {
	if h.sessionID == "" {
		return ctx
	}
	return cdp.WithSessionID(ctx, h.sessionID)
}

// watchDialogs records and dismisses javascript dialogs so no agent action
// ever blocks on one.
func (h *Handle) watchDialogs(ctx context.Context, events <-chan *cdp.Event) {
	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return
			}
			details := map[string]any{}
			if opening, ok := evt.Data.(*cdppage.EventJavascriptDialogOpening); ok {
				details["type"] = string(opening.Type)
				details["message"] = opening.Message
			}
			idx := h.rec.Start(KindDialog, details)
			err := h.page.HandleJavaScriptDialog(ctx, false)
			h.rec.Finish(idx, err)
			if err != nil {
				h.logger.Errorf("browser:dialog", "dismissing dialog: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Navigate loads url in the page and waits for the document to become
// ready. The navigation history records the URL only on success.
func (h *Handle) Navigate(ctx context.Context, url string) error {
	ctx = h.sctx(ctx)
	idx := h.rec.Start(KindNavigate, map[string]any{"url": url})

	_, err := h.page.Navigate(ctx, url, "")
	if err == nil {
		h.waitReady(ctx)
	}
	h.rec.Finish(idx, err)
	if err != nil {
		return err
	}

	landed, uerr := h.URL(ctx)
	if uerr != nil || landed == "" {
		landed = url
	}
	h.rec.RecordNavigation(landed)

	return nil
}

func (h *Handle) waitReady(ctx context.Context) {
	for i := 0; i < readyPollAttempts; i++ {
		state, err := h.evalString(ctx, `document.readyState`)
		if err == nil && (state == "complete" || state == "interactive") {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(readyPollInterval):
		}
	}
	h.logger.Warnf("browser", "page did not become ready in time")
}

// Click finds the element matching selector, scrolls it into view and
// clicks its center. The selector history records selector even when the
// element is missing.
func (h *Handle) Click(ctx context.Context, selector, button string, count int) error {
	ctx = h.sctx(ctx)
	h.rec.RecordSelector(selector)
	idx := h.rec.Start(KindClick, map[string]any{
		"selector": selector,
		"button":   button,
		"count":    count,
	})
	err := h.click(ctx, selector, button, count)
	h.rec.Finish(idx, err)
	return err
}

func (h *Handle) click(ctx context.Context, selector, button string, count int) error {
	expr := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return null;
		el.scrollIntoView({block: "center", inline: "center"});
		const r = el.getBoundingClientRect();
		return {x: r.x + r.width / 2, y: r.y + r.height / 2};
	})()`, jsString(selector))

	raw, err := h.runtime.Evaluate(ctx, expr)
	if err != nil {
		return err
	}

	var pt *struct{ X, Y float64 }
	if err := json.Unmarshal(raw, &pt); err != nil {
		return fmt.Errorf("decoding element position: %w", err)
	}
	if pt == nil {
		return fmt.Errorf("no element matches selector %q", selector)
	}

	if count < 1 {
		count = 1
	}
	return h.input.ClickAt(ctx, pt.X, pt.Y, button, count)
}

// ClickAt clicks at viewport coordinates without a selector.
func (h *Handle) ClickAt(ctx context.Context, x, y float64, button string) error {
	ctx = h.sctx(ctx)
	idx := h.rec.Start(KindClickAt, map[string]any{
		"x": x, "y": y, "button": button,
	})
	err := h.input.ClickAt(ctx, x, y, button, 1)
	h.rec.Finish(idx, err)
	return err
}

// Type inserts text into the focused element.
func (h *Handle) Type(ctx context.Context, text string) error {
	ctx = h.sctx(ctx)
	idx := h.rec.Start(KindType, map[string]any{"text": text})
	err := h.input.InsertText(ctx, text)
	h.rec.Finish(idx, err)
	return err
}

// Fill sets the value of the element matching selector and fires the input
// and change events.
func (h *Handle) Fill(ctx context.Context, selector, text string) error {
	ctx = h.sctx(ctx)
	idx := h.rec.Start(KindFill, map[string]any{
		"selector": selector,
		"text":     text,
	})
	err := h.fill(ctx, selector, text)
	h.rec.Finish(idx, err)
	return err
}

func (h *Handle) fill(ctx context.Context, selector, text string) error {
	expr := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return false;
		el.focus();
		el.value = %s;
		el.dispatchEvent(new Event("input", {bubbles: true}));
		el.dispatchEvent(new Event("change", {bubbles: true}));
		return true;
	})()`, jsString(selector), jsString(text))

	ok, err := h.evalBool(ctx, expr)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no element matches selector %q", selector)
	}
	return nil
}

// Press dispatches a key combination like "Enter" or "ctrl+a".
func (h *Handle) Press(ctx context.Context, combo string) error {
	ctx = h.sctx(ctx)
	idx := h.rec.Start(KindPress, map[string]any{"key": combo})
	err := h.press(ctx, combo)
	h.rec.Finish(idx, err)
	return err
}

func (h *Handle) press(ctx context.Context, combo string) error {
	def, mods, err := keyboard.ParseCombo(combo)
	if err != nil {
		return err
	}
	return h.input.PressKey(ctx, def.Key, def.Code, int64(mods))
}

// Scroll dispatches a mouse wheel event at the viewport center.
func (h *Handle) Scroll(ctx context.Context, deltaX, deltaY float64) error {
	ctx = h.sctx(ctx)
	idx := h.rec.Start(KindScroll, map[string]any{
		"delta_x": deltaX, "delta_y": deltaY,
	})
	x := float64(h.viewportWidth) / 2
	y := float64(h.viewportHeight) / 2
	err := h.input.Scroll(ctx, x, y, deltaX, deltaY)
	h.rec.Finish(idx, err)
	return err
}

// Evaluate runs a javascript expression in the page.
func (h *Handle) Evaluate(ctx context.Context, expression string) (json.RawMessage, error) {
	ctx = h.sctx(ctx)
	idx := h.rec.Start(KindEvaluate, map[string]any{
		"expression": truncate(expression, 200),
	})
	raw, err := h.runtime.Evaluate(ctx, expression)
	h.rec.Finish(idx, err)
	return raw, err
}

// Content returns the full page HTML.
func (h *Handle) Content(ctx context.Context) (string, error) {
	return h.evalString(h.sctx(ctx), `document.documentElement.outerHTML`)
}

// URL returns the page's current location.
func (h *Handle) URL(ctx context.Context) (string, error) {
	return h.evalString(h.sctx(ctx), `window.location.href`)
}

// Title returns the page title.
func (h *Handle) Title(ctx context.Context) (string, error) {
	return h.evalString(h.sctx(ctx), `document.title`)
}

// ElementCount returns how many elements match selector.
func (h *Handle) ElementCount(ctx context.Context, selector string) (int, error) {
	expr := fmt.Sprintf(`document.querySelectorAll(%s).length`, jsString(selector))
	raw, err := h.runtime.Evaluate(h.sctx(ctx), expr)
	if err != nil {
		return 0, err
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("decoding element count: %w", err)
	}
	return n, nil
}

// WaitForSelector polls until at least one element matches selector or the
// timeout elapses.
func (h *Handle) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		n, err := h.ElementCount(ctx, selector)
		if err == nil && n > 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for selector %q", selector)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(selectorPollInterval):
		}
	}
}

// ClipboardText reads the page clipboard. The page must have clipboard
// read permission, which the vendor sessions grant.
func (h *Handle) ClipboardText(ctx context.Context) (string, error) {
	return h.evalString(h.sctx(ctx), `navigator.clipboard.readText()`)
}

// Cookies returns the cookies visible to the current page.
func (h *Handle) Cookies(ctx context.Context) ([]Cookie, error) {
	raw, err := h.network.GetCookies(h.sctx(ctx), nil)
	if err != nil {
		return nil, err
	}
	cookies := make([]Cookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
		})
	}
	return cookies, nil
}

// AddCookies sets cookies in the browser.
func (h *Handle) AddCookies(ctx context.Context, cookies []Cookie) error {
	ctx = h.sctx(ctx)
	names := make([]string, len(cookies))
	for i, c := range cookies {
		names[i] = c.Name
	}
	idx := h.rec.Start(KindSetCookies, map[string]any{"names": names})

	params := make([]*cdpnetwork.CookieParam, len(cookies))
	for i, c := range cookies {
		params[i] = &cdpnetwork.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			URL:      c.URL,
		}
	}
	err := h.network.SetCookies(ctx, params)
	h.rec.Finish(idx, err)
	return err
}

// ClearCookies removes all browser cookies.
func (h *Handle) ClearCookies(ctx context.Context) error {
	ctx = h.sctx(ctx)
	idx := h.rec.Start(KindClearCookies, nil)
	err := h.network.ClearBrowserCookies(ctx)
	h.rec.Finish(idx, err)
	return err
}

// Screenshot captures the viewport as base64-encoded PNG.
func (h *Handle) Screenshot(ctx context.Context) (string, error) {
	buf, err := h.page.CaptureScreenshot(h.sctx(ctx))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// ScreenshotPNG captures the viewport as raw PNG bytes.
func (h *Handle) ScreenshotPNG(ctx context.Context) ([]byte, error) {
	return h.page.CaptureScreenshot(h.sctx(ctx))
}

// SetViewport overrides the page's device metrics.
func (h *Handle) SetViewport(ctx context.Context, width, height int) error {
	if err := h.emulation.SetDeviceMetricsOverride(h.sctx(ctx), int64(width), int64(height)); err != nil {
		return err
	}
	h.viewportWidth, h.viewportHeight = width, height
	return nil
}

// Viewport returns the last viewport set with SetViewport.
func (h *Handle) Viewport() (width, height int) {
	return h.viewportWidth, h.viewportHeight
}

func (h *Handle) evalString(ctx context.Context, expr string) (string, error) {
	raw, err := h.runtime.Evaluate(ctx, expr)
	if err != nil {
		return "", err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("decoding string result: %w", err)
	}
	return s, nil
}

func (h *Handle) evalBool(ctx context.Context, expr string) (bool, error) {
	raw, err := h.runtime.Evaluate(ctx, expr)
	if err != nil {
		return false, err
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false, fmt.Errorf("decoding bool result: %w", err)
	}
	return b, nil
}

// jsString embeds a Go string into a javascript expression safely.
func jsString(s string) string {
	buf, _ := json.Marshal(s)
	return string(buf)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
