package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	cdpnetwork "github.com/chromedp/cdproto/network"
)

// Quiet exposes page operations that bypass the action recorder. Setup and
// scoring go through it so they do not pollute the recorded agent history.
type Quiet struct {
	h *Handle
}

// Quiet returns the unrecorded operations facade for this handle.
func (h *Handle) Quiet() Quiet { return Quiet{h} }

// Navigate loads url without recording the action.
func (q Quiet) Navigate(ctx context.Context, rawurl string) error {
	ctx = q.h.sctx(ctx)
	if _, err := q.h.page.Navigate(ctx, rawurl, ""); err != nil {
		return err
	}
	q.h.waitReady(ctx)
	return nil
}

// LoadHTML loads literal HTML content into the page through a data URL.
func (q Quiet) LoadHTML(ctx context.Context, html string) error {
	return q.Navigate(ctx, "data:text/html,"+url.PathEscape(html))
}

// ClickElement waits for selector and clicks the matching element.
func (q Quiet) ClickElement(ctx context.Context, selector string, timeout time.Duration) error {
	if err := q.h.WaitForSelector(ctx, selector, timeout); err != nil {
		return err
	}
	return q.h.click(q.h.sctx(ctx), selector, "left", 1)
}

// ClickText clicks the first element matching selector whose trimmed text
// content equals text.
func (q Quiet) ClickText(ctx context.Context, selector, text string) error {
	expr := fmt.Sprintf(`(() => {
		const els = document.querySelectorAll(%s);
		for (const el of els) {
			if (el.textContent.trim() === %s) {
				el.click();
				return true;
			}
		}
		return false;
	})()`, jsString(selector), jsString(text))

	ok, err := q.h.evalBool(q.h.sctx(ctx), expr)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no element matching %q has text %q", selector, text)
	}
	return nil
}

// FillInput waits for selector and fills the matching input.
func (q Quiet) FillInput(ctx context.Context, selector, text string, timeout time.Duration) error {
	if err := q.h.WaitForSelector(ctx, selector, timeout); err != nil {
		return err
	}
	return q.h.fill(q.h.sctx(ctx), selector, text)
}

// SelectOption selects the option with the given value in a select element
// and fires its change event.
func (q Quiet) SelectOption(ctx context.Context, selector, value string) error {
	expr := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return false;
		el.value = %s;
		el.dispatchEvent(new Event("change", {bubbles: true}));
		return true;
	})()`, jsString(selector), jsString(value))

	ok, err := q.h.evalBool(q.h.sctx(ctx), expr)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no element matches selector %q", selector)
	}
	return nil
}

// Press dispatches a key combination without recording it.
func (q Quiet) Press(ctx context.Context, combo string) error {
	return q.h.press(q.h.sctx(ctx), combo)
}

// Evaluate runs a javascript expression without recording it.
func (q Quiet) Evaluate(ctx context.Context, expression string) (json.RawMessage, error) {
	return q.h.runtime.Evaluate(q.h.sctx(ctx), expression)
}

// InputValue reads the value of the element matching selector, falling back
// to its text content for non-input elements.
func (q Quiet) InputValue(ctx context.Context, selector string) (string, error) {
	expr := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return null;
		if (el.value !== undefined && el.value !== "") return String(el.value);
		return el.textContent || "";
	})()`, jsString(selector))

	raw, err := q.h.runtime.Evaluate(q.h.sctx(ctx), expr)
	if err != nil {
		return "", err
	}
	var value *string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", fmt.Errorf("decoding input value: %w", err)
	}
	if value == nil {
		return "", fmt.Errorf("no element matches selector %q", selector)
	}
	return *value, nil
}

// URL returns the page's current location.
func (q Quiet) URL(ctx context.Context) (string, error) {
	return q.h.URL(ctx)
}

// Content returns the full page HTML.
func (q Quiet) Content(ctx context.Context) (string, error) {
	return q.h.Content(ctx)
}

// ElementCount returns how many elements match selector.
func (q Quiet) ElementCount(ctx context.Context, selector string) (int, error) {
	return q.h.ElementCount(ctx, selector)
}

// WaitForSelector polls until at least one element matches selector or the
// timeout elapses.
func (q Quiet) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	return q.h.WaitForSelector(ctx, selector, timeout)
}

// ClipboardText reads the page clipboard.
func (q Quiet) ClipboardText(ctx context.Context) (string, error) {
	return q.h.ClipboardText(ctx)
}

// Cookies returns the cookies visible to the current page.
func (q Quiet) Cookies(ctx context.Context) ([]Cookie, error) {
	return q.h.Cookies(ctx)
}

// SetCookies sets cookies without recording the action.
func (q Quiet) SetCookies(ctx context.Context, cookies []Cookie) error {
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
	return q.h.network.SetCookies(q.h.sctx(ctx), params)
}

// ClearCookies removes all cookies without recording the action.
func (q Quiet) ClearCookies(ctx context.Context) error {
	return q.h.network.ClearBrowserCookies(q.h.sctx(ctx))
}
