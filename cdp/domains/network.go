package domains

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	cdpn "github.com/chromedp/cdproto/network"
)

// Network exposes the CDP Network domain actions the module uses.
type Network interface {
	Enable(ctx context.Context) error
	GetCookies(ctx context.Context, urls []string) ([]*cdpn.Cookie, error)
	SetCookies(ctx context.Context, cookies []*cdpn.CookieParam) error
	ClearBrowserCookies(ctx context.Context) error
}

var _ Network = &network{}

type network struct {
	exec cdp.Executor
}

// NewNetwork returns a new CDP Network domain wrapper.
func NewNetwork(exec cdp.Executor) Network {
	return &network{exec}
}

func (n *network) Enable(ctx context.Context) error {
	action := cdpn.Enable()
	if err := action.Do(cdp.WithExecutor(ctx, n.exec)); err != nil {
		return fmt.Errorf("enabling network CDP domain: %w", err)
	}

	return nil
}

func (n *network) GetCookies(ctx context.Context, urls []string) ([]*cdpn.Cookie, error) {
	action := cdpn.GetCookies()
	if len(urls) > 0 {
		action = action.WithUrls(urls)
	}

	cookies, err := action.Do(cdp.WithExecutor(ctx, n.exec))
	if err != nil {
		return nil, fmt.Errorf("getting cookies: %w", err)
	}

	return cookies, nil
}

func (n *network) SetCookies(ctx context.Context, cookies []*cdpn.CookieParam) error {
	action := cdpn.SetCookies(cookies)
	if err := action.Do(cdp.WithExecutor(ctx, n.exec)); err != nil {
		return fmt.Errorf("setting cookies: %w", err)
	}

	return nil
}

func (n *network) ClearBrowserCookies(ctx context.Context) error {
	action := cdpn.ClearBrowserCookies()
	if err := action.Do(cdp.WithExecutor(ctx, n.exec)); err != nil {
		return fmt.Errorf("clearing cookies: %w", err)
	}

	return nil
}
