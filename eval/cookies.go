package eval

import (
	"context"
	"fmt"
)

// CookieExists checks whether a cookie with the given name is set.
func CookieExists(ctx context.Context, page Page, name string) Result {
	if page == nil {
		return failure("no browser page available")
	}
	cookies, err := page.Cookies(ctx)
	if err != nil {
		return failure(fmt.Sprintf("reading cookies: %v", err))
	}
	for _, c := range cookies {
		if c.Name == name {
			res := score(1, true)
			res.Details = map[string]any{
				"cookie_name": name,
				"value":       c.Value,
				"domain":      c.Domain,
			}
			return res
		}
	}
	res := score(0, false)
	res.Details = map[string]any{"cookie_name": name, "total_cookies": len(cookies)}
	return res
}

// CookieMatch checks whether the named cookie holds exactly the expected
// value.
func CookieMatch(ctx context.Context, page Page, name, expected string) Result {
	if page == nil {
		return failure("no browser page available")
	}
	cookies, err := page.Cookies(ctx)
	if err != nil {
		return failure(fmt.Sprintf("reading cookies: %v", err))
	}
	for _, c := range cookies {
		if c.Name != name {
			continue
		}
		if c.Value == expected {
			res := score(1, true)
			res.Details = map[string]any{"cookie_name": name, "value": c.Value}
			return res
		}
		res := score(0, false)
		res.Details = map[string]any{
			"cookie_name": name,
			"expected":    expected,
			"actual":      c.Value,
		}
		return res
	}
	res := failure("cookie not found")
	res.Details = map[string]any{"cookie_name": name}
	return res
}
