package provider

import (
	"errors"
	"fmt"
)

// ErrNoProvider is returned when no vendor API key is present and no
// explicit provider override is set.
var ErrNoProvider = errors.New("no browser provider configured: set BROWSER_PROVIDER or exactly one vendor API key")

// ErrAmbiguousProvider is returned when several vendor API keys are present
// without an explicit override choosing between them.
var ErrAmbiguousProvider = errors.New("multiple browser provider API keys set: disambiguate with BROWSER_PROVIDER")

// ErrNotLaunched is returned by operations that need a running session.
var ErrNotLaunched = errors.New("session not launched")

// APIError is a non-2xx response from a vendor session API.
type APIError struct {
	Provider string
	Op       string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: %s returned HTTP %d: %s", e.Provider, e.Op, e.Status, e.Body)
	}
	return fmt.Sprintf("%s: %s returned HTTP %d", e.Provider, e.Op, e.Status)
}

// NotFound reports whether the vendor said the session does not exist.
// Close treats that as success.
func (e *APIError) NotFound() bool { return e.Status == 404 }
