// Package provider launches and manages remote browser sessions on cloud
// browser vendors. Each adapter speaks one vendor's session API and hands
// back a CDP websocket endpoint for the control layer to attach to.
package provider

import (
	"context"
	"time"
)

// Provider is a cloud browser vendor adapter. Implementations are safe for
// use from a single goroutine; the session context serializes access.
type Provider interface {
	// Name returns the vendor identifier, e.g. "steel".
	Name() string

	// Launch creates a remote browser session and returns the CDP websocket
	// endpoint to connect to.
	Launch(ctx context.Context, opts LaunchOptions) (string, error)

	// LiveViewURL returns a human-watchable session URL, or "" when the
	// vendor has none or the session is not running.
	LiveViewURL() string

	// InstanceID returns the vendor session ID, or "" before Launch.
	InstanceID() string

	// Status fetches the vendor's view of the session. It is best-effort:
	// on error it returns a partial Status with Error set rather than
	// failing.
	Status(ctx context.Context) Status

	// Close terminates the session. It is idempotent and tolerates the
	// session being already gone; local state is cleared even on error.
	Close(ctx context.Context) error
}

// LaunchOptions are the vendor-independent session parameters. Adapters
// translate them to their vendor's create-session body and ignore what the
// vendor cannot express.
type LaunchOptions struct {
	Viewport     Viewport
	MaxDuration  time.Duration
	IdleTimeout  time.Duration
	UseProxy     bool
	SolveCaptcha bool
	Stealth      bool
	BlockAds     bool
	Region       string
	InitialURL   string
}

// Status is a vendor session status snapshot.
type Status struct {
	Provider   string         `json:"provider"`
	InstanceID string         `json:"instance_id,omitempty"`
	State      string         `json:"state,omitempty"`
	Running    bool           `json:"running"`
	Error      string         `json:"error,omitempty"`
	Raw        map[string]any `json:"raw,omitempty"`
}
