// Package session owns the lifetime of one remote browser session and
// shares it across processes through a small HTTP state server.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gopkg.in/guregu/null.v3"

	"github.com/mosaicrun/remotebrowser/log"
	"github.com/mosaicrun/remotebrowser/provider"
)

// Status describes the session lifecycle.
type Status string

// Session statuses.
const (
	StatusNotInitialized Status = "not_initialized"
	StatusRunning        Status = "running"
	StatusError          Status = "error"
	StatusTerminated     Status = "terminated"
)

// Telemetry is a point-in-time snapshot of the session. Building one never
// fails; missing data shows up as null fields.
type Telemetry struct {
	Provider   string      `json:"provider"`
	Status     Status      `json:"status"`
	LiveURL    null.String `json:"live_url"`
	CDPURL     null.String `json:"cdp_url"`
	InstanceID null.String `json:"instance_id"`
	Error      null.String `json:"error"`
	Timestamp  time.Time   `json:"timestamp"`
}

// newProviderFunc builds a vendor adapter. Tests substitute it.
type newProviderFunc func(name string, cfg provider.Config, logger *log.Logger) (provider.Provider, error)

// Context holds the session state shared between the state server and
// attached processes. The mutex serializes Initialize so concurrent
// initializers can never launch two browser sessions.
type Context struct {
	cfg    provider.Config
	logger *log.Logger

	newProvider newProviderFunc

	mu           sync.Mutex
	prov         provider.Provider
	providerName string
	cdpURL       string
	initialized  bool
	status       Status
	lastErr      string
}

// NewContext returns an uninitialized session context.
func NewContext(cfg provider.Config, logger *log.Logger) *Context {
	return &Context{
		cfg:         cfg,
		logger:      logger,
		newProvider: provider.New,
		status:      StatusNotInitialized,
	}
}

// Initialize launches a browser session, or returns the existing one's CDP
// URL when the session is already up. Safe for concurrent use.
func (c *Context) Initialize(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		c.logger.Infof("session", "reusing existing browser session (%s)", c.providerName)
		return c.cdpURL, nil
	}

	name, err := provider.Detect(c.cfg)
	if err != nil {
		return "", c.fail(fmt.Errorf("detecting provider: %w", err))
	}
	c.logger.Infof("session", "using browser provider %s", name)

	prov, err := c.newProvider(name, c.cfg, c.logger)
	if err != nil {
		return "", c.fail(err)
	}

	cdpURL, err := prov.Launch(ctx, c.cfg.LaunchOptions())
	if err != nil {
		return "", c.fail(fmt.Errorf("launching %s session: %w", name, err))
	}

	c.prov = prov
	c.providerName = name
	c.cdpURL = cdpURL
	c.initialized = true
	c.status = StatusRunning
	c.lastErr = ""
	return cdpURL, nil
}

// fail records an initialization error. Caller holds the mutex.
func (c *Context) fail(err error) error {
	c.status = StatusError
	c.lastErr = err.Error()
	return err
}

// IsInitialized reports whether a browser session is up.
func (c *Context) IsInitialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized
}

// CDPURL returns the control URL of the running session, or "".
func (c *Context) CDPURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cdpURL
}

// Telemetry snapshots the session state. It never fails: before
// initialization it reports not_initialized with whatever the config
// knows.
func (c *Context) Telemetry() Telemetry {
	c.mu.Lock()
	defer c.mu.Unlock()

	name := c.providerName
	if name == "" {
		if c.cfg.Provider.Valid {
			name = c.cfg.Provider.String
		} else if detected, err := provider.Detect(c.cfg); err == nil {
			name = detected
		} else {
			name = "unknown"
		}
	}

	t := Telemetry{
		Provider:  name,
		Status:    c.status,
		Timestamp: time.Now(),
	}
	if c.lastErr != "" {
		t.Error = null.StringFrom(c.lastErr)
	}
	if c.prov != nil {
		if url := c.prov.LiveViewURL(); url != "" {
			t.LiveURL = null.StringFrom(url)
		}
		if id := c.prov.InstanceID(); id != "" {
			t.InstanceID = null.StringFrom(id)
		}
	}
	if c.cdpURL != "" {
		t.CDPURL = null.StringFrom(c.cdpURL)
	}
	return t
}

// Shutdown terminates the browser session. Close failures are logged, not
// returned: local state is always cleared so a fresh Initialize can follow.
func (c *Context) Shutdown(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.prov != nil {
		if err := c.prov.Close(ctx); err != nil {
			c.logger.Warnf("session", "closing %s session: %v", c.providerName, err)
		}
	}
	c.prov = nil
	c.cdpURL = ""
	c.initialized = false
	c.status = StatusTerminated
}
