package provider

import (
	"context"
	"fmt"

	"github.com/mosaicrun/remotebrowser/log"
)

const browserbaseDefaultBaseURL = "https://api.browserbase.com"

// browserbaseViewports is the supported viewport set without advanced
// stealth. Requests outside it are mapped to the nearest entry.
var browserbaseViewports = []Viewport{
	{1920, 1080}, {1536, 864}, {1366, 768}, {1280, 720}, {1024, 768},
}

// Browserbase drives the Browserbase sessions API.
type Browserbase struct {
	api       *apiClient
	projectID string
	logger    *log.Logger

	instanceID  string
	controlURL  string
	liveViewURL string
	running     bool
}

// NewBrowserbase returns a Browserbase adapter configured from cfg.
func NewBrowserbase(cfg Config, logger *log.Logger) *Browserbase {
	baseURL := browserbaseDefaultBaseURL
	if cfg.BrowserbaseBaseURL.Valid {
		baseURL = cfg.BrowserbaseBaseURL.String
	}
	return &Browserbase{
		api: newAPIClient(NameBrowserbase, baseURL, map[string]string{
			"X-BB-API-Key": cfg.BrowserbaseAPIKey.String,
		}, logger),
		projectID: cfg.BrowserbaseProjectID.String,
		logger:    logger,
	}
}

// Name returns "browserbase".
func (b *Browserbase) Name() string { return NameBrowserbase }

// InstanceID returns the vendor session ID.
func (b *Browserbase) InstanceID() string { return b.instanceID }

// LiveViewURL returns the fullscreen debugger URL when available.
func (b *Browserbase) LiveViewURL() string { return b.liveViewURL }

type browserbaseCreateRequest struct {
	ProjectID       string                       `json:"projectId"`
	BrowserSettings *browserbaseBrowserSettings  `json:"browserSettings,omitempty"`
	Region          string                       `json:"region,omitempty"`
	KeepAlive       bool                         `json:"keepAlive,omitempty"`
	Proxies         bool                         `json:"proxies,omitempty"`
}

type browserbaseBrowserSettings struct {
	Viewport        *Viewport `json:"viewport,omitempty"`
	AdvancedStealth bool      `json:"advancedStealth,omitempty"`
}

type browserbaseSession struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	ConnectURL        string `json:"connectUrl"`
	SeleniumRemoteURL string `json:"seleniumRemoteUrl"`
}

type browserbaseDebug struct {
	DebuggerFullscreenURL string `json:"debuggerFullscreenUrl"`
	DebuggerURL           string `json:"debuggerUrl"`
	WSURL                 string `json:"wsUrl"`
}

// Launch creates a Browserbase session and returns its connect URL. Without
// advanced stealth the requested viewport is reconciled against the vendor's
// supported sizes.
func (b *Browserbase) Launch(ctx context.Context, opts LaunchOptions) (string, error) {
	if b.projectID == "" {
		return "", fmt.Errorf("browserbase project ID not set")
	}

	vp := opts.Viewport
	if !opts.Stealth {
		if mapped := nearestSupported(vp, browserbaseViewports); mapped != vp {
			b.logger.Warnf("provider:browserbase",
				"viewport %s not supported without advanced stealth, using %s", vp, mapped)
			vp = mapped
		}
	}

	body := browserbaseCreateRequest{
		ProjectID: b.projectID,
		BrowserSettings: &browserbaseBrowserSettings{
			Viewport:        &vp,
			AdvancedStealth: opts.Stealth,
		},
		Region:  opts.Region,
		Proxies: opts.UseProxy,
	}

	req, err := b.api.NewRequest(ctx, "POST", "/v1/sessions", body)
	if err != nil {
		return "", fmt.Errorf("creating browserbase session request: %w", err)
	}

	var sess browserbaseSession
	if err := b.api.Do(req, &sess); err != nil {
		return "", fmt.Errorf("creating browserbase session: %w", err)
	}
	if sess.ID == "" {
		return "", fmt.Errorf("browserbase session response has no session ID")
	}
	if sess.ConnectURL == "" {
		return "", fmt.Errorf("browserbase session response has no connect URL")
	}

	b.instanceID = sess.ID
	b.controlURL = sess.ConnectURL
	b.running = true

	// The live view comes from a separate debug endpoint; failure to fetch
	// it does not fail the launch.
	if debug, err := b.fetchDebug(ctx); err != nil {
		b.logger.Warnf("provider:browserbase", "fetching debug URLs: %v", err)
	} else {
		b.liveViewURL = debug.DebuggerFullscreenURL
	}

	b.logger.Infof("provider:browserbase", "launched session %s", b.instanceID)

	return b.controlURL, nil
}

func (b *Browserbase) fetchDebug(ctx context.Context) (browserbaseDebug, error) {
	var debug browserbaseDebug
	req, err := b.api.NewRequest(ctx, "GET", "/v1/sessions/"+b.instanceID+"/debug", nil)
	if err != nil {
		return debug, err
	}
	err = b.api.Do(req, &debug)
	return debug, err
}

// Status fetches the vendor session record. Errors degrade to a partial
// status.
func (b *Browserbase) Status(ctx context.Context) Status {
	st := Status{Provider: NameBrowserbase, InstanceID: b.instanceID, Running: b.running}
	if b.instanceID == "" || !b.running {
		return st
	}

	req, err := b.api.NewRequest(ctx, "GET", "/v1/sessions/"+b.instanceID, nil)
	if err != nil {
		st.Error = err.Error()
		return st
	}

	var raw map[string]any
	if err := b.api.Do(req, &raw); err != nil {
		b.logger.Warnf("provider:browserbase", "status check failed: %v", err)
		st.Error = err.Error()
		return st
	}

	st.Raw = raw
	if v, ok := raw["status"].(string); ok {
		st.State = v
	}
	return st
}

// Close asks the vendor to release the session. Browserbase sessions end on
// their own after disconnect, so failures are logged, not returned; 404
// means already gone. Local state is always cleared.
func (b *Browserbase) Close(ctx context.Context) error {
	defer func() {
		b.running = false
		b.controlURL = ""
		b.instanceID = ""
	}()

	if b.instanceID == "" {
		return nil
	}

	body := map[string]string{"status": "REQUEST_RELEASE"}
	req, err := b.api.NewRequest(ctx, "PATCH", "/v1/sessions/"+b.instanceID, body)
	if err != nil {
		return fmt.Errorf("creating browserbase release request: %w", err)
	}

	if err := b.api.Do(req, nil); err != nil {
		if apiErr, ok := err.(*APIError); ok && apiErr.NotFound() {
			return nil
		}
		b.logger.Warnf("provider:browserbase", "session release: %v", err)
		return nil
	}

	b.logger.Infof("provider:browserbase", "terminated session %s", b.instanceID)
	return nil
}
