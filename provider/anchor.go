package provider

import (
	"context"
	"fmt"
	"net/url"

	"github.com/mosaicrun/remotebrowser/log"
)

const (
	anchorDefaultBaseURL = "https://api.anchorbrowser.io"
	anchorConnectURL     = "wss://connect.anchorbrowser.io"
)

// Anchor drives the Anchor Browser sessions API.
type Anchor struct {
	api    *apiClient
	apiKey string
	logger *log.Logger

	instanceID  string
	controlURL  string
	liveViewURL string
	running     bool
}

// NewAnchor returns an Anchor adapter configured from cfg.
func NewAnchor(cfg Config, logger *log.Logger) *Anchor {
	baseURL := anchorDefaultBaseURL
	if cfg.AnchorBaseURL.Valid {
		baseURL = cfg.AnchorBaseURL.String
	}
	apiKey := cfg.AnchorAPIKey.String
	return &Anchor{
		api: newAPIClient(NameAnchor, baseURL, map[string]string{
			"anchor-api-key": apiKey,
		}, logger),
		apiKey: apiKey,
		logger: logger,
	}
}

// Name returns "anchorbrowser".
func (a *Anchor) Name() string { return NameAnchor }

// InstanceID returns the vendor session ID.
func (a *Anchor) InstanceID() string { return a.instanceID }

// LiveViewURL returns the session live view URL.
func (a *Anchor) LiveViewURL() string { return a.liveViewURL }

type anchorCreateRequest struct {
	Session anchorSessionSettings `json:"session"`
	Browser anchorBrowserSettings `json:"browser"`
}

type anchorSessionSettings struct {
	MaxDuration int64        `json:"max_duration,omitempty"`
	IdleTimeout int64        `json:"idle_timeout,omitempty"`
	Proxy       *anchorFlag  `json:"proxy,omitempty"`
	Region      string       `json:"region,omitempty"`
}

type anchorBrowserSettings struct {
	Viewport      *Viewport   `json:"viewport,omitempty"`
	CaptchaSolver *anchorFlag `json:"captcha_solver,omitempty"`
	Adblock       *anchorFlag `json:"adblock,omitempty"`
}

type anchorFlag struct {
	Active bool `json:"active"`
}

type anchorSession struct {
	Data struct {
		ID          string `json:"id"`
		CDPURL      string `json:"cdp_url"`
		LiveViewURL string `json:"live_view_url"`
	} `json:"data"`
}

// Launch creates an Anchor session. The vendor usually returns the CDP URL;
// when it does not, the URL is constructed from the API key and session ID.
func (a *Anchor) Launch(ctx context.Context, opts LaunchOptions) (string, error) {
	body := anchorCreateRequest{
		Session: anchorSessionSettings{
			Region: opts.Region,
		},
		Browser: anchorBrowserSettings{
			Viewport: &opts.Viewport,
		},
	}
	if opts.MaxDuration > 0 {
		body.Session.MaxDuration = int64(opts.MaxDuration.Minutes())
	}
	if opts.IdleTimeout > 0 {
		body.Session.IdleTimeout = int64(opts.IdleTimeout.Minutes())
	}
	if opts.UseProxy {
		body.Session.Proxy = &anchorFlag{Active: true}
	}
	if opts.SolveCaptcha {
		body.Browser.CaptchaSolver = &anchorFlag{Active: true}
	}
	if opts.BlockAds {
		body.Browser.Adblock = &anchorFlag{Active: true}
	}

	req, err := a.api.NewRequest(ctx, "POST", "/v1/sessions", body)
	if err != nil {
		return "", fmt.Errorf("creating anchor session request: %w", err)
	}

	var sess anchorSession
	if err := a.api.Do(req, &sess); err != nil {
		return "", fmt.Errorf("creating anchor session: %w", err)
	}
	if sess.Data.ID == "" {
		return "", fmt.Errorf("anchor session response has no session ID")
	}

	a.instanceID = sess.Data.ID
	a.controlURL = sess.Data.CDPURL
	if a.controlURL == "" {
		a.controlURL = fmt.Sprintf("%s?apiKey=%s&sessionId=%s",
			anchorConnectURL, url.QueryEscape(a.apiKey), url.QueryEscape(sess.Data.ID))
	}
	a.liveViewURL = sess.Data.LiveViewURL
	a.running = true

	a.logger.Infof("provider:anchorbrowser", "launched session %s", a.instanceID)

	return a.controlURL, nil
}

// Status fetches the vendor session record. Errors degrade to a partial
// status.
func (a *Anchor) Status(ctx context.Context) Status {
	st := Status{Provider: NameAnchor, InstanceID: a.instanceID, Running: a.running}
	if a.instanceID == "" || !a.running {
		return st
	}

	req, err := a.api.NewRequest(ctx, "GET", "/v1/sessions/"+a.instanceID, nil)
	if err != nil {
		st.Error = err.Error()
		return st
	}

	var raw map[string]any
	if err := a.api.Do(req, &raw); err != nil {
		a.logger.Warnf("provider:anchorbrowser", "status check failed: %v", err)
		st.Error = err.Error()
		return st
	}

	st.Raw = raw
	if data, ok := raw["data"].(map[string]any); ok {
		if v, ok := data["status"].(string); ok {
			st.State = v
		}
	}
	return st
}

// Close deletes the session, treating 404 as already gone. Local state is
// always cleared.
func (a *Anchor) Close(ctx context.Context) error {
	defer func() {
		a.running = false
		a.controlURL = ""
		a.instanceID = ""
	}()

	if a.instanceID == "" {
		return nil
	}

	req, err := a.api.NewRequest(ctx, "DELETE", "/v1/sessions/"+a.instanceID, nil)
	if err != nil {
		return fmt.Errorf("creating anchor release request: %w", err)
	}

	if err := a.api.Do(req, nil); err != nil {
		if apiErr, ok := err.(*APIError); ok && apiErr.NotFound() {
			return nil
		}
		return fmt.Errorf("releasing anchor session %s: %w", a.instanceID, err)
	}

	a.logger.Infof("provider:anchorbrowser", "terminated session %s", a.instanceID)
	return nil
}
