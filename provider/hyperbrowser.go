package provider

import (
	"context"
	"fmt"

	"github.com/mosaicrun/remotebrowser/log"
)

const hyperbrowserDefaultBaseURL = "https://api.hyperbrowser.ai"

// Hyperbrowser drives the Hyperbrowser sessions API.
type Hyperbrowser struct {
	api    *apiClient
	logger *log.Logger

	instanceID  string
	controlURL  string
	liveViewURL string
	running     bool
}

// NewHyperbrowser returns a Hyperbrowser adapter configured from cfg.
func NewHyperbrowser(cfg Config, logger *log.Logger) *Hyperbrowser {
	baseURL := hyperbrowserDefaultBaseURL
	if cfg.HyperbrowserBaseURL.Valid {
		baseURL = cfg.HyperbrowserBaseURL.String
	}
	return &Hyperbrowser{
		api: newAPIClient(NameHyperbrowser, baseURL, map[string]string{
			"x-api-key": cfg.HyperbrowserAPIKey.String,
		}, logger),
		logger: logger,
	}
}

// Name returns "hyperbrowser".
func (h *Hyperbrowser) Name() string { return NameHyperbrowser }

// InstanceID returns the vendor session ID.
func (h *Hyperbrowser) InstanceID() string { return h.instanceID }

// LiveViewURL returns the session live view URL.
func (h *Hyperbrowser) LiveViewURL() string { return h.liveViewURL }

type hyperbrowserCreateRequest struct {
	UseProxy      bool                `json:"useProxy,omitempty"`
	SolveCaptchas bool                `json:"solveCaptchas,omitempty"`
	AdblockConfig bool                `json:"adblock,omitempty"`
	UseStealth    bool                `json:"useStealth,omitempty"`
	Screen        *hyperbrowserScreen `json:"screen,omitempty"`
	TimeoutMins   int64               `json:"timeoutMinutes,omitempty"`
}

type hyperbrowserScreen struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type hyperbrowserSession struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	WSEndpoint string `json:"wsEndpoint"`
	LiveURL    string `json:"liveUrl"`
}

// Launch creates a Hyperbrowser session and returns its websocket endpoint.
func (h *Hyperbrowser) Launch(ctx context.Context, opts LaunchOptions) (string, error) {
	body := hyperbrowserCreateRequest{
		UseProxy:      opts.UseProxy,
		SolveCaptchas: opts.SolveCaptcha,
		AdblockConfig: opts.BlockAds,
		UseStealth:    opts.Stealth,
		Screen: &hyperbrowserScreen{
			Width:  opts.Viewport.Width,
			Height: opts.Viewport.Height,
		},
	}
	if opts.MaxDuration > 0 {
		body.TimeoutMins = int64(opts.MaxDuration.Minutes())
	}

	req, err := h.api.NewRequest(ctx, "POST", "/api/session", body)
	if err != nil {
		return "", fmt.Errorf("creating hyperbrowser session request: %w", err)
	}

	var sess hyperbrowserSession
	if err := h.api.Do(req, &sess); err != nil {
		return "", fmt.Errorf("creating hyperbrowser session: %w", err)
	}
	if sess.ID == "" {
		return "", fmt.Errorf("hyperbrowser session response has no session ID")
	}
	if sess.WSEndpoint == "" {
		return "", fmt.Errorf("hyperbrowser session response has no websocket endpoint")
	}

	h.instanceID = sess.ID
	h.controlURL = sess.WSEndpoint
	h.liveViewURL = sess.LiveURL
	h.running = true

	h.logger.Infof("provider:hyperbrowser", "launched session %s", h.instanceID)

	return h.controlURL, nil
}

// Status fetches the vendor session record. Errors degrade to a partial
// status.
func (h *Hyperbrowser) Status(ctx context.Context) Status {
	st := Status{Provider: NameHyperbrowser, InstanceID: h.instanceID, Running: h.running}
	if h.instanceID == "" || !h.running {
		return st
	}

	req, err := h.api.NewRequest(ctx, "GET", "/api/session/"+h.instanceID, nil)
	if err != nil {
		st.Error = err.Error()
		return st
	}

	var raw map[string]any
	if err := h.api.Do(req, &raw); err != nil {
		h.logger.Warnf("provider:hyperbrowser", "status check failed: %v", err)
		st.Error = err.Error()
		return st
	}

	st.Raw = raw
	if v, ok := raw["status"].(string); ok {
		st.State = v
	}
	return st
}

// Close stops the session, treating 404 as already gone. Local state is
// always cleared.
func (h *Hyperbrowser) Close(ctx context.Context) error {
	defer func() {
		h.running = false
		h.controlURL = ""
		h.instanceID = ""
	}()

	if h.instanceID == "" {
		return nil
	}

	req, err := h.api.NewRequest(ctx, "PATCH", "/api/session/"+h.instanceID+"/stop", nil)
	if err != nil {
		return fmt.Errorf("creating hyperbrowser stop request: %w", err)
	}

	if err := h.api.Do(req, nil); err != nil {
		if apiErr, ok := err.(*APIError); ok && apiErr.NotFound() {
			return nil
		}
		return fmt.Errorf("stopping hyperbrowser session %s: %w", h.instanceID, err)
	}

	h.logger.Infof("provider:hyperbrowser", "terminated session %s", h.instanceID)
	return nil
}
