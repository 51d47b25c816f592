package provider

import (
	"context"
	"fmt"
	"net/url"

	"github.com/mosaicrun/remotebrowser/log"
)

const (
	steelDefaultBaseURL = "https://api.steel.dev"
	steelConnectURL     = "wss://connect.steel.dev"
	steelViewerURL      = "https://app.steel.dev/sessions/%s/viewer"
)

// Steel drives the Steel sessions API. Steel does not return a websocket
// URL; it is constructed from the API key and session ID.
type Steel struct {
	api    *apiClient
	apiKey string
	logger *log.Logger

	instanceID  string
	controlURL  string
	liveViewURL string
	running     bool
}

// NewSteel returns a Steel adapter configured from cfg.
func NewSteel(cfg Config, logger *log.Logger) *Steel {
	baseURL := steelDefaultBaseURL
	if cfg.SteelBaseURL.Valid {
		baseURL = cfg.SteelBaseURL.String
	}
	apiKey := cfg.SteelAPIKey.String
	return &Steel{
		api: newAPIClient(NameSteel, baseURL, map[string]string{
			"Steel-Api-Key": apiKey,
		}, logger),
		apiKey: apiKey,
		logger: logger,
	}
}

// Name returns "steel".
func (s *Steel) Name() string { return NameSteel }

// InstanceID returns the vendor session ID.
func (s *Steel) InstanceID() string { return s.instanceID }

// LiveViewURL returns the session viewer URL.
func (s *Steel) LiveViewURL() string { return s.liveViewURL }

type steelCreateRequest struct {
	Timeout      int64           `json:"timeout,omitempty"`
	UseProxy     bool            `json:"useProxy,omitempty"`
	BlockAds     bool            `json:"blockAds,omitempty"`
	SolveCaptcha bool            `json:"solveCaptcha,omitempty"`
	Dimensions   *steelDimension `json:"dimensions,omitempty"`
}

type steelDimension struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type steelSession struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	DebugURL         string `json:"debugUrl"`
	SessionViewerURL string `json:"sessionViewerUrl"`
}

// Launch creates a Steel session and returns the constructed websocket URL.
func (s *Steel) Launch(ctx context.Context, opts LaunchOptions) (string, error) {
	body := steelCreateRequest{
		UseProxy:     opts.UseProxy,
		BlockAds:     opts.BlockAds,
		SolveCaptcha: opts.SolveCaptcha,
		Dimensions: &steelDimension{
			Width:  opts.Viewport.Width,
			Height: opts.Viewport.Height,
		},
	}
	if opts.MaxDuration > 0 {
		body.Timeout = opts.MaxDuration.Milliseconds()
	}

	req, err := s.api.NewRequest(ctx, "POST", "/v1/sessions", body)
	if err != nil {
		return "", fmt.Errorf("creating steel session request: %w", err)
	}

	var sess steelSession
	if err := s.api.Do(req, &sess); err != nil {
		return "", fmt.Errorf("creating steel session: %w", err)
	}
	if sess.ID == "" {
		return "", fmt.Errorf("steel session response has no session ID")
	}

	s.instanceID = sess.ID
	s.controlURL = fmt.Sprintf("%s?apiKey=%s&sessionId=%s",
		steelConnectURL, url.QueryEscape(s.apiKey), url.QueryEscape(sess.ID))
	s.running = true

	switch {
	case sess.DebugURL != "":
		s.liveViewURL = sess.DebugURL
	case sess.SessionViewerURL != "":
		s.liveViewURL = sess.SessionViewerURL
	default:
		s.liveViewURL = fmt.Sprintf(steelViewerURL, sess.ID)
	}

	s.logger.Infof("provider:steel", "launched session %s", s.instanceID)

	return s.controlURL, nil
}

// Status fetches the vendor session record. Errors degrade to a partial
// status.
func (s *Steel) Status(ctx context.Context) Status {
	st := Status{Provider: NameSteel, InstanceID: s.instanceID, Running: s.running}
	if s.instanceID == "" || !s.running {
		return st
	}

	req, err := s.api.NewRequest(ctx, "GET", "/v1/sessions/"+s.instanceID, nil)
	if err != nil {
		st.Error = err.Error()
		return st
	}

	var raw map[string]any
	if err := s.api.Do(req, &raw); err != nil {
		s.logger.Warnf("provider:steel", "status check failed: %v", err)
		st.Error = err.Error()
		return st
	}

	st.Raw = raw
	if v, ok := raw["status"].(string); ok {
		st.State = v
	}
	return st
}

// Close deletes the session. A 404 means the session already ended and is
// not an error. Local state is cleared regardless of the outcome.
func (s *Steel) Close(ctx context.Context) error {
	defer func() {
		s.running = false
		s.controlURL = ""
		s.instanceID = ""
	}()

	if s.instanceID == "" {
		return nil
	}

	req, err := s.api.NewRequest(ctx, "DELETE", "/v1/sessions/"+s.instanceID, nil)
	if err != nil {
		return fmt.Errorf("creating steel release request: %w", err)
	}

	if err := s.api.Do(req, nil); err != nil {
		if apiErr, ok := err.(*APIError); ok && apiErr.NotFound() {
			return nil
		}
		return fmt.Errorf("releasing steel session %s: %w", s.instanceID, err)
	}

	s.logger.Infof("provider:steel", "terminated session %s", s.instanceID)
	return nil
}
