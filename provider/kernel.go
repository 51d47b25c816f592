package provider

import (
	"context"
	"fmt"

	"github.com/mosaicrun/remotebrowser/log"
)

const kernelDefaultBaseURL = "https://api.onkernel.com"

// Kernel drives the Kernel browsers API.
type Kernel struct {
	api    *apiClient
	logger *log.Logger

	instanceID  string
	controlURL  string
	liveViewURL string
	running     bool
}

// NewKernel returns a Kernel adapter configured from cfg.
func NewKernel(cfg Config, logger *log.Logger) *Kernel {
	baseURL := kernelDefaultBaseURL
	if cfg.KernelBaseURL.Valid {
		baseURL = cfg.KernelBaseURL.String
	}
	return &Kernel{
		api: newAPIClient(NameKernel, baseURL, map[string]string{
			"Authorization": "Bearer " + cfg.KernelAPIKey.String,
		}, logger),
		logger: logger,
	}
}

// Name returns "kernel".
func (k *Kernel) Name() string { return NameKernel }

// InstanceID returns the vendor session ID.
func (k *Kernel) InstanceID() string { return k.instanceID }

// LiveViewURL returns the session live view URL.
func (k *Kernel) LiveViewURL() string { return k.liveViewURL }

type kernelCreateRequest struct {
	Stealth        bool `json:"stealth,omitempty"`
	Headless       bool `json:"headless"`
	TimeoutSeconds int64 `json:"timeout_seconds,omitempty"`
}

type kernelSession struct {
	SessionID          string `json:"session_id"`
	CDPWSURL           string `json:"cdp_ws_url"`
	BrowserLiveViewURL string `json:"browser_live_view_url"`
}

// Launch creates a Kernel browser and returns its CDP websocket URL.
func (k *Kernel) Launch(ctx context.Context, opts LaunchOptions) (string, error) {
	body := kernelCreateRequest{
		Stealth:  opts.Stealth,
		Headless: false,
	}
	if opts.MaxDuration > 0 {
		body.TimeoutSeconds = int64(opts.MaxDuration.Seconds())
	}

	req, err := k.api.NewRequest(ctx, "POST", "/browsers", body)
	if err != nil {
		return "", fmt.Errorf("creating kernel browser request: %w", err)
	}

	var sess kernelSession
	if err := k.api.Do(req, &sess); err != nil {
		return "", fmt.Errorf("creating kernel browser: %w", err)
	}
	if sess.SessionID == "" {
		return "", fmt.Errorf("kernel browser response has no session ID")
	}
	if sess.CDPWSURL == "" {
		return "", fmt.Errorf("kernel browser response has no CDP URL")
	}

	k.instanceID = sess.SessionID
	k.controlURL = sess.CDPWSURL
	k.liveViewURL = sess.BrowserLiveViewURL
	k.running = true

	k.logger.Infof("provider:kernel", "launched browser %s", k.instanceID)

	return k.controlURL, nil
}

// Status fetches the vendor browser record. Errors degrade to a partial
// status.
func (k *Kernel) Status(ctx context.Context) Status {
	st := Status{Provider: NameKernel, InstanceID: k.instanceID, Running: k.running}
	if k.instanceID == "" || !k.running {
		return st
	}

	req, err := k.api.NewRequest(ctx, "GET", "/browsers/"+k.instanceID, nil)
	if err != nil {
		st.Error = err.Error()
		return st
	}

	var raw map[string]any
	if err := k.api.Do(req, &raw); err != nil {
		k.logger.Warnf("provider:kernel", "status check failed: %v", err)
		st.Error = err.Error()
		return st
	}

	st.Raw = raw
	if v, ok := raw["status"].(string); ok {
		st.State = v
	}
	return st
}

// Close deletes the browser, treating 404 as already gone. Local state is
// always cleared.
func (k *Kernel) Close(ctx context.Context) error {
	defer func() {
		k.running = false
		k.controlURL = ""
		k.instanceID = ""
	}()

	if k.instanceID == "" {
		return nil
	}

	req, err := k.api.NewRequest(ctx, "DELETE", "/browsers/"+k.instanceID, nil)
	if err != nil {
		return fmt.Errorf("creating kernel delete request: %w", err)
	}

	if err := k.api.Do(req, nil); err != nil {
		if apiErr, ok := err.(*APIError); ok && apiErr.NotFound() {
			return nil
		}
		return fmt.Errorf("deleting kernel browser %s: %w", k.instanceID, err)
	}

	k.logger.Infof("provider:kernel", "terminated browser %s", k.instanceID)
	return nil
}
