package provider

import (
	"time"

	"github.com/mstoykov/envconfig"
	"gopkg.in/guregu/null.v3"

	"github.com/mosaicrun/remotebrowser/env"
)

// Config holds every environment-sourced knob of the provider layer.
// Unset fields keep their vendor defaults.
type Config struct {
	Provider null.String `json:"provider" envconfig:"BROWSER_PROVIDER"`

	AnchorAPIKey  null.String `json:"-" envconfig:"ANCHOR_API_KEY"`
	AnchorBaseURL null.String `json:"anchorBaseURL" envconfig:"ANCHOR_BASE_URL"`

	SteelAPIKey  null.String `json:"-" envconfig:"STEEL_API_KEY"`
	SteelBaseURL null.String `json:"steelBaseURL" envconfig:"STEEL_BASE_URL"`

	BrowserbaseAPIKey    null.String `json:"-" envconfig:"BROWSERBASE_API_KEY"`
	BrowserbaseProjectID null.String `json:"browserbaseProjectID" envconfig:"BROWSERBASE_PROJECT_ID"`
	BrowserbaseBaseURL   null.String `json:"browserbaseBaseURL" envconfig:"BROWSERBASE_BASE_URL"`

	HyperbrowserAPIKey  null.String `json:"-" envconfig:"HYPERBROWSER_API_KEY"`
	HyperbrowserBaseURL null.String `json:"hyperbrowserBaseURL" envconfig:"HYPERBROWSER_BASE_URL"`

	KernelAPIKey  null.String `json:"-" envconfig:"KERNEL_API_KEY"`
	KernelBaseURL null.String `json:"kernelBaseURL" envconfig:"KERNEL_BASE_URL"`

	DisplayWidth  null.Int `json:"displayWidth" envconfig:"DISPLAY_WIDTH"`
	DisplayHeight null.Int `json:"displayHeight" envconfig:"DISPLAY_HEIGHT"`

	InitialURL null.String `json:"initialURL" envconfig:"BROWSER_URL"`

	// Durations in seconds, the unit every vendor API uses.
	MaxDuration null.Int `json:"maxDuration" envconfig:"BROWSER_MAX_DURATION"`
	IdleTimeout null.Int `json:"idleTimeout" envconfig:"BROWSER_IDLE_TIMEOUT"`

	UseProxy     null.Bool   `json:"useProxy" envconfig:"BROWSER_USE_PROXY"`
	SolveCaptcha null.Bool   `json:"solveCaptcha" envconfig:"BROWSER_SOLVE_CAPTCHA"`
	Stealth      null.Bool   `json:"stealth" envconfig:"BROWSER_STEALTH"`
	BlockAds     null.Bool   `json:"blockAds" envconfig:"BROWSER_BLOCK_ADS"`
	Region       null.String `json:"region" envconfig:"BROWSER_REGION"`
}

// NewConfig returns a Config from the given environment lookup.
func NewConfig(lookup env.LookupFunc) (Config, error) {
	cfg := Config{}
	if err := envconfig.Process("", &cfg, lookup); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Apply overlays set fields of val onto c and returns the result.
func (c Config) Apply(val Config) Config {
	if val.Provider.Valid {
		c.Provider = val.Provider
	}
	if val.AnchorAPIKey.Valid {
		c.AnchorAPIKey = val.AnchorAPIKey
	}
	if val.AnchorBaseURL.Valid {
		c.AnchorBaseURL = val.AnchorBaseURL
	}
	if val.SteelAPIKey.Valid {
		c.SteelAPIKey = val.SteelAPIKey
	}
	if val.SteelBaseURL.Valid {
		c.SteelBaseURL = val.SteelBaseURL
	}
	if val.BrowserbaseAPIKey.Valid {
		c.BrowserbaseAPIKey = val.BrowserbaseAPIKey
	}
	if val.BrowserbaseProjectID.Valid {
		c.BrowserbaseProjectID = val.BrowserbaseProjectID
	}
	if val.BrowserbaseBaseURL.Valid {
		c.BrowserbaseBaseURL = val.BrowserbaseBaseURL
	}
	if val.HyperbrowserAPIKey.Valid {
		c.HyperbrowserAPIKey = val.HyperbrowserAPIKey
	}
	if val.HyperbrowserBaseURL.Valid {
		c.HyperbrowserBaseURL = val.HyperbrowserBaseURL
	}
	if val.KernelAPIKey.Valid {
		c.KernelAPIKey = val.KernelAPIKey
	}
	if val.KernelBaseURL.Valid {
		c.KernelBaseURL = val.KernelBaseURL
	}
	if val.DisplayWidth.Valid {
		c.DisplayWidth = val.DisplayWidth
	}
	if val.DisplayHeight.Valid {
		c.DisplayHeight = val.DisplayHeight
	}
	if val.InitialURL.Valid {
		c.InitialURL = val.InitialURL
	}
	if val.MaxDuration.Valid {
		c.MaxDuration = val.MaxDuration
	}
	if val.IdleTimeout.Valid {
		c.IdleTimeout = val.IdleTimeout
	}
	if val.UseProxy.Valid {
		c.UseProxy = val.UseProxy
	}
	if val.SolveCaptcha.Valid {
		c.SolveCaptcha = val.SolveCaptcha
	}
	if val.Stealth.Valid {
		c.Stealth = val.Stealth
	}
	if val.BlockAds.Valid {
		c.BlockAds = val.BlockAds
	}
	if val.Region.Valid {
		c.Region = val.Region
	}
	return c
}

// LaunchOptions translates the config into vendor-independent launch
// parameters.
func (c Config) LaunchOptions() LaunchOptions {
	vp := DefaultViewport
	if c.DisplayWidth.Valid {
		vp.Width = int(c.DisplayWidth.Int64)
	}
	if c.DisplayHeight.Valid {
		vp.Height = int(c.DisplayHeight.Int64)
	}

	return LaunchOptions{
		Viewport:     vp,
		MaxDuration:  time.Duration(c.MaxDuration.Int64) * time.Second,
		IdleTimeout:  time.Duration(c.IdleTimeout.Int64) * time.Second,
		UseProxy:     c.UseProxy.Bool,
		SolveCaptcha: c.SolveCaptcha.Bool,
		Stealth:      c.Stealth.Bool,
		BlockAds:     c.BlockAds.Bool,
		Region:       c.Region.String,
		InitialURL:   c.InitialURL.String,
	}
}

func (c Config) apiKey(name string) null.String {
	switch name {
	case NameAnchor:
		return c.AnchorAPIKey
	case NameSteel:
		return c.SteelAPIKey
	case NameBrowserbase:
		return c.BrowserbaseAPIKey
	case NameHyperbrowser:
		return c.HyperbrowserAPIKey
	case NameKernel:
		return c.KernelAPIKey
	}
	return null.String{}
}
