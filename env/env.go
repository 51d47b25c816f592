// Package env declares the environment variable names the module reads and
// the lookup seam used to inject them in tests.
package env

import "os"

// Provider selection and credentials. Exactly one vendor key should be set
// unless Provider overrides the choice.
const (
	Provider = "BROWSER_PROVIDER"

	AnchorAPIKey       = "ANCHOR_API_KEY"
	SteelAPIKey        = "STEEL_API_KEY"
	BrowserbaseAPIKey  = "BROWSERBASE_API_KEY"
	HyperbrowserAPIKey = "HYPERBROWSER_API_KEY"
	KernelAPIKey       = "KERNEL_API_KEY"

	BrowserbaseProjectID = "BROWSERBASE_PROJECT_ID"
)

// Session tuning.
const (
	DisplayWidth  = "DISPLAY_WIDTH"
	DisplayHeight = "DISPLAY_HEIGHT"
	InitialURL    = "BROWSER_URL"
	MaxDuration   = "BROWSER_MAX_DURATION"
	IdleTimeout   = "BROWSER_IDLE_TIMEOUT"
	StateAddr     = "BROWSER_STATE_ADDR"
	LogLevel      = "BROWSER_LOG_LEVEL"
)

// LookupFunc is the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Lookup reads the process environment.
var Lookup LookupFunc = os.LookupEnv

// EmptyLookup never finds a value. Handy default in tests.
func EmptyLookup(_ string) (string, bool) { return "", false }

// ConstLookup returns a LookupFunc backed by a fixed map.
func ConstLookup(vars map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

// ToEnviron flattens a map into "key=value" pairs for envconfig processing.
func ToEnviron(vars map[string]string) []string {
	environ := make([]string, 0, len(vars))
	for k, v := range vars {
		environ = append(environ, k+"="+v)
	}
	return environ
}
