package provider

import (
	"fmt"
	"strings"

	"github.com/mosaicrun/remotebrowser/log"
)

// Vendor names, in detection priority order.
const (
	NameAnchor       = "anchorbrowser"
	NameSteel        = "steel"
	NameBrowserbase  = "browserbase"
	NameHyperbrowser = "hyperbrowser"
	NameKernel       = "kernel"
)

// names lists the vendors in priority order.
var names = []string{NameAnchor, NameSteel, NameBrowserbase, NameHyperbrowser, NameKernel}

// Detect picks the vendor from the config. An explicit Provider override
// wins; otherwise exactly one vendor API key must be set. No key is a
// configuration error, and so is more than one key without an override.
func Detect(cfg Config) (string, error) {
	if cfg.Provider.Valid && cfg.Provider.String != "" {
		name := strings.ToLower(strings.TrimSpace(cfg.Provider.String))
		if !known(name) {
			return "", fmt.Errorf("unknown browser provider %q (want one of %s)", name, strings.Join(names, ", "))
		}
		return name, nil
	}

	var found []string
	for _, name := range names {
		if key := cfg.apiKey(name); key.Valid && key.String != "" {
			found = append(found, name)
		}
	}

	switch len(found) {
	case 0:
		return "", ErrNoProvider
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguousProvider, strings.Join(found, ", "))
	}
}

// New builds the adapter for a vendor name. The name usually comes from
// Detect, but an explicit name is accepted too.
func New(name string, cfg Config, logger *log.Logger) (Provider, error) {
	key := cfg.apiKey(name)
	if !key.Valid || key.String == "" {
		return nil, fmt.Errorf("provider %q selected but its API key is not set", name)
	}

	switch name {
	case NameAnchor:
		return NewAnchor(cfg, logger), nil
	case NameSteel:
		return NewSteel(cfg, logger), nil
	case NameBrowserbase:
		return NewBrowserbase(cfg, logger), nil
	case NameHyperbrowser:
		return NewHyperbrowser(cfg, logger), nil
	case NameKernel:
		return NewKernel(cfg, logger), nil
	}
	return nil, fmt.Errorf("unknown browser provider %q", name)
}

func known(name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
