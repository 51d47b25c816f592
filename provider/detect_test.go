package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaicrun/remotebrowser/env"
)

func configFrom(t *testing.T, vars map[string]string) Config {
	t.Helper()
	cfg, err := NewConfig(env.ConstLookup(vars))
	require.NoError(t, err)
	return cfg
}

func TestDetect(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		vars     map[string]string
		expected string
		wantErr  error
	}{
		{
			name:     "single key",
			vars:     map[string]string{env.SteelAPIKey: "sk"},
			expected: NameSteel,
		},
		{
			name: "override wins over key",
			vars: map[string]string{
				env.Provider:          NameKernel,
				env.BrowserbaseAPIKey: "bb",
			},
			expected: NameKernel,
		},
		{
			name:    "no keys",
			vars:    map[string]string{},
			wantErr: ErrNoProvider,
		},
		{
			name: "multiple keys without override",
			vars: map[string]string{
				env.AnchorAPIKey: "ak",
				env.SteelAPIKey:  "sk",
			},
			wantErr: ErrAmbiguousProvider,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			name, err := Detect(configFrom(t, tc.vars))
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, name)
		})
	}
}

func TestDetectUnknownOverride(t *testing.T) {
	t.Parallel()

	_, err := Detect(configFrom(t, map[string]string{env.Provider: "chrome-in-a-box"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown browser provider")
}

func TestNewRequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := New(NameSteel, Config{}, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is not set")
}

func TestNewBuildsEachVendor(t *testing.T) {
	t.Parallel()

	cfg := configFrom(t, map[string]string{
		env.AnchorAPIKey:       "a",
		env.SteelAPIKey:        "s",
		env.BrowserbaseAPIKey:  "b",
		env.HyperbrowserAPIKey: "h",
		env.KernelAPIKey:       "k",
	})

	for _, name := range names {
		p, err := New(name, cfg, testLogger())
		require.NoError(t, err)
		assert.Equal(t, name, p.Name())
		assert.Empty(t, p.InstanceID())
	}
}
