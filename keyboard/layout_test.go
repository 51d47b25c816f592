package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCombo(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		combo   string
		key     string
		code    string
		mods    ModifierKey
		wantErr bool
	}{
		{combo: "Control+a", key: "a", code: "KeyA", mods: ModifierKeyControl},
		{combo: "ctrl+c", key: "c", code: "KeyC", mods: ModifierKeyControl},
		{combo: "cmd+shift+z", key: "z", code: "KeyZ", mods: ModifierKeyMeta | ModifierKeyShift},
		{combo: "Enter", key: "Enter", code: "Enter"},
		{combo: "esc", key: "Escape", code: "Escape"},
		{combo: "down", key: "ArrowDown", code: "ArrowDown"},
		{combo: "5", key: "5", code: "Digit5"},
		{combo: "Control", key: "Control", code: "ControlLeft"},
		{combo: "ctrl+NoSuchKey", wantErr: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.combo, func(t *testing.T) {
			t.Parallel()

			def, mods, err := ParseCombo(tc.combo)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.key, def.Key)
			assert.Equal(t, tc.code, def.Code)
			assert.Equal(t, tc.mods, mods)
		})
	}
}

func TestCanonical(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Control", Canonical(" ctrl "))
	assert.Equal(t, "Meta", Canonical("command"))
	assert.Equal(t, "X", Canonical("X"))
}
