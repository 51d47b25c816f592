// Package keyboard resolves human-readable key names and combinations like
// "Control+A" into the key, code and modifier bitmask the CDP Input domain
// expects.
package keyboard

import (
	"fmt"
	"strings"
	"unicode"
)

// ModifierKey is a key modifier bitmask matching the CDP Input domain
// encoding.
type ModifierKey int64

const (
	// ModifierKeyAlt is the ALT key modifier.
	ModifierKeyAlt ModifierKey = 1 << iota
	// ModifierKeyControl is the CTRL key modifier.
	ModifierKeyControl
	// ModifierKeyMeta is the meta key modifier.
	ModifierKeyMeta
	// ModifierKeyShift is the Shift key modifier.
	ModifierKeyShift
)

// Definition represents information about a keyboard key.
type Definition struct {
	Key  string
	Code string
}

// aliases maps the loose names agents use to canonical key names.
var aliases = map[string]string{
	"ctrl": "Control", "control": "Control", "alt": "Alt", "shift": "Shift",
	"meta": "Meta", "cmd": "Meta", "command": "Meta", "win": "Meta",
	"enter": "Enter", "return": "Enter", "tab": "Tab", "backspace": "Backspace",
	"delete": "Delete", "escape": "Escape", "esc": "Escape", "space": "Space",
	"up": "ArrowUp", "down": "ArrowDown", "left": "ArrowLeft", "right": "ArrowRight",
	"pageup": "PageUp", "pagedown": "PageDown", "home": "Home", "end": "End",
	"f1": "F1", "f2": "F2", "f3": "F3", "f4": "F4", "f5": "F5", "f6": "F6",
	"f7": "F7", "f8": "F8", "f9": "F9", "f10": "F10", "f11": "F11", "f12": "F12",
}

// namedKeys are the non-character keys with a known CDP code.
var namedKeys = map[string]Definition{
	"Enter":      {Key: "Enter", Code: "Enter"},
	"Tab":        {Key: "Tab", Code: "Tab"},
	"Backspace":  {Key: "Backspace", Code: "Backspace"},
	"Delete":     {Key: "Delete", Code: "Delete"},
	"Escape":     {Key: "Escape", Code: "Escape"},
	"Space":      {Key: " ", Code: "Space"},
	"ArrowUp":    {Key: "ArrowUp", Code: "ArrowUp"},
	"ArrowDown":  {Key: "ArrowDown", Code: "ArrowDown"},
	"ArrowLeft":  {Key: "ArrowLeft", Code: "ArrowLeft"},
	"ArrowRight": {Key: "ArrowRight", Code: "ArrowRight"},
	"PageUp":     {Key: "PageUp", Code: "PageUp"},
	"PageDown":   {Key: "PageDown", Code: "PageDown"},
	"Home":       {Key: "Home", Code: "Home"},
	"End":        {Key: "End", Code: "End"},
	"F1":         {Key: "F1", Code: "F1"},
	"F2":         {Key: "F2", Code: "F2"},
	"F3":         {Key: "F3", Code: "F3"},
	"F4":         {Key: "F4", Code: "F4"},
	"F5":         {Key: "F5", Code: "F5"},
	"F6":         {Key: "F6", Code: "F6"},
	"F7":         {Key: "F7", Code: "F7"},
	"F8":         {Key: "F8", Code: "F8"},
	"F9":         {Key: "F9", Code: "F9"},
	"F10":        {Key: "F10", Code: "F10"},
	"F11":        {Key: "F11", Code: "F11"},
	"F12":        {Key: "F12", Code: "F12"},
}

// Canonical returns the canonical key name for a possibly aliased one.
func Canonical(name string) string {
	if mapped, ok := aliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return mapped
	}
	return strings.TrimSpace(name)
}

// ModifierBitFromKey returns the modifier bit for a canonical key name, or 0
// when the key is not a modifier.
func ModifierBitFromKey(key string) ModifierKey {
	switch key {
	case "Alt":
		return ModifierKeyAlt
	case "Control":
		return ModifierKeyControl
	case "Meta":
		return ModifierKeyMeta
	case "Shift":
		return ModifierKeyShift
	}
	return 0
}

// KeyDefinition resolves a canonical non-modifier key name to its CDP key
// and code.
func KeyDefinition(key string) (Definition, error) {
	if def, ok := namedKeys[key]; ok {
		return def, nil
	}

	runes := []rune(key)
	if len(runes) != 1 {
		return Definition{}, fmt.Errorf("unknown key %q", key)
	}

	r := runes[0]
	switch {
	case unicode.IsLetter(r):
		return Definition{
			Key:  string(r),
			Code: "Key" + strings.ToUpper(string(r)),
		}, nil
	case unicode.IsDigit(r):
		return Definition{
			Key:  string(r),
			Code: "Digit" + string(r),
		}, nil
	default:
		return Definition{Key: string(r)}, nil
	}
}

// ParseCombo splits a combination like "Control+Shift+a" into the final key
// definition and the modifier bitmask. A bare modifier like "Control" is
// returned as a key with no extra modifiers.
func ParseCombo(combo string) (Definition, ModifierKey, error) {
	parts := strings.Split(combo, "+")

	var mods ModifierKey
	var last string
	for i, part := range parts {
		name := Canonical(part)
		if bit := ModifierBitFromKey(name); bit != 0 && i < len(parts)-1 {
			mods |= bit
			continue
		}
		last = name
	}

	if last == "" {
		return Definition{}, 0, fmt.Errorf("empty key combination %q", combo)
	}

	if bit := ModifierBitFromKey(last); bit != 0 {
		return Definition{Key: last, Code: last + "Left"}, mods, nil
	}

	def, err := KeyDefinition(last)
	if err != nil {
		return Definition{}, 0, err
	}
	return def, mods, nil
}
