package scenario

import (
	"encoding/json"
	"fmt"
	"os"
)

// Task is one evaluation task: a scenario name plus its arguments. Tasks
// are immutable once loaded.
type Task struct {
	Scenario string `json:"scenario"`
	Args     Args   `json:"args"`
}

// LoadTask reads a task definition from a JSON file.
func LoadTask(path string) (*Task, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading task file: %w", err)
	}
	var task Task
	if err := json.Unmarshal(buf, &task); err != nil {
		return nil, fmt.Errorf("parsing task file %s: %w", path, err)
	}
	if task.Scenario == "" {
		return nil, fmt.Errorf("task file %s: missing scenario name", path)
	}
	if task.Args == nil {
		task.Args = Args{}
	}
	return &task, nil
}

// Args is a scenario argument map as loaded from a task definition.
type Args map[string]any

// String returns the string value for key, or "" when absent or not a
// string.
func (a Args) String(key string) string {
	s, _ := a[key].(string)
	return s
}

// StringOr returns the string value for key, or def when absent.
func (a Args) StringOr(key, def string) string {
	if s, ok := a[key].(string); ok {
		return s
	}
	return def
}

// Int returns the integer value for key, or def when absent. JSON numbers
// decode as float64.
func (a Args) Int(key string, def int) int {
	switch v := a[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

// Bool returns the boolean value for key, or def when absent.
func (a Args) Bool(key string, def bool) bool {
	if b, ok := a[key].(bool); ok {
		return b
	}
	return def
}

// Has reports whether key is present.
func (a Args) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// StringMap returns the map value for key with its values stringified.
func (a Args) StringMap(key string) map[string]string {
	raw, ok := a[key].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		out[k] = stringify(v)
	}
	return out
}

// Strings returns the value for key as a list of strings, accepting either
// a single string or a list.
func (a Args) Strings(key string) []string {
	switch v := a[key].(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, stringify(item))
		}
		return out
	}
	return nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// Render integral numbers without a trailing ".0".
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	case bool:
		return fmt.Sprintf("%t", t)
	case nil:
		return ""
	}
	buf, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(buf)
}
