package browser

import (
	"sync"
	"time"
)

// Recorder keeps the append-only action history plus the navigation-only
// and selector-only views evaluators query. Safe for concurrent use; the
// dialog watcher appends from its own goroutine.
type Recorder struct {
	mu          sync.Mutex
	actions     []Action
	navigations []string
	selectors   []string
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Start appends an action with its details before the operation runs and
// returns its index for Finish.
func (r *Recorder) Start(kind Kind, details map[string]any) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, Action{
		Kind:    kind,
		Time:    time.Now(),
		Details: details,
	})
	return len(r.actions) - 1
}

// Finish attaches the outcome to a previously started action.
func (r *Recorder) Finish(idx int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx < 0 || idx >= len(r.actions) {
		return
	}
	res := &ActionResult{Success: err == nil}
	if err != nil {
		res.Error = err.Error()
	}
	r.actions[idx].Result = res
}

// RecordNavigation appends a URL to the navigation history. Called only
// after a navigation succeeds.
func (r *Recorder) RecordNavigation(url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.navigations = append(r.navigations, url)
}

// RecordSelector appends a selector to the selector history. Called before
// the click runs, so failed clicks still count.
func (r *Recorder) RecordSelector(selector string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selectors = append(r.selectors, selector)
}

// Actions returns a copy of the action history.
func (r *Recorder) Actions() []Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Action, len(r.actions))
	copy(out, r.actions)
	return out
}

// Len returns the number of recorded actions.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.actions)
}

// Last returns the most recent action, if any.
func (r *Recorder) Last() (Action, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.actions) == 0 {
		return Action{}, false
	}
	return r.actions[len(r.actions)-1], true
}

// Navigations returns a copy of the navigation history.
func (r *Recorder) Navigations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.navigations))
	copy(out, r.navigations)
	return out
}

// Selectors returns a copy of the selector history.
func (r *Recorder) Selectors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.selectors))
	copy(out, r.selectors)
	return out
}

// SelectorAt returns the selector at index i, counting from the first
// click. Negative indexes count from the end, python style, since task
// criteria use them.
func (r *Recorder) SelectorAt(i int) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i < 0 {
		i += len(r.selectors)
	}
	if i < 0 || i >= len(r.selectors) {
		return "", false
	}
	return r.selectors[i], true
}
