// Package browser wraps the CDP client with an action-memory layer: every
// mutating page operation is recorded before it runs, so evaluators can
// score what the agent did as well as where the page ended up.
package browser

import "time"

// Kind identifies a recorded action type.
type Kind string

// Recorded action kinds.
const (
	KindNavigate     Kind = "navigate"
	KindClick        Kind = "click"
	KindClickAt      Kind = "click_at"
	KindType         Kind = "type"
	KindFill         Kind = "fill"
	KindPress        Kind = "press"
	KindScroll       Kind = "scroll"
	KindEvaluate     Kind = "evaluate"
	KindDialog       Kind = "dialog"
	KindSetCookies   Kind = "set_cookies"
	KindClearCookies Kind = "clear_cookies"
)

// Action is one recorded operation. Details is captured before the
// operation executes; Result stays nil until the operation finishes, so a
// nil Result on the last action means it is in flight or was interrupted.
type Action struct {
	Kind    Kind           `json:"kind"`
	Time    time.Time      `json:"time"`
	Details map[string]any `json:"details,omitempty"`
	Result  *ActionResult  `json:"result,omitempty"`
}

// ActionResult is the outcome attached to an Action after it executes.
type ActionResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Cookie is the subset of cookie attributes the module reads and writes.
type Cookie struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Domain   string `json:"domain,omitempty"`
	Path     string `json:"path,omitempty"`
	HTTPOnly bool   `json:"httpOnly,omitempty"`
	Secure   bool   `json:"secure,omitempty"`
	URL      string `json:"url,omitempty"`
}
