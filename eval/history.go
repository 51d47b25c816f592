package eval

import (
	"fmt"
	"math"

	"github.com/mosaicrun/remotebrowser/browser"
)

// HistoryLength checks whether the action history length falls between the
// optional min and max bounds. With both bounds set, the reward scales with
// proximity to the window midpoint; otherwise it is all-or-nothing.
func HistoryLength(rec *browser.Recorder, min, max *int) Result {
	if rec == nil {
		return failure("no action history available")
	}
	length := rec.Len()

	inRange := true
	if min != nil && length < *min {
		inRange = false
	}
	if max != nil && length > *max {
		inRange = false
	}

	var reward float64
	if min != nil && max != nil {
		target := float64(*min+*max) / 2
		if target > 0 {
			reward = 1 - math.Abs(float64(length)-target)/target
		} else if inRange {
			reward = 1
		}
	} else if inRange {
		reward = 1
	}

	res := score(reward, inRange)
	res.Details = map[string]any{"history_length": length, "in_range": inRange}
	if min != nil {
		res.Details["min_length"] = *min
	}
	if max != nil {
		res.Details["max_length"] = *max
	}
	return res
}

// RawLastActionIs checks the kind of the most recent action and, when
// expected details are given, that every expected key matches the recorded
// details.
func RawLastActionIs(rec *browser.Recorder, kind browser.Kind, details map[string]any) Result {
	if rec == nil {
		return failure("no action history available")
	}
	last, ok := rec.Last()
	if !ok {
		res := failure("no actions have been performed")
		res.Details = map[string]any{"expected_action": string(kind)}
		return res
	}

	match := last.Kind == kind
	if match {
		for key, want := range details {
			if last.Details[key] != want {
				match = false
				break
			}
		}
	}

	var reward float64
	if match {
		reward = 1
	}
	res := score(reward, match)
	res.Details = map[string]any{
		"expected_action": string(kind),
		"last_action":     string(last.Kind),
	}
	return res
}

// SelectorHistory checks the selector recorded at index against the
// expectation. An out-of-range index is a failure, not an error.
func SelectorHistory(rec *browser.Recorder, index int, expected string) Result {
	if rec == nil {
		return failure("no action history available")
	}
	selectors := rec.Selectors()
	if index < 0 || index >= len(selectors) {
		res := failure(fmt.Sprintf("no selector found at index %d", index))
		res.Details = map[string]any{
			"expected_selector":       expected,
			"selector_history_length": len(selectors),
		}
		return res
	}

	actual := selectors[index]
	var reward float64
	if actual == expected {
		reward = 1
	}
	res := score(reward, actual == expected)
	res.Details = map[string]any{
		"actual_selector":   actual,
		"expected_selector": expected,
		"index":             index,
	}
	return res
}

// VerifyTypeAction scans the history backwards for the most recent typing
// action and compares its text. Both freeform typing and selector-targeted
// fills count; the selector constraint only ever matches fills. Without a
// selector constraint a text mismatch on the most recent typing action
// earns 0.5 when partial is set.
func VerifyTypeAction(rec *browser.Recorder, expectedText, selector string, partial bool) Result {
	if expectedText == "" {
		return failure("no expected text provided")
	}
	if rec == nil {
		return failure("no action history available")
	}
	actions := rec.Actions()
	if len(actions) == 0 {
		return failure("no actions in history")
	}

	for i := len(actions) - 1; i >= 0; i-- {
		action := actions[i]
		if action.Kind != browser.KindType && action.Kind != browser.KindFill {
			continue
		}

		typed, _ := action.Details["text"].(string)
		actionSelector, _ := action.Details["selector"].(string)

		if selector != "" && actionSelector != selector {
			continue
		}

		if typed == expectedText {
			res := score(1, true)
			res.Details = map[string]any{
				"typed_text":   typed,
				"selector":     actionSelector,
				"action_index": i,
			}
			return res
		}
		if selector == "" {
			var reward float64
			if partial {
				reward = 0.5
			}
			res := score(reward, false)
			res.Details = map[string]any{
				"expected": expectedText,
				"actual":   typed,
				"selector": actionSelector,
			}
			return res
		}
	}

	res := failure("no matching type action found")
	res.Details = map[string]any{
		"expected_text":     expectedText,
		"required_selector": selector,
	}
	return res
}
