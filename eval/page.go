package eval

import (
	"context"
	"fmt"
	"strings"
)

// URLMatch checks whether the current URL contains target. A miss probes
// case-insensitive and https-prefixed variants and surfaces a near-match as
// a note only; the reward stays zero.
func URLMatch(ctx context.Context, page Page, target string) Result {
	if page == nil {
		return failure("no browser page available")
	}
	current, err := page.URL(ctx)
	if err != nil {
		return failure(fmt.Sprintf("reading page URL: %v", err))
	}

	if strings.Contains(current, target) {
		res := score(1, true)
		res.Details = map[string]any{"current_url": current, "target_url": target}
		return res
	}

	res := score(0, false)
	res.Details = map[string]any{"current_url": current, "target_url": target}

	if strings.Contains(strings.ToLower(current), strings.ToLower(target)) {
		res.Note = "case-insensitive match found"
	}
	if strings.HasPrefix(current, "https://") && !strings.HasPrefix(target, "https://") {
		if strings.Contains(current, "https://"+target) {
			res.Note = "match found with https:// prefix"
		}
	}
	return res
}

// PageContains checks whether the live page HTML contains every search term.
// The comparison is case-sensitive. With partial set, the reward is
// found/total; otherwise all-or-nothing.
func PageContains(ctx context.Context, page Page, terms []string, partial bool) Result {
	if page == nil {
		return failure("no browser page available")
	}
	content, err := page.Content(ctx)
	if err != nil {
		return failure(fmt.Sprintf("reading page content: %v", err))
	}

	var found, missing []string
	for _, term := range terms {
		if strings.Contains(content, term) {
			found = append(found, term)
		} else {
			missing = append(missing, term)
		}
	}

	var reward float64
	if partial && len(terms) > 0 {
		reward = float64(len(found)) / float64(len(terms))
	} else if len(missing) == 0 {
		reward = 1
	}

	res := score(reward, reward > 0)
	res.Found = found
	res.Missing = missing
	return res
}

// ElementExists checks whether at least one element matches selector.
func ElementExists(ctx context.Context, page Page, selector string) Result {
	if page == nil {
		return failure("no browser page available")
	}
	n, err := page.ElementCount(ctx, selector)
	if err != nil {
		return failure(fmt.Sprintf("querying selector %q: %v", selector, err))
	}
	res := score(0, false)
	if n > 0 {
		res = score(1, true)
	}
	res.Details = map[string]any{"selector": selector, "count": n}
	return res
}
