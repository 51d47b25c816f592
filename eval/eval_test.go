package eval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaicrun/remotebrowser/browser"
)

type fakePage struct {
	url        string
	urlErr     error
	content    string
	contentErr error
	count      int
	cookies    []browser.Cookie
	cookieErr  error
	clipboard  string
	clipErr    error
}

func (f *fakePage) URL(ctx context.Context) (string, error) { return f.url, f.urlErr }

func (f *fakePage) Content(ctx context.Context) (string, error) { return f.content, f.contentErr }

func (f *fakePage) ElementCount(ctx context.Context, selector string) (int, error) {
	return f.count, nil
}

func (f *fakePage) Cookies(ctx context.Context) ([]browser.Cookie, error) {
	return f.cookies, f.cookieErr
}

func (f *fakePage) ClipboardText(ctx context.Context) (string, error) {
	return f.clipboard, f.clipErr
}

func TestURLMatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	res := URLMatch(ctx, &fakePage{url: "https://x.com/wiki/Cat"}, "wiki/Cat")
	assert.Equal(t, 1.0, res.Reward)
	assert.True(t, res.Success)

	res = URLMatch(ctx, &fakePage{url: "https://x.com/wiki/Cat"}, "wiki/Dog")
	assert.Zero(t, res.Reward)
	assert.False(t, res.Success)
	assert.Empty(t, res.Note)

	res = URLMatch(ctx, &fakePage{url: "https://x.com/wiki/Cat"}, "WIKI/CAT")
	assert.Zero(t, res.Reward)
	assert.Equal(t, "case-insensitive match found", res.Note)

	res = URLMatch(ctx, &fakePage{url: "https://x.com/wiki/Cat"}, "x.com/wiki/Cat")
	assert.Equal(t, 1.0, res.Reward)

	res = URLMatch(ctx, &fakePage{url: "http://x.com/a"}, "x.com/b")
	assert.Zero(t, res.Reward)
	assert.Empty(t, res.Note)
}

func TestURLMatchFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	res := URLMatch(ctx, nil, "x")
	assert.Zero(t, res.Reward)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)

	res = URLMatch(ctx, &fakePage{urlErr: errors.New("session gone")}, "x")
	assert.Zero(t, res.Reward)
	assert.Contains(t, res.Error, "session gone")
}

func TestPageContainsPartialCredit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	page := &fakePage{content: "<html><body>alpha content</body></html>"}

	res := PageContains(ctx, page, []string{"alpha", "beta"}, true)
	assert.Equal(t, 0.5, res.Reward)
	assert.True(t, res.Success)
	assert.Equal(t, []string{"alpha"}, res.Found)
	assert.Equal(t, []string{"beta"}, res.Missing)

	res = PageContains(ctx, page, []string{"alpha", "beta"}, false)
	assert.Zero(t, res.Reward)
	assert.False(t, res.Success)

	// Case-sensitive against the live HTML.
	res = PageContains(ctx, page, []string{"Alpha"}, true)
	assert.Zero(t, res.Reward)
}

func TestElementExists(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	res := ElementExists(ctx, &fakePage{count: 2}, "#hit")
	assert.Equal(t, 1.0, res.Reward)
	assert.True(t, res.Success)

	res = ElementExists(ctx, &fakePage{count: 0}, "#miss")
	assert.Zero(t, res.Reward)
	assert.False(t, res.Success)
	assert.Empty(t, res.Error)
}

func TestCookieEvaluators(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	page := &fakePage{cookies: []browser.Cookie{
		{Name: "sid", Value: "abc", Domain: ".example.com"},
		{Name: "theme", Value: "dark"},
	}}

	assert.Equal(t, 1.0, CookieExists(ctx, page, "sid").Reward)
	assert.Zero(t, CookieExists(ctx, page, "nope").Reward)

	assert.Equal(t, 1.0, CookieMatch(ctx, page, "theme", "dark").Reward)

	res := CookieMatch(ctx, page, "theme", "light")
	assert.Zero(t, res.Reward)
	assert.Empty(t, res.Error)

	res = CookieMatch(ctx, page, "nope", "x")
	assert.Zero(t, res.Reward)
	assert.Equal(t, "cookie not found", res.Error)

	res = CookieExists(ctx, &fakePage{cookieErr: errors.New("boom")}, "sid")
	assert.Zero(t, res.Reward)
	assert.Contains(t, res.Error, "boom")
}

func recorderWithActions(kinds ...browser.Kind) *browser.Recorder {
	rec := browser.NewRecorder()
	for _, k := range kinds {
		idx := rec.Start(k, nil)
		rec.Finish(idx, nil)
	}
	return rec
}

func intp(v int) *int { return &v }

func TestHistoryLength(t *testing.T) {
	t.Parallel()

	rec := recorderWithActions(
		browser.KindNavigate, browser.KindClick, browser.KindClick, browser.KindType,
	)

	res := HistoryLength(rec, nil, nil)
	assert.Equal(t, 1.0, res.Reward)
	assert.True(t, res.Success)

	res = HistoryLength(rec, intp(2), nil)
	assert.Equal(t, 1.0, res.Reward)

	res = HistoryLength(rec, intp(5), nil)
	assert.Zero(t, res.Reward)
	assert.False(t, res.Success)

	// Both bounds: reward scales with distance from the window midpoint.
	res = HistoryLength(rec, intp(2), intp(6))
	assert.Equal(t, 1.0, res.Reward)
	assert.True(t, res.Success)

	res = HistoryLength(recorderWithActions(make([]browser.Kind, 6)...), intp(2), intp(6))
	assert.InDelta(t, 0.5, res.Reward, 1e-9)
	assert.True(t, res.Success)

	// Far outside the window the formula goes negative; the reward clamps.
	res = HistoryLength(recorderWithActions(make([]browser.Kind, 12)...), intp(2), intp(6))
	assert.Zero(t, res.Reward)
	assert.False(t, res.Success)
}

func TestRawLastActionIs(t *testing.T) {
	t.Parallel()

	rec := browser.NewRecorder()
	idx := rec.Start(browser.KindClick, map[string]any{"selector": "#go"})
	rec.Finish(idx, nil)

	res := RawLastActionIs(rec, browser.KindClick, nil)
	assert.Equal(t, 1.0, res.Reward)

	res = RawLastActionIs(rec, browser.KindClick, map[string]any{"selector": "#go"})
	assert.Equal(t, 1.0, res.Reward)

	res = RawLastActionIs(rec, browser.KindClick, map[string]any{"selector": "#other"})
	assert.Zero(t, res.Reward)

	res = RawLastActionIs(rec, browser.KindNavigate, nil)
	assert.Zero(t, res.Reward)

	res = RawLastActionIs(browser.NewRecorder(), browser.KindClick, nil)
	assert.Zero(t, res.Reward)
	assert.NotEmpty(t, res.Error)
}

func TestSelectorHistory(t *testing.T) {
	t.Parallel()

	rec := browser.NewRecorder()
	rec.RecordSelector("#first")
	rec.RecordSelector("#second")

	res := SelectorHistory(rec, 1, "#second")
	assert.Equal(t, 1.0, res.Reward)
	assert.True(t, res.Success)

	res = SelectorHistory(rec, 0, "#second")
	assert.Zero(t, res.Reward)
	assert.False(t, res.Success)
	assert.Empty(t, res.Error)

	res = SelectorHistory(rec, 2, "#third")
	assert.Zero(t, res.Reward)
	assert.Contains(t, res.Error, "index 2")

	res = SelectorHistory(rec, -1, "#second")
	assert.Zero(t, res.Reward)
	assert.NotEmpty(t, res.Error)
}

func TestVerifyTypeAction(t *testing.T) {
	t.Parallel()

	rec := browser.NewRecorder()
	idx := rec.Start(browser.KindFill, map[string]any{"selector": "#name", "text": "Ada"})
	rec.Finish(idx, nil)
	idx = rec.Start(browser.KindType, map[string]any{"text": "Lovelace"})
	rec.Finish(idx, nil)

	res := VerifyTypeAction(rec, "Lovelace", "", true)
	assert.Equal(t, 1.0, res.Reward)
	assert.True(t, res.Success)

	res = VerifyTypeAction(rec, "Ada", "#name", true)
	assert.Equal(t, 1.0, res.Reward)

	// Most recent typing action mismatches: partial credit without a
	// selector constraint.
	res = VerifyTypeAction(rec, "Byron", "", true)
	assert.Equal(t, 0.5, res.Reward)
	assert.False(t, res.Success)

	res = VerifyTypeAction(rec, "Byron", "", false)
	assert.Zero(t, res.Reward)

	res = VerifyTypeAction(rec, "Byron", "#missing", true)
	assert.Zero(t, res.Reward)
	assert.NotEmpty(t, res.Error)

	res = VerifyTypeAction(rec, "", "", true)
	assert.Zero(t, res.Reward)
	assert.Equal(t, "no expected text provided", res.Error)

	res = VerifyTypeAction(browser.NewRecorder(), "x", "", true)
	assert.Zero(t, res.Reward)
}

func TestCompareAnswers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		actual   string
		expected string
		mode     CompareMode
		want     float64
	}{
		{"exact match", "Paris", "paris", CompareExact, 1},
		{"exact trims", "  Paris  ", "Paris", CompareExact, 1},
		{"exact miss", "London", "Paris", CompareExact, 0},
		{"contains", "The answer is Paris, France", "paris", CompareContains, 1},
		{"contains miss", "London", "Paris", CompareContains, 0},
		{"json equal", `{"a": 1, "b": [2, 3]}`, `{"b":[2,3],"a":1}`, CompareJSON, 1},
		{"json unequal", `{"a": 1}`, `{"a": 2}`, CompareJSON, 0},
		{"json invalid", "not json", `{"a": 1}`, CompareJSON, 0},
		{"numeric", "about 42 items", "42", CompareNumeric, 1},
		{"numeric float", "3.50", "3.5", CompareNumeric, 1},
		{"numeric negative", "-7 degrees", "-7", CompareNumeric, 1},
		{"numeric miss", "41", "42", CompareNumeric, 0},
		{"numeric none", "no digits", "42", CompareNumeric, 0},
		{"regex", "ANSWER: cat", `answer:\s+cat`, CompareRegex, 1},
		{"regex invalid", "x", "([", CompareRegex, 0},
		{"unknown mode", "x", "x", CompareMode("fuzzy"), 0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CompareAnswers(tt.actual, tt.expected, tt.mode))
		})
	}
}

func TestParseCellRef(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ref      string
		row, col int
		ok       bool
	}{
		{"A1", 0, 0, true},
		{"B2", 1, 1, true},
		{"Z1", 0, 25, true},
		{"AA1", 0, 26, true},
		{"AZ1", 0, 51, true},
		{"BA1", 0, 52, true},
		{"aa123", 122, 26, true},
		{"1A", 0, 0, false},
		{"$$", 0, 0, false},
		{"", 0, 0, false},
		{"A", 0, 0, false},
		{"12", 0, 0, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.ref, func(t *testing.T) {
			t.Parallel()
			ref, ok := ParseCellRef(tt.ref)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.row, ref.Row)
				assert.Equal(t, tt.col, ref.Col)
			}
		})
	}
}

func TestRewardClamping(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, score(-0.5, false).Reward)
	assert.Equal(t, 1.0, score(1.5, true).Reward)
	assert.Equal(t, 0.25, score(0.25, false).Reward)
}

// Compile-time checks that the browser types satisfy the evaluator
// interfaces.
var (
	_ Page  = (*browser.Handle)(nil)
	_ Page  = browser.Quiet{}
	_ Sheet = browser.Quiet{}
)
