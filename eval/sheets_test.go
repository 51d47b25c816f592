package eval

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSheet struct {
	fakePage

	clicksText   []string
	clickTextErr error
	presses      []string
	waited       []string
}

func (f *fakeSheet) ClickText(ctx context.Context, selector, text string) error {
	f.clicksText = append(f.clicksText, text)
	return f.clickTextErr
}

func (f *fakeSheet) ClickElement(ctx context.Context, selector string, timeout time.Duration) error {
	return nil
}

func (f *fakeSheet) Press(ctx context.Context, combo string) error {
	f.presses = append(f.presses, combo)
	return nil
}

func (f *fakeSheet) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	f.waited = append(f.waited, selector)
	return nil
}

// noSleep makes the spreadsheet evaluators run instantly for the duration
// of a test. Tests overriding it must not run in parallel.
func noSleep(t *testing.T) {
	t.Helper()
	prev := sleep
	sleep = func(context.Context, time.Duration) {}
	t.Cleanup(func() { sleep = prev })
}

func newFakeSheet(clipboard string) *fakeSheet {
	return &fakeSheet{fakePage: fakePage{
		url:       "https://docs.google.com/spreadsheets/d/abc/edit",
		clipboard: clipboard,
	}}
}

func TestSheetContains(t *testing.T) {
	noSleep(t)
	ctx := context.Background()

	sheet := newFakeSheet("Name\tScore\nAlice\t90\nBob\t85\n")

	res := SheetContains(ctx, sheet, []string{"alice", "BOB"}, true)
	assert.Equal(t, 1.0, res.Reward)
	assert.True(t, res.Success)
	assert.ElementsMatch(t, []string{"alice", "BOB"}, res.Found)

	res = SheetContains(ctx, sheet, []string{"Alice", "Carol"}, true)
	assert.Equal(t, 0.5, res.Reward)
	assert.False(t, res.Success)
	assert.Equal(t, []string{"Carol"}, res.Missing)

	res = SheetContains(ctx, sheet, []string{"Alice", "Carol"}, false)
	assert.Zero(t, res.Reward)

	// The copy pipeline runs select-all then copy.
	assert.Contains(t, sheet.presses, "ctrl+a")
	assert.Contains(t, sheet.presses, "ctrl+c")
	assert.Contains(t, sheet.waited, gridSelector)
}

func TestSheetContainsGuards(t *testing.T) {
	noSleep(t)
	ctx := context.Background()

	res := SheetContains(ctx, nil, []string{"x"}, true)
	assert.Zero(t, res.Reward)
	assert.NotEmpty(t, res.Error)

	offSheet := newFakeSheet("data")
	offSheet.url = "https://example.com/"
	res = SheetContains(ctx, offSheet, []string{"x"}, true)
	assert.Zero(t, res.Reward)
	assert.Contains(t, res.Error, "not on a Google Sheets page")

	res = SheetContains(ctx, newFakeSheet("data"), nil, true)
	assert.Zero(t, res.Reward)
	assert.Equal(t, "no search terms provided", res.Error)

	res = SheetContains(ctx, newFakeSheet(""), []string{"x"}, true)
	assert.Zero(t, res.Reward)
	assert.Equal(t, "clipboard content is empty", res.Error)
}

func TestSheetsCellValues(t *testing.T) {
	noSleep(t)
	ctx := context.Background()

	sheet := newFakeSheet("Name\tScore\nAlice\t90\nBob\t85\n")

	res := SheetsCellValues(ctx, sheet, map[string]string{
		"A1": "Name",
		"B2": "90",
		"A3": "Bob",
	}, true)
	assert.Equal(t, 1.0, res.Reward)
	assert.True(t, res.Success)
	assert.Empty(t, res.Mismatches)

	// The evaluator tries the ANSWER tab before extracting.
	assert.Equal(t, []string{"ANSWER"}, sheet.clicksText)
}

func TestSheetsCellValuesPartialCredit(t *testing.T) {
	noSleep(t)
	ctx := context.Background()

	sheet := newFakeSheet("Name\tScore\nAlice\t90\n")

	res := SheetsCellValues(ctx, sheet, map[string]string{
		"A2": "Alice",
		"B2": "95",
	}, true)
	assert.Equal(t, 0.5, res.Reward)
	assert.False(t, res.Success)
	require.Len(t, res.Mismatches, 1)
	assert.Equal(t, "B2", res.Mismatches[0].Cell)
	assert.Equal(t, "95", res.Mismatches[0].Expected)
	assert.Equal(t, "90", res.Mismatches[0].Actual)

	res = SheetsCellValues(ctx, sheet, map[string]string{
		"A2": "Alice",
		"B2": "95",
	}, false)
	assert.Zero(t, res.Reward)
}

func TestSheetsCellValuesEdgeCases(t *testing.T) {
	noSleep(t)
	ctx := context.Background()

	sheet := newFakeSheet("Name\tScore\nAlice\t90\n")

	// Invalid references are mismatches, not errors.
	res := SheetsCellValues(ctx, sheet, map[string]string{"1A": "Name"}, true)
	assert.Zero(t, res.Reward)
	assert.Empty(t, res.Error)
	require.Len(t, res.Mismatches, 1)
	assert.Equal(t, "1A", res.Mismatches[0].Cell)

	// Out-of-range cells resolve to empty values.
	res = SheetsCellValues(ctx, sheet, map[string]string{"Z99": ""}, true)
	assert.Equal(t, 1.0, res.Reward)

	// Whitespace-insensitive comparison.
	res = SheetsCellValues(ctx, sheet, map[string]string{"A2": "  Alice  "}, true)
	assert.Equal(t, 1.0, res.Reward)

	// Nothing to check scores full marks.
	res = SheetsCellValues(ctx, sheet, nil, true)
	assert.Equal(t, 1.0, res.Reward)
	assert.True(t, res.Success)
}

func TestSheetsCellValuesAnswerTabRetries(t *testing.T) {
	noSleep(t)
	ctx := context.Background()

	sheet := newFakeSheet("Name\nAlice\n")
	sheet.clickTextErr = assert.AnError

	res := SheetsCellValues(ctx, sheet, map[string]string{"A2": "Alice"}, true)
	assert.Equal(t, 1.0, res.Reward)
	assert.Len(t, sheet.clicksText, answerTabAttempts)
}
