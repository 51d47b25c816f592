package eval

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	gridSelector      = ".grid-container"
	sheetTabSelector  = "span.docs-sheet-tab-name"
	sheetCanvasTarget = ".fixed4-inner-container"

	gridWaitTimeout  = 20 * time.Second
	tabRetryDelay    = 500 * time.Millisecond
	tabFailureDelay  = 2500 * time.Millisecond
	tabSwitchDelay   = time.Second
	sheetSettleDelay = 2 * time.Second
	copyDelay        = time.Second

	answerTabAttempts = 3
)

// sleep is replaced in tests so the spreadsheet evaluators run instantly.
var sleep = func(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func onSpreadsheet(ctx context.Context, sheet Sheet) (string, error) {
	current, err := sheet.URL(ctx)
	if err != nil {
		return "", fmt.Errorf("reading page URL: %w", err)
	}
	if !strings.Contains(current, "docs.google.com/spreadsheets") {
		return "", fmt.Errorf("not on a Google Sheets page: %s", current)
	}
	return current, nil
}

// copySheetToClipboard selects the whole sheet and copies it, then reads the
// clipboard back.
func copySheetToClipboard(ctx context.Context, sheet Sheet) (string, error) {
	if err := sheet.WaitForSelector(ctx, gridSelector, gridWaitTimeout); err == nil {
		sleep(ctx, sheetSettleDelay)
	} else {
		sleep(ctx, 5*time.Second)
	}

	// Clear any open menu or cell editor before selecting.
	_ = sheet.Press(ctx, "Escape")
	_ = sheet.ClickElement(ctx, "body", 0)
	_ = sheet.ClickElement(ctx, sheetCanvasTarget, 0)

	if err := sheet.Press(ctx, "ctrl+a"); err != nil {
		return "", fmt.Errorf("selecting sheet content: %w", err)
	}
	sleep(ctx, copyDelay)
	if err := sheet.Press(ctx, "ctrl+c"); err != nil {
		return "", fmt.Errorf("copying sheet content: %w", err)
	}
	sleep(ctx, copyDelay)

	text, err := sheet.ClipboardText(ctx)
	if err != nil {
		return "", fmt.Errorf("reading clipboard: %w", err)
	}
	return text, nil
}

// SheetContains checks whether the open Google Sheet contains every search
// term, case-insensitively, by copying the sheet content to the clipboard.
func SheetContains(ctx context.Context, sheet Sheet, terms []string, partial bool) Result {
	if sheet == nil {
		return failure("no browser page available")
	}
	if _, err := onSpreadsheet(ctx, sheet); err != nil {
		return failure(err.Error())
	}
	if len(terms) == 0 {
		return failure("no search terms provided")
	}

	content, err := copySheetToClipboard(ctx, sheet)
	if err != nil {
		return failure(err.Error())
	}
	if content == "" {
		return failure("clipboard content is empty")
	}

	lowered := strings.ToLower(content)
	var found, missing []string
	for _, term := range terms {
		if strings.Contains(lowered, strings.ToLower(term)) {
			found = append(found, term)
		} else {
			missing = append(missing, term)
		}
	}

	var reward float64
	if partial {
		reward = float64(len(found)) / float64(len(terms))
	} else if len(missing) == 0 {
		reward = 1
	}

	res := score(reward, len(missing) == 0)
	res.Found = found
	res.Missing = missing
	return res
}

// navigateToAnswerTab clicks the sheet tab named ANSWER, retrying a few
// times since the tab strip renders late. Failure is tolerated: scoring
// proceeds against whatever sheet is active.
func navigateToAnswerTab(ctx context.Context, sheet Sheet) bool {
	for attempt := 1; attempt <= answerTabAttempts; attempt++ {
		err := sheet.ClickText(ctx, sheetTabSelector, "ANSWER")
		if err == nil {
			sleep(ctx, tabSwitchDelay)
			return true
		}
		if attempt < answerTabAttempts {
			if strings.Contains(err.Error(), "has text") {
				sleep(ctx, tabRetryDelay)
			} else {
				sleep(ctx, tabFailureDelay)
			}
		}
	}
	return false
}

// SheetsCellValues scores specific cells of the open Google Sheet against
// expected values. It switches to the ANSWER tab when one exists, copies
// the sheet through the clipboard, and compares cell by cell after
// whitespace trimming. Invalid cell references count as mismatches.
func SheetsCellValues(ctx context.Context, sheet Sheet, cells map[string]string, partial bool) Result {
	if sheet == nil {
		return failure("no browser page available")
	}
	if _, err := onSpreadsheet(ctx, sheet); err != nil {
		return failure(err.Error())
	}
	if len(cells) == 0 {
		res := score(1, true)
		res.Note = "no cell values to check"
		return res
	}

	navigateToAnswerTab(ctx, sheet)

	content, err := copySheetToClipboard(ctx, sheet)
	if err != nil {
		return failure(err.Error())
	}

	rows := strings.Split(strings.TrimRight(content, "\n"), "\n")

	matching := 0
	var mismatches []Mismatch
	for ref, expected := range cells {
		actual, valid := lookupCell(rows, ref)
		if valid && strings.TrimSpace(actual) == strings.TrimSpace(expected) {
			matching++
			continue
		}
		mismatches = append(mismatches, Mismatch{Cell: ref, Expected: expected, Actual: actual})
	}

	total := len(cells)
	var reward float64
	if partial {
		reward = float64(matching) / float64(total)
	} else if matching == total {
		reward = 1
	}

	res := score(reward, matching == total)
	res.Mismatches = mismatches
	res.Details = map[string]any{"matching_cells": matching, "total_cells": total}
	return res
}

// lookupCell resolves a cell reference against tab-separated rows. A
// malformed reference reports !ok; coordinates outside the copied range
// resolve to an empty value.
func lookupCell(rows []string, ref string) (string, bool) {
	parsed, ok := ParseCellRef(ref)
	if !ok {
		return "", false
	}
	if parsed.Row < 0 || parsed.Row >= len(rows) {
		return "", true
	}
	cols := strings.Split(rows[parsed.Row], "\t")
	if parsed.Col >= len(cols) {
		return "", true
	}
	return cols[parsed.Col], true
}
