package scenario

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaicrun/remotebrowser/browser"
	"github.com/mosaicrun/remotebrowser/log"
)

type scriptedAgent struct {
	prompts  []string
	response string
	err      error
}

func (a *scriptedAgent) Respond(ctx context.Context, prompt string) (string, error) {
	a.prompts = append(a.prompts, prompt)
	return a.response, a.err
}

type fakePageOps struct {
	navigated  []string
	navErr     error
	url        string
	inputs     map[string]string
	evalResult string
	waitErr    error
}

func (f *fakePageOps) Navigate(ctx context.Context, url string) error {
	f.navigated = append(f.navigated, url)
	return f.navErr
}

func (f *fakePageOps) URL(ctx context.Context) (string, error) { return f.url, nil }

func (f *fakePageOps) Content(ctx context.Context) (string, error) { return "", nil }

func (f *fakePageOps) ElementCount(ctx context.Context, selector string) (int, error) {
	return 0, nil
}

func (f *fakePageOps) Cookies(ctx context.Context) ([]browser.Cookie, error) { return nil, nil }

func (f *fakePageOps) ClipboardText(ctx context.Context) (string, error) { return "", nil }

func (f *fakePageOps) ClickText(ctx context.Context, selector, text string) error { return nil }

func (f *fakePageOps) ClickElement(ctx context.Context, selector string, timeout time.Duration) error {
	return nil
}

func (f *fakePageOps) Press(ctx context.Context, combo string) error { return nil }

func (f *fakePageOps) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	return f.waitErr
}

func (f *fakePageOps) Evaluate(ctx context.Context, expression string) (json.RawMessage, error) {
	if f.evalResult == "" {
		return nil, errors.New("no result")
	}
	return json.RawMessage(f.evalResult), nil
}

func (f *fakePageOps) InputValue(ctx context.Context, selector string) (string, error) {
	v, ok := f.inputs[selector]
	if !ok {
		return "", errors.New("no element")
	}
	return v, nil
}

func testEnv(page *fakePageOps) *Env {
	return &Env{Page: page, Recorder: browser.NewRecorder(), Logger: log.NullLogger()}
}

func TestRunHappyPath(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	agent := &scriptedAgent{response: "done"}
	fn := func(ctx context.Context, env *Env, x *Exchange, args Args) error {
		resp, err := x.Prompt(ctx, "do the thing")
		if err != nil {
			return err
		}
		if resp != "done" {
			return errors.New("unexpected response")
		}
		return x.Reward(0.75)
	}

	reward, err := Run(ctx, fn, testEnv(&fakePageOps{}), agent, Args{})
	require.NoError(t, err)
	assert.Equal(t, 0.75, reward)
	assert.Equal(t, []string{"do the thing"}, agent.prompts)
}

func TestRunProtocolViolations(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name string
		fn   Func
	}{
		{"reward before prompt", func(ctx context.Context, env *Env, x *Exchange, args Args) error {
			return x.Reward(1)
		}},
		{"double prompt", func(ctx context.Context, env *Env, x *Exchange, args Args) error {
			if _, err := x.Prompt(ctx, "one"); err != nil {
				return err
			}
			_, err := x.Prompt(ctx, "two")
			return err
		}},
		{"double reward", func(ctx context.Context, env *Env, x *Exchange, args Args) error {
			if _, err := x.Prompt(ctx, "one"); err != nil {
				return err
			}
			if err := x.Reward(1); err != nil {
				return err
			}
			return x.Reward(0)
		}},
		{"no prompt", func(ctx context.Context, env *Env, x *Exchange, args Args) error {
			return nil
		}},
		{"no reward", func(ctx context.Context, env *Env, x *Exchange, args Args) error {
			_, err := x.Prompt(ctx, "one")
			return err
		}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			reward, err := Run(ctx, tt.fn, testEnv(&fakePageOps{}), &scriptedAgent{}, Args{})
			assert.Zero(t, reward)
			assert.ErrorIs(t, err, ErrProtocol)
		})
	}
}

func TestRunSetupFailureStillPrompts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	agent := &scriptedAgent{}
	fn := func(ctx context.Context, env *Env, x *Exchange, args Args) error {
		return errors.New("provider exploded")
	}

	reward, err := Run(ctx, fn, testEnv(&fakePageOps{}), agent, Args{})
	assert.Zero(t, reward)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrProtocol)
	assert.Contains(t, err.Error(), "provider exploded")

	// The agent still sees exactly one prompt.
	require.Len(t, agent.prompts, 1)
	assert.Contains(t, agent.prompts[0], "Task setup failed")
}

func TestExchangeRewardClamps(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	fn := func(ctx context.Context, env *Env, x *Exchange, args Args) error {
		if _, err := x.Prompt(ctx, "p"); err != nil {
			return err
		}
		return x.Reward(3.5)
	}
	reward, err := Run(ctx, fn, testEnv(&fakePageOps{}), &scriptedAgent{}, Args{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, reward)
}

func TestAnswerScenario(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	page := &fakePageOps{}
	agent := &scriptedAgent{response: "Python was released in 1991."}

	fn, ok := Lookup("answer")
	require.True(t, ok)

	reward, err := Run(ctx, fn, testEnv(page), agent, Args{
		"url":          "https://en.wikipedia.org/wiki/Python_(programming_language)",
		"prompt":       "What year was Python first released?",
		"expected":     "1991",
		"compare_mode": "contains",
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, reward)
	assert.Equal(t, []string{"https://en.wikipedia.org/wiki/Python_(programming_language)"}, page.navigated)
	require.Len(t, agent.prompts, 1)
	assert.Contains(t, agent.prompts[0], "What year was Python first released?")
}

func TestAnswerScenarioWithoutExpected(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	reward, err := Run(ctx, Answer, testEnv(&fakePageOps{}), &scriptedAgent{response: "whatever"}, Args{
		"url":    "https://example.com",
		"prompt": "look around",
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, reward)
}

func TestFillRecordScenario(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	page := &fakePageOps{inputs: map[string]string{
		"#name":  "John Doe",
		"#email": "wrong@example.com",
	}}

	reward, err := Run(ctx, FillRecord, testEnv(page), &scriptedAgent{}, Args{
		"url":    "https://example.com/form",
		"prompt": "Fill out the contact form.",
		"fields": map[string]any{"Name": "John Doe"},
		"verify": map[string]any{
			"#name":  "John Doe",
			"#email": "john@example.com",
			"#phone": "555-0100",
		},
	})
	require.NoError(t, err)
	assert.InDelta(t, 1.0/3.0, reward, 1e-9)
}

func TestWikiSpeedrunScenario(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	page := &fakePageOps{
		url:        "https://en.wikipedia.org/wiki/Ancient_Egypt",
		evalResult: "4",
	}

	reward, err := Run(ctx, WikiSpeedrun, testEnv(page), &scriptedAgent{}, Args{
		"start_page":  "Cat",
		"target_page": "Ancient_Egypt",
		"max_clicks":  float64(6),
	})
	require.NoError(t, err)
	// history.length 4 means 3 clicks: 1 - 2/6.
	assert.InDelta(t, 1.0-2.0/6.0, reward, 1e-9)
	assert.Equal(t, []string{"https://en.wikipedia.org/wiki/Cat"}, page.navigated)
}

func TestWikiSpeedrunMiss(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	page := &fakePageOps{url: "https://en.wikipedia.org/wiki/Dog"}
	reward, err := Run(ctx, WikiSpeedrun, testEnv(page), &scriptedAgent{}, Args{
		"start_page":  "Cat",
		"target_page": "Ancient_Egypt",
	})
	require.NoError(t, err)
	assert.Zero(t, reward)
}

func TestCompleteSheetTaskEmptyCells(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	page := &fakePageOps{url: "https://docs.google.com/spreadsheets/d/abc/edit"}
	reward, err := Run(ctx, CompleteSheetTask, testEnv(page), &scriptedAgent{}, Args{
		"prompt":    "nothing to do",
		"sheet_url": "https://docs.google.com/spreadsheets/d/abc/edit",
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, reward)
}

func TestSheetFromFileRequiresSource(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	agent := &scriptedAgent{}
	reward, err := Run(ctx, SheetFromFile, testEnv(&fakePageOps{}), agent, Args{
		"prompt":    "do sheet things",
		"sheet_url": "https://docs.google.com/spreadsheets/d/abc/edit",
	})
	assert.Zero(t, reward)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no file_url or file_bytes")
	// Setup failure still completes the protocol.
	require.Len(t, agent.prompts, 1)
}

func TestLookupAndNames(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"answer", "fill-record", "wiki-speedrun", "complete-sheet-task", "sheet-from-file"} {
		_, ok := Lookup(name)
		assert.True(t, ok, name)
	}
	assert.Contains(t, Names(), "answer")
	_, ok := Lookup("no-such-scenario")
	assert.False(t, ok)
}
