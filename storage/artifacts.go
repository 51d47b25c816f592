// Package storage persists run artifacts: screenshots taken after a
// scenario finishes and the recorded action history.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mosaicrun/remotebrowser/browser"
)

// Persister abstracts away the where and how of writing artifact files.
type Persister interface {
	Persist(ctx context.Context, path string, data io.Reader) error
}

// Local writes artifacts to the local disk.
type Local struct{}

// Persist writes data to path, creating parent directories as needed and
// truncating any existing file.
func (Local) Persist(_ context.Context, path string, data io.Reader) (err error) {
	cp := filepath.Clean(path)

	dir := filepath.Dir(cp)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating artifact directory %q: %w", dir, err)
	}

	f, err := os.OpenFile(cp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating artifact file %q: %w", cp, err)
	}
	defer func() {
		cerr := f.Close()
		if cerr != nil && err == nil {
			err = fmt.Errorf("closing artifact file %q: %w", cp, cerr)
		}
	}()

	_, err = io.Copy(f, data)

	return
}

// timestamp names artifacts so repeated runs never collide.
func timestamp(now time.Time) string {
	return now.UTC().Format("20060102T150405")
}

// SaveScreenshot persists a PNG screenshot under dir and returns its path.
func SaveScreenshot(ctx context.Context, p Persister, dir string, png []byte) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("screenshot-%s.png", timestamp(time.Now())))
	if err := p.Persist(ctx, path, bytes.NewReader(png)); err != nil {
		return "", err
	}
	return path, nil
}

// SaveActions persists the recorded action history as JSON under dir and
// returns its path.
func SaveActions(ctx context.Context, p Persister, dir string, actions []browser.Action) (string, error) {
	buf, err := json.MarshalIndent(actions, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding action history: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("actions-%s.json", timestamp(time.Now())))
	if err := p.Persist(ctx, path, bytes.NewReader(buf)); err != nil {
		return "", err
	}
	return path, nil
}
