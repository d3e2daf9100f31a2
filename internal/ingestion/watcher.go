package ingestion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"go.uber.org/zap"

	"github.com/Benny93/flightgraph/internal/config"
	"github.com/Benny93/flightgraph/internal/logging"
)

// DefaultDebounce is how long the watcher waits after the last change
// before reloading.
const DefaultDebounce = 2 * time.Second

// ReloadFunc rebuilds the graph after data files changed.
type ReloadFunc func(ctx context.Context) error

// Watcher monitors the data directory and calls a ReloadFunc when one of
// the configured data files changes content.
type Watcher struct {
	dir      string
	files    map[string]bool
	matcher  gitignore.Matcher
	debounce time.Duration
	reload   ReloadFunc
	log      *zap.SugaredLogger

	// hashes holds the content hash of each data file at the last reload.
	hashes map[string]string
}

// NewWatcher creates a watcher for the files named by cfg.
func NewWatcher(cfg config.DataConfig, reload ReloadFunc, log *zap.SugaredLogger) *Watcher {
	w := &Watcher{
		dir:      cfg.Dir,
		files:    map[string]bool{cfg.Airports: true, cfg.Airlines: true, cfg.Routes: true},
		matcher:  ignoreMatcher(cfg.Ignore),
		debounce: DefaultDebounce,
		reload:   reload,
		log:      logging.OrNop(log),
		hashes:   make(map[string]string),
	}
	for name := range w.files {
		w.hashes[name] = w.hashFile(name)
	}
	return w
}

// ignoreMatcher parses gitignore-style patterns. Blank lines and comments
// are skipped.
func ignoreMatcher(lines []string) gitignore.Matcher {
	var patterns []gitignore.Pattern
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	if len(patterns) == 0 {
		return nil
	}
	return gitignore.NewMatcher(patterns)
}

// shouldWatchFile reports whether an event path is a configured data file
// not excluded by the ignore patterns, and returns its name relative to the
// data directory.
func (w *Watcher) shouldWatchFile(path string) (string, bool) {
	relPath, err := filepath.Rel(w.dir, path)
	if err != nil || strings.HasPrefix(relPath, "..") {
		return "", false
	}
	if !w.files[relPath] {
		return "", false
	}
	if w.matcher != nil {
		pathParts := strings.Split(relPath, string(filepath.Separator))
		if w.matcher.Match(pathParts, false) {
			return "", false
		}
	}
	return relPath, true
}

func (w *Watcher) hashFile(name string) string {
	content, err := os.ReadFile(filepath.Join(w.dir, name))
	if err != nil {
		return ""
	}
	return hashContent(content)
}

// changed re-hashes the given files and reports whether any differs from
// the last reload.
func (w *Watcher) changed(names map[string]bool) bool {
	dirty := false
	for name := range names {
		h := w.hashFile(name)
		if h != w.hashes[name] {
			w.hashes[name] = h
			dirty = true
		}
	}
	return dirty
}

// Run blocks until ctx is cancelled, reloading after each settled batch of
// changes.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace files, so watch the directory rather than the
	// files themselves.
	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}

	changedFiles := make(map[string]bool)
	batchTimer := time.NewTimer(w.debounce)
	batchTimer.Stop()

	w.log.Infow("watching data files", "dir", w.dir, "debounce", w.debounce)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			name, ok := w.shouldWatchFile(event.Name)
			if !ok {
				continue
			}
			changedFiles[name] = true
			batchTimer.Reset(w.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warnw("watch error", "error", err)

		case <-batchTimer.C:
			if len(changedFiles) == 0 {
				continue
			}
			if w.changed(changedFiles) {
				w.log.Infow("data files changed, reloading", "files", len(changedFiles))
				if err := w.reload(ctx); err != nil {
					if errors.Is(err, context.Canceled) {
						return err
					}
					w.log.Errorw("reload failed", "error", err)
				}
			}
			changedFiles = make(map[string]bool)
		}
	}
}

// WatchDataFiles watches the data directory of cfg and calls reload after
// changes. Blocks until ctx is cancelled.
func WatchDataFiles(ctx context.Context, cfg config.DataConfig, reload ReloadFunc, log *zap.SugaredLogger) error {
	return NewWatcher(cfg, reload, log).Run(ctx)
}
