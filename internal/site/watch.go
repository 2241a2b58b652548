package site

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce batches bursts of file events into one rebuild.
const DefaultDebounce = 500 * time.Millisecond

// WatchOptions configures Watch.
type WatchOptions struct {
	Debounce time.Duration
	// Exclude lists directories whose events are ignored, typically the export
	// output when it lives inside the watched tree.
	Exclude []string
}

// Watch calls onChange with the changed paths each time root settles after a
// burst of changes. It blocks until ctx is done or onChange returns an error.
func Watch(ctx context.Context, root string, opts WatchOptions, onChange func(ctx context.Context, changed []string) error) error {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	excluded := make([]string, 0, len(opts.Exclude))
	for _, dir := range opts.Exclude {
		if abs, err := filepath.Abs(dir); err == nil {
			excluded = append(excluded, abs)
		}
	}
	isExcluded := func(p string) bool {
		abs, err := filepath.Abs(p)
		if err != nil {
			return false
		}
		for _, dir := range excluded {
			if abs == dir || strings.HasPrefix(abs, dir+string(filepath.Separator)) {
				return true
			}
		}
		return false
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if isExcluded(p) {
			return filepath.SkipDir
		}
		return watcher.Add(p)
	})
	if err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}

	timer := time.NewTimer(opts.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := make(map[string]struct{})

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if isExcluded(event.Name) || event.Op == fsnotify.Chmod {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
				}
			}
			pending[event.Name] = struct{}{}
			timer.Reset(opts.Debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch error", "error", err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			clear(pending)
			slog.Debug("data changed", "paths", len(changed))
			if err := onChange(ctx, changed); err != nil {
				return err
			}

		case <-ctx.Done():
			return nil
		}
	}
}
