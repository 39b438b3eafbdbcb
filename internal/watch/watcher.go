// Package watch re-runs a conversion when source notes or attachments change.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/writeup/internal/checksum"
)

// Debounce is how long the watcher waits after the last change before it
// calls the callback.
var Debounce = 200 * time.Millisecond

// tempPrefix marks files written by storage.FS before they are renamed.
const tempPrefix = ".writeup-tmp-"

// Callback is invoked once per settled batch of changes.
type Callback func(ctx context.Context)

// Watch observes the files directly inside dirs and calls cb after each
// batch of content changes until ctx is cancelled. Files whose content is
// unchanged (touch, chmod) do not trigger a run. Subdirectories are not
// watched.
func Watch(ctx context.Context, dirs []string, logger *slog.Logger, cb Callback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	sums := make(map[string]string)
	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			return err
		}
		seed(dir, sums)
	}

	logger.Info("watcher: started", slog.Any("dirs", dirs))

	var timer *time.Timer
	var fire <-chan time.Time
	dirty := make(map[string]struct{})

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(Debounce)
			fire = timer.C
		} else {
			timer.Reset(Debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-fire:
			changed := settle(dirty, sums)
			clear(dirty)
			if !changed {
				logger.Debug("watcher: content unchanged, skipping")
				continue
			}
			logger.Info("watcher: change detected, converting")
			cb(ctx)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if strings.HasPrefix(filepath.Base(ev.Name), tempPrefix) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debug("watcher: event", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			dirty[ev.Name] = struct{}{}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// settle re-checksums the dirty paths and reports whether any content
// was added, changed or removed since the last run.
func settle(dirty map[string]struct{}, sums map[string]string) bool {
	changed := false
	for p := range dirty {
		sum, err := checksum.SumFile(p)
		if err != nil {
			if _, known := sums[p]; known {
				delete(sums, p)
				changed = true
			}
			continue
		}
		if sums[p] != sum {
			sums[p] = sum
			changed = true
		}
	}
	return changed
}

// seed records the current checksum of every regular file in dir.
func seed(dir string, sums map[string]string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if sum, err := checksum.SumFile(p); err == nil {
			sums[p] = sum
		}
	}
}
