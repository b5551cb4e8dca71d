package settings

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 200 * time.Millisecond

// Watch reloads f whenever its file changes on disk until ctx is cancelled.
// onChange (if non-nil) is called after a reload that changed the settings.
//
// The parent directory is watched rather than the file itself so that
// editors replacing the file by rename are picked up. Bursts of events are
// debounced into one reload.
func Watch(ctx context.Context, f *File, logger *slog.Logger, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	target, err := filepath.Abs(f.Path())
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(target)); err != nil {
		return err
	}

	logger.Info("settings watcher: started", slog.String("path", target))

	var timer *time.Timer
	var timerCh <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(reloadDebounce)
			timerCh = timer.C
		} else {
			timer.Reset(reloadDebounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("settings watcher: stopped")
			return nil

		case <-timerCh:
			changed, err := f.Reload()
			if err != nil {
				logger.Warn("settings watcher: reload failed", slog.String("error", err.Error()))
				continue
			}
			if !changed {
				continue
			}
			logger.Debug("settings watcher: reloaded", slog.String("path", target))
			if onChange != nil {
				onChange()
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("settings watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
