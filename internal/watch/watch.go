// Package watch observes entity source directories and schedules cycles.
//
// Event bursts are coalesced with a debounce window: every event resets a
// pending timer, and the timer firing triggers exactly one replan. Cycles
// run inside the watch loop goroutine, so two replans can never run
// concurrently; events arriving mid-cycle stay queued on the event channel
// and re-arm the timer once the cycle finishes, yielding exactly one
// follow-up replan.
//
// The watcher never touches the output directory: it only ever schedules
// cycles. Cancelling the context cancels a pending timer immediately but
// never interrupts an in-flight cycle, so persisted state always matches
// what was actually written.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the default coalescing window.
const DefaultDebounce = 250 * time.Millisecond

// Watcher schedules cycle runs in response to filesystem changes.
type Watcher struct {
	// Dirs are the directories to watch, recursively. The engine's output
	// directory must not be included (feedback loops).
	Dirs []string

	// Debounce is the coalescing window. Zero means DefaultDebounce.
	Debounce time.Duration

	// Run executes one cycle. Errors are logged, not fatal: the next
	// triggered cycle is the retry mechanism.
	Run func(ctx context.Context) error
}

// Watch blocks, scheduling cycles until ctx is cancelled.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	for _, dir := range w.Dirs {
		if err := addRecursive(fw, dir); err != nil {
			return err
		}
	}

	return w.loop(ctx, fw, fw.Events, fw.Errors)
}

// loop is the watch select-loop, separated from Watch so tests can drive
// it with fabricated channels. fw may be nil in tests; it is only used to
// register newly created subdirectories.
func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher, events <-chan fsnotify.Event, errs <-chan error) error {
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			if fw != nil && ev.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addRecursive(fw, ev.Name); err != nil {
						slog.Warn("watch new directory", "dir", ev.Name, "error", err)
					}
				}
			}
			slog.Debug("source change", "path", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounce)
			}

		case err, ok := <-errs:
			if !ok {
				return nil
			}
			slog.Warn("watch error", "error", err)

		case <-timerC:
			timer = nil
			timerC = nil
			// The cycle runs with a non-cancellable context: an interrupt
			// arriving mid-apply must let the cycle finish so state is only
			// ever persisted consistent with what hit the disk.
			if err := w.Run(context.WithoutCancel(ctx)); err != nil {
				slog.Error("cycle failed", "error", err)
			}
			if ctx.Err() != nil {
				return nil
			}
		}
	}
}

// relevant filters events down to source changes worth a replan: content
// or membership changes to .cue files, or new directories.
func relevant(ev fsnotify.Event) bool {
	if ev.Op.Has(fsnotify.Chmod) && ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if filepath.Ext(ev.Name) == ".cue" {
		return true
	}
	// Directory events carry no extension; membership changes matter.
	return filepath.Ext(ev.Name) == ""
}

// addRecursive registers dir and every subdirectory with the watcher.
func addRecursive(fw *fsnotify.Watcher, dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return fw.Add(path)
		}
		return nil
	})
}
