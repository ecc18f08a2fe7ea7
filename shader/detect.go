package shader

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Detector reports whether a watched source file changed since the last
// call that returned true. Changed is called once per frame on the render
// goroutine and must not block.
type Detector interface {
	Changed() bool
	Close() error
}

// WatchMode selects a Detector implementation.
type WatchMode string

const (
	WatchPoll   WatchMode = "poll"
	WatchNotify WatchMode = "notify"
)

// NewDetector returns a detector for path. A notify detector that cannot
// be set up falls back to polling.
func NewDetector(mode WatchMode, path string) Detector {
	switch mode {
	case WatchNotify:
		d, err := NewNotifyDetector(path)
		if err == nil {
			return d
		}
		slog.Warn("file watcher unavailable, polling instead", "path", path, "err", err)
	case WatchPoll, "":
	default:
		slog.Warn("unknown watch mode, polling instead", "mode", mode)
	}
	return NewModTimeDetector(path)
}

// modTime returns the file's modification time, or the zero time when the
// file cannot be stat'ed.
func modTime(path string) time.Time {
	fi, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return fi.ModTime()
}

// ModTimeDetector compares the file's modification time against the last
// one it reported. Each call costs one stat.
type ModTimeDetector struct {
	path     string
	lastSeen time.Time
}

// NewModTimeDetector records the current modification time of path. A
// missing file is recorded as the zero time, so its later creation counts
// as a change.
func NewModTimeDetector(path string) *ModTimeDetector {
	return &ModTimeDetector{path: path, lastSeen: modTime(path)}
}

func (d *ModTimeDetector) Changed() bool {
	fi, err := os.Stat(d.path)
	if err != nil {
		// Editors briefly remove the file while saving.
		return false
	}
	if fi.ModTime().Equal(d.lastSeen) {
		return false
	}
	d.lastSeen = fi.ModTime()
	return true
}

func (d *ModTimeDetector) Close() error { return nil }

// NotifyDetector waits for filesystem events on the file's directory and
// only then stats the file, so quiet frames cost a single channel poll.
// Several events for one save collapse into one change because the
// modification time is still compared.
type NotifyDetector struct {
	path    string
	watcher *fsnotify.Watcher
	mod     *ModTimeDetector
	pending bool
}

// NewNotifyDetector watches the directory containing path. The directory is
// watched rather than the file because many editors save by renaming a
// temporary file over the original.
func NewNotifyDetector(path string) (*NotifyDetector, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watch %q: %w", path, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch %q: %w", path, err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %q: %w", path, err)
	}
	return &NotifyDetector{
		path:    abs,
		watcher: w,
		mod:     NewModTimeDetector(abs),
	}, nil
}

func (d *NotifyDetector) Changed() bool {
	for {
		select {
		case ev, ok := <-d.watcher.Events:
			if !ok {
				return d.check()
			}
			if filepath.Clean(ev.Name) == d.path && ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Chmod) != 0 {
				d.pending = true
			}
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return d.check()
			}
			slog.Warn("shader watcher error", "path", d.path, "err", err)
		default:
			return d.check()
		}
	}
}

func (d *NotifyDetector) check() bool {
	if !d.pending {
		return false
	}
	changed := d.mod.Changed()
	if _, err := os.Stat(d.path); err == nil {
		d.pending = false
	}
	return changed
}

func (d *NotifyDetector) Close() error {
	return d.watcher.Close()
}
