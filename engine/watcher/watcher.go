// Package watcher reports changes to render path files and the shaders they load so the
// engine can reopen the render path without restarting.
package watcher

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

type watcherImpl struct {
	mu       sync.Mutex
	fs       *fsnotify.Watcher
	logger   *slog.Logger
	debounce time.Duration

	files map[string]struct{}
	dirs  map[string][]string

	changed chan string
	done    chan struct{}
	wg      sync.WaitGroup
	closed  bool
}

// Watcher coalesces file system events on watched files into change notifications.
// Bursts of events (editors often write, rename and chmod in quick succession) produce
// a single notification once the debounce interval has passed without further events.
type Watcher interface {
	// AddFile watches a single file. Its directory is watched and events for other
	// files in it are ignored unless they are watched too.
	//
	// Parameters:
	//   - path: the file to watch
	//
	// Returns:
	//   - error: an error if the directory cannot be watched
	AddFile(path string) error

	// AddDir watches every file in dir whose extension is one of exts. No extensions
	// watches every file.
	//
	// Parameters:
	//   - dir: the directory to watch
	//   - exts: extensions including the dot, e.g. ".wgsl"
	//
	// Returns:
	//   - error: an error if the directory cannot be watched
	AddDir(dir string, exts ...string) error

	// Changed delivers the last changed path of each burst. The channel holds at most one
	// pending notification; later bursts replace nothing and are dropped until it is read.
	Changed() <-chan string

	// Close stops watching and closes Changed.
	Close() error
}

var _ Watcher = &watcherImpl{}

// NewWatcher creates a Watcher with a 100ms debounce interval.
//
// Parameters:
//   - options: functional options
//
// Returns:
//   - Watcher: the watcher
//   - error: an error if the platform watcher cannot be created
func NewWatcher(options ...WatcherBuilderOption) (Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: %w", err)
	}
	w := &watcherImpl{
		fs:       fw,
		logger:   slog.Default(),
		debounce: 100 * time.Millisecond,
		files:    make(map[string]struct{}),
		dirs:     make(map[string][]string),
		changed:  make(chan string, 1),
		done:     make(chan struct{}),
	}
	for _, option := range options {
		option(w)
	}
	w.wg.Add(1)
	go w.run()
	return w, nil
}

func (w *watcherImpl) AddFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watcher: %w", err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.fs.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watcher: %s: %w", path, err)
	}
	w.files[abs] = struct{}{}
	w.logger.Debug("watching file", "path", abs)
	return nil
}

func (w *watcherImpl) AddDir(dir string, exts ...string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("watcher: %w", err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.fs.Add(abs); err != nil {
		return fmt.Errorf("watcher: %s: %w", dir, err)
	}
	if exts == nil {
		exts = []string{}
	}
	w.dirs[abs] = exts
	w.logger.Debug("watching directory", "path", abs, "exts", exts)
	return nil
}

func (w *watcherImpl) Changed() <-chan string {
	return w.changed
}

func (w *watcherImpl) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.done)
	err := w.fs.Close()
	w.wg.Wait()
	close(w.changed)
	return err
}

// run consumes fsnotify events until Close.
func (w *watcherImpl) run() {
	defer w.wg.Done()

	var timer *time.Timer
	var fire <-chan time.Time
	var last string
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Op == fsnotify.Chmod || !w.matches(ev.Name) {
				continue
			}
			last = ev.Name
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "err", err)
		case <-fire:
			fire = nil
			select {
			case w.changed <- last:
				w.logger.Info("file changed", "path", last)
			default:
			}
		}
	}
}

func (w *watcherImpl) matches(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.files[abs]; ok {
		return true
	}
	exts, ok := w.dirs[filepath.Dir(abs)]
	if !ok {
		return false
	}
	if len(exts) == 0 {
		return true
	}
	ext := filepath.Ext(abs)
	for _, e := range exts {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}
