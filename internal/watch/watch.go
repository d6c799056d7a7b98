// Package watch reports changes to a payload file, coalescing bursts of
// writes into one event.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/good-yellow-bee/pricedesk/internal/dashboard"
)

// Event reports that the watched file changed or that watching failed.
type Event struct {
	Path string
	Time time.Time
	Err  error
}

// Options contains options for configuring a Watcher.
type Options struct {
	// Debounce is the quiet period after the last write before an event
	// is emitted.
	Debounce time.Duration
	// PollInterval is the interval to poll for changes when fsnotify
	// misses them. Zero disables polling.
	PollInterval time.Duration
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() *Options {
	return &Options{
		Debounce:     dashboard.DefaultDebounce,
		PollInterval: time.Second,
	}
}

// Watcher emits an Event each time the file settles after a change.
type Watcher struct {
	path      string
	opts      *Options
	watcher   *fsnotify.Watcher
	debouncer *dashboard.Debouncer

	// modTime and size of the last observed version, for polling.
	modTime time.Time
	size    int64

	events chan Event
	done   chan struct{}

	mu     sync.Mutex
	closed bool
}

// New creates a Watcher for the file at path, which must exist.
func New(path string, opts *Options) (*Watcher, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", absPath, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &Watcher{
		path:      absPath,
		opts:      opts,
		watcher:   watcher,
		debouncer: dashboard.NewDebouncer(opts.Debounce),
		modTime:   info.ModTime(),
		size:      info.Size(),
		events:    make(chan Event, 1),
		done:      make(chan struct{}),
	}, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Events returns the channel events are delivered on. It is closed by Stop.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start begins watching. The directory is watched so that editors that
// replace the file on save are followed.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch directory: %w", err)
	}
	go w.run(ctx)
	return nil
}

// Stop stops the watcher and closes the events channel.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	w.closed = true

	w.debouncer.Stop()
	close(w.done)
	w.watcher.Close()
	close(w.events)
}

func (w *Watcher) run(ctx context.Context) {
	defer w.Stop()

	var poll <-chan time.Time
	if w.opts.PollInterval > 0 {
		ticker := time.NewTicker(w.opts.PollInterval)
		defer ticker.Stop()
		poll = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.send(Event{Path: w.path, Time: time.Now(), Err: fmt.Errorf("watcher error: %w", err)})
		case <-poll:
			w.checkForChanges()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	// Remove and Rename are followed by a Create when the file is replaced.
	if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
		w.changed()
	}
}

func (w *Watcher) checkForChanges() {
	info, err := os.Stat(w.path)
	if err != nil {
		return
	}
	if info.ModTime().Equal(w.modTime) && info.Size() == w.size {
		return
	}
	w.changed()
}

func (w *Watcher) changed() {
	if info, err := os.Stat(w.path); err == nil {
		w.modTime = info.ModTime()
		w.size = info.Size()
	}
	w.debouncer.Trigger(func() {
		w.send(Event{Path: w.path, Time: time.Now()})
	})
}

// send delivers ev unless one is already pending; pending events are
// indistinguishable so dropping is safe.
func (w *Watcher) send(ev Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case w.events <- ev:
	default:
	}
}
