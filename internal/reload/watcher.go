// Package reload applies configuration changes to running modules, on
// SIGHUP, on an admin request, or when the configuration file changes.
package reload

import (
	"context"
	"crypto/sha256"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const defaultPollInterval = 5 * time.Second

// WatcherConfig configures the file watcher.
type WatcherConfig struct {
	// ConfigPath is the path to the configuration file to watch.
	ConfigPath string

	// PollInterval is how often to check for file changes.
	// Defaults to 5 seconds if zero.
	PollInterval time.Duration
}

func (c WatcherConfig) pollIntervalOrDefault() time.Duration {
	if c.PollInterval > 0 {
		return c.PollInterval
	}
	return defaultPollInterval
}

// Event reports that the configuration file content changed.
type Event struct {
	ConfigPath string
	Digest     [sha256.Size]byte
}

// Watcher polls a configuration file and reports content changes. Touching
// the file or rewriting identical bytes does not produce an event; a
// rewrite within the same second as the previous one does.
type Watcher struct {
	cfg     WatcherConfig
	events  chan Event
	stop    chan struct{}
	stopped chan struct{}

	started   atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewWatcher creates a new file watcher.
func NewWatcher(cfg WatcherConfig) *Watcher {
	return &Watcher{
		cfg:     cfg,
		events:  make(chan Event, 1),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start begins polling the config file for changes. Only the first call
// starts the goroutine.
func (w *Watcher) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		w.started.Store(true)
		baseline, _ := w.digest()
		go w.poll(ctx, baseline)
	})
}

// Events returns the channel of change events. It holds at most one
// pending event; consumers re-read the file rather than trust the digest.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Stop stops the watcher. Safe to call multiple times and before Start.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
	})
	if w.started.Load() {
		<-w.stopped
	}
}

func (w *Watcher) poll(ctx context.Context, last [sha256.Size]byte) {
	defer close(w.stopped)

	ticker := time.NewTicker(w.cfg.pollIntervalOrDefault())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-ticker.C:
			current, ok := w.digest()
			if !ok || current == last {
				continue
			}
			last = current
			select {
			case w.events <- Event{ConfigPath: w.cfg.ConfigPath, Digest: current}:
			default:
			}
		}
	}
}

// digest hashes the file. A missing or unreadable file reports false so a
// half-written editor swap is not taken for a change.
func (w *Watcher) digest() ([sha256.Size]byte, bool) {
	raw, err := os.ReadFile(w.cfg.ConfigPath)
	if err != nil {
		return [sha256.Size]byte{}, false
	}
	return sha256.Sum256(raw), true
}
