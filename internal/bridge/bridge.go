// Package bridge drives a TDLib engine: a poll loop drains envelopes, a
// dispatcher correlates replies with pending calls and routes events, and
// a rate governor gates outgoing calls.
package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flemzord/tgbridge/internal/native"
	"github.com/flemzord/tgbridge/internal/ratelimit"
	"github.com/flemzord/tgbridge/internal/tlrpc/api"
)

// Bridge ties one engine to its dispatcher and poll loop.
type Bridge struct {
	engine     *native.Serialized
	dispatcher *Dispatcher
	poller     *Poller
	logger     *slog.Logger
	cfg        Config

	mu        sync.Mutex
	stopped   bool
	running   atomic.Bool
	startedAt time.Time
}

// New creates a stopped Bridge. cfg is completed with defaults.
func New(engine native.Engine, cfg Config, opts Options) *Bridge {
	cfg.defaults()
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = cfg.CallTimeout
	}

	serialized := native.Serialize(engine)
	b := &Bridge{
		engine:     serialized,
		dispatcher: NewDispatcher(serialized, opts),
		logger:     opts.Logger,
		cfg:        cfg,
	}
	b.poller = NewPoller(serialized, b.dispatcher, PollerOptions{
		Timeout: cfg.PollTimeout,
		Running: b.running.Load,
		Logger:  opts.Logger.With("component", "poller"),
		Metrics: b.dispatcher.metrics,
	})
	return b
}

// Start sets the engine's log verbosity and starts the poll loop. A Bridge
// cannot be restarted: Start after Stop returns ErrClosed.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return ErrClosed
	}
	if b.running.Load() {
		return nil
	}

	if b.cfg.LogVerbosity != nil {
		_, err := ExecuteSync[api.Ok](ctx, b.dispatcher, &api.SetLogVerbosityLevel{
			NewVerbosityLevel: *b.cfg.LogVerbosity,
		})
		if err != nil {
			return fmt.Errorf("bridge: setting log verbosity: %w", err)
		}
	}

	b.running.Store(true)
	b.startedAt = time.Now()
	b.poller.Start()
	b.logger.Info("bridge started", "poll_timeout", b.cfg.PollTimeout)
	return nil
}

// Stop ends the poll loop and fails every pending call with ErrClosed.
// It returns ctx.Err() if the loop did not exit in time.
func (b *Bridge) Stop(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopped = true
	b.running.Store(false)
	stopped := make(chan struct{})
	go func() {
		b.poller.Stop()
		close(stopped)
	}()

	var err error
	select {
	case <-stopped:
	case <-ctx.Done():
		err = fmt.Errorf("bridge: waiting for poll loop: %w", ctx.Err())
	}
	b.dispatcher.Close()
	b.logger.Info("bridge stopped", "error", err)
	return err
}

// Running reports whether the poll loop is meant to be running.
func (b *Bridge) Running() bool { return b.running.Load() }

// Dispatcher returns the correlation engine.
func (b *Bridge) Dispatcher() *Dispatcher { return b.dispatcher }

// CreateClient allocates a new logical TDLib client on the engine.
func (b *Bridge) CreateClient() (int, error) {
	id, err := b.engine.CreateClient()
	if err != nil {
		return 0, fmt.Errorf("bridge: creating client: %w", err)
	}
	return id, nil
}

// Sweep abandons calls older than the configured max_pending_age.
func (b *Bridge) Sweep() int {
	return b.dispatcher.Sweep(b.cfg.MaxPendingAge)
}

// Status is a point-in-time view of the bridge for the admin surface.
type Status struct {
	Running    bool                      `json:"running"`
	StartedAt  time.Time                 `json:"started_at,omitzero"`
	Pending    int                       `json:"pending_calls"`
	RateLimits map[string]map[string]int `json:"rate_limits,omitempty"`
}

// Status returns the current bridge status.
func (b *Bridge) Status() Status {
	b.mu.Lock()
	startedAt := b.startedAt
	b.mu.Unlock()

	var snap map[string]map[string]int
	if g := b.dispatcher.Governor(); g != nil {
		snap = g.Snapshot()
	}
	return Status{
		Running:    b.running.Load(),
		StartedAt:  startedAt,
		Pending:    b.dispatcher.Pending(),
		RateLimits: snap,
	}
}

// reconfigure applies a new rate limit configuration.
func (b *Bridge) reconfigure(classes map[string]ratelimit.ClassConfig) error {
	g, err := ratelimit.NewGovernor(classes)
	if err != nil {
		return err
	}
	b.dispatcher.SetGovernor(g)
	return nil
}
