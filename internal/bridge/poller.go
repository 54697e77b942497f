package bridge

import (
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flemzord/tgbridge/internal/native"
)

const (
	// DefaultPollTimeout bounds how long one poll blocks, and so how fast
	// the loop notices Stop.
	DefaultPollTimeout = 3 * time.Second

	maxConsecutivePollErrors = 5
	errorPauseDuration       = 30 * time.Second
)

// EnvelopeSink receives every envelope the poll loop reads.
type EnvelopeSink interface {
	OnEnvelope(doc []byte)
}

// PollerOptions tunes a Poller. Zero values pick the defaults.
type PollerOptions struct {
	Timeout    time.Duration
	ErrorPause time.Duration

	// Running, when set, is checked before every poll; the loop exits once
	// it returns false.
	Running func() bool

	Logger  *slog.Logger
	Metrics *Metrics
}

// Poller drains an engine into a sink from a single goroutine.
type Poller struct {
	engine     *native.Serialized
	sink       EnvelopeSink
	logger     *slog.Logger
	metrics    *Metrics
	timeout    time.Duration
	errorPause time.Duration
	running    func() bool

	started  atomic.Bool
	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewPoller creates a Poller. engine is wrapped with native.Serialize;
// pollers built on the same *native.Serialized never poll at once.
func NewPoller(engine native.Engine, sink EnvelopeSink, opts PollerOptions) *Poller {
	p := &Poller{
		engine:     native.Serialize(engine),
		sink:       sink,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		timeout:    opts.Timeout,
		errorPause: opts.ErrorPause,
		running:    opts.Running,
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.metrics == nil {
		p.metrics = unregisteredMetrics()
	}
	if p.timeout <= 0 {
		p.timeout = DefaultPollTimeout
	}
	if p.errorPause <= 0 {
		p.errorPause = errorPauseDuration
	}
	return p
}

// Start launches the poll loop in a goroutine. Later calls do nothing.
func (p *Poller) Start() {
	if p.started.Swap(true) {
		return
	}
	go p.loop()
}

// Stop signals the loop to stop and waits for it to finish, which takes at
// most one poll timeout. It is safe to call Stop multiple times, and
// before Start.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	if p.started.Load() {
		<-p.done
	}
}

// Done is closed when the loop has exited.
func (p *Poller) Done() <-chan struct{} { return p.done }

func (p *Poller) loop() {
	defer close(p.done)

	var consecutiveErrors int
	for {
		select {
		case <-p.stopCh:
			return
		default:
		}
		if p.running != nil && !p.running() {
			p.logger.Info("poll loop exiting: bridge no longer running")
			return
		}

		env, ok, err := p.engine.Poll(p.timeout)
		if err != nil {
			consecutiveErrors++
			p.metrics.pollErrors.Inc()
			p.logger.Error("engine poll failed",
				"error", err,
				"consecutive_errors", consecutiveErrors,
			)

			if consecutiveErrors >= maxConsecutivePollErrors {
				p.logger.Warn("polling paused after consecutive errors",
					"pause", p.errorPause,
				)
				timer := time.NewTimer(p.errorPause)
				select {
				case <-p.stopCh:
					timer.Stop()
					return
				case <-timer.C:
				}
				consecutiveErrors = 0
			}
			continue
		}
		consecutiveErrors = 0

		if !ok {
			continue
		}
		// Delivered even if Stop was requested during the poll.
		p.deliver([]byte(env))
	}
}

func (p *Poller) deliver(doc []byte) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("envelope dispatch panicked",
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()
	p.sink.OnEnvelope(doc)
}
