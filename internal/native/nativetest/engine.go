// Package nativetest provides an in-memory native.Engine for tests.
package nativetest

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/flemzord/tgbridge/internal/native"
)

// Sent is one request captured by Engine.Send.
type Sent struct {
	ClientID int
	Request  string
}

// Engine is a scriptable native.Engine. Replies are queued with Push or
// produced by OnSend; Poll drains the queue in FIFO order.
type Engine struct {
	// OnSend, when set, returns envelopes to enqueue in reply to a Send.
	OnSend func(clientID int, request string) []string

	// SendErr, when set, makes Send fail without enqueuing anything.
	SendErr error

	// OnExecute answers Execute. Without it Execute echoes {"@type":"ok"}.
	OnExecute func(request string) (string, error)

	// PollErr, when set, is returned by every Poll.
	PollErr error

	mu      sync.Mutex
	sent    []Sent
	queue   chan string
	nextID  int
	closed  bool
	polling atomic.Int32
	maxPoll atomic.Int32
	polls   atomic.Int64
}

var _ native.Engine = (*Engine)(nil)

// New returns an Engine with room for size queued envelopes.
func New(size int) *Engine {
	return &Engine{queue: make(chan string, size)}
}

// Push enqueues an envelope for Poll.
func (e *Engine) Push(envelopes ...string) {
	for _, env := range envelopes {
		e.queue <- env
	}
}

// CreateClient implements native.Engine.
func (e *Engine) CreateClient() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return 0, native.ErrClosed
	}
	e.nextID++
	return e.nextID, nil
}

// Send implements native.Engine.
func (e *Engine) Send(clientID int, request string) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return native.ErrClosed
	}
	if e.SendErr != nil {
		e.mu.Unlock()
		return e.SendErr
	}
	e.sent = append(e.sent, Sent{ClientID: clientID, Request: request})
	onSend := e.OnSend
	e.mu.Unlock()

	if onSend != nil {
		e.Push(onSend(clientID, request)...)
	}
	return nil
}

// Execute implements native.Engine.
func (e *Engine) Execute(request string) (string, error) {
	if e.OnExecute != nil {
		return e.OnExecute(request)
	}
	return `{"@type":"ok"}`, nil
}

// Poll implements native.Engine. It also records how many polls ran at
// the same time.
func (e *Engine) Poll(timeout time.Duration) (string, bool, error) {
	n := e.polling.Add(1)
	defer e.polling.Add(-1)
	for {
		cur := e.maxPoll.Load()
		if n <= cur || e.maxPoll.CompareAndSwap(cur, n) {
			break
		}
	}
	e.polls.Add(1)

	if e.PollErr != nil {
		time.Sleep(time.Millisecond)
		return "", false, e.PollErr
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case env := <-e.queue:
		return env, true, nil
	case <-timer.C:
		return "", false, nil
	}
}

// Close makes further CreateClient and Send calls fail.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
}

// Sent returns a copy of every request passed to Send.
func (e *Engine) Sent() []Sent {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Sent, len(e.sent))
	copy(out, e.sent)
	return out
}

// MaxConcurrentPolls reports the highest number of overlapping Poll calls.
func (e *Engine) MaxConcurrentPolls() int { return int(e.maxPoll.Load()) }

// Polls reports how many times Poll was called.
func (e *Engine) Polls() int64 { return e.polls.Load() }

// Pending reports how many envelopes are still queued.
func (e *Engine) Pending() int { return len(e.queue) }
