package bridge

import (
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/tgbridge/internal/tlrpc"
)

// pendingCall is an async request waiting for its reply. It is completed
// exactly once, by whoever removed it from the registry.
type pendingCall struct {
	token    string
	method   string
	clientID int
	issuedAt time.Time
	expect   func() tlrpc.Object
	span     trace.Span

	ready chan struct{}
	obj   tlrpc.Object
	err   error
}

func newPendingCall(token, method string, clientID int, issuedAt time.Time, expect func() tlrpc.Object) *pendingCall {
	return &pendingCall{
		token:    token,
		method:   method,
		clientID: clientID,
		issuedAt: issuedAt,
		expect:   expect,
		ready:    make(chan struct{}),
	}
}

// complete stores the outcome and wakes every waiter. Callers must own pc,
// i.e. have taken it from the registry.
func (pc *pendingCall) complete(obj tlrpc.Object, err error) {
	pc.obj, pc.err = obj, err
	close(pc.ready)
}

// registry maps correlation tokens to pending calls. The lock covers insert
// and remove only; waiting happens on each call's ready channel.
type registry struct {
	mu     sync.Mutex
	calls  map[string]*pendingCall
	closed bool
}

type addResult int

const (
	added addResult = iota
	addDuplicate
	addClosed
)

func newRegistry() *registry {
	return &registry{calls: make(map[string]*pendingCall)}
}

func (r *registry) add(pc *pendingCall) addResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return addClosed
	}
	if _, exists := r.calls[pc.token]; exists {
		return addDuplicate
	}
	r.calls[pc.token] = pc
	return added
}

// take removes and returns the call for token. Only one caller can win.
func (r *registry) take(token string) (*pendingCall, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pc, ok := r.calls[token]
	if ok {
		delete(r.calls, token)
	}
	return pc, ok
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// takeOlderThan removes every call issued before cutoff.
func (r *registry) takeOlderThan(cutoff time.Time) []*pendingCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*pendingCall
	for token, pc := range r.calls {
		if pc.issuedAt.Before(cutoff) {
			delete(r.calls, token)
			out = append(out, pc)
		}
	}
	return out
}

// drain empties the registry and refuses every later add.
func (r *registry) drain() []*pendingCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	out := make([]*pendingCall, 0, len(r.calls))
	for _, pc := range r.calls {
		out = append(out, pc)
	}
	r.calls = make(map[string]*pendingCall)
	return out
}
