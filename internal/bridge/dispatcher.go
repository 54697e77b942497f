package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/flemzord/tgbridge/internal/native"
	"github.com/flemzord/tgbridge/internal/ratelimit"
	"github.com/flemzord/tgbridge/internal/tlrpc"
)

// AnyClient registers a handler for events of every client, including
// envelopes that carry no @client_id.
const AnyClient = math.MinInt

// Event is an envelope that did not answer a pending call.
type Event struct {
	ClientID int
	Type     string
	Raw      []byte
}

// Handler processes one event. It runs on the poll loop, so it must not
// wait for the reply of a call it issues; start a goroutine for that.
type Handler func(ctx context.Context, ev Event) error

// AsyncRequest describes one call for IssueAsync.
type AsyncRequest struct {
	ClientID int
	Object   tlrpc.Object

	// Expect builds the value the reply is decoded into.
	Expect func() tlrpc.Object

	// Key selects the rate limit bucket. The zero Key is not limited.
	Key ratelimit.Key

	// Cost in tokens. Zero means 1.
	Cost int
}

// Options configures a Dispatcher. Every field is optional.
type Options struct {
	Governor *ratelimit.Governor
	Logger   *slog.Logger
	Metrics  *Metrics
	Tracer   trace.Tracer

	// CallTimeout bounds Execute when the caller's context has no deadline.
	CallTimeout time.Duration

	// Now and NewToken replace the clock and the token generator.
	Now      func() time.Time
	NewToken func() string
}

// DefaultCallTimeout is used when Options.CallTimeout is zero.
const DefaultCallTimeout = 30 * time.Second

type handlerKey struct {
	clientID int
	typ      string
}

type handlerEntry struct {
	id uint64
	h  Handler
}

type tapEntry struct {
	id uint64
	fn func(doc []byte)
}

// Dispatcher correlates replies with pending calls and routes every other
// envelope to event handlers.
type Dispatcher struct {
	engine      native.Engine
	governor    atomic.Pointer[ratelimit.Governor]
	logger      *slog.Logger
	metrics     *Metrics
	tracer      trace.Tracer
	callTimeout time.Duration
	now         func() time.Time
	newToken    func() string

	pending *registry

	hmu      sync.RWMutex
	handlers map[handlerKey][]handlerEntry
	taps     []tapEntry
	nextID   uint64

	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool
}

// NewDispatcher creates a Dispatcher sending through engine.
func NewDispatcher(engine native.Engine, opts Options) *Dispatcher {
	d := &Dispatcher{
		engine:      engine,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		tracer:      opts.Tracer,
		callTimeout: opts.CallTimeout,
		now:         opts.Now,
		newToken:    opts.NewToken,
		pending:     newRegistry(),
		handlers:    make(map[handlerKey][]handlerEntry),
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.metrics == nil {
		d.metrics = unregisteredMetrics()
	}
	if d.tracer == nil {
		d.tracer = noop.NewTracerProvider().Tracer("")
	}
	if d.callTimeout <= 0 {
		d.callTimeout = DefaultCallTimeout
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.newToken == nil {
		d.newToken = uuid.NewString
	}
	d.governor.Store(opts.Governor)
	d.ctx, d.cancel = context.WithCancel(context.Background())
	return d
}

// SetGovernor swaps the rate governor. Calls already admitted are unaffected.
func (d *Dispatcher) SetGovernor(g *ratelimit.Governor) {
	d.governor.Store(g)
}

// Governor returns the current rate governor, possibly nil.
func (d *Dispatcher) Governor() *ratelimit.Governor {
	return d.governor.Load()
}

// IssueAsync admits, registers and sends req, then returns without waiting
// for the reply.
func (d *Dispatcher) IssueAsync(ctx context.Context, req AsyncRequest) (*Call, error) {
	if d.closed.Load() {
		return nil, ErrClosed
	}
	if req.Object == nil {
		return nil, fmt.Errorf("bridge: %w", tlrpc.ErrNilRecord)
	}
	if req.Expect == nil {
		return nil, ErrNoExpect
	}
	method := req.Object.TypeName()

	cost := req.Cost
	if cost == 0 {
		cost = 1
	}
	res, err := d.governor.Load().TryConsume(req.Key, cost)
	if err != nil {
		return nil, fmt.Errorf("bridge: %s: %w", method, err)
	}
	if !res.Granted {
		d.metrics.denials.WithLabelValues(req.Key.Class).Inc()
		d.logger.Debug("call rate limited", "method", method, "key", req.Key.String())
		return nil, fmt.Errorf("%w: %s (%s)", ErrRateLimited, method, req.Key)
	}

	token := d.newToken()
	pc := newPendingCall(token, method, req.ClientID, d.now(), req.Expect)

	payload, err := tlrpc.EncodeWithExtra(req.Object, token)
	if err != nil {
		d.metrics.callErrors.WithLabelValues(method, "encode").Inc()
		return nil, fmt.Errorf("bridge: encoding %s: %w", method, err)
	}

	_, pc.span = d.tracer.Start(ctx, "tdlib.async "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("tdlib.method", method),
			attribute.Int("tdlib.client_id", req.ClientID),
			attribute.String("tdlib.extra", token),
		),
	)

	switch d.pending.add(pc) {
	case addClosed:
		pc.span.End()
		return nil, ErrClosed
	case addDuplicate:
		pc.span.End()
		return nil, fmt.Errorf("%w: %s", ErrDuplicateToken, token)
	}
	d.metrics.pending.Inc()

	if err := d.engine.Send(req.ClientID, string(payload)); err != nil {
		if taken, ok := d.take(token); ok {
			d.finish(taken, nil, err, "send")
		}
		return nil, fmt.Errorf("bridge: sending %s: %w", method, err)
	}
	return &Call{d: d, pc: pc}, nil
}

// IssueSync runs obj through the engine's synchronous primitive and decodes
// the reply with expect. An error reply is returned as *tlrpc.RemoteError.
func (d *Dispatcher) IssueSync(ctx context.Context, obj tlrpc.Object, expect func() tlrpc.Object) (tlrpc.Object, error) {
	if obj == nil {
		return nil, fmt.Errorf("bridge: %w", tlrpc.ErrNilRecord)
	}
	if expect == nil {
		return nil, ErrNoExpect
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	method := obj.TypeName()
	start := d.now()

	_, span := d.tracer.Start(ctx, "tdlib.sync "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("tdlib.method", method)),
	)
	defer span.End()

	out, kind, err := d.execute(obj, expect)
	d.metrics.callDuration.WithLabelValues(method, "sync").Observe(d.now().Sub(start).Seconds())
	if err != nil {
		d.metrics.callErrors.WithLabelValues(method, kind).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)
		return nil, err
	}
	return out, nil
}

func (d *Dispatcher) execute(obj tlrpc.Object, expect func() tlrpc.Object) (tlrpc.Object, string, error) {
	method := obj.TypeName()
	payload, err := tlrpc.Encode(obj)
	if err != nil {
		return nil, "encode", fmt.Errorf("bridge: encoding %s: %w", method, err)
	}
	reply, err := d.engine.Execute(string(payload))
	if err != nil {
		return nil, "send", fmt.Errorf("bridge: executing %s: %w", method, err)
	}
	doc := []byte(reply)
	if rerr := tlrpc.RemoteErrorOf(doc); rerr != nil {
		return nil, "remote", rerr
	}
	out, err := tlrpc.DecodeInto(doc, expect)
	if err != nil {
		return nil, "decode", fmt.Errorf("bridge: decoding %s reply: %w", method, err)
	}
	return out, "", nil
}

// OnEnvelope consumes one envelope from the poll loop. A reply to a pending
// call fulfills it; anything else is routed to the event handlers.
func (d *Dispatcher) OnEnvelope(doc []byte) {
	d.tap(doc)

	if token, ok := tlrpc.Extra(doc); ok {
		if pc, ok := d.take(token); ok {
			d.metrics.envelopes.WithLabelValues(routeReply).Inc()
			d.fulfill(pc, doc)
			return
		}
		typ, _ := tlrpc.Discriminant(doc)
		d.metrics.envelopes.WithLabelValues(routeDangling).Inc()
		d.logger.Warn("reply for unknown or abandoned call", "extra", token, "type", typ)
	}
	d.route(doc)
}

func (d *Dispatcher) fulfill(pc *pendingCall, doc []byte) {
	if rerr := tlrpc.RemoteErrorOf(doc); rerr != nil {
		d.finish(pc, nil, rerr, "remote")
		return
	}
	obj, err := tlrpc.DecodeInto(doc, pc.expect)
	if err != nil {
		d.logger.Warn("reply decode failed", "method", pc.method, "extra", pc.token, "error", err)
		d.finish(pc, nil, fmt.Errorf("bridge: decoding %s reply: %w", pc.method, err), "decode")
		return
	}
	d.finish(pc, obj, nil, "")
}

func (d *Dispatcher) route(doc []byte) {
	typ, ok := tlrpc.Discriminant(doc)
	if !ok {
		d.metrics.envelopes.WithLabelValues(routeDropped).Inc()
		d.logger.Warn("envelope without @type dropped", "size", len(doc))
		return
	}
	clientID := tlrpc.ClientID(doc)

	handlers := d.handlersFor(clientID, typ)
	if len(handlers) == 0 {
		d.metrics.envelopes.WithLabelValues(routeDropped).Inc()
		d.logger.Debug("no handler for event", "type", typ, "client_id", clientID)
		return
	}
	d.metrics.envelopes.WithLabelValues(routeEvent).Inc()

	ev := Event{ClientID: clientID, Type: typ, Raw: doc}
	for _, h := range handlers {
		d.invoke(h, ev)
	}
}

func (d *Dispatcher) invoke(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			d.metrics.handlerErrs.Inc()
			d.logger.Error("event handler panicked",
				"type", ev.Type,
				"client_id", ev.ClientID,
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()
	if err := h(d.ctx, ev); err != nil {
		d.metrics.handlerErrs.Inc()
		d.logger.Error("event handler failed", "type", ev.Type, "client_id", ev.ClientID, "error", err)
	}
}

// handlersFor returns the handlers registered for (clientID, typ) followed
// by those registered for AnyClient.
func (d *Dispatcher) handlersFor(clientID int, typ string) []Handler {
	d.hmu.RLock()
	defer d.hmu.RUnlock()
	specific := d.handlers[handlerKey{clientID, typ}]
	anyClient := d.handlers[handlerKey{AnyClient, typ}]
	out := make([]Handler, 0, len(specific)+len(anyClient))
	for _, e := range specific {
		out = append(out, e.h)
	}
	for _, e := range anyClient {
		out = append(out, e.h)
	}
	return out
}

// Handle registers h for events of type typ sent to clientID. Handlers for
// the same key run in registration order. The returned func unregisters h.
func (d *Dispatcher) Handle(clientID int, typ string, h Handler) (remove func()) {
	key := handlerKey{clientID, typ}
	d.hmu.Lock()
	d.nextID++
	id := d.nextID
	d.handlers[key] = append(d.handlers[key], handlerEntry{id: id, h: h})
	d.hmu.Unlock()

	return func() {
		d.hmu.Lock()
		defer d.hmu.Unlock()
		entries := d.handlers[key]
		for i, e := range entries {
			if e.id == id {
				d.handlers[key] = append(entries[:i:i], entries[i+1:]...)
				break
			}
		}
		if len(d.handlers[key]) == 0 {
			delete(d.handlers, key)
		}
	}
}

// Tap registers fn to observe every envelope before it is routed. fn runs
// on the poll loop and must not block.
func (d *Dispatcher) Tap(fn func(doc []byte)) (remove func()) {
	d.hmu.Lock()
	d.nextID++
	id := d.nextID
	d.taps = append(d.taps, tapEntry{id: id, fn: fn})
	d.hmu.Unlock()

	return func() {
		d.hmu.Lock()
		defer d.hmu.Unlock()
		for i, t := range d.taps {
			if t.id == id {
				d.taps = append(d.taps[:i:i], d.taps[i+1:]...)
				return
			}
		}
	}
}

func (d *Dispatcher) tap(doc []byte) {
	d.hmu.RLock()
	taps := d.taps
	d.hmu.RUnlock()
	for _, t := range taps {
		func() {
			defer func() {
				if r := recover(); r != nil {
					d.logger.Error("envelope tap panicked", "panic", r)
				}
			}()
			t.fn(doc)
		}()
	}
}

// Pending reports how many calls are waiting for a reply.
func (d *Dispatcher) Pending() int { return d.pending.len() }

// Sweep abandons every call pending for longer than maxAge and returns how
// many were abandoned.
func (d *Dispatcher) Sweep(maxAge time.Duration) int {
	stale := d.pending.takeOlderThan(d.now().Add(-maxAge))
	for _, pc := range stale {
		d.metrics.pending.Dec()
		d.logger.Warn("abandoning stale call",
			"method", pc.method,
			"extra", pc.token,
			"age", d.now().Sub(pc.issuedAt),
		)
		d.finish(pc, nil, fmt.Errorf("%w: pending for more than %s", ErrAbandoned, maxAge), "abandoned")
	}
	return len(stale)
}

// Close fails every pending call with ErrClosed and rejects new ones.
// Handlers see their context cancelled.
func (d *Dispatcher) Close() {
	if d.closed.Swap(true) {
		return
	}
	d.cancel()
	for _, pc := range d.pending.drain() {
		d.metrics.pending.Dec()
		d.finish(pc, nil, ErrClosed, "closed")
	}
}

// take removes token from the registry under the lock shared with
// OnEnvelope, so a call is completed by exactly one party.
func (d *Dispatcher) take(token string) (*pendingCall, bool) {
	pc, ok := d.pending.take(token)
	if ok {
		d.metrics.pending.Dec()
	}
	return pc, ok
}

func (d *Dispatcher) abandon(pc *pendingCall, cause error) bool {
	taken, ok := d.take(pc.token)
	if !ok {
		return false
	}
	d.logger.Debug("call abandoned", "method", taken.method, "extra", taken.token)
	d.finish(taken, nil, cause, "abandoned")
	return true
}

// finish completes pc and closes its span. kind labels the failure, empty
// on success.
func (d *Dispatcher) finish(pc *pendingCall, obj tlrpc.Object, err error, kind string) {
	d.metrics.callDuration.WithLabelValues(pc.method, "async").Observe(d.now().Sub(pc.issuedAt).Seconds())
	if err != nil {
		d.metrics.callErrors.WithLabelValues(pc.method, kind).Inc()
		if pc.span != nil {
			pc.span.RecordError(err)
			pc.span.SetStatus(codes.Error, kind)
		}
	}
	if pc.span != nil {
		pc.span.End()
	}
	pc.complete(obj, err)
}

// IsRemote reports whether err carries a TDLib error reply.
func IsRemote(err error) bool {
	var re *tlrpc.RemoteError
	return errors.As(err, &re)
}
