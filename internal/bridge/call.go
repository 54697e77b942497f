package bridge

import (
	"context"
	"fmt"

	"github.com/flemzord/tgbridge/internal/tlrpc"
)

// Call is the caller's handle on an async request.
type Call struct {
	d  *Dispatcher
	pc *pendingCall
}

// Token returns the correlation token sent as @extra.
func (c *Call) Token() string { return c.pc.token }

// Method returns the @type of the request.
func (c *Call) Method() string { return c.pc.method }

// Done is closed once the call is fulfilled or abandoned.
func (c *Call) Done() <-chan struct{} { return c.pc.ready }

// Await blocks until the reply arrives or ctx is done. On ctx expiry the
// call is abandoned; if the reply won the race, the reply is returned.
// Await may be called any number of times and from several goroutines.
func (c *Call) Await(ctx context.Context) (tlrpc.Object, error) {
	select {
	case <-c.pc.ready:
		return c.pc.obj, c.pc.err
	case <-ctx.Done():
	}
	c.d.abandon(c.pc, fmt.Errorf("%w: %w", ErrAbandoned, ctx.Err()))
	<-c.pc.ready
	return c.pc.obj, c.pc.err
}

// Abandon stops waiting for the reply. A late reply is then treated as a
// dangling correlation. It reports whether the call was still pending.
func (c *Call) Abandon() bool {
	return c.d.abandon(c.pc, ErrAbandoned)
}
