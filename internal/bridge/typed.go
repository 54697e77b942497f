package bridge

import (
	"context"
	"fmt"

	"github.com/flemzord/tgbridge/internal/ratelimit"
	"github.com/flemzord/tgbridge/internal/tlrpc"
)

// Execute issues req asynchronously and waits for a reply decoded as T.
// Without a deadline on ctx the dispatcher's call timeout applies.
func Execute[T any, P tlrpc.Ptr[T]](ctx context.Context, d *Dispatcher, clientID int, req tlrpc.Object, key ratelimit.Key) (P, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.callTimeout)
		defer cancel()
	}

	call, err := d.IssueAsync(ctx, AsyncRequest{
		ClientID: clientID,
		Object:   req,
		Expect:   tlrpc.Factory[T, P](),
		Key:      key,
	})
	if err != nil {
		return nil, err
	}
	obj, err := call.Await(ctx)
	if err != nil {
		return nil, err
	}
	out, ok := obj.(P)
	if !ok {
		return nil, fmt.Errorf("bridge: %s reply has type %T", req.TypeName(), obj)
	}
	return out, nil
}

// ExecuteSync is IssueSync with the reply decoded as T.
func ExecuteSync[T any, P tlrpc.Ptr[T]](ctx context.Context, d *Dispatcher, req tlrpc.Object) (P, error) {
	obj, err := d.IssueSync(ctx, req, tlrpc.Factory[T, P]())
	if err != nil {
		return nil, err
	}
	out, ok := obj.(P)
	if !ok {
		return nil, fmt.Errorf("bridge: %s reply has type %T", req.TypeName(), obj)
	}
	return out, nil
}

// On registers h for events of type T sent to clientID. The event is
// decoded before h runs; a decode failure is reported as a handler error.
func On[T any, P tlrpc.Ptr[T]](d *Dispatcher, clientID int, h func(ctx context.Context, clientID int, ev P) error) (remove func()) {
	typ := P(new(T)).TypeName()
	return d.Handle(clientID, typ, func(ctx context.Context, ev Event) error {
		v, err := tlrpc.Decode[T, P](ev.Raw)
		if err != nil {
			return fmt.Errorf("decoding %s event: %w", typ, err)
		}
		return h(ctx, ev.ClientID, v)
	})
}
