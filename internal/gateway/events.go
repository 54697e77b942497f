package gateway

import (
	"bytes"
	"context"
	"net/http"
	"slices"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/flemzord/tgbridge/internal/tlrpc"
)

// eventFilter selects the envelopes forwarded to one subscriber. The zero
// value forwards everything.
type eventFilter struct {
	clientID *int
	types    []string
}

func parseEventFilter(r *http.Request) (eventFilter, error) {
	var f eventFilter
	q := r.URL.Query()
	if s := q.Get("client_id"); s != "" {
		id, err := strconv.Atoi(s)
		if err != nil {
			return f, err
		}
		f.clientID = &id
	}
	f.types = q["type"]
	return f, nil
}

func (f eventFilter) match(doc []byte) bool {
	if f.clientID != nil && tlrpc.ClientID(doc) != *f.clientID {
		return false
	}
	if len(f.types) > 0 {
		typ, ok := tlrpc.Discriminant(doc)
		if !ok || !slices.Contains(f.types, typ) {
			return false
		}
	}
	return true
}

// handleEvents streams every envelope seen by the poll loop, including
// replies, over a WebSocket. Query parameters client_id and type (repeatable)
// narrow the stream.
func (g *Gateway) handleEvents() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.bridge == nil {
			http.Error(w, "bridge not available", http.StatusServiceUnavailable)
			return
		}
		filter, err := parseEventFilter(r)
		if err != nil {
			http.Error(w, "invalid client_id", http.StatusBadRequest)
			return
		}

		// The tap is in place before the handshake completes so the
		// subscriber sees every envelope after its dial returns.
		queue := make(chan []byte, g.config.EventBuffer)
		var dropped atomic.Int64
		remove := g.bridge.Dispatcher().Tap(func(doc []byte) {
			if !filter.match(doc) {
				return
			}
			select {
			case queue <- bytes.Clone(doc):
			default:
				dropped.Add(1)
			}
		})
		defer remove()

		// The server's read and write timeouts would otherwise cut long-lived
		// streams; the deadlines stay on the connection after the hijack.
		rc := http.NewResponseController(w)
		_ = rc.SetReadDeadline(time.Time{})
		_ = rc.SetWriteDeadline(time.Time{})

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			g.logger.Error("websocket accept failed", "error", err)
			return
		}
		defer func() {
			_ = conn.Close(websocket.StatusInternalError, "unexpected close")
		}()

		// CloseRead discards client frames and cancels ctx once the peer goes away.
		ctx := conn.CloseRead(r.Context())
		g.logger.Info("event subscriber connected", "remote_addr", r.RemoteAddr)

		err = g.forward(ctx, conn, queue)
		g.logger.Info("event subscriber disconnected",
			"remote_addr", r.RemoteAddr,
			"dropped", dropped.Load(),
			"error", err,
		)
		if err == nil {
			_ = conn.Close(websocket.StatusNormalClosure, "")
		}
	}
}

func (g *Gateway) forward(ctx context.Context, conn *websocket.Conn, queue <-chan []byte) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-g.done:
			_ = conn.Close(websocket.StatusGoingAway, "shutting down")
			return nil
		case doc := <-queue:
			writeCtx, cancel := context.WithTimeout(ctx, g.config.WriteTimeout)
			err := conn.Write(writeCtx, websocket.MessageText, doc)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}
