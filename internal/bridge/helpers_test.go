package bridge

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flemzord/tgbridge/internal/native/nativetest"
	"github.com/flemzord/tgbridge/internal/ratelimit"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// sequentialTokens returns a token generator producing tok-1, tok-2, ...
func sequentialTokens() func() string {
	var n atomic.Int64
	return func() string { return fmt.Sprintf("tok-%d", n.Add(1)) }
}

func newTestDispatcher(t *testing.T, opts Options) (*Dispatcher, *nativetest.Engine) {
	t.Helper()
	eng := nativetest.New(64)
	if opts.NewToken == nil {
		opts.NewToken = sequentialTokens()
	}
	d := NewDispatcher(eng, opts)
	t.Cleanup(d.Close)
	return d, eng
}

func userReply(token string, id int64) []byte {
	return fmt.Appendf(nil, `{"@type":"user","@extra":%q,"id":%d,"first_name":"user %d"}`, token, id, id)
}

func mustGovernor(t *testing.T, classes map[string]ratelimit.ClassConfig, opts ...ratelimit.Option) *ratelimit.Governor {
	t.Helper()
	g, err := ratelimit.NewGovernor(classes, opts...)
	if err != nil {
		t.Fatalf("NewGovernor() error = %v", err)
	}
	return g
}
