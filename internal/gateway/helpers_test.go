package gateway

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/flemzord/tgbridge/internal/bridge"
	"github.com/flemzord/tgbridge/internal/native/nativetest"
	"github.com/flemzord/tgbridge/internal/session"
	"github.com/flemzord/tgbridge/internal/session/sessiontest"
)

// testBackend is a running bridge with two bot sessions: "good" logs in,
// "bad" is rejected with an invalid token.
type testBackend struct {
	engine   *nativetest.Engine
	bridge   *bridge.Bridge
	sessions *session.Manager
}

func newTestBackend(t *testing.T) *testBackend {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	eng := nativetest.New(256)
	eng.OnSend = sessiontest.LoginScript
	b := bridge.New(eng, bridge.Config{PollTimeout: 5 * time.Millisecond}, bridge.Options{Logger: logger})
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("bridge start: %v", err)
	}

	mgr := session.NewManager(b, nil, session.Config{
		APIID:       1,
		APIHash:     "hash",
		AuthTimeout: time.Second,
		Sessions: []session.SessionConfig{
			{Name: "good", BotToken: sessiontest.GoodToken},
			{Name: "bad", BotToken: "1:bad"},
		},
	}, t.TempDir(), logger)
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("session start: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = mgr.Stop(ctx)
		_ = b.Stop(ctx)
	})

	waitFor(t, func() bool {
		states := map[string]session.AuthState{}
		for _, s := range mgr.Sessions() {
			states[s.Name] = s.State
		}
		return states["good"] == session.StateAuthorized && states["bad"] == session.StateInvalidCredentials
	})
	return &testBackend{engine: eng, bridge: b, sessions: mgr}
}

// waitFor polls cond until it holds or two seconds pass.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met within 2s")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
