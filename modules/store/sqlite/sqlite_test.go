package sqlite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/flemzord/tgbridge/internal/core"
	"github.com/flemzord/tgbridge/internal/kvstore"
)

func newTestModule(t *testing.T) *Module {
	t.Helper()

	dir := t.TempDir()
	m := &Module{config: Config{Path: filepath.Join(dir, "test.db")}}
	m.config.defaults()

	ctx := core.NewAppContext(slog.Default(), dir)
	if err := m.Provision(ctx); err != nil {
		t.Fatalf("provision: %v", err)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	t.Cleanup(func() {
		_ = m.Stop(context.Background())
	})
	return m
}

func TestStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestModule(t).Store()

	if _, err := s.Get(ctx, "session", "bot"); !errors.Is(err, kvstore.ErrNotFound) {
		t.Fatalf("get missing: err = %v, want ErrNotFound", err)
	}

	if err := s.Put(ctx, "session", "bot", []byte("authorizationStateWaitTdlibParameters")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put(ctx, "session", "bot", []byte("authorizationStateReady")); err != nil {
		t.Fatalf("put (replace): %v", err)
	}

	got, err := s.Get(ctx, "session", "bot")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "authorizationStateReady" {
		t.Errorf("get = %q, want authorizationStateReady", got)
	}

	if err := s.Delete(ctx, "session", "bot"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "session", "bot"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
	if _, err := s.Get(ctx, "session", "bot"); !errors.Is(err, kvstore.ErrNotFound) {
		t.Errorf("get after delete: err = %v, want ErrNotFound", err)
	}
}

func TestStore_EmptyValue(t *testing.T) {
	ctx := context.Background()
	s := newTestModule(t).Store()

	if err := s.Put(ctx, "ns", "empty", nil); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := s.Get(ctx, "ns", "empty")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("get = %q, want empty", got)
	}
}

func TestStore_KeysAreNamespaced(t *testing.T) {
	ctx := context.Background()
	s := newTestModule(t).Store()

	for _, k := range []string{"c", "a", "b"} {
		if err := s.Put(ctx, "session", k, []byte(k)); err != nil {
			t.Fatalf("put %s: %v", k, err)
		}
	}
	if err := s.Put(ctx, "plugin.joinrequests", "a", []byte("x")); err != nil {
		t.Fatalf("put: %v", err)
	}

	keys, err := s.Keys(ctx, "session")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if want := []string{"a", "b", "c"}; !slices.Equal(keys, want) {
		t.Errorf("keys = %v, want %v", keys, want)
	}

	keys, err = s.Keys(ctx, "empty")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("keys of empty namespace = %v", keys)
	}
}

func TestStore_ConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	s := newTestModule(t).Store()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := fmt.Sprintf("k%02d", i)
			if err := s.Put(ctx, "ns", key, []byte(key)); err != nil {
				t.Errorf("put %s: %v", key, err)
			}
		}()
	}
	wg.Wait()

	keys, err := s.Keys(ctx, "ns")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 20 {
		t.Errorf("got %d keys, want 20", len(keys))
	}
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "dir", "kv.db")

	s, err := Open(ctx, Config{Path: path})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Put(ctx, "session", "bot", []byte("ready")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = Open(ctx, Config{Path: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = s.Close() }()

	got, err := s.Get(ctx, "session", "bot")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "ready" {
		t.Errorf("get = %q, want ready", got)
	}
}

func TestModule_RegistersService(t *testing.T) {
	dir := t.TempDir()
	ctx := core.NewAppContext(slog.Default(), dir)

	mod, err := ctx.LoadModule("store.sqlite")
	if err != nil {
		t.Fatalf("LoadModule: %v", err)
	}
	defer func() { _ = mod.(core.Stopper).Stop(context.Background()) }()

	store, err := core.Service[kvstore.Store](ctx, kvstore.ServiceName)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	if err := store.Put(context.Background(), "ns", "k", []byte("v")); err != nil {
		t.Fatalf("put: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "defaults", cfg: Config{}},
		{name: "negative busy timeout", cfg: Config{BusyTimeout: -1}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.defaults()
			if err := tt.cfg.validate(); (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
