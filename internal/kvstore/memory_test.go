package kvstore

import (
	"context"
	"errors"
	"slices"
	"testing"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, err := m.Get(ctx, "session", "bot"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() on empty store error = %v, want ErrNotFound", err)
	}

	value := []byte("ready")
	if err := m.Put(ctx, "session", "bot", value); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	value[0] = 'X'

	got, err := m.Get(ctx, "session", "bot")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "ready" {
		t.Errorf("Get() = %q, want %q (value must be copied)", got, "ready")
	}

	_ = m.Put(ctx, "session", "alpha", nil)
	_ = m.Put(ctx, "other", "bot", []byte("x"))

	keys, _ := m.Keys(ctx, "session")
	if want := []string{"alpha", "bot"}; !slices.Equal(keys, want) {
		t.Errorf("Keys() = %v, want %v", keys, want)
	}

	if err := m.Delete(ctx, "session", "bot"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := m.Delete(ctx, "session", "missing"); err != nil {
		t.Fatalf("Delete() of missing key error = %v", err)
	}
	if _, err := m.Get(ctx, "session", "bot"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after Delete error = %v, want ErrNotFound", err)
	}
	if _, err := m.Get(ctx, "other", "bot"); err != nil {
		t.Errorf("namespaces must be independent: %v", err)
	}
}
