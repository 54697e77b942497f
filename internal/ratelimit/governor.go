package ratelimit

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// ClassConfig sizes one named bucket.
type ClassConfig struct {
	Capacity int           `yaml:"capacity"`
	Interval time.Duration `yaml:"interval"`
}

// Key addresses one entry of one class, e.g. {Class: "send", Subject: "chat:-100123"}.
// The zero Key means "not rate limited".
type Key struct {
	Class   string
	Subject string
}

// IsZero reports whether k names no class.
func (k Key) IsZero() bool { return k.Class == "" }

func (k Key) String() string { return k.Class + "/" + k.Subject }

// Governor groups named token buckets. Classes are fixed at construction.
type Governor struct {
	classes map[string]*TokenBucket[string]
}

// NewGovernor builds one bucket per configured class.
func NewGovernor(classes map[string]ClassConfig, opts ...Option) (*Governor, error) {
	g := &Governor{classes: make(map[string]*TokenBucket[string], len(classes))}
	var errs []error
	for name, cfg := range classes {
		b, err := NewTokenBucket[string](cfg.Capacity, cfg.Interval, opts...)
		if err != nil {
			errs = append(errs, fmt.Errorf("class %q: %w", name, err))
			continue
		}
		g.classes[name] = b
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return g, nil
}

// TryConsume checks key against its class. A zero key or a class without
// configuration is always granted.
func (g *Governor) TryConsume(key Key, cost int) (Result, error) {
	if g == nil || key.IsZero() {
		return Result{Granted: true}, nil
	}
	b, ok := g.classes[key.Class]
	if !ok {
		// Unknown class = no limit configured.
		return Result{Granted: true}, nil
	}
	return b.TryConsumeN(key.Subject, cost)
}

// Reset clears every class.
func (g *Governor) Reset() {
	for _, b := range g.classes {
		b.Reset()
	}
}

// Classes returns the configured class names, sorted.
func (g *Governor) Classes() []string {
	names := make([]string, 0, len(g.classes))
	for name := range g.classes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Snapshot returns the current tokens per subject, per class.
func (g *Governor) Snapshot() map[string]map[string]int {
	out := make(map[string]map[string]int, len(g.classes))
	for name, b := range g.classes {
		out[name] = b.Snapshot()
	}
	return out
}
