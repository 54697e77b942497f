package bridge

import (
	"errors"
	"fmt"
	"time"

	"github.com/flemzord/tgbridge/internal/ratelimit"
)

// Config holds the bridge.tdlib module configuration.
type Config struct {
	PollTimeout   time.Duration `yaml:"poll_timeout"`
	CallTimeout   time.Duration `yaml:"call_timeout"`
	MaxPendingAge time.Duration `yaml:"max_pending_age"`

	// LogVerbosity is applied with a synchronous setLogVerbosityLevel when
	// the bridge starts.
	LogVerbosity *int32 `yaml:"log_verbosity"`

	// RateLimits maps a class name, used as ratelimit.Key.Class, to its
	// bucket size.
	RateLimits map[string]ratelimit.ClassConfig `yaml:"rate_limits"`
}

const defaultLogVerbosity int32 = 1

// defaults fills zero values with sensible defaults.
func (c *Config) defaults() {
	if c.PollTimeout <= 0 {
		c.PollTimeout = DefaultPollTimeout
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	if c.MaxPendingAge <= 0 {
		c.MaxPendingAge = 5 * time.Minute
	}
	if c.LogVerbosity == nil {
		v := defaultLogVerbosity
		c.LogVerbosity = &v
	}
}

func (c *Config) validate() error {
	var errs []error
	if c.LogVerbosity != nil && (*c.LogVerbosity < 0 || *c.LogVerbosity > 1023) {
		errs = append(errs, fmt.Errorf("log_verbosity %d out of range [0, 1023]", *c.LogVerbosity))
	}
	if c.MaxPendingAge < c.CallTimeout {
		errs = append(errs, fmt.Errorf("max_pending_age (%s) must not be shorter than call_timeout (%s)", c.MaxPendingAge, c.CallTimeout))
	}
	for name, rl := range c.RateLimits {
		if name == "" {
			errs = append(errs, errors.New("rate_limits: empty class name"))
		}
		if rl.Capacity < 1 || rl.Interval <= 0 {
			errs = append(errs, fmt.Errorf("rate_limits.%s: capacity and interval must be positive", name))
		}
	}
	return errors.Join(errs...)
}
