package joinrequests

import (
	"errors"
	"fmt"
	"time"
)

const (
	actionApprove = "approve"
	actionDecline = "decline"
)

// Config holds the join request plugin configuration.
type Config struct {
	// Session is the name of the session.manager session to listen on.
	Session string `yaml:"session"`

	// Action is "approve" or "decline".
	Action string `yaml:"action"`

	// Chats restricts the plugin to these chat ids. Empty means every chat
	// the session administers.
	Chats []int64 `yaml:"chats"`

	// RateLimitClass is the governor class for processChatJoinRequest,
	// keyed per chat.
	RateLimitClass string `yaml:"rate_limit_class"`

	// Welcome, when set, is sent privately to each approved user.
	Welcome      string `yaml:"welcome"`
	WelcomeClass string `yaml:"welcome_class"`

	Timeout time.Duration `yaml:"timeout"`
}

func (c *Config) defaults() {
	if c.Action == "" {
		c.Action = actionApprove
	}
	if c.RateLimitClass == "" {
		c.RateLimitClass = "join"
	}
	if c.WelcomeClass == "" {
		c.WelcomeClass = "send"
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
}

func (c *Config) validate() error {
	var errs []error
	if c.Session == "" {
		errs = append(errs, errors.New("session is required"))
	}
	switch c.Action {
	case actionApprove, actionDecline:
	default:
		errs = append(errs, fmt.Errorf("invalid action %q (must be %q or %q)", c.Action, actionApprove, actionDecline))
	}
	if c.Welcome != "" && c.Action != actionApprove {
		errs = append(errs, errors.New("welcome requires action approve"))
	}
	return errors.Join(errs...)
}
