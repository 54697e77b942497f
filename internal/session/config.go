package session

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the session.manager module configuration.
type Config struct {
	APIID              int32  `yaml:"api_id"`
	APIHash            string `yaml:"api_hash"`
	UseTestDC          bool   `yaml:"use_test_dc"`
	SystemLanguageCode string `yaml:"system_language_code"`
	DeviceModel        string `yaml:"device_model"`
	ApplicationVersion string `yaml:"application_version"`

	// AuthTimeout bounds each call of the authorization flow.
	AuthTimeout time.Duration `yaml:"auth_timeout"`

	Sessions []SessionConfig `yaml:"sessions"`
}

// SessionConfig describes one logical TDLib client.
type SessionConfig struct {
	// Name designates the session in logs, the store and the admin surface.
	Name string `yaml:"name"`

	// Exactly one of BotToken and PhoneNumber should be set.
	BotToken    string `yaml:"bot_token"`
	PhoneNumber string `yaml:"phone_number"`

	// DatabaseDir defaults to {DataDir}/tdlib/{Name}.
	DatabaseDir   string `yaml:"database_dir"`
	EncryptionKey string `yaml:"encryption_key"`
}

func (c *Config) defaults() {
	if c.SystemLanguageCode == "" {
		c.SystemLanguageCode = "en"
	}
	if c.DeviceModel == "" {
		c.DeviceModel = "tgbridge"
	}
	if c.ApplicationVersion == "" {
		c.ApplicationVersion = "1.0"
	}
	if c.AuthTimeout <= 0 {
		c.AuthTimeout = 30 * time.Second
	}
}

func (c *Config) validate() error {
	var errs []error
	if c.APIID <= 0 {
		errs = append(errs, errors.New("api_id is required"))
	}
	if c.APIHash == "" {
		errs = append(errs, errors.New("api_hash is required"))
	}
	seen := make(map[string]bool, len(c.Sessions))
	for i, s := range c.Sessions {
		switch {
		case s.Name == "":
			errs = append(errs, fmt.Errorf("sessions[%d]: name is required", i))
		case seen[s.Name]:
			errs = append(errs, fmt.Errorf("sessions[%d]: duplicate name %q", i, s.Name))
		}
		seen[s.Name] = true
		if (s.BotToken == "") == (s.PhoneNumber == "") {
			errs = append(errs, fmt.Errorf("sessions[%d]: exactly one of bot_token and phone_number must be set", i))
		}
	}
	return errors.Join(errs...)
}

// Secrets returns every credential in the configuration, for log redaction.
func (c *Config) Secrets() []string {
	var out []string
	if c.APIHash != "" {
		out = append(out, c.APIHash)
	}
	for _, s := range c.Sessions {
		if s.BotToken != "" {
			out = append(out, s.BotToken)
		}
		if s.EncryptionKey != "" {
			out = append(out, s.EncryptionKey)
		}
	}
	return out
}
