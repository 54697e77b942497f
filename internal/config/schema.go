// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for tgbridge.
package config

import "gopkg.in/yaml.v3"

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// DataDir holds TDLib databases and the key-value store. The command
	// line flag takes precedence.
	DataDir string `yaml:"data_dir,omitempty"`

	// Log configures the process logger.
	Log LogConfig `yaml:"log,omitempty"`

	// Modules maps module IDs to their raw YAML configuration.
	// Keys must match registered module IDs (e.g. "bridge.tdlib").
	Modules map[string]yaml.Node `yaml:"modules"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `yaml:"level,omitempty"`

	// Format is "text" or "json".
	Format string `yaml:"format,omitempty"`
}
