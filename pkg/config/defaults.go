package config

import (
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Transport-specific option defaults are handled by the transports
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyAdaptersDefaults(&cfg.Adapters)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyServerDefaults sets server defaults.
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyAdaptersDefaults sets adapter defaults.
func applyAdaptersDefaults(cfg *AdaptersConfig) {
	// Enable the TCP adapter by default if no adapters are configured.
	// This ensures that a freshly loaded config (with no config file) will
	// have at least one adapter enabled and pass validation.
	// Users can explicitly set enabled: false in their config to disable it.
	if !cfg.TCP.Enabled && !cfg.UDP.Enabled && !cfg.UnixStream.Enabled && !cfg.UnixDatagram.Enabled {
		if cfg.TCP.Address == "" {
			cfg.TCP.Enabled = true
		}
	}

	applyAdapterDefaults(&cfg.TCP, "tcp-echo", "127.0.0.1:7777", "")
	applyAdapterDefaults(&cfg.UDP, "udp-echo", "127.0.0.1:7777", "")
	applyAdapterDefaults(&cfg.UnixStream, "unix-stream-echo", "", "/tmp/echosrv.sock")
	applyAdapterDefaults(&cfg.UnixDatagram, "unix-datagram-echo", "", "/tmp/echosrv-dgram.sock")
}

// applyAdapterDefaults sets per-adapter defaults.
func applyAdapterDefaults(cfg *AdapterConfig, serviceName, address, path string) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = serviceName
	}
	if cfg.Address == "" {
		cfg.Address = address
	}
	if cfg.Path == "" {
		cfg.Path = path
	}

	if cfg.Inherit == "" {
		cfg.Inherit = "auto"
	}
	// A descriptor was never explicitly configured; use service name lookup.
	if cfg.InheritFD == 0 {
		cfg.InheritFD = -1
	}

	if cfg.BufferSize == 0 {
		cfg.BufferSize = 1024
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 30 * time.Second
	}

	// MaxConnections defaults to 0 (unlimited)

	if cfg.Options == nil {
		cfg.Options = make(map[string]any)
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Adapters: AdaptersConfig{
			TCP: AdapterConfig{
				Enabled: true, // TCP adapter enabled by default
			},
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
