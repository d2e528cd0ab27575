package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/divoxx/echosrv/pkg/activation"
	"github.com/divoxx/echosrv/pkg/server"
)

// Config represents the complete echosrv configuration.
//
// This structure captures all configurable aspects of the echo server including:
//   - Logging configuration
//   - Server-wide settings
//   - Per-transport adapter configurations
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (ECHOSRV_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
//
// Adapter Configuration Pattern:
// Each transport defines the same adapter shape; network transports use the
// address field, unix transports use the path field. Transport-specific knobs
// go in the options map and are decoded by the transport itself.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains server-wide settings
	Server ServerConfig `mapstructure:"server"`

	// Adapters contains per-transport adapter configurations
	Adapters AdaptersConfig `mapstructure:"adapters"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// ServerConfig contains server-wide settings.
type ServerConfig struct {
	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`
}

// AdaptersConfig contains all transport adapter configurations.
type AdaptersConfig struct {
	// TCP contains the TCP stream adapter configuration
	TCP AdapterConfig `mapstructure:"tcp"`

	// UDP contains the UDP datagram adapter configuration
	UDP AdapterConfig `mapstructure:"udp"`

	// UnixStream contains the unix stream adapter configuration
	UnixStream AdapterConfig `mapstructure:"unix_stream"`

	// UnixDatagram contains the unix datagram adapter configuration
	UnixDatagram AdapterConfig `mapstructure:"unix_datagram"`
}

// AdapterConfig configures a single transport adapter.
//
// Network transports (tcp, udp) use Address; unix transports use Path.
// The Inherit field selects the socket provisioning policy:
//   - "bind":    always bind a fresh socket at the configured target
//   - "inherit": adopt the inherited descriptor identified by InheritFD
//     (or looked up by service name when InheritFD is negative)
//   - "auto":    prefer an inherited descriptor when the environment
//     provides one, otherwise bind
type AdapterConfig struct {
	// Enabled turns the adapter on
	Enabled bool `mapstructure:"enabled"`

	// Address is the host:port to serve on (network transports only)
	Address string `mapstructure:"address"`

	// Path is the filesystem socket path (unix transports only)
	Path string `mapstructure:"path"`

	// ServiceName identifies this adapter's socket in the inheritance
	// environment (LISTEN_FDNAMES entry)
	ServiceName string `mapstructure:"service_name" validate:"required"`

	// Inherit selects the socket provisioning policy
	Inherit string `mapstructure:"inherit" validate:"omitempty,oneof=bind inherit auto"`

	// InheritFD pins the adapter to a specific inherited descriptor.
	// Negative means "look up by service name".
	InheritFD int `mapstructure:"inherit_fd"`

	// BufferSize is the per-connection read buffer size in bytes
	BufferSize int `mapstructure:"buffer_size" validate:"min=0"`

	// ReadTimeout bounds a single read from a peer
	ReadTimeout time.Duration `mapstructure:"read_timeout" validate:"min=0"`

	// WriteTimeout bounds a single write to a peer
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"min=0"`

	// MaxConnections caps concurrent connections (stream adapters only,
	// 0 = unlimited)
	MaxConnections int `mapstructure:"max_connections" validate:"min=0"`

	// MaxRequestSize caps a single request in bytes (0 = unlimited)
	MaxRequestSize int `mapstructure:"max_request_size" validate:"min=0"`

	// RequestsPerSecond throttles each client (0 = unlimited)
	RequestsPerSecond uint `mapstructure:"requests_per_second"`

	// RateBurst is the per-client burst capacity (0 = same as
	// requests_per_second)
	RateBurst uint `mapstructure:"rate_burst"`

	// Options holds transport-specific settings decoded by the transport
	Options map[string]any `mapstructure:"options"`
}

// BindStrategy converts the adapter's inherit policy into a socket
// provisioning strategy. pathBased selects a filesystem-path bind target
// instead of a network address.
func (a AdapterConfig) BindStrategy(pathBased bool) activation.Strategy {
	var target activation.BindTarget
	if pathBased {
		target = activation.UnixPathTarget(a.Path)
	} else {
		target = activation.NetworkTarget(a.Address)
	}

	switch a.Inherit {
	case "inherit":
		return activation.Inherit(a.InheritFD)
	case "bind":
		return activation.Bind(target)
	default: // "auto"
		return activation.InheritOrBind(a.InheritFD, target)
	}
}

// ServerConfig builds the server configuration for this adapter.
func (a AdapterConfig) ServerConfig(pathBased bool) server.Config {
	return server.Config{
		ServiceName:       a.ServiceName,
		Strategy:          a.BindStrategy(pathBased),
		BufferSize:        a.BufferSize,
		ReadTimeout:       a.ReadTimeout,
		WriteTimeout:      a.WriteTimeout,
		MaxConnections:    int32(a.MaxConnections),
		MaxRequestSize:    a.MaxRequestSize,
		RequestsPerSecond: a.RequestsPerSecond,
		RateBurst:         a.RateBurst,
		Options:           a.Options,
	}
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (ECHOSRV_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Configure viper
	setupViper(v, configPath)

	// Read configuration file if it exists
	if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	// Unmarshal into config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply defaults for any missing values
	ApplyDefaults(&cfg)

	// Validate configuration
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Set up environment variable support
	// Environment variables use ECHOSRV_ prefix and underscores
	// Example: ECHOSRV_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("ECHOSRV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Configure config file search
	if configPath != "" {
		// Use explicitly specified config file
		v.SetConfigFile(configPath)
	} else {
		// Use default location: $XDG_CONFIG_HOME/echosrv/config.yaml
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper, configPath string) error {
	if err := v.ReadInConfig(); err != nil {
		// Check if error is "config file not found"
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found is acceptable - use defaults
			return nil
		}
		// Other errors are problems
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	// Check XDG_CONFIG_HOME
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "echosrv")
	}

	// Fall back to ~/.config
	home, err := os.UserHomeDir()
	if err != nil {
		// If we can't get home dir, use current directory as last resort
		return "."
	}

	return filepath.Join(home, ".config", "echosrv")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	path := GetDefaultConfigPath()
	_, err := os.Stat(path)
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
