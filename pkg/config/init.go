package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// InitConfig creates a default configuration file at the default location.
//
// The generated file contains all default values with explanatory comments,
// giving users a starting point to customize.
//
// Parameters:
//   - force: Overwrite an existing config file if true
//
// Returns:
//   - string: Path to the created config file
//   - error: Creation error, or an error if the file exists and force is false
func InitConfig(force bool) (string, error) {
	configPath := GetDefaultConfigPath()

	// Refuse to clobber an existing config unless forced
	if _, err := os.Stat(configPath); err == nil && !force {
		return "", fmt.Errorf("config file already exists at %s (use force to overwrite)", configPath)
	}

	// Ensure the config directory exists
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory %s: %w", configDir, err)
	}

	content := generateDefaultConfigYAML()
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write config file %s: %w", configPath, err)
	}

	return configPath, nil
}

// generateDefaultConfigYAML renders the default configuration as commented YAML.
func generateDefaultConfigYAML() string {
	cfg := GetDefaultConfig()

	return fmt.Sprintf(`# echosrv Configuration File
#
# This file was generated with default values. Uncomment and modify
# settings as needed. Environment variables (ECHOSRV_*) override values
# in this file, e.g. ECHOSRV_LOGGING_LEVEL=DEBUG.

# Logging configuration
logging:
  # Minimum log level: DEBUG, INFO, WARN, ERROR
  level: %s
  # Output format: text, json
  format: %s
  # Destination: stdout, stderr, or a file path
  output: %s

# Server-wide settings
server:
  # Maximum time to wait for in-flight connections during shutdown
  shutdown_timeout: %s

# Transport adapters. Each adapter serves the echo service over one
# transport. Network adapters (tcp, udp) bind an address; unix adapters
# bind a filesystem path.
#
# The inherit policy controls socket provisioning:
#   bind    - always bind a fresh socket
#   inherit - adopt an inherited descriptor (set inherit_fd, or leave it
#             at -1 to look the descriptor up by service_name)
#   auto    - use an inherited descriptor when the environment provides
#             one, otherwise bind
adapters:
  tcp:
    enabled: %t
    address: %s
    service_name: %s
    inherit: %s
    inherit_fd: %d
    buffer_size: %d
    read_timeout: %s
    write_timeout: %s
    # Maximum concurrent connections (0 = unlimited). Connections beyond
    # the limit are dropped immediately.
    max_connections: %d
    # Per-request limits (0 = unlimited)
    # max_request_size: 1048576
    # requests_per_second: 100
    # rate_burst: 200
    # Transport-specific options:
    # options:
    #   nodelay: true
    #   keepalive: 30s

  udp:
    enabled: %t
    address: %s
    service_name: %s
    inherit: %s
    buffer_size: %d
    read_timeout: %s
    write_timeout: %s

  unix_stream:
    enabled: %t
    path: %s
    service_name: %s
    inherit: %s
    buffer_size: %d
    read_timeout: %s
    write_timeout: %s
    max_connections: %d
    # Transport-specific options:
    # options:
    #   unlink_existing: true
    #   socket_mode: 0660

  unix_datagram:
    enabled: %t
    path: %s
    service_name: %s
    inherit: %s
    buffer_size: %d
    read_timeout: %s
    write_timeout: %s
    # options:
    #   unlink_existing: true
    #   socket_mode: 0660
`,
		cfg.Logging.Level,
		cfg.Logging.Format,
		cfg.Logging.Output,
		cfg.Server.ShutdownTimeout,
		cfg.Adapters.TCP.Enabled,
		cfg.Adapters.TCP.Address,
		cfg.Adapters.TCP.ServiceName,
		cfg.Adapters.TCP.Inherit,
		cfg.Adapters.TCP.InheritFD,
		cfg.Adapters.TCP.BufferSize,
		cfg.Adapters.TCP.ReadTimeout,
		cfg.Adapters.TCP.WriteTimeout,
		cfg.Adapters.TCP.MaxConnections,
		cfg.Adapters.UDP.Enabled,
		cfg.Adapters.UDP.Address,
		cfg.Adapters.UDP.ServiceName,
		cfg.Adapters.UDP.Inherit,
		cfg.Adapters.UDP.BufferSize,
		cfg.Adapters.UDP.ReadTimeout,
		cfg.Adapters.UDP.WriteTimeout,
		cfg.Adapters.UnixStream.Enabled,
		cfg.Adapters.UnixStream.Path,
		cfg.Adapters.UnixStream.ServiceName,
		cfg.Adapters.UnixStream.Inherit,
		cfg.Adapters.UnixStream.BufferSize,
		cfg.Adapters.UnixStream.ReadTimeout,
		cfg.Adapters.UnixStream.WriteTimeout,
		cfg.Adapters.UnixStream.MaxConnections,
		cfg.Adapters.UnixDatagram.Enabled,
		cfg.Adapters.UnixDatagram.Path,
		cfg.Adapters.UnixDatagram.ServiceName,
		cfg.Adapters.UnixDatagram.Inherit,
		cfg.Adapters.UnixDatagram.BufferSize,
		cfg.Adapters.UnixDatagram.ReadTimeout,
		cfg.Adapters.UnixDatagram.WriteTimeout,
	)
}
