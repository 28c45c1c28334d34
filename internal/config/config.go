// Package config loads pixelbridged configuration from a TOML file with
// sensible defaults for every knob. Environment variables override the file
// for the settings an operator most often changes.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the full daemon configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Handles HandlesConfig `toml:"handles"`
	Logging LoggingConfig `toml:"logging"`
}

// ServerConfig holds socket and framing settings.
type ServerConfig struct {
	// Host is the bind address. Loopback by default; the protocol carries no
	// authentication, so exposing it wider is the operator's decision.
	Host string `toml:"host"`
	Port int    `toml:"port"`
	// ReadTimeoutSeconds bounds the wait for the next frame on an open
	// connection. Zero disables the timeout.
	ReadTimeoutSeconds int `toml:"readTimeoutSeconds"`
	// InvokeTimeoutSeconds caps one invocation's wall time. Zero (the
	// default) means no ceiling: image operations can legitimately be slow.
	// A timed-out waiter abandons the reply; the invocation itself still
	// runs to completion on the engine.
	InvokeTimeoutSeconds int `toml:"invokeTimeoutSeconds"`
	// MaxFrameBytes is the inbound frame size ceiling.
	MaxFrameBytes int `toml:"maxFrameBytes"`
	// KeepAlive keeps connections open for further commands. Off reproduces
	// the one-command-per-connection behavior some clients expect.
	KeepAlive bool `toml:"keepAlive"`
}

// HandlesConfig tunes the object handle table.
type HandlesConfig struct {
	TTLMinutes int `toml:"ttlMinutes"`
}

// LoggingConfig holds logging knobs.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "127.0.0.1",
			Port:               9876,
			ReadTimeoutSeconds: 120,
			MaxFrameBytes:      1 << 20,
			KeepAlive:          true,
		},
		Handles: HandlesConfig{TTLMinutes: 60},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Dir returns the config directory.
// Resolution order: $PIXELBRIDGE_CONFIG_DIR > $XDG_CONFIG_HOME/pixelbridge > ~/.config/pixelbridge
func Dir() string {
	if dir := os.Getenv("PIXELBRIDGE_CONFIG_DIR"); dir != "" {
		return dir
	}
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "pixelbridge")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("/tmp", "pixelbridge-config")
	}
	return filepath.Join(home, ".config", "pixelbridge")
}

// Path returns the full path to the config file.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// Load reads the config file at path, or defaults if it does not exist.
// Missing keys keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.MaxFrameBytes < 0 {
		return fmt.Errorf("server.maxFrameBytes must not be negative")
	}
	return nil
}

// ListenAddr returns the address to bind.
// Priority: $PIXELBRIDGE_LISTEN env > config values.
func (c *Config) ListenAddr() string {
	if addr := os.Getenv("PIXELBRIDGE_LISTEN"); addr != "" {
		return addr
	}
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// ReadTimeout returns the per-connection read timeout.
func (c *ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

// InvokeTimeout returns the invocation ceiling, zero for none.
func (c *ServerConfig) InvokeTimeout() time.Duration {
	return time.Duration(c.InvokeTimeoutSeconds) * time.Second
}

// TTL returns the handle lifetime.
func (c *HandlesConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}
