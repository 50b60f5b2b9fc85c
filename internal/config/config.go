// Package config loads the context hub configuration.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dogood/context-hub/pkg/contextstore"
	"github.com/dogood/context-hub/pkg/mcpbridge"
)

// Transport values for the serving side.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Config holds the complete context hub configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Session SessionConfig `yaml:"session"`
	API     APIConfig     `yaml:"api"`
	MCP     MCPConfig     `yaml:"mcp"`
	Bridge  BridgeConfig  `yaml:"bridge"`
}

// ServerConfig configures the serving surface.
type ServerConfig struct {
	Name      string `yaml:"name"`
	Version   string `yaml:"version"`
	Transport string `yaml:"transport"` // "stdio", "http"
	Address   string `yaml:"address"`
}

// SessionConfig configures the session store.
type SessionConfig struct {
	TTL             time.Duration `yaml:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	Eviction        string        `yaml:"eviction"` // "session_start", "last_touch"
}

// APIConfig configures the HTTP context API.
type APIConfig struct {
	FallbackSessionID string `yaml:"fallback_session_id"`
	RequireSessionID  bool   `yaml:"require_session_id"`
	Source            string `yaml:"source"`
}

// MCPConfig configures the MCP tool server.
type MCPConfig struct {
	FallbackSessionID string `yaml:"fallback_session_id"`
	RequireSessionID  bool   `yaml:"require_session_id"`
	Source            string `yaml:"source"`
}

// BridgeConfig configures the outbound MCP bridge. The bridge is disabled
// unless a transport is set.
type BridgeConfig struct {
	Transport      string        `yaml:"transport"` // "stdio", "streamable"
	Command        string        `yaml:"command"`
	Args           []string      `yaml:"args"`
	Endpoint       string        `yaml:"endpoint"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	Source         string        `yaml:"source"`
}

// Enabled reports whether an outbound bridge is configured.
func (b BridgeConfig) Enabled() bool {
	return b.Transport != ""
}

// Load reads, expands, and defaults a config file.
func Load(path string) (*Config, error) {
	// #nosec G304 -- path is from CLI args, controlled by admin
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	data = []byte(expandEnvVars(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// expandEnvVars expands ${VAR} patterns in the string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// applyDefaults applies default values to the config.
func applyDefaults(cfg *Config) {
	if cfg.Server.Name == "" {
		cfg.Server.Name = "context-hub"
	}
	if cfg.Server.Version == "" {
		cfg.Server.Version = "1.0.0"
	}
	if cfg.Server.Transport == "" {
		cfg.Server.Transport = TransportHTTP
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = contextstore.DefaultTTL
	}
	if cfg.Session.CleanupInterval == 0 {
		cfg.Session.CleanupInterval = contextstore.DefaultCleanupInterval
	}
	if cfg.Session.Eviction == "" {
		cfg.Session.Eviction = string(contextstore.EvictSessionStart)
	}
	if cfg.Bridge.Enabled() && cfg.Bridge.MaxAttempts == 0 {
		cfg.Bridge.MaxAttempts = mcpbridge.DefaultMaxAttempts
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	switch c.Server.Transport {
	case TransportStdio, TransportHTTP:
	default:
		errs = append(errs, fmt.Sprintf("server.transport %q is not supported", c.Server.Transport))
	}

	if c.Server.Transport == TransportHTTP && c.Server.Address == "" {
		errs = append(errs, "server.address is required for http transport")
	}

	switch contextstore.EvictionBasis(c.Session.Eviction) {
	case contextstore.EvictSessionStart, contextstore.EvictLastTouch:
	default:
		errs = append(errs, fmt.Sprintf("session.eviction %q is not supported", c.Session.Eviction))
	}

	if c.Session.TTL < 0 {
		errs = append(errs, "session.ttl must not be negative")
	}

	if c.Bridge.Enabled() {
		switch c.Bridge.Transport {
		case mcpbridge.TransportStdio:
			if c.Bridge.Command == "" {
				errs = append(errs, "bridge.command is required for stdio transport")
			}
		case mcpbridge.TransportStreamable:
			if c.Bridge.Endpoint == "" {
				errs = append(errs, "bridge.endpoint is required for streamable transport")
			}
		default:
			errs = append(errs, fmt.Sprintf("bridge.transport %q is not supported", c.Bridge.Transport))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// StoreConfig converts the session section into a store configuration.
func (c *Config) StoreConfig() contextstore.MemoryStoreConfig {
	return contextstore.MemoryStoreConfig{
		TTL:             c.Session.TTL,
		CleanupInterval: c.Session.CleanupInterval,
		EvictionBasis:   contextstore.EvictionBasis(c.Session.Eviction),
	}
}

// BridgeClientConfig converts the bridge section into a client configuration.
func (c *Config) BridgeClientConfig() mcpbridge.Config {
	return mcpbridge.Config{
		Transport:      c.Bridge.Transport,
		Command:        c.Bridge.Command,
		Args:           c.Bridge.Args,
		Endpoint:       c.Bridge.Endpoint,
		ConnectTimeout: c.Bridge.ConnectTimeout,
		MaxAttempts:    c.Bridge.MaxAttempts,
		InitialBackoff: c.Bridge.InitialBackoff,
		Source:         c.Bridge.Source,
	}
}
