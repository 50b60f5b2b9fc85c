// Package mcpbridge is the app side of the bidirectional MCP integration:
// a tool-calling client that pushes session context to the external server
// and requests enrichment from it. Every call is timeout-bounded and
// retried with a forced reconnect; consumers are expected to degrade to
// their non-enhanced code path whenever the bridge reports failure.
package mcpbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// DefaultConnectTimeout bounds a single connection attempt.
	DefaultConnectTimeout = 5 * time.Second

	// DefaultMaxAttempts is the total number of tries per tool call.
	DefaultMaxAttempts = 3

	// DefaultSource identifies this bridge in audit metadata.
	DefaultSource = "interaction-co"

	// TransportStdio spawns the tool server as a child process.
	TransportStdio = "stdio"

	// TransportStreamable speaks Streamable HTTP to a remote endpoint.
	TransportStreamable = "streamable"
)

// State is the connection state of the bridge client.
type State int32

const (
	// StateDisconnected means no usable session exists.
	StateDisconnected State = iota

	// StateConnecting means a connection attempt is in flight.
	StateConnecting

	// StateConnected means tool calls can be issued on the session.
	StateConnected
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Config configures the bridge client. Zero values take defaults.
type Config struct {
	// Transport selects "stdio" or "streamable".
	Transport string

	// Command and Args spawn the tool server for the stdio transport.
	Command string
	Args    []string

	// Endpoint is the Streamable HTTP URL for the streamable transport.
	Endpoint string

	// ConnectTimeout bounds each connection attempt.
	ConnectTimeout time.Duration

	// MaxAttempts is the total number of tries per tool call. Each retry
	// forces a reconnect first.
	MaxAttempts int

	// InitialBackoff is the first retry delay; zero retries immediately.
	// Subsequent delays grow exponentially.
	InitialBackoff time.Duration

	// Source identifies this bridge in audit metadata on the far side.
	Source string
}

func (c *Config) applyDefaults() {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.Source == "" {
		c.Source = DefaultSource
	}
}

// Client is a connect-once-then-reuse MCP client with bounded retry.
// It is safe for concurrent use.
type Client struct {
	cfg          Config
	newTransport func() mcp.Transport

	mu      sync.Mutex
	state   atomic.Int32
	session *mcp.ClientSession
}

// New creates a bridge client for the configured transport.
func New(cfg Config) (*Client, error) {
	cfg.applyDefaults()

	var factory func() mcp.Transport
	switch cfg.Transport {
	case TransportStdio:
		if cfg.Command == "" {
			return nil, errors.New("mcpbridge: stdio transport requires a command")
		}
		command, args := cfg.Command, cfg.Args
		factory = func() mcp.Transport {
			return &mcp.CommandTransport{Command: exec.Command(command, args...)} // #nosec G204 -- command is operator configuration
		}
	case TransportStreamable:
		if cfg.Endpoint == "" {
			return nil, errors.New("mcpbridge: streamable transport requires an endpoint")
		}
		endpoint := cfg.Endpoint
		factory = func() mcp.Transport {
			return &mcp.StreamableClientTransport{Endpoint: endpoint}
		}
	default:
		return nil, fmt.Errorf("mcpbridge: unknown transport %q", cfg.Transport)
	}

	return NewWithTransport(cfg, factory), nil
}

// NewWithTransport creates a bridge client with a caller-supplied transport
// factory. A fresh transport is requested for every (re)connect.
func NewWithTransport(cfg Config, factory func() mcp.Transport) *Client {
	cfg.applyDefaults()
	return &Client{cfg: cfg, newTransport: factory}
}

// State returns the current connection state.
func (c *Client) State() State {
	return State(c.state.Load())
}

// Source returns the configured audit source name.
func (c *Client) Source() string {
	return c.cfg.Source
}

// Connect establishes the session. It is idempotent: when already
// connected it returns immediately. A connection attempt that exceeds the
// configured timeout fails rather than hangs.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *Client) connectLocked(ctx context.Context) error {
	if c.session != nil {
		return nil
	}

	c.state.Store(int32(StateConnecting))

	connectCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	client := mcp.NewClient(&mcp.Implementation{Name: "dogood-context-hub", Version: "1.0.0"}, nil)
	session, err := client.Connect(connectCtx, c.newTransport(), nil)
	if err != nil {
		c.state.Store(int32(StateDisconnected))
		return fmt.Errorf("connecting to MCP server: %w", err)
	}

	c.session = session
	c.state.Store(int32(StateConnected))
	slog.Debug("mcpbridge: connected", "transport", c.cfg.Transport)
	return nil
}

func (c *Client) disconnectLocked() {
	if c.session != nil {
		_ = c.session.Close()
		c.session = nil
	}
	c.state.Store(int32(StateDisconnected))
}

// CallTool invokes a named tool and returns the raw text payload of the
// result. Each failed attempt forces a reconnect before the next try; the
// call gives up after the configured attempt budget.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (json.RawMessage, error) {
	var result json.RawMessage

	op := func() error {
		payload, err := c.callOnce(ctx, name, args)
		if err != nil {
			slog.Debug("mcpbridge: tool call failed", "tool", name, "state", c.State().String(), "error", err)
			return err
		}
		result = payload
		return nil
	}

	if err := backoff.Retry(op, c.retryPolicy(ctx)); err != nil {
		return nil, fmt.Errorf("calling tool %s: %w", name, err)
	}
	return result, nil
}

// callOnce performs one connect-if-needed plus tool call. Any error tears
// the session down so the next attempt starts from a clean connection.
func (c *Client) callOnce(ctx context.Context, name string, args map[string]any) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connectLocked(ctx); err != nil {
		return nil, err
	}

	result, err := c.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		c.disconnectLocked()
		return nil, fmt.Errorf("tool %s: %w", name, err)
	}

	text := textContent(result.Content)
	if result.IsError {
		c.disconnectLocked()
		return nil, fmt.Errorf("tool %s reported error: %s", name, text)
	}
	return json.RawMessage(text), nil
}

func (c *Client) retryPolicy(ctx context.Context) backoff.BackOff {
	var policy backoff.BackOff
	if c.cfg.InitialBackoff > 0 {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = c.cfg.InitialBackoff
		policy = eb
	} else {
		policy = &backoff.ZeroBackOff{}
	}
	policy = backoff.WithMaxRetries(policy, uint64(c.cfg.MaxAttempts-1)) // #nosec G115 -- MaxAttempts is validated positive
	return backoff.WithContext(policy, ctx)
}

// HealthCheck verifies the session by listing tools.
func (c *Client) HealthCheck(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connectLocked(ctx); err != nil {
		return err
	}
	if _, err := c.session.ListTools(ctx, &mcp.ListToolsParams{}); err != nil {
		c.disconnectLocked()
		return fmt.Errorf("listing tools: %w", err)
	}
	return nil
}

// Close disconnects the session.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnectLocked()
	return nil
}

// textContent concatenates the text blocks of a tool result.
func textContent(content []mcp.Content) string {
	var sb strings.Builder
	for _, block := range content {
		if tc, ok := block.(*mcp.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}
