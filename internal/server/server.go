// Package server assembles the context hub: the session store, the HTTP
// context API, health endpoints, and the MCP tool server, served over
// stdio or Streamable HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dogood/context-hub/internal/config"
	"github.com/dogood/context-hub/pkg/activities"
	"github.com/dogood/context-hub/pkg/contextapi"
	"github.com/dogood/context-hub/pkg/contextstore"
	"github.com/dogood/context-hub/pkg/health"
	"github.com/dogood/context-hub/pkg/mcpbridge"
	"github.com/dogood/context-hub/pkg/middleware"
	"github.com/dogood/context-hub/pkg/toolserver"
)

// Version is set at build time.
var Version = "dev"

const shutdownTimeout = 10 * time.Second

// Server is an assembled context hub.
type Server struct {
	cfg     *config.Config
	store   *contextstore.MemoryStore
	mcp     *mcp.Server
	bridge  *mcpbridge.Client
	gen     *activities.Generator
	checker *health.Checker
}

// New assembles a server from the given configuration.
func New(cfg *config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store := contextstore.NewMemoryStore(cfg.StoreConfig())

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Server.Name,
		Version: cfg.Server.Version,
	}, nil)

	toolkit := toolserver.New(store, toolserver.Config{
		FallbackSessionID: cfg.MCP.FallbackSessionID,
		RequireSessionID:  cfg.MCP.RequireSessionID,
		Source:            cfg.MCP.Source,
	})
	toolkit.RegisterTools(mcpServer)
	mcpServer.AddReceivingMiddleware(middleware.MCPToolLogMiddleware(slog.Default()))

	// The outbound bridge connects lazily; generation degrades to the
	// default bundle while it is absent or unreachable.
	var bridge *mcpbridge.Client
	if cfg.Bridge.Enabled() {
		var err error
		bridge, err = mcpbridge.New(cfg.BridgeClientConfig())
		if err != nil {
			return nil, fmt.Errorf("building bridge client: %w", err)
		}
	}

	return &Server{
		cfg:     cfg,
		store:   store,
		mcp:     mcpServer,
		bridge:  bridge,
		gen:     activities.NewGenerator(bridge),
		checker: health.NewChecker(store),
	}, nil
}

// Store returns the session store.
func (s *Server) Store() contextstore.Store {
	return s.store
}

// MCPServer returns the MCP server with the context tools registered.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Bridge returns the outbound bridge client, or nil when disabled.
func (s *Server) Bridge() *mcpbridge.Client {
	return s.bridge
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.store.StartCleanupRoutine()

	switch s.cfg.Server.Transport {
	case config.TransportStdio:
		return s.runStdio(ctx)
	case config.TransportHTTP:
		return s.runHTTP(ctx)
	default:
		return fmt.Errorf("unknown transport: %s", s.cfg.Server.Transport)
	}
}

func (s *Server) runStdio(ctx context.Context) error {
	s.checker.SetReady()
	slog.Info("server: serving MCP over stdio", "name", s.cfg.Server.Name)
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("serving stdio: %w", err)
	}
	return nil
}

func (s *Server) runHTTP(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Server.Address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server: listening", "address", s.cfg.Server.Address)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.checker.SetReady()

	select {
	case err := <-errCh:
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}

	s.checker.SetDraining()
	slog.Info("server: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

// Router builds the HTTP surface: context API, health probes, and the MCP
// Streamable HTTP handler.
func (s *Server) Router() chi.Router {
	api := contextapi.New(s.store, contextapi.Config{
		FallbackSessionID: s.cfg.API.FallbackSessionID,
		RequireSessionID:  s.cfg.API.RequireSessionID,
		Source:            s.cfg.API.Source,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(slog.Default()))
	r.Get("/healthz", s.checker.LivenessHandler())
	r.Get("/readyz", s.checker.ReadinessHandler())
	r.Mount("/api", api.Routes())
	r.Mount("/api/activities", activities.NewHandler(s.gen, s.store).Routes())
	r.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.mcp }, nil))
	return r
}

// Close releases the bridge session and the store's background resources.
func (s *Server) Close() error {
	var errs []error
	if s.bridge != nil {
		errs = append(errs, s.bridge.Close())
	}
	errs = append(errs, s.store.Close())
	return errors.Join(errs...)
}
