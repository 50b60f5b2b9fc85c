package contextsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/dogood/context-hub/pkg/contextstore"
)

// ErrNoBackend is returned by backend sync when no backend URL is configured.
var ErrNoBackend = errors.New("no backend configured")

// SyncToBackend POSTs the full context to the backend so server-side agents
// can read it.
func (s *Service) SyncToBackend(ctx context.Context) error {
	if s.backendURL == "" {
		return ErrNoBackend
	}

	body, err := json.Marshal(s.sc)
	if err != nil {
		return fmt.Errorf("encoding context: %w", err)
	}

	endpoint := s.backendURL + "/context?sessionId=" + url.QueryEscape(s.sc.SessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("syncing context: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("syncing context: backend returned %s", resp.Status)
	}

	slog.Debug("contextsvc: synced to backend", "sessionId", s.sc.SessionID)
	return nil
}

// LoadFromBackend fetches a session's context from the backend and replaces
// the current one. The current context is kept on any failure.
func (s *Service) LoadFromBackend(ctx context.Context, sessionID string) error {
	if s.backendURL == "" {
		return ErrNoBackend
	}

	endpoint := s.backendURL + "/context?sessionId=" + url.QueryEscape(sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("loading context: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("loading context: backend returned %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	var sc contextstore.SessionContext
	if err := json.Unmarshal(data, &sc); err != nil {
		return fmt.Errorf("decoding context: %w", err)
	}
	if sc.SessionID == "" {
		return errors.New("backend returned context without session id")
	}

	s.sc = &sc
	s.save()
	slog.Debug("contextsvc: loaded from backend", "sessionId", sessionID)
	return nil
}

// SyncToMCP pushes the current context snapshot through the MCP bridge.
// The push is best effort: failures are logged and the local context is
// unaffected.
func (s *Service) SyncToMCP(ctx context.Context) {
	if s.bridge == nil {
		return
	}
	if err := s.bridge.PushContext(ctx, s.sc.Clone()); err != nil {
		slog.Warn("contextsvc: mcp sync failed", "sessionId", s.sc.SessionID, "error", err)
	}
}
