// Package contextapi serves the session context store over HTTP. Clients
// sync full snapshots and partial updates, and external agents inject
// activities and suggestion updates through the same surface the MCP
// tool server uses.
package contextapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dogood/context-hub/pkg/contextstore"
)

const (
	// DefaultFallbackSessionID serves single-tenant deployments where the
	// injecting agent does not track session ids.
	DefaultFallbackSessionID = "default"

	// DefaultSource stamps injected mutations with their origin.
	DefaultSource = "poke_interaction_co"
)

// Config configures the HTTP API.
type Config struct {
	// FallbackSessionID is used by injection endpoints when the request
	// carries no session id. Defaults to DefaultFallbackSessionID.
	FallbackSessionID string

	// RequireSessionID rejects injection requests without an explicit
	// session id.
	RequireSessionID bool

	// Source is the default origin stamp for injected mutations.
	Source string
}

// Handler implements the context API.
type Handler struct {
	store contextstore.Store
	cfg   Config
}

// New creates the API handler backed by the given store.
func New(store contextstore.Store, cfg Config) *Handler {
	if cfg.FallbackSessionID == "" {
		cfg.FallbackSessionID = DefaultFallbackSessionID
	}
	if cfg.Source == "" {
		cfg.Source = DefaultSource
	}
	return &Handler{store: store, cfg: cfg}
}

// Routes returns the context API router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(corsMiddleware)
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Route("/context", func(r chi.Router) {
		r.Get("/", h.getContext)
		r.Post("/", h.postContext)
		r.Put("/", h.putContext)
		r.Post("/activity", h.postActivity)
		r.Post("/suggestions", h.postSuggestions)
	})

	return r
}

// corsMiddleware allows browser clients on any origin and short-circuits
// preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) getContext(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	sc, err := h.store.Get(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, contextstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, sc)
}

func (h *Handler) postContext(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	var sc contextstore.SessionContext
	if err := json.NewDecoder(r.Body).Decode(&sc); err != nil || sc.SessionID == "" {
		writeError(w, http.StatusBadRequest, "Invalid context data")
		return
	}

	if err := h.store.Set(r.Context(), sessionID, &sc); err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	slog.Debug("contextapi: stored context", "sessionId", sessionID)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "context": &sc})
}

func (h *Handler) putContext(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	var update contextstore.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid update data")
		return
	}

	merged, err := h.store.Merge(r.Context(), sessionID, &update)
	if err != nil {
		if errors.Is(err, contextstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "context": merged})
}

type injectActivityRequest struct {
	Activity    map[string]any `json:"activity"`
	ContextType string         `json:"contextType"`
	SessionID   string         `json:"sessionId,omitempty"`
}

func (h *Handler) postActivity(w http.ResponseWriter, r *http.Request) {
	var req injectActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Activity) == 0 || req.ContextType == "" {
		writeError(w, http.StatusBadRequest, "Activity and contextType are required")
		return
	}

	contextType := contextstore.ContextType(req.ContextType)
	if !contextType.Valid() {
		writeError(w, http.StatusBadRequest, "Unknown contextType")
		return
	}

	sessionID, ok := h.resolveSessionID(w, req.SessionID)
	if !ok {
		return
	}

	stamped, err := contextstore.ApplyInjection(r.Context(), h.store, sessionID,
		contextstore.InjectedActivity(req.Activity), contextType, h.cfg.Source)
	if err != nil {
		if errors.Is(err, contextstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	slog.Info("contextapi: activity injected",
		"sessionId", sessionID, "contextType", contextType)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"activity":    map[string]any(stamped),
		"contextType": contextType,
	})
}

type suggestionsRequest struct {
	Suggestions []any  `json:"suggestions"`
	Reasoning   string `json:"reasoning,omitempty"`
	Source      string `json:"source,omitempty"`
	SessionID   string `json:"sessionId,omitempty"`
}

func (h *Handler) postSuggestions(w http.ResponseWriter, r *http.Request) {
	var req suggestionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Suggestions) == 0 {
		writeError(w, http.StatusBadRequest, "Suggestions array is required")
		return
	}

	sessionID, ok := h.resolveSessionID(w, req.SessionID)
	if !ok {
		return
	}

	source := req.Source
	if source == "" {
		source = h.cfg.Source
	}

	if _, err := contextstore.ApplySuggestions(r.Context(), h.store, sessionID,
		req.Suggestions, req.Reasoning, source); err != nil {
		if errors.Is(err, contextstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	slog.Info("contextapi: suggestions updated",
		"sessionId", sessionID, "count", len(req.Suggestions))
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"updated":   len(req.Suggestions),
		"reasoning": req.Reasoning,
	})
}

// resolveSessionID applies the fallback-session policy, writing the error
// response itself when the policy rejects the request.
func (h *Handler) resolveSessionID(w http.ResponseWriter, sessionID string) (string, bool) {
	if sessionID != "" {
		return sessionID, true
	}
	if h.cfg.RequireSessionID {
		writeError(w, http.StatusBadRequest, "sessionId is required")
		return "", false
	}
	return h.cfg.FallbackSessionID, true
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
