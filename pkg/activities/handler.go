package activities

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dogood/context-hub/pkg/contextstore"
)

// Handler serves generated activity bundles over HTTP. When a session id is
// supplied and known, its context feeds the enrichment request; an unknown
// or absent session yields an unpersonalized bundle.
type Handler struct {
	gen   *Generator
	store contextstore.Store
}

// NewHandler creates the activities handler.
func NewHandler(gen *Generator, store contextstore.Store) *Handler {
	return &Handler{gen: gen, store: store}
}

// Routes returns the activities router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleGenerate)
	return r
}

// bundleResponse is the generation payload. FallbackReason is only present
// on unenhanced responses.
type bundleResponse struct {
	Activities     Bundle `json:"activities"`
	Enhanced       bool   `json:"enhanced"`
	FallbackReason string `json:"fallbackReason,omitempty"`
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var sc *contextstore.SessionContext
	if sessionID := r.URL.Query().Get("sessionId"); sessionID != "" {
		got, err := h.store.Get(r.Context(), sessionID)
		switch {
		case err == nil:
			sc = got
		case !errors.Is(err, contextstore.ErrNotFound):
			writeError(w, http.StatusInternalServerError, "failed to load context")
			return
		}
	}

	result := h.gen.Generate(r.Context(), sc)
	writeJSON(w, http.StatusOK, bundleResponse{
		Activities:     result.Value,
		Enhanced:       result.Enhanced,
		FallbackReason: result.FallbackReason,
	})
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
