// Package health provides readiness state tracking and HTTP health check handlers.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

// State constants for the readiness state machine.
const (
	stateStarting int32 = iota
	stateReady
	stateDraining
)

// SessionCounter reports the number of live sessions. The context store
// satisfies it.
type SessionCounter interface {
	Count(ctx context.Context) (int, error)
}

// Checker tracks the readiness state of the context hub.
// It is safe for concurrent use.
type Checker struct {
	state    atomic.Int32
	started  time.Time
	sessions SessionCounter
}

// NewChecker creates a Checker in the Starting state. sessions may be nil,
// in which case session counts are omitted from responses.
func NewChecker(sessions SessionCounter) *Checker {
	return &Checker{started: time.Now(), sessions: sessions}
}

// SetReady transitions to the Ready state.
func (c *Checker) SetReady() {
	c.state.Store(stateReady)
}

// SetDraining transitions to the Draining state.
func (c *Checker) SetDraining() {
	c.state.Store(stateDraining)
}

// IsReady returns true when the state is Ready.
func (c *Checker) IsReady() bool {
	return c.state.Load() == stateReady
}

// State returns the current state as a human-readable string.
func (c *Checker) State() string {
	switch c.state.Load() {
	case stateReady:
		return "ready"
	case stateDraining:
		return "draining"
	default:
		return "starting"
	}
}

// healthResponse is the JSON body returned by health endpoints.
type healthResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptimeSeconds,omitempty"`
	Sessions      *int   `json:"sessions,omitempty"`
}

// LivenessHandler returns an http.HandlerFunc that always responds 200 OK.
// Use this for K8s livenessProbe (/healthz).
func (*Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	}
}

// ReadinessHandler returns an http.HandlerFunc that responds 200 when ready
// and 503 when starting or draining. The ready response carries uptime and
// the live session count.
// Use this for K8s readinessProbe (/readyz).
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !c.IsReady() {
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: c.State()})
			return
		}

		resp := healthResponse{
			Status:        c.State(),
			UptimeSeconds: int64(time.Since(c.started).Seconds()),
		}
		if c.sessions != nil {
			if n, err := c.sessions.Count(r.Context()); err == nil {
				resp.Sessions = &n
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, code int, v healthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
