package contextapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dogood/context-hub/pkg/contextstore"
)

const testSessionID = "session-api"

func newTestAPI(t *testing.T, cfg Config) (*httptest.Server, contextstore.Store) {
	t.Helper()
	store := contextstore.NewMemoryStore(contextstore.MemoryStoreConfig{})
	t.Cleanup(func() { _ = store.Close() })

	srv := httptest.NewServer(New(store, cfg).Routes())
	t.Cleanup(srv.Close)
	return srv, store
}

func seedSession(t *testing.T, store contextstore.Store, id string) *contextstore.SessionContext {
	t.Helper()
	sc := contextstore.New(id)
	sc.PageVisits = []contextstore.PageVisit{{Page: "home", Timestamp: sc.SessionStartTime}}
	sc.TasksInProgress = []string{"task-1"}
	sc.CompletedTasks = []string{"task-0"}
	sc.TotalXP = 100
	require.NoError(t, store.Set(context.Background(), id, sc))
	return sc
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestGetContext(t *testing.T) {
	srv, store := newTestAPI(t, Config{})
	seedSession(t, store, testSessionID)

	resp, err := http.Get(srv.URL + "/context?sessionId=" + testSessionID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var sc contextstore.SessionContext
	decodeBody(t, resp, &sc)
	assert.Equal(t, testSessionID, sc.SessionID)
	assert.Equal(t, 100, sc.TotalXP)
}

func TestGetContext_MissingSessionID(t *testing.T) {
	srv, _ := newTestAPI(t, Config{})

	resp, err := http.Get(srv.URL + "/context")
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, "sessionId is required", body["error"])
}

func TestGetContext_NotFound(t *testing.T) {
	srv, _ := newTestAPI(t, Config{})

	resp, err := http.Get(srv.URL + "/context?sessionId=nope")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, "Session not found", body["error"])
}

func TestPostContext_CreatesSession(t *testing.T) {
	srv, store := newTestAPI(t, Config{})

	sc := contextstore.New(testSessionID)
	sc.TotalXP = 250

	resp := doJSON(t, http.MethodPost, srv.URL+"/context?sessionId="+testSessionID, sc)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Success bool                         `json:"success"`
		Context *contextstore.SessionContext `json:"context"`
	}
	decodeBody(t, resp, &body)
	assert.True(t, body.Success)
	require.NotNil(t, body.Context)
	assert.Equal(t, 250, body.Context.TotalXP)

	stored, err := store.Get(context.Background(), testSessionID)
	require.NoError(t, err)
	assert.Equal(t, 250, stored.TotalXP)
}

func TestPostContext_Invalid(t *testing.T) {
	srv, _ := newTestAPI(t, Config{})

	// No sessionId query parameter.
	resp := doJSON(t, http.MethodPost, srv.URL+"/context", contextstore.New("x"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Body without a session id.
	resp = doJSON(t, http.MethodPost, srv.URL+"/context?sessionId=x", map[string]any{"totalXP": 10})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Malformed body.
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/context?sessionId=x", strings.NewReader("{broken"))
	require.NoError(t, err)
	raw, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)
	raw.Body.Close()
}

func TestPutContext(t *testing.T) {
	srv, store := newTestAPI(t, Config{})
	seedSession(t, store, testSessionID)

	update := map[string]any{
		"pageVisits":      []map[string]any{{"page": "serve", "timestamp": 1700000000000}},
		"completedTasks":  []string{"task-2"},
		"tasksInProgress": []string{"task-3"},
		"totalXP":         300,
	}
	resp := doJSON(t, http.MethodPut, srv.URL+"/context?sessionId="+testSessionID, update)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Success bool                         `json:"success"`
		Context *contextstore.SessionContext `json:"context"`
	}
	decodeBody(t, resp, &body)
	require.NotNil(t, body.Context)

	// Sequences concatenate, overrides replace.
	assert.Len(t, body.Context.PageVisits, 2)
	assert.Equal(t, []string{"task-0", "task-2"}, body.Context.CompletedTasks)
	assert.Equal(t, []string{"task-3"}, body.Context.TasksInProgress)
	assert.Equal(t, 300, body.Context.TotalXP)
}

func TestPutContext_AbsentFieldsRetained(t *testing.T) {
	srv, store := newTestAPI(t, Config{})
	seedSession(t, store, testSessionID)

	resp := doJSON(t, http.MethodPut, srv.URL+"/context?sessionId="+testSessionID, map[string]any{
		"completedTasks": []string{"task-9"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Context *contextstore.SessionContext `json:"context"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, []string{"task-1"}, body.Context.TasksInProgress)
	assert.Equal(t, 100, body.Context.TotalXP)
}

func TestPutContext_NotFound(t *testing.T) {
	srv, _ := newTestAPI(t, Config{})

	resp := doJSON(t, http.MethodPut, srv.URL+"/context?sessionId=nope", map[string]any{})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestAPI(t, Config{})

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/context", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, PUT, OPTIONS", resp.Header.Get("Access-Control-Allow-Methods"))
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestAPI(t, Config{})

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/context?sessionId=x", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, "Method not allowed", body["error"])
}

func TestPostActivity(t *testing.T) {
	srv, store := newTestAPI(t, Config{})
	seedSession(t, store, testSessionID)

	resp := doJSON(t, http.MethodPost, srv.URL+"/context/activity", map[string]any{
		"sessionId":   testSessionID,
		"contextType": "serve",
		"activity":    map[string]any{"title": "Beach Cleanup", "xp": 120},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Success     bool           `json:"success"`
		Activity    map[string]any `json:"activity"`
		ContextType string         `json:"contextType"`
	}
	decodeBody(t, resp, &body)
	assert.True(t, body.Success)
	assert.Equal(t, "serve", body.ContextType)
	assert.NotEmpty(t, body.Activity["injectedAt"])

	sc, err := store.Get(context.Background(), testSessionID)
	require.NoError(t, err)
	require.Len(t, sc.MCPInjectedActivities[contextstore.ContextServe], 1)

	last := sc.Activities[len(sc.Activities)-1]
	assert.Equal(t, contextstore.ActivityInjected, last.Type)
	assert.Equal(t, "MCP injected: Beach Cleanup", last.Description)
	assert.Equal(t, DefaultSource, last.Metadata["source"])
}

func TestPostActivity_FallbackSession(t *testing.T) {
	srv, store := newTestAPI(t, Config{})
	seedSession(t, store, DefaultFallbackSessionID)

	resp := doJSON(t, http.MethodPost, srv.URL+"/context/activity", map[string]any{
		"contextType": "productivity",
		"activity":    map[string]any{"title": "Inbox Zero"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	sc, err := store.Get(context.Background(), DefaultFallbackSessionID)
	require.NoError(t, err)
	assert.Len(t, sc.MCPInjectedActivities[contextstore.ContextProductivity], 1)
}

func TestPostActivity_RequireSessionID(t *testing.T) {
	srv, _ := newTestAPI(t, Config{RequireSessionID: true})

	resp := doJSON(t, http.MethodPost, srv.URL+"/context/activity", map[string]any{
		"contextType": "serve",
		"activity":    map[string]any{"title": "x"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestPostActivity_Validation(t *testing.T) {
	srv, store := newTestAPI(t, Config{})
	seedSession(t, store, testSessionID)

	cases := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{"missing activity", map[string]any{"sessionId": testSessionID, "contextType": "serve"}, http.StatusBadRequest},
		{"missing contextType", map[string]any{"sessionId": testSessionID, "activity": map[string]any{"title": "x"}}, http.StatusBadRequest},
		{"unknown contextType", map[string]any{"sessionId": testSessionID, "contextType": "gaming", "activity": map[string]any{"title": "x"}}, http.StatusBadRequest},
		{"unknown session", map[string]any{"sessionId": "nope", "contextType": "serve", "activity": map[string]any{"title": "x"}}, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := doJSON(t, http.MethodPost, srv.URL+"/context/activity", tc.body)
			assert.Equal(t, tc.status, resp.StatusCode)
			resp.Body.Close()
		})
	}
}

func TestPostSuggestions(t *testing.T) {
	srv, store := newTestAPI(t, Config{})
	seedSession(t, store, testSessionID)

	resp := doJSON(t, http.MethodPost, srv.URL+"/context/suggestions", map[string]any{
		"sessionId":   testSessionID,
		"suggestions": []string{"try the park cleanup", "donate canned food"},
		"reasoning":   "recent outdoor browsing",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Success   bool   `json:"success"`
		Updated   int    `json:"updated"`
		Reasoning string `json:"reasoning"`
	}
	decodeBody(t, resp, &body)
	assert.True(t, body.Success)
	assert.Equal(t, 2, body.Updated)
	assert.Equal(t, "recent outdoor browsing", body.Reasoning)

	sc, err := store.Get(context.Background(), testSessionID)
	require.NoError(t, err)
	require.NotNil(t, sc.MCPSuggestions)
	assert.Len(t, sc.MCPSuggestions.Suggestions, 2)
	assert.Equal(t, DefaultSource, sc.MCPSuggestions.Source)

	last := sc.Activities[len(sc.Activities)-1]
	assert.Equal(t, contextstore.ActivitySuggestionsUpdated, last.Type)
	assert.Equal(t, "MCP updated suggestions: recent outdoor browsing", last.Description)
}

func TestPostSuggestions_CustomSource(t *testing.T) {
	srv, store := newTestAPI(t, Config{})
	seedSession(t, store, testSessionID)

	resp := doJSON(t, http.MethodPost, srv.URL+"/context/suggestions", map[string]any{
		"sessionId":   testSessionID,
		"suggestions": []string{"one"},
		"source":      "behavior-engine",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	sc, err := store.Get(context.Background(), testSessionID)
	require.NoError(t, err)
	assert.Equal(t, "behavior-engine", sc.MCPSuggestions.Source)
}

func TestPostSuggestions_Validation(t *testing.T) {
	srv, store := newTestAPI(t, Config{})
	seedSession(t, store, testSessionID)

	resp := doJSON(t, http.MethodPost, srv.URL+"/context/suggestions", map[string]any{
		"sessionId": testSessionID,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, "Suggestions array is required", body["error"])

	resp = doJSON(t, http.MethodPost, srv.URL+"/context/suggestions", map[string]any{
		"sessionId":   "nope",
		"suggestions": []string{"x"},
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}
