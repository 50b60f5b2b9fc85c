// Package toolserver exposes the session context store as MCP tools, the
// server half of the bidirectional bridge. External agents read user
// context through it and push enrichment (injected activities, suggestion
// updates, enhanced bundles) back into the same store the HTTP endpoints
// serve.
package toolserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dogood/context-hub/pkg/contextstore"
)

// Config configures the toolkit.
type Config struct {
	// FallbackSessionID is used when a tool call omits a session id.
	// A single-tenant convenience; multi-tenant deployments should set
	// RequireSessionID instead.
	FallbackSessionID string

	// RequireSessionID rejects tool calls without an explicit session id.
	RequireSessionID bool

	// Source stamps audit events created by this toolkit.
	Source string
}

// Toolkit registers the context tools on an MCP server.
type Toolkit struct {
	store contextstore.Store
	cfg   Config
}

// New creates the context toolkit backed by the given store.
func New(store contextstore.Store, cfg Config) *Toolkit {
	if cfg.FallbackSessionID == "" {
		cfg.FallbackSessionID = "default"
	}
	if cfg.Source == "" {
		cfg.Source = "interaction-co"
	}
	return &Toolkit{store: store, cfg: cfg}
}

// Kind returns the toolkit kind.
func (*Toolkit) Kind() string {
	return "usercontext"
}

// Tools returns the tool names provided by this toolkit.
func (*Toolkit) Tools() []string {
	return []string{
		"read_user_context",
		"store_user_context",
		"inject_activity",
		"update_task_suggestions",
		"enhance_activities",
		"get_activity_suggestions",
	}
}

// RegisterTools registers all context tools with the MCP server.
func (t *Toolkit) RegisterTools(s *mcp.Server) {
	mcp.AddTool(s, &mcp.Tool{
		Name: "read_user_context",
		Description: "Read the current user context (page visits, activities, preferences, tasks). " +
			"Pass contextTypes to filter; an empty list returns the full context.",
	}, t.handleReadUserContext)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "store_user_context",
		Description: "Store a full user context snapshot for a session, creating the session if needed.",
	}, t.handleStoreUserContext)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "inject_activity",
		Description: "Inject a new candidate activity into a context bucket (serve, productivity, self_improve) with a 0-10 priority hint.",
	}, t.handleInjectActivity)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "update_task_suggestions",
		Description: "Replace the current task suggestion set based on observed user behavior.",
	}, t.handleUpdateTaskSuggestions)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "enhance_activities",
		Description: "Enhance a generated activity bundle with personalization scores derived from the user context.",
	}, t.handleEnhanceActivities)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_activity_suggestions",
		Description: "Get community service activity suggestions based on user interests and available time.",
	}, t.handleGetActivitySuggestions)
}

// resolveSessionID applies the fallback-session policy.
func (t *Toolkit) resolveSessionID(sessionID string) (string, error) {
	if sessionID != "" {
		return sessionID, nil
	}
	if t.cfg.RequireSessionID {
		return "", errors.New("sessionId is required")
	}
	return t.cfg.FallbackSessionID, nil
}

type readUserContextInput struct {
	ContextTypes []string `json:"contextTypes,omitempty"`
	SessionID    string   `json:"sessionId,omitempty"`
}

func (t *Toolkit) handleReadUserContext(ctx context.Context, _ *mcp.CallToolRequest, input readUserContextInput) (*mcp.CallToolResult, any, error) {
	sessionID, err := t.resolveSessionID(input.SessionID)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}

	sc, err := t.store.Get(ctx, sessionID)
	if err != nil {
		return errorResult(fmt.Sprintf("session %s not found", sessionID)), nil, nil
	}

	if len(input.ContextTypes) == 0 {
		return jsonResult(sc)
	}
	return jsonResult(filterContext(sc, input.ContextTypes))
}

// filterContext projects the requested context buckets.
func filterContext(sc *contextstore.SessionContext, contextTypes []string) map[string]any {
	filtered := map[string]any{}
	for _, ct := range contextTypes {
		switch ct {
		case "page_visits":
			filtered["pageVisits"] = sc.PageVisits
		case "activities":
			filtered["activities"] = sc.Activities
		case "preferences":
			prefs := sc.UserPreferences
			if prefs == nil {
				prefs = &contextstore.UserPreferences{}
			}
			filtered["userPreferences"] = prefs
		case "tasks":
			filtered["tasksInProgress"] = sc.TasksInProgress
			filtered["completedTasks"] = sc.CompletedTasks
			filtered["totalXP"] = sc.TotalXP
			filtered["currentStreak"] = sc.CurrentStreak
		}
	}
	return filtered
}

type storeUserContextInput struct {
	SessionID string                       `json:"sessionId"`
	Context   *contextstore.SessionContext `json:"context"`
}

func (t *Toolkit) handleStoreUserContext(ctx context.Context, _ *mcp.CallToolRequest, input storeUserContextInput) (*mcp.CallToolResult, any, error) {
	if input.Context == nil {
		return errorResult("context is required"), nil, nil
	}

	sessionID := input.SessionID
	if sessionID == "" {
		sessionID = input.Context.SessionID
	}
	sessionID, err := t.resolveSessionID(sessionID)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}

	if err := t.store.Set(ctx, sessionID, input.Context); err != nil {
		return errorResult("failed to store context: " + err.Error()), nil, nil
	}

	return jsonResult(map[string]any{"success": true, "sessionId": sessionID})
}

type injectActivityInput struct {
	Activity    map[string]any `json:"activity"`
	ContextType string         `json:"contextType"`
	Priority    *int           `json:"priority,omitempty"`
	SessionID   string         `json:"sessionId,omitempty"`
}

func (t *Toolkit) handleInjectActivity(ctx context.Context, _ *mcp.CallToolRequest, input injectActivityInput) (*mcp.CallToolResult, any, error) {
	if len(input.Activity) == 0 || input.ContextType == "" {
		return errorResult("activity and contextType are required"), nil, nil
	}

	contextType := contextstore.ContextType(input.ContextType)
	if !contextType.Valid() {
		return errorResult(fmt.Sprintf("unknown contextType %q", input.ContextType)), nil, nil
	}

	sessionID, err := t.resolveSessionID(input.SessionID)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}

	activity := contextstore.InjectedActivity(input.Activity)
	activity["_mcp_enhanced"] = map[string]any{
		"priority": resolvePriority(input.Priority),
		"source":   t.cfg.Source,
	}

	stamped, err := contextstore.ApplyInjection(ctx, t.store, sessionID, activity, contextType, t.cfg.Source)
	if err != nil {
		if errors.Is(err, contextstore.ErrNotFound) {
			return errorResult(fmt.Sprintf("session %s not found", sessionID)), nil, nil
		}
		return errorResult("failed to inject activity: " + err.Error()), nil, nil
	}

	return jsonResult(map[string]any{
		"success":     true,
		"activity":    map[string]any(stamped),
		"contextType": string(contextType),
	})
}

const defaultPriority = 5

func resolvePriority(p *int) int {
	if p == nil || *p < 0 || *p > 10 {
		return defaultPriority
	}
	return *p
}

type updateTaskSuggestionsInput struct {
	Suggestions []any  `json:"suggestions"`
	Reasoning   string `json:"reasoning,omitempty"`
	SessionID   string `json:"sessionId,omitempty"`
}

func (t *Toolkit) handleUpdateTaskSuggestions(ctx context.Context, _ *mcp.CallToolRequest, input updateTaskSuggestionsInput) (*mcp.CallToolResult, any, error) {
	if len(input.Suggestions) == 0 {
		return errorResult("suggestions array is required"), nil, nil
	}

	sessionID, err := t.resolveSessionID(input.SessionID)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}

	if _, err := contextstore.ApplySuggestions(ctx, t.store, sessionID, input.Suggestions, input.Reasoning, t.cfg.Source); err != nil {
		if errors.Is(err, contextstore.ErrNotFound) {
			return errorResult(fmt.Sprintf("session %s not found", sessionID)), nil, nil
		}
		return errorResult("failed to update suggestions: " + err.Error()), nil, nil
	}

	return jsonResult(map[string]any{
		"success": true,
		"updated": len(input.Suggestions),
	})
}

// jsonResult marshals v into a text content block.
func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return errorResult("failed to encode result"), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

// errorResult reports a tool-level error per the MCP protocol.
func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(`{"error": %q, "success": false}`, msg)}},
		IsError: true,
	}
}
