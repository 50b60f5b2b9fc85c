package mcpbridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dogood/context-hub/pkg/contextstore"
)

// Tool names exposed by the external tool server.
const (
	ToolReadUserContext       = "read_user_context"
	ToolStoreUserContext      = "store_user_context"
	ToolInjectActivity        = "inject_activity"
	ToolUpdateTaskSuggestions = "update_task_suggestions"
	ToolEnhanceActivities     = "enhance_activities"
)

const (
	// DefaultPriority is used when an injection carries no priority hint.
	DefaultPriority = 5

	maxPriority = 10
)

// ReadUserContext requests a filtered view of the user context. An empty
// filter list returns the full context.
func (c *Client) ReadUserContext(ctx context.Context, contextTypes []string) (map[string]any, error) {
	args := map[string]any{}
	if len(contextTypes) > 0 {
		args["contextTypes"] = contextTypes
	}

	raw, err := c.CallTool(ctx, ToolReadUserContext, args)
	if err != nil {
		return nil, err
	}

	var fragment map[string]any
	if err := json.Unmarshal(raw, &fragment); err != nil {
		return nil, fmt.Errorf("parsing user context: %w", err)
	}
	return fragment, nil
}

// PushContext stores the full session context on the tool server side.
// This is the client half of the bidirectional sync.
func (c *Client) PushContext(ctx context.Context, sc *contextstore.SessionContext) error {
	_, err := c.CallTool(ctx, ToolStoreUserContext, map[string]any{
		"sessionId": sc.SessionID,
		"context":   sc,
	})
	return err
}

// InjectActivity asks the app to store a candidate activity under the named
// context bucket. Priority is clamped to 0-10.
func (c *Client) InjectActivity(ctx context.Context, activity map[string]any, contextType contextstore.ContextType, priority int) error {
	if !contextType.Valid() {
		return fmt.Errorf("invalid context type %q", contextType)
	}
	if priority < 0 || priority > maxPriority {
		priority = DefaultPriority
	}

	_, err := c.CallTool(ctx, ToolInjectActivity, map[string]any{
		"activity":    activity,
		"contextType": string(contextType),
		"priority":    priority,
	})
	return err
}

// UpdateTaskSuggestions replaces the current suggestion set.
func (c *Client) UpdateTaskSuggestions(ctx context.Context, suggestions []any, reasoning string) error {
	_, err := c.CallTool(ctx, ToolUpdateTaskSuggestions, map[string]any{
		"suggestions": suggestions,
		"reasoning":   reasoning,
	})
	return err
}
