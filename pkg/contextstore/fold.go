package contextstore

import (
	"context"
	"fmt"
	"time"
)

// DefaultReasoning annotates suggestion updates that arrive without one.
const DefaultReasoning = "Pattern-based update"

// ApplyInjection folds an externally injected activity into a session:
// it appends an activity_injected audit event and stores the stamped
// activity under the named bucket, atomically. Returns the stamped activity.
func ApplyInjection(ctx context.Context, s Store, sessionID string, activity InjectedActivity, contextType ContextType, source string) (InjectedActivity, error) {
	var stamped InjectedActivity

	_, err := s.Apply(ctx, sessionID, func(sc *SessionContext) error {
		sc.AppendActivity(ActivityEvent{
			Type:        ActivityInjected,
			Description: fmt.Sprintf("MCP injected: %s", activityTitle(activity)),
			Metadata: map[string]any{
				"activity":    map[string]any(activity),
				"contextType": string(contextType),
				"source":      source,
			},
		})
		stamped = sc.InjectActivity(contextType, activity)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stamped, nil
}

// ApplySuggestions folds a suggestion update into a session: it appends a
// suggestions_updated audit event and wholesale-replaces the current
// suggestion set. Unlike injected activities, suggestions never accumulate;
// only the latest set survives.
func ApplySuggestions(ctx context.Context, s Store, sessionID string, suggestions []any, reasoning, source string) (*SessionContext, error) {
	if reasoning == "" {
		reasoning = DefaultReasoning
	}

	return s.Apply(ctx, sessionID, func(sc *SessionContext) error {
		sc.AppendActivity(ActivityEvent{
			Type:        ActivitySuggestionsUpdated,
			Description: fmt.Sprintf("MCP updated suggestions: %s", reasoning),
			Metadata: map[string]any{
				"suggestionsCount": len(suggestions),
				"reasoning":        reasoning,
				"source":           source,
			},
		})
		sc.MCPSuggestions = &Suggestions{
			Suggestions: suggestions,
			Reasoning:   reasoning,
			UpdatedAt:   time.Now().UnixMilli(),
			Source:      source,
		}
		return nil
	})
}

// activityTitle extracts a display title from an arbitrary activity object.
func activityTitle(activity InjectedActivity) string {
	for _, key := range []string{"title", "name"} {
		if v, ok := activity[key].(string); ok && v != "" {
			return v
		}
	}
	return "activity"
}
