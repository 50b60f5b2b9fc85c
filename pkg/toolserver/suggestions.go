package toolserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dogood/context-hub/pkg/activities"
)

// Suggestion defaults mirror the catalog's general/short-session entry point.
const (
	defaultInterests     = "general"
	defaultTimeAvailable = 30
	defaultLocation      = "local"
	maxSuggestions       = 3
)

type activitySuggestionsInput struct {
	Interests     string `json:"interests,omitempty"`
	TimeAvailable int    `json:"time_available,omitempty"`
	Location      string `json:"location,omitempty"`
}

func (t *Toolkit) handleGetActivitySuggestions(_ context.Context, _ *mcp.CallToolRequest, input activitySuggestionsInput) (*mcp.CallToolResult, any, error) {
	if input.Interests == "" {
		input.Interests = defaultInterests
	}
	if input.TimeAvailable <= 0 {
		input.TimeAvailable = defaultTimeAvailable
	}
	if input.Location == "" {
		input.Location = defaultLocation
	}

	category, entries := activities.Suggest(input.Interests, input.TimeAvailable)
	suggested := entries
	if len(suggested) > maxSuggestions {
		suggested = suggested[:maxSuggestions]
	}

	return jsonResult(map[string]any{
		"category":             category,
		"location":             input.Location,
		"time_available":       input.TimeAvailable,
		"suggested_activities": suggested,
		"total_suggestions":    len(entries),
	})
}
