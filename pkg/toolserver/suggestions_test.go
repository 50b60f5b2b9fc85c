package toolserver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetActivitySuggestions_Defaults(t *testing.T) {
	tk, _ := newTestToolkit(t, Config{})

	res, _, err := tk.handleGetActivitySuggestions(context.Background(), nil, activitySuggestionsInput{})
	require.NoError(t, err)
	require.False(t, res.IsError)

	var got struct {
		Category            string           `json:"category"`
		Location            string           `json:"location"`
		TimeAvailable       int              `json:"time_available"`
		SuggestedActivities []map[string]any `json:"suggested_activities"`
		TotalSuggestions    int              `json:"total_suggestions"`
	}
	decodeResult(t, res, &got)

	assert.Equal(t, "general", got.Category)
	assert.Equal(t, "local", got.Location)
	assert.Equal(t, 30, got.TimeAvailable)
	require.Len(t, got.SuggestedActivities, 1)
	assert.Equal(t, "Litter Pickup Walk", got.SuggestedActivities[0]["name"])
	assert.Equal(t, 1, got.TotalSuggestions)
}

func TestGetActivitySuggestions_CapsAtThree(t *testing.T) {
	tk, _ := newTestToolkit(t, Config{})

	res, _, err := tk.handleGetActivitySuggestions(context.Background(), nil, activitySuggestionsInput{
		Interests:     "Environment",
		TimeAvailable: 120,
		Location:      "downtown",
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	var got struct {
		Category            string           `json:"category"`
		Location            string           `json:"location"`
		SuggestedActivities []map[string]any `json:"suggested_activities"`
		TotalSuggestions    int              `json:"total_suggestions"`
	}
	decodeResult(t, res, &got)

	assert.Equal(t, "environment", got.Category)
	assert.Equal(t, "downtown", got.Location)
	assert.Len(t, got.SuggestedActivities, 3)
	assert.Equal(t, 3, got.TotalSuggestions)
}

func TestGetActivitySuggestions_UnknownInterest(t *testing.T) {
	tk, _ := newTestToolkit(t, Config{})

	res, _, err := tk.handleGetActivitySuggestions(context.Background(), nil, activitySuggestionsInput{
		Interests:     "astronomy",
		TimeAvailable: 180,
	})
	require.NoError(t, err)

	var got struct {
		Category string `json:"category"`
	}
	decodeResult(t, res, &got)
	assert.Equal(t, "general", got.Category)
}
