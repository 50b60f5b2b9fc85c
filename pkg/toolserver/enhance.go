package toolserver

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dogood/context-hub/pkg/activities"
	"github.com/dogood/context-hub/pkg/contextstore"
)

// Personalization scoring weights. The score starts at a neutral base and
// is boosted by preference matches, capped at 1.0.
const (
	baseScore     = 0.5
	interestBoost = 0.2
	causeBoost    = 0.3

	highScoreThreshold   = 0.8
	mediumScoreThreshold = 0.6
	engagementThreshold  = 0.7

	nearbyMiles = 5.0
)

type enhanceActivitiesInput struct {
	Activities  *activities.Bundle           `json:"activities"`
	UserContext *contextstore.SessionContext `json:"userContext,omitempty"`
}

// handleEnhanceActivities transforms a generated bundle with
// personalization metadata. Enhancement is additive: the bundle shape is
// preserved and a missing user context simply yields neutral scores.
func (t *Toolkit) handleEnhanceActivities(_ context.Context, _ *mcp.CallToolRequest, input enhanceActivitiesInput) (*mcp.CallToolResult, any, error) {
	if input.Activities == nil {
		return errorResult("activities bundle is required"), nil, nil
	}

	uc := input.UserContext
	if uc == nil {
		uc = &contextstore.SessionContext{}
	}

	enhanced := activities.Bundle{
		CommunityOpportunities: enhanceOpportunities(input.Activities.CommunityOpportunities, uc),
		CrisisAlerts:           enhanceCrisisAlerts(input.Activities.CrisisAlerts, uc),
		MiniGames:              enhanceMiniGames(input.Activities.MiniGames),
	}

	return jsonResult(enhanced)
}

func enhanceOpportunities(opps []activities.Opportunity, uc *contextstore.SessionContext) []activities.Opportunity {
	var interests, causes []string
	if uc.UserPreferences != nil {
		interests = uc.UserPreferences.Interests
		causes = uc.UserPreferences.Causes
	}

	out := make([]activities.Opportunity, len(opps))
	for i, opp := range opps {
		score := baseScore
		if matchesAny(opp.Title, opp.Location, interests) {
			score += interestBoost
		}
		if matchesAny(opp.Title, opp.Location, causes) {
			score += causeBoost
		}
		if score > 1.0 {
			score = 1.0
		}

		engagement := "medium"
		if score > engagementThreshold {
			engagement = "high"
		}

		opp.Enhanced = map[string]any{
			"personalization_score":        score,
			"recommendation_reason":        recommendationReason(score, interests, causes),
			"similar_activities_completed": similarCompleted(opp.Title, uc.CompletedTasks),
			"optimal_time":                 optimalTime(uc.Activities),
			"community_engagement":         engagement,
		}
		out[i] = opp
	}
	return out
}

func enhanceCrisisAlerts(alerts []activities.CrisisAlert, uc *contextstore.SessionContext) []activities.CrisisAlert {
	out := make([]activities.CrisisAlert, len(alerts))
	for i, alert := range alerts {
		out[i] = alert
		out[i].Enhanced = map[string]any{
			"urgency_boost":  alert.Urgency == "high",
			"user_relevance": alertRelevance(alert, uc),
		}
	}
	return out
}

func enhanceMiniGames(games []activities.MiniGame) []activities.MiniGame {
	out := make([]activities.MiniGame, len(games))
	for i, game := range games {
		out[i] = game
		out[i].Enhanced = map[string]any{
			"difficulty":           "medium",
			"estimated_completion": game.Time,
			"fun_factor":           0.8,
		}
	}
	return out
}

// matchesAny reports whether any term appears in either text field.
func matchesAny(title, body string, terms []string) bool {
	if len(terms) == 0 {
		return false
	}
	title = strings.ToLower(title)
	body = strings.ToLower(body)
	for _, term := range terms {
		term = strings.ToLower(term)
		if term == "" {
			continue
		}
		if strings.Contains(title, term) || strings.Contains(body, term) {
			return true
		}
	}
	return false
}

// similarCompleted counts completed task ids sharing the opportunity's
// leading word.
func similarCompleted(title string, completed []string) int {
	firstWord, _, _ := strings.Cut(title, " ")
	firstWord = strings.ToLower(firstWord)
	if firstWord == "" {
		return 0
	}

	n := 0
	for _, task := range completed {
		if strings.Contains(strings.ToLower(task), firstWord) {
			n++
		}
	}
	return n
}

// optimalTime derives a time-of-day preference from the average hour of
// the user's recorded activity.
func optimalTime(events []contextstore.ActivityEvent) string {
	if len(events) == 0 {
		return "morning"
	}

	total := 0
	for _, e := range events {
		total += time.UnixMilli(e.Timestamp).Hour()
	}

	switch avg := total / len(events); {
	case avg < 12:
		return "morning"
	case avg < 17:
		return "afternoon"
	default:
		return "evening"
	}
}

// alertRelevance scores a crisis alert against user location and causes.
func alertRelevance(alert activities.CrisisAlert, uc *contextstore.SessionContext) map[string]any {
	relevance := baseScore
	if uc.UserPreferences != nil {
		if loc := uc.UserPreferences.Location; loc != "" && strings.Contains(alert.Location, loc) {
			relevance += causeBoost
		}
		if matchesAny(alert.Title, "", uc.UserPreferences.Causes) {
			relevance += interestBoost
		}
	}
	if relevance > 1.0 {
		relevance = 1.0
	}

	return map[string]any{
		"score":          relevance,
		"distance_score": distanceScore(alert.Location),
	}
}

// distanceScore classifies a "N.N miles" suffix as nearby or distant.
// Unparseable locations count as distant.
func distanceScore(location string) string {
	fields := strings.Fields(location)
	for i, f := range fields {
		if i > 0 && strings.HasPrefix(f, "mile") {
			if miles, err := strconv.ParseFloat(fields[i-1], 64); err == nil && miles < nearbyMiles {
				return "nearby"
			}
		}
	}
	return "distant"
}

// recommendationReason explains the score in user-facing language.
func recommendationReason(score float64, interests, causes []string) string {
	switch {
	case score > highScoreThreshold && len(interests) > 0:
		return fmt.Sprintf("Highly recommended based on your interests in %s", strings.Join(interests, ", "))
	case score > mediumScoreThreshold && len(causes) > 0:
		return fmt.Sprintf("Matches your preference for %s activities", strings.Join(causes, " and "))
	default:
		return "Great opportunity to try something new"
	}
}
