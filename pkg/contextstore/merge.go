package contextstore

import "slices"

// Policy declares how one SessionContext field combines during a partial
// update.
type Policy string

const (
	// PolicyAppend concatenates the incoming sequence after the existing one.
	// No deduplication happens at the store layer; that is the client
	// service's responsibility.
	PolicyAppend Policy = "append"

	// PolicyReplace overwrites the existing value when the incoming update
	// carries the field, and retains it otherwise.
	PolicyReplace Policy = "replace"

	// PolicyIgnore drops the incoming value. Identity fields are immutable
	// after creation.
	PolicyIgnore Policy = "ignore"
)

// fieldPolicies is the declarative merge contract, keyed by wire field name.
// Merge dispatches on this table; tests assert against it directly.
var fieldPolicies = map[string]Policy{
	"sessionId":             PolicyIgnore,
	"sessionStartTime":      PolicyIgnore,
	"pageVisits":            PolicyAppend,
	"activities":            PolicyAppend,
	"completedTasks":        PolicyAppend,
	"tasksInProgress":       PolicyReplace,
	"userPreferences":       PolicyReplace,
	"totalXP":               PolicyReplace,
	"currentStreak":         PolicyReplace,
	"mcpInjectedActivities": PolicyReplace,
	"mcpSuggestions":        PolicyReplace,
}

// PolicyFor returns the merge policy for a wire field name, or PolicyIgnore
// for unknown fields.
func PolicyFor(field string) Policy {
	if p, ok := fieldPolicies[field]; ok {
		return p
	}
	return PolicyIgnore
}

// Update is a partial SessionContext. Nil fields are absent from the update
// and leave the stored value untouched; pointer fields distinguish "absent"
// from an explicit empty value.
type Update struct {
	PageVisits     []PageVisit     `json:"pageVisits,omitempty"`
	Activities     []ActivityEvent `json:"activities,omitempty"`
	CompletedTasks []string        `json:"completedTasks,omitempty"`

	TasksInProgress *[]string        `json:"tasksInProgress,omitempty"`
	UserPreferences *UserPreferences `json:"userPreferences,omitempty"`
	TotalXP         *int             `json:"totalXP,omitempty"`
	CurrentStreak   *int             `json:"currentStreak,omitempty"`

	MCPInjectedActivities map[ContextType][]InjectedActivity `json:"mcpInjectedActivities,omitempty"`
	MCPSuggestions        *Suggestions                       `json:"mcpSuggestions,omitempty"`
}

// apply folds the update into a copy of base and returns it. The base is
// never mutated, so a failed write can keep serving the prior state.
func (u *Update) apply(base *SessionContext) *SessionContext {
	merged := base.Clone()
	if u == nil {
		return merged
	}

	// PolicyAppend fields: existing + incoming, order preserved.
	merged.PageVisits = append(merged.PageVisits, u.PageVisits...)
	merged.Activities = append(merged.Activities, u.Activities...)
	merged.CompletedTasks = append(merged.CompletedTasks, u.CompletedTasks...)

	// PolicyReplace fields: wholesale overwrite when present.
	if u.TasksInProgress != nil {
		merged.TasksInProgress = slices.Clone(*u.TasksInProgress)
	}
	if u.TotalXP != nil {
		merged.TotalXP = *u.TotalXP
	}
	if u.CurrentStreak != nil {
		merged.CurrentStreak = *u.CurrentStreak
	}
	if u.MCPInjectedActivities != nil {
		merged.MCPInjectedActivities = u.MCPInjectedActivities
	}
	if u.MCPSuggestions != nil {
		sugg := *u.MCPSuggestions
		merged.MCPSuggestions = &sugg
	}
	if u.UserPreferences != nil {
		prefs := *u.UserPreferences
		merged.UserPreferences = &prefs
	}

	return merged
}
