// Package contextstore provides the authoritative in-process storage for
// session contexts. A session context accumulates one user's page visits,
// activity log, preferences, and task progress for the lifetime of a browser
// session, and carries enrichment data pushed back by the external MCP
// tool server.
package contextstore

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"time"
)

// ActivityType categorizes activity events.
type ActivityType string

const (
	// ActivityTaskStarted is recorded when the user begins a task.
	ActivityTaskStarted ActivityType = "task_started"

	// ActivityTaskCompleted is recorded when the user completes a task.
	ActivityTaskCompleted ActivityType = "task_completed"

	// ActivityPhotoTaken is recorded when the user submits a verification photo.
	ActivityPhotoTaken ActivityType = "photo_taken"

	// ActivityGenerated is recorded when a new activity bundle is generated.
	ActivityGenerated ActivityType = "activity_generated"

	// ActivityVoiceSessionStarted is recorded when a voice session opens.
	ActivityVoiceSessionStarted ActivityType = "voice_session_started"

	// ActivityVoiceSessionEnded is recorded when a voice session closes.
	ActivityVoiceSessionEnded ActivityType = "voice_session_ended"

	// ActivityPreferenceUpdated is recorded when preferences change.
	ActivityPreferenceUpdated ActivityType = "preference_updated"

	// ActivityInjected is the audit event for an externally injected activity.
	ActivityInjected ActivityType = "activity_injected"

	// ActivitySuggestionsUpdated is the audit event for a suggestion update.
	ActivitySuggestionsUpdated ActivityType = "suggestions_updated"

	// ActivityCustom is a free-form event.
	ActivityCustom ActivityType = "custom"
)

// ContextType names the activity buckets the MCP server may inject into.
type ContextType string

const (
	// ContextServe is the community service activity bucket.
	ContextServe ContextType = "serve"

	// ContextProductivity is the productivity task bucket.
	ContextProductivity ContextType = "productivity"

	// ContextSelfImprove is the self-improvement task bucket.
	ContextSelfImprove ContextType = "self_improve"
)

// Valid reports whether c is a known context type.
func (c ContextType) Valid() bool {
	switch c {
	case ContextServe, ContextProductivity, ContextSelfImprove:
		return true
	}
	return false
}

// PageVisit records one visit to an app page. Timestamps are epoch
// milliseconds to match the client wire format.
type PageVisit struct {
	Page        string `json:"page"`
	Timestamp   int64  `json:"timestamp"`
	DurationMS  int64  `json:"duration,omitempty"`
	PageContent string `json:"pageContent,omitempty"`
}

// ActivityEvent is one entry in the behavioral log. The same log doubles as
// the audit trail for externally injected mutations.
type ActivityEvent struct {
	Type        ActivityType   `json:"type"`
	Description string         `json:"description"`
	Timestamp   int64          `json:"timestamp"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Hours is a flexible string that also accepts a JSON number. Older clients
// send availableHours as a number.
type Hours string

// UnmarshalJSON accepts either a JSON string or a JSON number.
func (h *Hours) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*h = Hours(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("availableHours must be a string or number: %w", err)
	}
	*h = Hours(strconv.FormatFloat(n, 'f', -1, 64))
	return nil
}

// UserPreferences is the optional partial preference record. Fields left
// empty on update are retained.
type UserPreferences struct {
	Interests      []string `json:"interests,omitempty"`
	Location       string   `json:"location,omitempty"`
	Causes         []string `json:"causes,omitempty"`
	AvailableHours Hours    `json:"availableHours,omitempty"`
}

// InjectedActivity is an externally injected activity object. The shape is
// controlled by the injecting server; the store only stamps injectedAt.
type InjectedActivity map[string]any

// Suggestions is the current recommendation set pushed by the MCP server.
// It is fully replaced on each update, never merged.
type Suggestions struct {
	Suggestions []any  `json:"suggestions"`
	Reasoning   string `json:"reasoning"`
	UpdatedAt   int64  `json:"updatedAt"`
	Source      string `json:"source"`
}

// SessionContext is the accumulated record for one session identifier.
type SessionContext struct {
	SessionID        string          `json:"sessionId"`
	SessionStartTime int64           `json:"sessionStartTime"`
	PageVisits       []PageVisit     `json:"pageVisits"`
	Activities       []ActivityEvent `json:"activities"`

	UserPreferences *UserPreferences `json:"userPreferences,omitempty"`

	TasksInProgress []string `json:"tasksInProgress"`
	CompletedTasks  []string `json:"completedTasks"`
	TotalXP         int      `json:"totalXP"`
	CurrentStreak   int      `json:"currentStreak"`

	MCPInjectedActivities map[ContextType][]InjectedActivity `json:"mcpInjectedActivities,omitempty"`
	MCPSuggestions        *Suggestions                       `json:"mcpSuggestions,omitempty"`
}

// New creates an empty context for the given session identifier, started now.
func New(sessionID string) *SessionContext {
	return &SessionContext{
		SessionID:        sessionID,
		SessionStartTime: time.Now().UnixMilli(),
		PageVisits:       []PageVisit{},
		Activities:       []ActivityEvent{},
		TasksInProgress:  []string{},
		CompletedTasks:   []string{},
	}
}

// StartedAt returns the session start time.
func (c *SessionContext) StartedAt() time.Time {
	return time.UnixMilli(c.SessionStartTime)
}

// AppendActivity appends an event to the activity log, stamping it with the
// current time when the event carries no timestamp.
func (c *SessionContext) AppendActivity(event ActivityEvent) {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	c.Activities = append(c.Activities, event)
}

// InjectActivity records activity under the named bucket, stamping injectedAt.
// The bucket is created on first use.
func (c *SessionContext) InjectActivity(contextType ContextType, activity InjectedActivity) InjectedActivity {
	stamped := InjectedActivity(deepCopyMap(activity))
	stamped["injectedAt"] = time.Now().UnixMilli()

	if c.MCPInjectedActivities == nil {
		c.MCPInjectedActivities = map[ContextType][]InjectedActivity{
			ContextServe:        {},
			ContextProductivity: {},
			ContextSelfImprove:  {},
		}
	}
	c.MCPInjectedActivities[contextType] = append(c.MCPInjectedActivities[contextType], stamped)
	return stamped
}

// Clone returns a deep copy. Mutating the copy never affects the original,
// including nested metadata and injected activity objects.
func (c *SessionContext) Clone() *SessionContext {
	if c == nil {
		return nil
	}

	out := *c
	out.PageVisits = slices.Clone(c.PageVisits)
	out.TasksInProgress = slices.Clone(c.TasksInProgress)
	out.CompletedTasks = slices.Clone(c.CompletedTasks)

	out.Activities = make([]ActivityEvent, len(c.Activities))
	for i, a := range c.Activities {
		a.Metadata = deepCopyMap(a.Metadata)
		out.Activities[i] = a
	}

	if c.UserPreferences != nil {
		prefs := *c.UserPreferences
		prefs.Interests = slices.Clone(c.UserPreferences.Interests)
		prefs.Causes = slices.Clone(c.UserPreferences.Causes)
		out.UserPreferences = &prefs
	}

	if c.MCPInjectedActivities != nil {
		out.MCPInjectedActivities = make(map[ContextType][]InjectedActivity, len(c.MCPInjectedActivities))
		for ct, items := range c.MCPInjectedActivities {
			copied := make([]InjectedActivity, len(items))
			for i, item := range items {
				copied[i] = InjectedActivity(deepCopyMap(item))
			}
			out.MCPInjectedActivities[ct] = copied
		}
	}

	if c.MCPSuggestions != nil {
		sugg := *c.MCPSuggestions
		sugg.Suggestions = deepCopySlice(c.MCPSuggestions.Suggestions)
		out.MCPSuggestions = &sugg
	}

	return &out
}

// deepCopyMap copies a JSON-shaped map, recursing into nested maps and slices.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

// deepCopySlice copies a JSON-shaped slice.
func deepCopySlice(s []any) []any {
	if s == nil {
		return nil
	}
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case []any:
		return deepCopySlice(t)
	default:
		return v
	}
}

// MergePreferences shallow-merges incoming preference fields into base.
// Empty incoming fields retain the base value.
func MergePreferences(base, incoming *UserPreferences) *UserPreferences {
	if incoming == nil {
		return base
	}
	if base == nil {
		prefs := *incoming
		return &prefs
	}
	merged := *base
	if incoming.Interests != nil {
		merged.Interests = slices.Clone(incoming.Interests)
	}
	if incoming.Location != "" {
		merged.Location = incoming.Location
	}
	if incoming.Causes != nil {
		merged.Causes = slices.Clone(incoming.Causes)
	}
	if incoming.AvailableHours != "" {
		merged.AvailableHours = incoming.AvailableHours
	}
	return &merged
}
