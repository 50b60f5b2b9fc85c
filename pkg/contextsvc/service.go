package contextsvc

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dogood/context-hub/pkg/contextstore"
	"github.com/dogood/context-hub/pkg/mcpbridge"
)

const (
	// DefaultStorageKey is the storage slot the serialized context lives in.
	DefaultStorageKey = "dogood_user_context"

	// maxPageContentLen bounds captured page content.
	maxPageContentLen = 1000
)

// Config configures a Service. Zero values get sensible defaults.
type Config struct {
	// Storage persists the context between service instances. Defaults to
	// a fresh in-memory storage.
	Storage Storage

	// StorageKey overrides DefaultStorageKey.
	StorageKey string

	// BackendURL is the base URL of the context backend, e.g.
	// "http://localhost:8080/api". Empty disables backend sync.
	BackendURL string

	// HTTPClient is used for backend sync. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Bridge pushes context snapshots to the MCP server. Nil disables
	// MCP sync.
	Bridge *mcpbridge.Client
}

// Service accumulates one session's context.
type Service struct {
	storage    Storage
	storageKey string
	backendURL string
	httpClient *http.Client
	bridge     *mcpbridge.Client

	sc *contextstore.SessionContext

	currentPage   string
	pageEnterTime time.Time

	now func() time.Time
}

// New creates a service, restoring the context from storage when a prior
// snapshot exists. A snapshot that fails to parse is discarded and a fresh
// context created.
func New(cfg Config) *Service {
	if cfg.Storage == nil {
		cfg.Storage = NewMemoryStorage()
	}
	if cfg.StorageKey == "" {
		cfg.StorageKey = DefaultStorageKey
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}

	s := &Service{
		storage:    cfg.Storage,
		storageKey: cfg.StorageKey,
		backendURL: strings.TrimSuffix(cfg.BackendURL, "/"),
		httpClient: cfg.HTTPClient,
		bridge:     cfg.Bridge,
		now:        time.Now,
	}
	s.sc = s.load()
	return s
}

func (s *Service) load() *contextstore.SessionContext {
	raw, ok := s.storage.Get(s.storageKey)
	if ok {
		var sc contextstore.SessionContext
		if err := json.Unmarshal([]byte(raw), &sc); err == nil && sc.SessionID != "" {
			slog.Debug("contextsvc: restored context", "sessionId", sc.SessionID)
			return &sc
		}
		slog.Warn("contextsvc: stored context unreadable, starting fresh")
	}
	return s.freshContext()
}

func (s *Service) freshContext() *contextstore.SessionContext {
	sc := &contextstore.SessionContext{
		SessionID:        s.generateSessionID(),
		SessionStartTime: s.now().UnixMilli(),
		PageVisits:       []contextstore.PageVisit{},
		Activities:       []contextstore.ActivityEvent{},
		TasksInProgress:  []string{},
		CompletedTasks:   []string{},
	}
	slog.Debug("contextsvc: created context", "sessionId", sc.SessionID)
	return sc
}

func (s *Service) generateSessionID() string {
	return fmt.Sprintf("session_%d_%s", s.now().UnixMilli(), uuid.NewString()[:8])
}

func (s *Service) save() {
	data, err := json.Marshal(s.sc)
	if err != nil {
		slog.Error("contextsvc: encoding context", "error", err)
		return
	}
	s.storage.Set(s.storageKey, string(data))
}

// SessionID returns the current session identifier.
func (s *Service) SessionID() string {
	return s.sc.SessionID
}

// Context returns a deep copy of the current context.
func (s *Service) Context() *contextstore.SessionContext {
	return s.sc.Clone()
}

// TrackPageVisit records navigation to a page, closing the duration of the
// previous visit.
func (s *Service) TrackPageVisit(page string) {
	s.recordPageDuration()

	s.sc.PageVisits = append(s.sc.PageVisits, contextstore.PageVisit{
		Page:      page,
		Timestamp: s.now().UnixMilli(),
	})
	s.currentPage = page
	s.pageEnterTime = s.now()
	s.save()
}

// recordPageDuration stamps the open visit with the time spent so far.
// A visit is only stamped once.
func (s *Service) recordPageDuration() {
	if s.currentPage == "" || s.pageEnterTime.IsZero() || len(s.sc.PageVisits) == 0 {
		return
	}
	last := &s.sc.PageVisits[len(s.sc.PageVisits)-1]
	if last.Page == s.currentPage && last.DurationMS == 0 {
		last.DurationMS = s.now().Sub(s.pageEnterTime).Milliseconds()
		s.save()
	}
}

// SetPageContent stamps captured text onto the current visit. Whitespace is
// collapsed and content truncated to keep the context manageable.
func (s *Service) SetPageContent(content string) {
	content = strings.Join(strings.Fields(content), " ")
	if len(content) > maxPageContentLen {
		content = truncate(content, maxPageContentLen) + "..."
	}
	if content == "" || len(s.sc.PageVisits) == 0 {
		return
	}

	last := &s.sc.PageVisits[len(s.sc.PageVisits)-1]
	if last.Page == s.currentPage && last.PageContent == "" {
		last.PageContent = content
		s.save()
	}
}

// LogActivity appends an event to the behavioral log.
func (s *Service) LogActivity(eventType contextstore.ActivityType, description string, metadata map[string]any) {
	s.sc.Activities = append(s.sc.Activities, contextstore.ActivityEvent{
		Type:        eventType,
		Description: description,
		Timestamp:   s.now().UnixMilli(),
		Metadata:    metadata,
	})
	s.save()
}

// UpdatePreferences shallow-merges the given preferences into the current
// set. Zero-valued fields are retained.
func (s *Service) UpdatePreferences(prefs *contextstore.UserPreferences) {
	s.sc.UserPreferences = contextstore.MergePreferences(s.sc.UserPreferences, prefs)
	s.save()

	s.LogActivity(contextstore.ActivityPreferenceUpdated, "User updated preferences", preferenceMetadata(prefs))
}

func preferenceMetadata(prefs *contextstore.UserPreferences) map[string]any {
	if prefs == nil {
		return nil
	}
	md := map[string]any{}
	if prefs.Interests != nil {
		md["interests"] = prefs.Interests
	}
	if prefs.Location != "" {
		md["location"] = prefs.Location
	}
	if prefs.Causes != nil {
		md["causes"] = prefs.Causes
	}
	if prefs.AvailableHours != "" {
		md["availableHours"] = string(prefs.AvailableHours)
	}
	return md
}

// StartTask marks a task as in progress. Starting a task twice is a no-op.
func (s *Service) StartTask(taskID, taskTitle string) {
	for _, id := range s.sc.TasksInProgress {
		if id == taskID {
			return
		}
	}
	s.sc.TasksInProgress = append(s.sc.TasksInProgress, taskID)
	s.LogActivity(contextstore.ActivityTaskStarted, "Started task: "+taskTitle, map[string]any{"taskId": taskID})
}

// CompleteTask moves a task to the completed set and awards XP. A task never
// appears in both sets, and repeat completion awards XP only once.
func (s *Service) CompleteTask(taskID, taskTitle string, xpGained int) {
	inProgress := s.sc.TasksInProgress[:0]
	for _, id := range s.sc.TasksInProgress {
		if id != taskID {
			inProgress = append(inProgress, id)
		}
	}
	s.sc.TasksInProgress = inProgress

	for _, id := range s.sc.CompletedTasks {
		if id == taskID {
			s.save()
			return
		}
	}

	s.sc.CompletedTasks = append(s.sc.CompletedTasks, taskID)
	s.sc.TotalXP += xpGained
	s.LogActivity(contextstore.ActivityTaskCompleted, "Completed task: "+taskTitle, map[string]any{
		"taskId":   taskID,
		"xpGained": xpGained,
		"totalXP":  s.sc.TotalXP,
	})
}

// Reset discards the current context and starts a fresh session.
func (s *Service) Reset() {
	s.sc = s.freshContext()
	s.currentPage = ""
	s.pageEnterTime = time.Time{}
	s.save()
	slog.Info("contextsvc: context reset", "sessionId", s.sc.SessionID)
}

// Export serializes the current context.
func (s *Service) Export() ([]byte, error) {
	data, err := json.Marshal(s.sc)
	if err != nil {
		return nil, fmt.Errorf("encoding context: %w", err)
	}
	return data, nil
}

// Import replaces the current context with a previously exported snapshot.
// The snapshot is validated first; the current context is kept on failure.
func (s *Service) Import(data []byte) error {
	var sc contextstore.SessionContext
	if err := json.Unmarshal(data, &sc); err != nil {
		return fmt.Errorf("decoding context: %w", err)
	}
	if sc.SessionID == "" {
		return errors.New("imported context has no session id")
	}

	s.sc = &sc
	s.save()
	return nil
}
