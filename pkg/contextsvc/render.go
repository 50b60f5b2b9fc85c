package contextsvc

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dogood/context-hub/pkg/contextstore"
)

// Rendering caps. Only the recent tail of the log is handed to agents so
// the rendered context stays within prompt budgets.
const (
	llmRecentPages      = 10
	llmRecentActivities = 15
	voiceRecentPages    = 3
	voiceSnippetLen     = 200
)

// ContextForLLM renders the context as a prompt block for a text agent.
func (s *Service) ContextForLLM() string {
	sc := s.sc

	var b strings.Builder
	b.WriteString("User Session Context:\n\n")

	if prefs := sc.UserPreferences; prefs != nil {
		b.WriteString("User Preferences:\n")
		if len(prefs.Interests) > 0 {
			fmt.Fprintf(&b, "- Interests: %s\n", strings.Join(prefs.Interests, ", "))
		}
		if prefs.Location != "" {
			fmt.Fprintf(&b, "- Location: %s\n", prefs.Location)
		}
		if len(prefs.Causes) > 0 {
			fmt.Fprintf(&b, "- Causes: %s\n", strings.Join(prefs.Causes, ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString("User Stats:\n")
	fmt.Fprintf(&b, "- Total XP: %d\n", sc.TotalXP)
	fmt.Fprintf(&b, "- Completed Tasks: %d\n", len(sc.CompletedTasks))
	fmt.Fprintf(&b, "- Tasks in Progress: %d\n\n", len(sc.TasksInProgress))

	if recent := tail(sc.PageVisits, llmRecentPages); len(recent) > 0 {
		b.WriteString("Recent Pages Visited:\n")
		for _, visit := range recent {
			duration := ""
			if visit.DurationMS > 0 {
				duration = fmt.Sprintf(" (%ds)", visit.DurationMS/1000)
			}
			fmt.Fprintf(&b, "- %s%s - %s\n", visit.Page, duration, s.timeAgo(visit.Timestamp))
			if visit.PageContent != "" {
				fmt.Fprintf(&b, "  Content: %s\n", visit.PageContent)
			}
		}
		b.WriteString("\n")
	}

	if recent := tail(sc.Activities, llmRecentActivities); len(recent) > 0 {
		b.WriteString("Recent Activities:\n")
		for _, activity := range recent {
			fmt.Fprintf(&b, "- [%s] %s - %s\n", activity.Type, activity.Description, s.timeAgo(activity.Timestamp))
		}
	}

	return b.String()
}

// ContextForVoice renders a single-paragraph summary for the voice agent.
func (s *Service) ContextForVoice() string {
	sc := s.sc

	var b strings.Builder
	fmt.Fprintf(&b, "The user has earned %d XP and completed %d tasks. ", sc.TotalXP, len(sc.CompletedTasks))

	if n := len(sc.TasksInProgress); n > 0 {
		fmt.Fprintf(&b, "They currently have %d task(s) in progress. ", n)
	}

	var withContent []contextstore.PageVisit
	for _, visit := range tail(sc.PageVisits, voiceRecentPages) {
		if visit.PageContent != "" {
			withContent = append(withContent, visit)
		}
	}
	if len(withContent) > 0 {
		b.WriteString("Recent pages they've viewed: ")
		for _, visit := range withContent {
			snippet := truncate(visit.PageContent, voiceSnippetLen)
			fmt.Fprintf(&b, "%s (content: %s), ", visit.Page, snippet)
		}
	}

	if n := len(sc.Activities); n > 0 {
		fmt.Fprintf(&b, "Their most recent activity was: %s. ", sc.Activities[n-1].Description)
	}

	return b.String()
}

// timeAgo renders an epoch-millisecond timestamp relative to now.
func (s *Service) timeAgo(timestamp int64) string {
	seconds := int64(s.now().Sub(time.UnixMilli(timestamp)).Seconds())
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds ago", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%dm ago", seconds/60)
	case seconds < 86400:
		return fmt.Sprintf("%dh ago", seconds/3600)
	default:
		return fmt.Sprintf("%dd ago", seconds/86400)
	}
}

// tail returns the last n elements of s.
func tail[T any](s []T, n int) []T {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// truncate cuts s to at most max bytes without splitting a UTF-8 rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
