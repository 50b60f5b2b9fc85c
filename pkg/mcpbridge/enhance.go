package mcpbridge

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Enhancement carries either enriched data or the caller's original value
// with an explicit fallback marker. Enhancement is strictly best-effort:
// the Value is always usable, whatever happened on the wire.
type Enhancement[T any] struct {
	Value    T
	Enhanced bool

	// FallbackReason explains why enrichment was skipped. Empty when
	// Enhanced is true.
	FallbackReason string
}

// Fallback wraps a value as an unenhanced result.
func Fallback[T any](value T, reason string) Enhancement[T] {
	return Enhancement[T]{Value: value, FallbackReason: reason}
}

// Enhance asks the tool server to transform a generated activity bundle.
// On any failure (nil client, unreachable server, timeout, malformed
// response) the original bundle comes back unchanged with a fallback
// marker. Callers never need an error path.
func Enhance[T any](ctx context.Context, c *Client, bundle T, userContext any) Enhancement[T] {
	if c == nil {
		return Fallback(bundle, "bridge not configured")
	}

	raw, err := c.CallTool(ctx, ToolEnhanceActivities, map[string]any{
		"activities":  bundle,
		"userContext": userContext,
	})
	if err != nil {
		slog.Warn("mcpbridge: enhancement unavailable, using original activities", "error", err)
		return Fallback(bundle, err.Error())
	}

	var enhanced T
	if err := json.Unmarshal(raw, &enhanced); err != nil {
		slog.Warn("mcpbridge: malformed enhancement payload, using original activities", "error", err)
		return Fallback(bundle, "malformed enhancement payload")
	}

	return Enhancement[T]{Value: enhanced, Enhanced: true}
}
