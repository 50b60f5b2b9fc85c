package activities

import (
	"context"
	"log/slog"

	"github.com/dogood/context-hub/pkg/contextstore"
	"github.com/dogood/context-hub/pkg/mcpbridge"
)

// Generator produces activity bundles, optionally enriched through the MCP
// bridge. A nil bridge is valid and yields unenhanced bundles.
type Generator struct {
	bridge *mcpbridge.Client
}

// NewGenerator creates a Generator. bridge may be nil.
func NewGenerator(bridge *mcpbridge.Client) *Generator {
	return &Generator{bridge: bridge}
}

// Generate builds the default bundle and offers it for enrichment. Any
// enrichment failure (unreachable server, timeout, malformed payload)
// returns the default bundle with the fallback marker set; the caller
// always gets a usable result.
func (g *Generator) Generate(ctx context.Context, userContext *contextstore.SessionContext) mcpbridge.Enhancement[Bundle] {
	bundle := DefaultBundle()

	result := mcpbridge.Enhance(ctx, g.bridge, bundle, userContext)
	if !result.Enhanced {
		slog.Debug("activities: serving unenhanced bundle", "reason", result.FallbackReason)
	}
	return result
}
