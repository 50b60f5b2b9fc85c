// Package middleware holds protocol-level interceptors for the MCP server
// and the HTTP API: tool calls and requests are logged with outcome and
// duration, without touching handler behavior.
package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const methodToolsCall = "tools/call"

// MCPToolLogMiddleware creates MCP protocol-level middleware that logs every
// tools/call with its tool name, duration, and outcome. Other methods pass
// through untouched.
func MCPToolLogMiddleware(logger *slog.Logger) mcp.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			if method != methodToolsCall {
				return next(ctx, method, req)
			}

			start := time.Now()
			result, err := next(ctx, method, req)
			duration := time.Since(start)

			attrs := []any{
				"tool", toolName(req),
				"duration_ms", duration.Milliseconds(),
			}
			switch {
			case err != nil:
				logger.Error("middleware: tool call failed", append(attrs, "error", err)...)
			case isToolError(result):
				logger.Warn("middleware: tool reported error", attrs...)
			default:
				logger.Info("middleware: tool call", attrs...)
			}

			return result, err
		}
	}
}

// toolName extracts the tool name from a tools/call request.
func toolName(req mcp.Request) string {
	params, ok := req.GetParams().(*mcp.CallToolParamsRaw)
	if !ok || params == nil {
		return "unknown"
	}
	return params.Name
}

// isToolError reports whether the result is a CallToolResult carrying a
// tool-level error.
func isToolError(result mcp.Result) bool {
	callResult, ok := result.(*mcp.CallToolResult)
	return ok && callResult != nil && callResult.IsError
}
