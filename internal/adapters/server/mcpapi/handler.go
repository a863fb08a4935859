// Package mcpapi provides a stateless MCP streamable-HTTP adapter.
package mcpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/hylla/kanmap/internal/adapters/server/common"
	"github.com/hylla/kanmap/internal/app"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter exposing the board tools. saver is optional.
func NewHandler(cfg Config, board common.BoardService, saver common.BoardSaver) (*Handler, error) {
	if board == nil {
		return nil, fmt.Errorf("board service is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerReadTools(mcpSrv, board)
	registerColumnTools(mcpSrv, board)
	registerTaskTools(mcpSrv, board)
	registerSyncTools(mcpSrv, board)
	if saver != nil {
		registerSaveTool(mcpSrv, saver)
	}

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "kanmap"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	if !strings.HasPrefix(cfg.EndpointPath, "/") {
		cfg.EndpointPath = "/" + cfg.EndpointPath
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// toolResultFromError maps service errors into MCP-visible tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	if err == nil {
		return mcp.NewToolResultError("internal_error: unknown error")
	}
	return mcp.NewToolResultError(string(common.Classify(err)) + ": " + err.Error())
}

// invalidRequestToolResult maps argument binding failures into validation errors.
func invalidRequestToolResult(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(string(common.CodeValidation) + ": " + err.Error())
}

// jsonResult encodes one payload, wrapping encoding failures with the tool name.
func jsonResult(tool string, payload any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s result: %w", tool, err)
	}
	return result, nil
}

// withActor attributes the call to the optional `actor` argument.
func withActor(ctx context.Context, req mcp.CallToolRequest) context.Context {
	if actor := strings.TrimSpace(req.GetString("actor", "")); actor != "" {
		return app.WithActor(ctx, actor)
	}
	return ctx
}

// viewArg parses the optional `view` argument.
func viewArg(req mcp.CallToolRequest) (app.View, *mcp.CallToolResult) {
	view, err := common.ParseView(req.GetString("view", ""))
	if err != nil {
		return "", toolResultFromError(err)
	}
	return view, nil
}

// viewOption declares the shared `view` argument.
func viewOption() mcp.ToolOption {
	return mcp.WithString("view", mcp.Description("Task collection to act on (defaults to kanban)"), mcp.Enum(string(app.ViewKanban), string(app.ViewMindMap)))
}

// actorOption declares the shared `actor` argument.
func actorOption() mcp.ToolOption {
	return mcp.WithString("actor", mcp.Description("User the change is attributed to in task history"))
}
