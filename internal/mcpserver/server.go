package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates a configured MCP server with all CartGuard tools registered.
func NewMCPServer(cfg Config) *server.MCPServer {
	s := server.NewMCPServer("cartguard", "1.0.0")
	client := NewCartGuardClient(cfg)
	h := NewHandlers(client)

	s.AddTool(ToolScanSession, h.HandleScanSession)
	s.AddTool(ToolForecastAbandonment, h.HandleForecastAbandonment)
	s.AddTool(ToolRecentScans, h.HandleRecentScans)
	s.AddTool(ToolFunnelSummary, h.HandleFunnelSummary)

	return s
}
