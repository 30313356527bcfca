package mcptools

import (
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

// NewServer creates the MCP server with every optimizer tool registered.
func NewServer(optimizer Optimizer) *server.MCPServer {
	s := server.NewMCPServer(
		"brandevo",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	parametersTool := NewGetParametersTool(optimizer)
	s.AddTool(parametersTool.Definition(), parametersTool.Handle)

	evolveTool := NewEvolveTool(optimizer)
	s.AddTool(evolveTool.Definition(), evolveTool.Handle)

	engagementTool := NewSubmitEngagementTool(optimizer)
	s.AddTool(engagementTool.Definition(), engagementTool.Handle)

	historyTool := NewGenerationHistoryTool(optimizer)
	s.AddTool(historyTool.Definition(), historyTool.Handle)

	return s
}
