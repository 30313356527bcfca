// Package mcptools exposes the optimizer as MCP tools so agents can read the
// serving vector, report engagement and trigger evolution.
//
// Each tool is a struct holding the Optimizer, with Definition returning the
// schema and Handle serving the call.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"brandevo/internal/model"
	"brandevo/internal/platform"
)

// Optimizer is the slice of platform.Controller the tools call.
type Optimizer interface {
	CurrentParameters() (platform.Parameters, error)
	Evolve(ctx context.Context) (platform.Result, error)
	SubmitEngagement(ctx context.Context, obs model.EngagementObservation) (model.EngagementObservation, error)
	History(ctx context.Context, limit int) ([]model.Generation, error)
}

// intArg extracts an integer argument, returning defaultVal if the key is
// missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

func floatArg(req mcp.CallToolRequest, key string, defaultVal float64) float64 {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return v
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
