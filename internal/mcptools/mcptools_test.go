package mcptools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"brandevo/internal/config"
	"brandevo/internal/platform"
	"brandevo/internal/storage"
)

// ─── Test helpers ────────────────────────────────────────────────────────────

func newTestController(t *testing.T) *platform.Controller {
	t.Helper()
	c, err := platform.NewController(config.Default(), storage.NewMemoryStore())
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("init controller: %v", err)
	}
	return c
}

func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func submit(t *testing.T, tool *SubmitEngagementTool, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	result, err := tool.Handle(context.Background(), makeReq(args))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return result
}

// ─── Definitions ─────────────────────────────────────────────────────────────

func TestDefinitions(t *testing.T) {
	c := newTestController(t)
	names := map[string]mcp.Tool{
		"get_parameters":     NewGetParametersTool(c).Definition(),
		"evolve":             NewEvolveTool(c).Definition(),
		"submit_engagement":  NewSubmitEngagementTool(c).Definition(),
		"generation_history": NewGenerationHistoryTool(c).Definition(),
	}
	for want, def := range names {
		if def.Name != want {
			t.Fatalf("expected tool name %q, got %q", want, def.Name)
		}
		if def.Description == "" {
			t.Fatalf("tool %s has no description", want)
		}
	}
}

// ─── GetParametersTool ───────────────────────────────────────────────────────

func TestGetParametersTool_Handle(t *testing.T) {
	tool := NewGetParametersTool(newTestController(t))
	result, err := tool.Handle(context.Background(), makeReq(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(result))
	}

	var params platform.Parameters
	if err := json.Unmarshal([]byte(resultText(result)), &params); err != nil {
		t.Fatalf("decode parameters: %v", err)
	}
	if params.GenerationID != 0 || params.Named["music_tempo"] != 90 {
		t.Fatalf("unexpected parameters: %+v", params)
	}
}

// ─── SubmitEngagementTool ────────────────────────────────────────────────────

func TestSubmitEngagementTool_Handle(t *testing.T) {
	tool := NewSubmitEngagementTool(newTestController(t))

	result := submit(t, tool, map[string]interface{}{
		"generation_id":  float64(0),
		"index":          float64(2),
		"views":          float64(40),
		"likes":          float64(4),
		"watch_fraction": 0.7,
		"id":             "obs-1",
	})
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(result))
	}
	if !strings.Contains(resultText(result), "obs-1") || !strings.Contains(resultText(result), "g0/i2") {
		t.Fatalf("unexpected result text: %s", resultText(result))
	}
}

func TestSubmitEngagementTool_Rejections(t *testing.T) {
	tool := NewSubmitEngagementTool(newTestController(t))
	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{"missing ref", map[string]interface{}{"views": float64(1)}, "required"},
		{"missing views", map[string]interface{}{"generation_id": float64(0), "index": float64(0)}, "'views'"},
		{"slot out of range", map[string]interface{}{"generation_id": float64(0), "index": float64(50), "views": float64(1)}, "rejected"},
		{"watch out of range", map[string]interface{}{"generation_id": float64(0), "index": float64(1), "views": float64(1), "watch_fraction": 2.0}, "rejected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := submit(t, tool, tt.args)
			if !result.IsError {
				t.Fatalf("expected tool error, got %s", resultText(result))
			}
			if !strings.Contains(resultText(result), tt.want) {
				t.Fatalf("expected %q in %q", tt.want, resultText(result))
			}
		})
	}
}

// ─── EvolveTool and GenerationHistoryTool ────────────────────────────────────

func TestEvolveTool_EvolvesAndRecordsHistory(t *testing.T) {
	c := newTestController(t)
	engagement := NewSubmitEngagementTool(c)
	for i := 0; i < 10; i++ {
		result := submit(t, engagement, map[string]interface{}{
			"generation_id":  float64(0),
			"index":          float64(i),
			"views":          float64(100),
			"likes":          float64(i + 1),
			"shares":         float64(1),
			"watch_fraction": 0.5,
		})
		if result.IsError {
			t.Fatalf("submit slot %d: %s", i, resultText(result))
		}
	}

	result, err := NewEvolveTool(c).Handle(context.Background(), makeReq(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var evolved platform.Result
	if err := json.Unmarshal([]byte(resultText(result)), &evolved); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if evolved.Status != platform.OutcomeEvolved || evolved.NewGenerationID != 1 {
		t.Fatalf("unexpected evolve result: %+v", evolved)
	}

	history, err := NewGenerationHistoryTool(c).Handle(context.Background(), makeReq(map[string]interface{}{"limit": float64(5)}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := resultText(history)
	if !strings.HasPrefix(text, "#1 active") || !strings.Contains(text, "#0 evolved") || !strings.Contains(text, "-> #1") {
		t.Fatalf("unexpected history: %s", text)
	}
}

func TestEvolveTool_StallsWithoutEngagement(t *testing.T) {
	result, err := NewEvolveTool(newTestController(t)).Handle(context.Background(), makeReq(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(resultText(result), `"stalled"`) {
		t.Fatalf("expected stalled result, got %s", resultText(result))
	}
}

type busyOptimizer struct {
	Optimizer
}

func (busyOptimizer) Evolve(context.Context) (platform.Result, error) {
	return platform.Result{}, platform.ErrEvolutionInProgress
}

func TestEvolveTool_Busy(t *testing.T) {
	tool := NewEvolveTool(busyOptimizer{Optimizer: newTestController(t)})
	result, err := tool.Handle(context.Background(), makeReq(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError || !strings.Contains(resultText(result), `"busy"`) {
		t.Fatalf("expected busy result, got %s", resultText(result))
	}
}

func TestNewServerRegistersTools(t *testing.T) {
	s := NewServer(newTestController(t))
	if s == nil {
		t.Fatal("expected server")
	}
}
