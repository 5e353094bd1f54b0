package mcptools

import (
	"context"
	"encoding/json"
	"testing"

	"profile-insight-go/internal/processor"
	"profile-insight-go/internal/types"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testImpl = &mcp.Implementation{Name: "profile-insight-test", Version: "0.1.0"}

type stubAnalyzer struct{}

func (stubAnalyzer) Analyze(ctx context.Context, record types.ProfileRecord, targetRole string) (*types.AnalysisResult, error) {
	return &types.AnalysisResult{OverallScore: 64, Insights: []string{"Add a summary for " + targetRole}}, nil
}

func session(t *testing.T, opts ...processor.ComponentOpt) *mcp.ClientSession {
	t.Helper()
	svc := processor.NewProfileService(nil, processor.Components{}, opts...)
	srv := mcp.NewServer(testImpl, nil)
	Register(srv, svc)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testImpl, nil)
	cs, err := client.Connect(ctx, clientT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })
	return cs
}

func callTool(t *testing.T, cs *mcp.ClientSession, name string, args any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestListTools(t *testing.T) {
	cs := session(t)
	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{ToolParseText, ToolParseURL, ToolAnalyze}, names)
}

func TestParseTextTool(t *testing.T) {
	cs := session(t)
	res := callTool(t, cs, ToolParseText, map[string]any{
		"text": "Jane Doe\nSoftware Engineer at Acme\nSkills\nGo, SQL",
	})
	require.NoError(t, res.GetError())

	var record types.ProfileRecord
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &record))
	assert.Equal(t, "Jane Doe", record.Name)
	assert.Equal(t, "Software Engineer at Acme", record.Headline)
	assert.Equal(t, []string{"Go", "SQL"}, record.Skills)
}

func TestParseTextTool_EmptyIsToolError(t *testing.T) {
	cs := session(t)
	res := callTool(t, cs, ToolParseText, map[string]any{"text": "   "})
	assert.True(t, res.IsError)
	assert.Error(t, res.GetError())
}

func TestAnalyzeTool(t *testing.T) {
	cs := session(t, processor.WithAnalyzer(stubAnalyzer{}))
	res := callTool(t, cs, ToolAnalyze, map[string]any{
		"profile":     map[string]any{"name": "Jane Doe"},
		"target_role": "Data Engineer",
	})
	require.NoError(t, res.GetError())

	var result types.AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &result))
	assert.Equal(t, 64, result.OverallScore)
	assert.Equal(t, []string{"Add a summary for Data Engineer"}, result.Insights)

	res = callTool(t, cs, ToolAnalyze, map[string]any{"target_role": "x"})
	assert.True(t, res.IsError, "缺少 profile")
}

func TestAnalyzeTool_NotConfigured(t *testing.T) {
	cs := session(t)
	res := callTool(t, cs, ToolAnalyze, map[string]any{"profile": map[string]any{"name": "Jane Doe"}})
	assert.True(t, res.IsError)
}
