// Package mcptools 将档案解析和分析暴露为 MCP 工具
package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"profile-insight-go/internal/logger"
	"profile-insight-go/internal/processor"
	"profile-insight-go/internal/types"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// 工具名
const (
	ToolParseText = "profile_parse_text"
	ToolParseURL  = "profile_parse_url"
	ToolAnalyze   = "profile_analyze"
)

type parseTextArgs struct {
	Text string `json:"text"`
}

type parseURLArgs struct {
	URL string `json:"url"`
}

type analyzeArgs struct {
	Profile    *types.ProfileRecord `json:"profile"`
	TargetRole string               `json:"target_role"`
}

// Register 在 MCP 服务上注册档案工具
func Register(srv *mcp.Server, service *processor.ProfileService) {
	srv.AddTool(&mcp.Tool{
		Name:        ToolParseText,
		Description: "Parse raw professional profile text (LinkedIn export, pasted page) into a structured profile record.",
		InputSchema: objectSchema(map[string]any{
			"text": map[string]any{"type": "string", "description": "Raw profile text"},
		}, "text"),
	}, handle(func(ctx context.Context, args parseTextArgs) (any, error) {
		res, err := service.ParseText(ctx, args.Text)
		if err != nil {
			return nil, err
		}
		return res.Profile, nil
	}))

	srv.AddTool(&mcp.Tool{
		Name:        ToolParseURL,
		Description: "Fetch a public profile page and parse its visible text into a structured profile record.",
		InputSchema: objectSchema(map[string]any{
			"url": map[string]any{"type": "string", "description": "http(s) URL of the profile page"},
		}, "url"),
	}, handle(func(ctx context.Context, args parseURLArgs) (any, error) {
		res, err := service.ParseURL(ctx, args.URL)
		if err != nil {
			return nil, err
		}
		return res.Profile, nil
	}))

	srv.AddTool(&mcp.Tool{
		Name:        ToolAnalyze,
		Description: "Score a structured profile record and suggest improvements, optionally for a target role.",
		InputSchema: objectSchema(map[string]any{
			"profile":     map[string]any{"type": "object", "description": "Profile record returned by profile_parse_text"},
			"target_role": map[string]any{"type": "string", "description": "Optional target job title"},
		}, "profile"),
	}, handle(func(ctx context.Context, args analyzeArgs) (any, error) {
		if args.Profile == nil {
			return nil, errors.New("缺少档案数据")
		}
		return service.Analyze(ctx, *args.Profile, args.TargetRole)
	}))
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// handle 解码参数、调用 fn 并把结果编码为文本内容；业务错误作为工具错误返回
func handle[A any](fn func(context.Context, A) (any, error)) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args A
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return errorResult(fmt.Errorf("参数无效: %w", err)), nil
			}
		}

		out, err := fn(ctx, args)
		if err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("tool", req.Params.Name).Msg("MCP工具调用失败")
			return errorResult(err), nil
		}

		data, err := json.Marshal(out)
		if err != nil {
			return errorResult(fmt.Errorf("序列化结果失败: %w", err)), nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	}
}

func errorResult(err error) *mcp.CallToolResult {
	var res mcp.CallToolResult
	res.SetError(err)
	return &res
}
