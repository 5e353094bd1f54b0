package main

import (
	"bytes"
	"context"
	"encoding/json"

	"profile-insight-go/internal/config"
	appCoreLogger "profile-insight-go/internal/logger"
	"profile-insight-go/internal/processor"
	"profile-insight-go/internal/profiletext"
	"profile-insight-go/internal/types"
)

// 处理 analyze 命令：输入可以是 parse 输出的 JSON，也可以是原始档案文本
func handleAnalyzeCommand(cfg *config.Config) {
	if cfg.Analysis.APIKey() == "" {
		fail("错误: 未配置分析模型密钥 (provider=%s)", cfg.Analysis.Provider)
	}
	ctx := context.Background()

	analyzer, err := processor.NewAnalyzerFromConfig(ctx, cfg, appCoreLogger.Logger)
	if err != nil {
		fail("创建分析器失败: %v", err)
	}
	svc := processor.NewProfileService(cfg, processor.Components{}, processor.WithAnalyzer(analyzer))

	result, err := svc.Analyze(ctx, recordFromInput(readInput()), *targetRole)
	if err != nil {
		fail("分析失败: %v", err)
	}
	printJSON(result)
}

func recordFromInput(data []byte) types.ProfileRecord {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var record types.ProfileRecord
		if err := json.Unmarshal(trimmed, &record); err == nil {
			return record
		}
	}
	return profiletext.ParseProfileText(string(data))
}
