package main

import (
	"context"
	"fmt"
	"os"

	"profile-insight-go/internal/parser"
	"profile-insight-go/internal/processor"
	"profile-insight-go/internal/profiletext"
)

// 处理 parse 命令：走与 HTTP 接口相同的文本解析流程，不保存结果
func handleParseCommand() {
	text := string(readInput())

	if *withStats {
		if parser.ContainsMarkup(text) {
			text = parser.StripMarkup(text)
		}
		res := profiletext.Parse(text)
		printJSON(map[string]any{
			"profile": res.Record,
			"stats":   res.Stats,
		})
		return
	}

	svc := processor.NewProfileService(nil, processor.Components{})
	res, err := svc.ParseText(context.Background(), text)
	if err != nil {
		fail("解析失败: %v", err)
	}
	printJSON(res.Profile)
}

// 处理 clean 命令：只做提取文本的清洗，便于排查解析问题
func handleCleanCommand() {
	cleaned := parser.CleanExtractedText(string(readInput()))
	fmt.Fprintln(os.Stdout, cleaned)
}
