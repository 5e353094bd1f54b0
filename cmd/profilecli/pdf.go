package main

import (
	"context"
	"path/filepath"
	"time"

	"profile-insight-go/internal/config"
	appCoreLogger "profile-insight-go/internal/logger"
	"profile-insight-go/internal/parser"
	"profile-insight-go/internal/processor"
)

// 处理 pdf 命令
func handlePDFCommand(cfg *config.Config) {
	if *inputPath == "" {
		fail("错误: pdf 命令必须用 --in 指定PDF文件")
	}
	data := readInput()

	// 创建上下文，添加超时以防止无限等待
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	l := appCoreLogger.Logger
	eino, err := parser.NewEinoPDFTextExtractor(ctx, parser.WithEinoLogger(l))
	if err != nil {
		fail("创建PDF提取器失败: %v", err)
	}
	svc := processor.NewProfileService(nil, processor.Components{},
		processor.WithPDF(
			parser.NewPDFInspector(cfg.PDF.MaxPages),
			parser.NewFallbackPDFExtractor(eino, parser.NewPlainPDFTextExtractor(l)),
		))

	start := time.Now()
	res, err := svc.ParsePDF(ctx, filepath.Base(*inputPath), data)
	if err != nil {
		fail("解析PDF失败: %v", err)
	}
	l.Info().
		Int("pages", res.PageCount).
		Int("extracted_length", res.ExtractedLength).
		Dur("elapsed", time.Since(start)).
		Msg("PDF解析完成")
	printJSON(res.Profile)
}
