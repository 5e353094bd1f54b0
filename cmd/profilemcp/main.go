package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"profile-insight-go/internal/config"
	appCoreLogger "profile-insight-go/internal/logger"
	"profile-insight-go/internal/mcptools"
	"profile-insight-go/internal/processor"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/pflag"
)

var version = "1.0.0" //nolint:gochecknoglobals

// MCP stdio 服务：标准输出是协议通道，日志只能写到标准错误
func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "", "配置文件路径")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		appCoreLogger.Fatal().Err(err).Msg("加载配置失败")
	}
	if err := appCoreLogger.Init(appCoreLogger.Config{
		Level:      cfg.Logger.Level,
		Format:     "json",
		TimeFormat: cfg.Logger.TimeFormat,
		FilePath:   cfg.Logger.FilePath,
		Output:     os.Stderr,
	}); err != nil {
		appCoreLogger.Fatal().Err(err).Msg("初始化日志失败")
	}
	log := appCoreLogger.Logger.With().Str("component", "mcp").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 不接存储：MCP 调用只做无状态解析和分析
	components, err := processor.NewComponentsFromConfig(ctx, cfg, nil, appCoreLogger.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("初始化处理组件失败")
	}
	service := processor.NewProfileService(cfg, components)
	defer service.Close()

	srv := mcp.NewServer(&mcp.Implementation{Name: "profile-insight", Version: version}, nil)
	mcptools.Register(srv, service)

	log.Info().Bool("analysis", service.CanAnalyze()).Msg("MCP服务启动")
	if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("MCP服务退出")
		os.Exit(1)
	}
}
