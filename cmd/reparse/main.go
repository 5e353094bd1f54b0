package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"profile-insight-go/internal/config"
	appCoreLogger "profile-insight-go/internal/logger"
	"profile-insight-go/internal/storage"

	"github.com/spf13/pflag"
)

func main() {
	var (
		configPath  string
		concurrency int
		batchSize   int
		pause       time.Duration
		dryRun      bool
	)
	pflag.StringVarP(&configPath, "config", "c", "", "配置文件路径")
	pflag.IntVar(&concurrency, "concurrency", 5, "并发数")
	pflag.IntVar(&batchSize, "batch", 100, "每批处理的提交数")
	pflag.DurationVar(&pause, "pause", time.Second, "批次之间的间隔")
	pflag.BoolVar(&dryRun, "dry-run", false, "只统计变化，不写回数据库")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		appCoreLogger.Fatal().Err(err).Msg("加载配置失败")
	}
	if err := appCoreLogger.Init(appCoreLogger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		TimeFormat: cfg.Logger.TimeFormat,
		FilePath:   cfg.Logger.FilePath,
	}); err != nil {
		appCoreLogger.Fatal().Err(err).Msg("初始化日志失败")
	}
	log := appCoreLogger.Logger.With().Str("component", "reparse").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MySQL.Host == "" {
		log.Fatal().Msg("未配置MySQL，无可重解析的数据")
	}
	db, err := storage.NewMySQL(&cfg.MySQL)
	if err != nil {
		log.Fatal().Err(err).Msg("连接MySQL失败")
	}
	defer db.Close()

	r := &reparser{
		store:       db,
		concurrency: concurrency,
		batchSize:   batchSize,
		pause:       pause,
		dryRun:      dryRun,
		logger:      log,
	}
	stats, err := r.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("重解析中断")
	}
	log.Info().
		Int("total", stats.Total).
		Int("changed", stats.Changed).
		Int("failed", stats.Failed).
		Bool("dry_run", dryRun).
		Msg("重解析完成")
	if err != nil || stats.Failed > 0 {
		os.Exit(1)
	}
}
