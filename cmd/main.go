package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"profile-insight-go/internal/api/handler"
	"profile-insight-go/internal/api/router"
	"profile-insight-go/internal/config"
	"profile-insight-go/internal/constants"
	appCoreLogger "profile-insight-go/internal/logger"
	"profile-insight-go/internal/outbox"
	"profile-insight-go/internal/processor"
	"profile-insight-go/internal/storage"
	"profile-insight-go/internal/tracing"

	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/spf13/pflag"
)

var (
	version     = "1.0.0"              //nolint:gochecknoglobals
	serviceName = "profile-insight-go" //nolint:gochecknoglobals
)

// @title Profile Insight API
// @version 1.0
// @description 职业档案解析与分析服务
// @BasePath /api/v1
func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "", "配置文件路径，为空时自动查找 config.yaml")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		glog.Fatalf("加载配置失败: %v", err)
	}

	if err := appCoreLogger.Init(appCoreLogger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
		FilePath:     cfg.Logger.FilePath,
	}); err != nil {
		glog.Fatalf("初始化日志失败: %v", err)
	}
	log := appCoreLogger.Logger.With().Str("component", "main").Logger()
	log.Info().Str("version", version).Msg("配置加载成功")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	name := cfg.Tracing.ServiceName
	if name == "" {
		name = serviceName
	}
	shutdownTracing, err := tracing.Init(ctx, tracing.Options{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: name,
		Version:     version,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("初始化链路追踪失败")
	}

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("初始化存储失败")
	}
	defer storageManager.Close()

	components, err := processor.NewComponentsFromConfig(ctx, cfg, storageManager, appCoreLogger.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("初始化处理组件失败")
	}
	service := processor.NewProfileService(cfg, components)
	defer func() {
		if err := service.Close(); err != nil {
			log.Warn().Err(err).Msg("释放处理组件失败")
		}
	}()
	log.Info().
		Bool("persistent", service.Persistent()).
		Bool("analysis", service.CanAnalyze()).
		Msg("档案服务初始化成功")

	// outbox 中继：MySQL 中待发布的事件 → RabbitMQ
	var messageRelay *outbox.MessageRelay
	if storageManager.MySQL != nil && storageManager.RabbitMQ != nil {
		messageRelay = outbox.NewMessageRelay(storageManager.MySQL.DB(), storageManager.RabbitMQ, &cfg.Outbox)
		messageRelay.Start(ctx)
		log.Info().Msg("消息中继服务已启动")
	}

	// 异步分析消费者
	var consumerDone <-chan struct{}
	if storageManager.RabbitMQ != nil && storageManager.MySQL != nil && service.CanAnalyze() {
		consumerDone, err = storageManager.RabbitMQ.StartConsumer(ctx,
			cfg.RabbitMQ.AnalysisQueue,
			cfg.RabbitMQ.PrefetchCount,
			cfg.Analysis.ConsumerWorkers,
			service.HandleAnalysisEvent,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("启动分析消费者失败")
		}
		log.Info().
			Str("queue", cfg.RabbitMQ.AnalysisQueue).
			Int("workers", cfg.Analysis.ConsumerWorkers).
			Msg("分析消费者已启动")
	}

	tracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
		server.WithMaxRequestBodySize(constants.MaxRequestBodySize),
		tracer,
	)
	h.Use(hertztracing.ServerMiddleware(tracerCfg))

	router.RegisterRoutes(h, cfg, handler.NewProfileHandler(cfg, service))
	log.Info().Str("address", cfg.Server.Address).Msg("HTTP 服务器启动中")

	go func() {
		if err := h.Run(); err != nil {
			log.Error().Err(err).Msg("HTTP服务器退出")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("接收到终止信号，正在优雅退出...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := h.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP服务器关闭失败")
	}
	if messageRelay != nil {
		messageRelay.Stop()
		log.Info().Msg("消息中继服务已停止")
	}
	if consumerDone != nil {
		select {
		case <-consumerDone:
		case <-shutdownCtx.Done():
			log.Warn().Msg("等待分析消费者退出超时")
		}
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("关闭链路追踪失败")
	}
	log.Info().Msg("优雅退出完成")
	_ = os.Stdout.Sync()
}
