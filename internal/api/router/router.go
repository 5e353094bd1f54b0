package router

import (
	"context"
	"crypto/subtle"
	"time"

	"profile-insight-go/internal/api/handler"
	"profile-insight-go/internal/config"
	"profile-insight-go/internal/logger"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"
	"github.com/oklog/ulid/v2"
)

// HeaderRequestID 请求ID头，客户端未提供时由服务端生成
const HeaderRequestID = "X-Request-ID"

// HeaderAPIKey API密钥头
const HeaderAPIKey = "X-API-Key"

// RegisterRoutes 注册 API 路由
func RegisterRoutes(h *server.Hertz, cfg *config.Config, profileHandler *handler.ProfileHandler) {
	h.Use(RequestID(), AccessLog())
	if d := config.GetDuration(cfg.Server.RequestTimeout, 0); d > 0 {
		h.Use(Timeout(d))
	}

	api := h.Group("/api/v1")

	// 健康检查不需要鉴权
	api.GET("/health", profileHandler.HandleHealth)

	var middlewares []app.HandlerFunc
	if len(cfg.Server.APIKeys) > 0 {
		middlewares = append(middlewares, APIKeyAuth(cfg.Server.APIKeys))
	}
	profiles := api.Group("/profiles", middlewares...)
	{
		profiles.POST("/parse/text", profileHandler.HandleParseText)
		profiles.POST("/parse/pdf", profileHandler.HandleParsePDF)
		profiles.POST("/parse/ocr", profileHandler.HandleParseOCR)
		profiles.POST("/parse/url", profileHandler.HandleParseURL)
		profiles.POST("/analyze", profileHandler.HandleAnalyze)
		profiles.GET("/:id", profileHandler.HandleGetSubmission)
		profiles.POST("/:id/analyze", profileHandler.HandleRequestAnalysis)
	}
}

// RequestID 为每个请求分配ID，并把带 request_id 字段的日志记录器放入上下文
func RequestID() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		id := string(c.GetHeader(HeaderRequestID))
		if id == "" {
			id = ulid.Make().String()
		}
		c.Response.Header.Set(HeaderRequestID, id)

		l := logger.Logger.With().Str("request_id", id).Logger()
		c.Next(l.WithContext(ctx))
	}
}

// AccessLog 记录请求方法、路径、状态码和耗时
func AccessLog() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()
		c.Next(ctx)

		status := c.Response.StatusCode()
		ev := logger.Ctx(ctx).Info()
		if status >= consts.StatusInternalServerError {
			ev = logger.Ctx(ctx).Error()
		}
		ev.Str("method", string(c.Method())).
			Str("path", string(c.Path())).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("HTTP请求")
	}
}

// Timeout 为下游调用（模型、抓取、OCR）设置统一的截止时间
func Timeout(d time.Duration) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		c.Next(ctx)
	}
}

// APIKeyAuth 校验 X-API-Key 头
func APIKeyAuth(keys []string) app.HandlerFunc {
	return keyauth.New(
		keyauth.WithKeyLookUp("header:"+HeaderAPIKey, ""),
		keyauth.WithContextKey("api_key"),
		keyauth.WithValidator(func(ctx context.Context, c *app.RequestContext, key string) (bool, error) {
			for _, k := range keys {
				if subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
					return true, nil
				}
			}
			return false, nil
		}),
		keyauth.WithErrorHandler(func(ctx context.Context, c *app.RequestContext, err error) {
			c.AbortWithStatusJSON(consts.StatusUnauthorized, utils.H{"error": "API密钥无效或缺失"})
		}),
	)
}
