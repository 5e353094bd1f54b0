package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"profile-insight-go/internal/config"
	"profile-insight-go/internal/constants"
	"profile-insight-go/internal/logger"
	"profile-insight-go/internal/types"
	"profile-insight-go/pkg/utils"

	"github.com/google/uuid"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// ErrNotFound 键不存在
var ErrNotFound = redis.Nil

var redisTracer = otel.Tracer("profile-insight-go/storage/redis")

// 按 key 前缀的采样率，redisotel 已经为每条命令建了 span，这里只对业务层调用补充少量 span
var redisKeySamplingRates = map[string]float64{
	constants.AppPrefix + ":" + constants.ProfileModulePrefix + ":":  0.05,
	constants.AppPrefix + ":" + constants.AnalysisModulePrefix + ":": 0.25,
}

func shouldSampleRedisOp(key string) bool {
	if key == "" {
		return false
	}
	for prefix, rate := range redisKeySamplingRates {
		if strings.HasPrefix(key, prefix) {
			return rand.Float64() < rate
		}
	}
	return rand.Float64() < 0.05
}

// Redis 封装 Redis 客户端
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
	logger zerolog.Logger
}

// NewRedisAdapter 建立 Redis 连接并挂上 OpenTelemetry 钩子
func NewRedisAdapter(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	opt := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		// 连接池设置
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,

		// 超时设置
		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,

		// 重试设置
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: time.Duration(cfg.MinRetryBackoffMS) * time.Millisecond,
		MaxRetryBackoff: time.Duration(cfg.MaxRetryBackoffMS) * time.Millisecond,

		// 连接生命周期
		ConnMaxLifetime: time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute,
		ConnMaxIdleTime: time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute,
	}

	client := redis.NewClient(opt)

	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("failed to instrument Redis with OpenTelemetry: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	l := logger.Logger.With().Str("component", "redis").Logger()
	l.Info().Str("address", cfg.Address).Int("db", cfg.DB).Msg("Redis连接成功")
	return &Redis{Client: client, config: cfg, logger: l}, nil
}

// Close 关闭连接
func (r *Redis) Close() error {
	if r.Client == nil {
		return nil
	}
	return r.Client.Close()
}

// Ping 检查连接
func (r *Redis) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

// ParseCacheTTL 解析结果缓存时长
func (r *Redis) ParseCacheTTL() time.Duration {
	if r.config != nil && r.config.ParseCacheTTLHours > 0 {
		return time.Duration(r.config.ParseCacheTTLHours) * time.Hour
	}
	return constants.DefaultParseCacheTTL
}

// AnalysisCacheTTL 分析结果缓存时长
func (r *Redis) AnalysisCacheTTL() time.Duration {
	if r.config != nil && r.config.AnalysisCacheTTLHours > 0 {
		return time.Duration(r.config.AnalysisCacheTTLHours) * time.Hour
	}
	return constants.DefaultAnalysisCacheTTL
}

// ParsedProfileKey 解析缓存键
func ParsedProfileKey(textMD5 string) string {
	return fmt.Sprintf(constants.KeyParsedProfile, textMD5)
}

// AnalysisResultKey 分析缓存键，档案内容或目标岗位任何一个变化都会换键
func AnalysisResultKey(record types.ProfileRecord, targetRole string) (string, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("序列化档案失败: %w", err)
	}
	role := strings.ToLower(strings.TrimSpace(targetRole))
	return fmt.Sprintf(constants.KeyAnalysisResult, utils.CalculateMD5(data), utils.CalculateMD5([]byte(role))), nil
}

// AnalysisLockKey 分析锁键
func AnalysisLockKey(submissionID string) string {
	return fmt.Sprintf(constants.KeyAnalysisLock, submissionID)
}

// GetParsedProfile 读取解析缓存，未命中返回 (nil, nil)
func (r *Redis) GetParsedProfile(ctx context.Context, textMD5 string) (*types.ProfileRecord, error) {
	raw, err := r.Get(ctx, ParsedProfileKey(textMD5))
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec types.ProfileRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		// 坏数据当作未命中，下一次写入会覆盖
		r.logger.Warn().Err(err).Str("text_md5", textMD5).Msg("解析缓存内容无法反序列化")
		return nil, nil
	}
	rec.EnsureSlices()
	return &rec, nil
}

// SetParsedProfile 写入解析缓存
func (r *Redis) SetParsedProfile(ctx context.Context, textMD5 string, record types.ProfileRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("序列化档案失败: %w", err)
	}
	return r.Set(ctx, ParsedProfileKey(textMD5), string(data), r.ParseCacheTTL())
}

// GetAnalysis 读取分析缓存，未命中返回 (nil, nil)
func (r *Redis) GetAnalysis(ctx context.Context, record types.ProfileRecord, targetRole string) (*types.AnalysisResult, error) {
	key, err := AnalysisResultKey(record, targetRole)
	if err != nil {
		return nil, err
	}
	raw, err := r.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var result types.AnalysisResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("分析缓存内容无法反序列化")
		return nil, nil
	}
	return &result, nil
}

// SetAnalysis 写入分析缓存，降级结果不缓存
func (r *Redis) SetAnalysis(ctx context.Context, record types.ProfileRecord, targetRole string, result *types.AnalysisResult) error {
	if result == nil || result.Fallback {
		return nil
	}
	key, err := AnalysisResultKey(record, targetRole)
	if err != nil {
		return err
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("序列化分析结果失败: %w", err)
	}
	return r.Set(ctx, key, string(data), r.AnalysisCacheTTL())
}

// Get 获取键的值
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	if r.Client == nil {
		return "", fmt.Errorf("redis客户端未初始化")
	}

	var span trace.Span
	if shouldSampleRedisOp(key) {
		ctx, span = redisTracer.Start(ctx, "Redis.Get", trace.WithSpanKind(trace.SpanKindClient))
		defer span.End()
		span.SetAttributes(
			semconv.DBSystemRedis,
			attribute.String("db.operation", "GET"),
			attribute.String("db.redis.key", key),
		)
	}

	val, err := r.Client.Get(ctx, key).Result()
	if span != nil {
		switch {
		case errors.Is(err, redis.Nil):
			// 未命中不算错误
			span.SetAttributes(attribute.Bool("db.redis.key_exists", false))
		case err != nil:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		default:
			span.SetAttributes(
				attribute.Bool("db.redis.key_exists", true),
				attribute.Int("db.redis.value_length", len(val)),
			)
		}
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// Set 设置键的值
func (r *Redis) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	if r.Client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}

	var span trace.Span
	if shouldSampleRedisOp(key) {
		ctx, span = redisTracer.Start(ctx, "Redis.Set", trace.WithSpanKind(trace.SpanKindClient))
		defer span.End()
		span.SetAttributes(
			semconv.DBSystemRedis,
			attribute.String("db.operation", "SET"),
			attribute.String("db.redis.key", key),
			attribute.Int("db.redis.value_length", len(value)),
		)
		if expiration > 0 {
			span.SetAttributes(attribute.Int64("db.redis.expiration_ms", expiration.Milliseconds()))
		}
	}

	err := r.Client.Set(ctx, key, value, expiration).Err()
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// AcquireLock 尝试获取一个分布式锁，未拿到锁时返回空字符串
func (r *Redis) AcquireLock(ctx context.Context, lockKey string, expiration time.Duration) (string, error) {
	if r.Client == nil {
		return "", fmt.Errorf("redis client is not initialized")
	}
	lockValue := uuid.NewString()
	ok, err := r.Client.SetNX(ctx, lockKey, lockValue, expiration).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return lockValue, nil
}

var releaseLockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
else
    return 0
end
`)

// ReleaseLock 释放一个分布式锁，只有持有者能释放
func (r *Redis) ReleaseLock(ctx context.Context, lockKey string, lockValue string) (bool, error) {
	if r.Client == nil {
		return false, fmt.Errorf("redis client is not initialized")
	}
	released, err := releaseLockScript.Run(ctx, r.Client, []string{lockKey}, lockValue).Int64()
	if err != nil {
		return false, err
	}
	return released == 1, nil
}
