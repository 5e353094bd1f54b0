// Package analysis 调用大语言模型对结构化档案进行评估，
// 模型输出不可用时退化为基于完整度的确定性评分。
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"profile-insight-go/internal/logger"
	"profile-insight-go/internal/types"
)

var (
	// ErrInvalidProfile 待分析档案缺少姓名
	ErrInvalidProfile = errors.New("档案数据无效：缺少姓名")
	// ErrModelUnavailable 调用模型失败
	ErrModelUnavailable = errors.New("分析模型调用失败")
	// ErrEmptyModelResponse 模型返回空内容
	ErrEmptyModelResponse = errors.New("分析模型未返回内容")
)

// Analyzer 档案分析器
type Analyzer struct {
	model       model.BaseChatModel
	modelName   string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	logger      zerolog.Logger
}

// AnalyzerOption 配置 Analyzer
type AnalyzerOption func(*Analyzer)

// WithAnalyzerLogger 设置日志记录器
func WithAnalyzerLogger(l zerolog.Logger) AnalyzerOption {
	return func(a *Analyzer) { a.logger = l }
}

// WithModelName 设置写入结果的模型名
func WithModelName(name string) AnalyzerOption {
	return func(a *Analyzer) { a.modelName = name }
}

// WithTemperature 设置采样温度
func WithTemperature(t float32) AnalyzerOption {
	return func(a *Analyzer) { a.temperature = t }
}

// WithMaxTokens 设置最大输出 token 数，<= 0 表示不限制
func WithMaxTokens(n int) AnalyzerOption {
	return func(a *Analyzer) { a.maxTokens = n }
}

// WithAnalyzeTimeout 设置单次分析的超时时间
func WithAnalyzeTimeout(d time.Duration) AnalyzerOption {
	return func(a *Analyzer) { a.timeout = d }
}

// NewAnalyzer 创建分析器，m 通常已被 ratelimit 包装
func NewAnalyzer(m model.BaseChatModel, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		model:       m,
		temperature: 0.3,
		maxTokens:   2048,
		timeout:     90 * time.Second,
		logger:      logger.Logger.With().Str("component", "profile_analyzer").Logger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze 评估档案
// 模型调用失败返回 ErrModelUnavailable；模型输出无法解析或校验时返回 FallbackAnalysis 的结果
func (a *Analyzer) Analyze(ctx context.Context, record types.ProfileRecord, targetRole string) (*types.AnalysisResult, error) {
	if strings.TrimSpace(record.Name) == "" {
		return nil, ErrInvalidProfile
	}
	record.EnsureSlices()

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	messages := []*einoschema.Message{
		einoschema.SystemMessage(SystemPrompt),
		einoschema.UserMessage(BuildPrompt(record, targetRole)),
	}
	opts := []model.Option{model.WithTemperature(a.temperature)}
	if a.maxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(a.maxTokens))
	}

	start := time.Now()
	resp, err := a.model.Generate(ctx, messages, opts...)
	if err != nil {
		a.logger.Error().Err(err).Str("name", record.Name).Msg("分析模型调用失败")
		return nil, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return nil, ErrEmptyModelResponse
	}

	result, err := decodeAnalysis(resp.Content)
	if err != nil {
		a.logger.Warn().
			Err(err).
			Str("raw_response", truncateForLog(resp.Content, 512)).
			Msg("模型输出无法解析，使用兜底评分")
		return FallbackAnalysis(record), nil
	}

	result.Model = a.modelName
	a.logger.Info().
		Int("overall_score", result.OverallScore).
		Int("career_matches", len(result.CareerMatches)).
		Dur("latency", time.Since(start)).
		Msg("档案分析完成")
	return result, nil
}
