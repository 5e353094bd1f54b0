package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"

	"profile-insight-go/internal/logger"
)

// DefaultGeminiModelName 默认的 Gemini 模型
const DefaultGeminiModelName = "gemini-1.5-flash"

// GeminiChatModel 把 langchaingo 的 llms.Model 适配为 model.BaseChatModel
// 所有消息按顺序拼接成单个提示词发送
type GeminiChatModel struct {
	llm       llms.Model
	modelName string
	logger    zerolog.Logger
}

var _ model.BaseChatModel = (*GeminiChatModel)(nil)

// NewGeminiChatModel 使用 API Key 创建 Google AI 客户端
func NewGeminiChatModel(ctx context.Context, apiKey, modelName string) (*GeminiChatModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("Gemini API 密钥不能为空")
	}
	if strings.TrimSpace(modelName) == "" {
		modelName = DefaultGeminiModelName
	}

	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(modelName),
	)
	if err != nil {
		return nil, fmt.Errorf("创建 Gemini 客户端失败: %w", err)
	}
	return NewGeminiChatModelFromLLM(llm, modelName), nil
}

// NewGeminiChatModelFromLLM 包装一个已有的 llms.Model
func NewGeminiChatModelFromLLM(llm llms.Model, modelName string) *GeminiChatModel {
	return &GeminiChatModel{
		llm:       llm,
		modelName: modelName,
		logger:    logger.Logger.With().Str("component", "gemini_chat_model").Logger(),
	}
}

// ModelName 返回实际使用的模型名
func (g *GeminiChatModel) ModelName() string {
	return g.modelName
}

// Generate 实现 model.BaseChatModel 接口
func (g *GeminiChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	common := model.GetCommonOptions(&model.Options{}, opts...)

	callOpts := make([]llms.CallOption, 0, 3)
	if common.Temperature != nil {
		callOpts = append(callOpts, llms.WithTemperature(float64(*common.Temperature)))
	}
	if common.MaxTokens != nil {
		callOpts = append(callOpts, llms.WithMaxTokens(*common.MaxTokens))
	}
	if len(common.Stop) > 0 {
		callOpts = append(callOpts, llms.WithStopWords(common.Stop))
	}

	prompt := joinMessages(messages)
	text, err := llms.GenerateFromSinglePrompt(ctx, g.llm, prompt, callOpts...)
	if err != nil {
		return nil, fmt.Errorf("调用 Gemini 失败: %w", err)
	}
	g.logger.Debug().Str("model", g.modelName).Int("response_len", len(text)).Msg("收到模型响应")

	return schema.AssistantMessage(text, nil), nil
}

// Stream 实现 model.BaseChatModel 接口，当前不支持
func (g *GeminiChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, ErrStreamNotSupported
}

func joinMessages(messages []*schema.Message) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		if m == nil || strings.TrimSpace(m.Content) == "" {
			continue
		}
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, " ")
}
