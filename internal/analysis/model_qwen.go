package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"profile-insight-go/internal/logger"
)

const (
	// DashScope 的 OpenAI 兼容接口
	DefaultQwenAPIURL    = "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"
	DefaultQwenModelName = "qwen-plus"
)

// ErrStreamNotSupported 兼容接口的流式输出未实现
var ErrStreamNotSupported = errors.New("该模型未实现流式输出")

// UpstreamStatusError 模型服务返回非 200 状态
type UpstreamStatusError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("模型服务请求失败，状态码 %d: %s", e.StatusCode, e.Body)
}

// QwenChatModel 通过 OpenAI 兼容协议调用通义千问，实现 model.BaseChatModel
type QwenChatModel struct {
	apiKey     string
	modelName  string
	apiURL     string
	jsonMode   bool
	httpClient *http.Client
	logger     zerolog.Logger
}

var _ model.BaseChatModel = (*QwenChatModel)(nil)

// QwenOption 配置 QwenChatModel
type QwenOption func(*QwenChatModel)

// WithQwenHTTPClient 替换默认 HTTP 客户端
func WithQwenHTTPClient(c *http.Client) QwenOption {
	return func(q *QwenChatModel) {
		if c != nil {
			q.httpClient = c
		}
	}
}

// WithQwenLogger 设置日志记录器
func WithQwenLogger(l zerolog.Logger) QwenOption {
	return func(q *QwenChatModel) { q.logger = l }
}

// WithQwenJSONMode 请求 response_format=json_object
func WithQwenJSONMode(enabled bool) QwenOption {
	return func(q *QwenChatModel) { q.jsonMode = enabled }
}

// NewQwenChatModel 创建一个新的 QwenChatModel 实例
func NewQwenChatModel(apiKey, modelName, apiURL string, opts ...QwenOption) (*QwenChatModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API 密钥不能为空")
	}
	if strings.TrimSpace(modelName) == "" {
		modelName = DefaultQwenModelName
	}
	if strings.TrimSpace(apiURL) == "" {
		apiURL = DefaultQwenAPIURL
	}

	q := &QwenChatModel{
		apiKey:     apiKey,
		modelName:  modelName,
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: 90 * time.Second},
		logger:     logger.Logger.With().Str("component", "qwen_chat_model").Logger(),
	}
	for _, opt := range opts {
		opt(q)
	}

	q.logger.Info().Str("api_url", q.apiURL).Str("model", q.modelName).Msg("使用通义千问模型客户端")
	return q, nil
}

// ModelName 返回实际使用的模型名
func (q *QwenChatModel) ModelName() string {
	return q.modelName
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    *float32        `json:"temperature,omitempty"`
	TopP           *float32        `json:"top_p,omitempty"`
	MaxTokens      *int            `json:"max_tokens,omitempty"`
	Stop           []string        `json:"stop,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string  `json:"role"`
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
}

// Generate 实现 model.BaseChatModel 接口
func (q *QwenChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	common := model.GetCommonOptions(&model.Options{Model: &q.modelName}, opts...)

	payload := chatCompletionRequest{
		Model:       q.modelName,
		Messages:    make([]chatMessage, 0, len(messages)),
		Temperature: common.Temperature,
		TopP:        common.TopP,
		MaxTokens:   common.MaxTokens,
		Stop:        common.Stop,
	}
	if common.Model != nil && *common.Model != "" {
		payload.Model = *common.Model
	}
	if q.jsonMode {
		payload.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	for _, m := range messages {
		if m == nil {
			continue
		}
		payload.Messages = append(payload.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("序列化请求体失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, q.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+q.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := q.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("发送 HTTP 请求失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	q.logger.Debug().
		Str("model", payload.Model).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Int("response_bytes", len(respBody)).
		Msg("收到模型响应")

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamStatusError{StatusCode: resp.StatusCode, Body: truncateForLog(string(respBody), 512)}
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return nil, fmt.Errorf("反序列化 API 响应失败: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("从 API 收到空选项")
	}

	choice := completion.Choices[0]
	content := ""
	if choice.Message.Content != nil {
		content = *choice.Message.Content
	}

	out := schema.AssistantMessage(content, nil)
	if choice.FinishReason != "" || completion.Usage != nil {
		out.ResponseMeta = &schema.ResponseMeta{FinishReason: choice.FinishReason}
		if completion.Usage != nil {
			out.ResponseMeta.Usage = &schema.TokenUsage{
				PromptTokens:     completion.Usage.PromptTokens,
				CompletionTokens: completion.Usage.CompletionTokens,
				TotalTokens:      completion.Usage.TotalTokens,
			}
		}
	}
	return out, nil
}

// Stream 实现 model.BaseChatModel 接口，当前不支持
func (q *QwenChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, ErrStreamNotSupported
}

func truncateForLog(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return strings.ToValidUTF8(s[:limit], "") + "..."
}
