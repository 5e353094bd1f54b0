package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func TestNewQwenChatModel_Defaults(t *testing.T) {
	_, err := NewQwenChatModel(" ", "", "")
	assert.Error(t, err)

	q, err := NewQwenChatModel("key", "", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultQwenModelName, q.ModelName())
	assert.Equal(t, DefaultQwenAPIURL, q.apiURL)
}

func TestQwenChatModel_Generate(t *testing.T) {
	var got chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","model":"qwen-plus","choices":[{"index":0,"message":{"role":"assistant","content":"{\"overallScore\":1}"},"finish_reason":"stop"}],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`))
	}))
	defer server.Close()

	q, err := NewQwenChatModel("secret", "qwen-max", server.URL, WithQwenJSONMode(true))
	require.NoError(t, err)

	msg, err := q.Generate(context.Background(),
		[]*schema.Message{schema.SystemMessage("sys"), schema.UserMessage("hello")},
		model.WithTemperature(0.5), model.WithMaxTokens(100))
	require.NoError(t, err)

	assert.Equal(t, `{"overallScore":1}`, msg.Content)
	assert.Equal(t, schema.Assistant, msg.Role)
	require.NotNil(t, msg.ResponseMeta)
	assert.Equal(t, "stop", msg.ResponseMeta.FinishReason)
	assert.Equal(t, 15, msg.ResponseMeta.Usage.TotalTokens)

	assert.Equal(t, "qwen-max", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, chatMessage{Role: "system", Content: "sys"}, got.Messages[0])
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 0.5, *got.Temperature, 1e-6)
	require.NotNil(t, got.MaxTokens)
	assert.Equal(t, 100, *got.MaxTokens)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
}

func TestQwenChatModel_GenerateErrors(t *testing.T) {
	status := http.StatusServiceUnavailable
	body := `{"error":"busy"}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	q, err := NewQwenChatModel("k", "", server.URL)
	require.NoError(t, err)

	_, err = q.Generate(context.Background(), []*schema.Message{schema.UserMessage("x")})
	var statusErr *UpstreamStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)

	status = http.StatusOK
	body = `{"choices":[]}`
	_, err = q.Generate(context.Background(), []*schema.Message{schema.UserMessage("x")})
	assert.Error(t, err)

	_, err = q.Stream(context.Background(), nil)
	assert.ErrorIs(t, err, ErrStreamNotSupported)
}

// fakeLLM 实现 llms.Model，回显收到的提示词
type fakeLLM struct {
	prompt string
	opts   llms.CallOptions
}

func (f *fakeLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, o := range options {
		o(&f.opts)
	}
	for _, m := range messages {
		for _, p := range m.Parts {
			if tc, ok := p.(llms.TextContent); ok {
				f.prompt += tc.Text
			}
		}
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: `{"overallScore": 50}`}}}, nil
}

func (f *fakeLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestGeminiChatModel_Generate(t *testing.T) {
	fake := &fakeLLM{}
	g := NewGeminiChatModelFromLLM(fake, DefaultGeminiModelName)

	msg, err := g.Generate(context.Background(),
		[]*schema.Message{schema.SystemMessage("You are a coach."), schema.UserMessage("Analyze.")},
		model.WithTemperature(0.25), model.WithMaxTokens(64))
	require.NoError(t, err)

	assert.Equal(t, `{"overallScore": 50}`, msg.Content)
	assert.Equal(t, "You are a coach. Analyze.", fake.prompt)
	assert.InDelta(t, 0.25, fake.opts.Temperature, 1e-6)
	assert.Equal(t, 64, fake.opts.MaxTokens)
	assert.Equal(t, DefaultGeminiModelName, g.ModelName())
}
