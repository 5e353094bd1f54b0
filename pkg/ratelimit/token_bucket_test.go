package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucket_AllowConsumesBurst(t *testing.T) {
	tb := NewTokenBucket(60, 3)
	fixed := time.Now()
	tb.now = func() time.Time { return fixed }
	tb.lastRefillTime = fixed

	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())
	assert.ErrorIs(t, tb.TryAcquire(), ErrRateLimited)

	// 60 QPM 即每秒 1 个令牌
	fixed = fixed.Add(2 * time.Second)
	assert.Equal(t, 2, tb.Available())
}

func TestTokenBucket_Defaults(t *testing.T) {
	tb := NewTokenBucket(0, 0)
	assert.InDelta(t, 0.5, tb.rate, 1e-9)
	assert.Equal(t, float64(15), tb.capacity)

	tb = NewTokenBucket(1, 0)
	assert.Equal(t, float64(1), tb.capacity)
}

func TestTokenBucket_WaitHonorsContext(t *testing.T) {
	tb := NewTokenBucket(1, 1)
	require.True(t, tb.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := tb.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTokenBucket_RetryWithBackoff(t *testing.T) {
	tb := NewTokenBucket(6000, 10).WithRetryPolicy(time.Millisecond, 2)

	calls := 0
	err := tb.RetryWithBackoff(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("upstream status 503")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = tb.RetryWithBackoff(context.Background(), func() error {
		calls++
		return errors.New("invalid api key")
	})
	assert.EqualError(t, err, "invalid api key")
	assert.Equal(t, 1, calls, "不可重试的错误不应重试")
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, IsRetryableError(nil))
	assert.False(t, IsRetryableError(context.Canceled))
	assert.True(t, IsRetryableError(errors.New("dial tcp: connection refused")))
	assert.True(t, IsRetryableError(errors.New("429 Too Many Requests")))
	assert.False(t, IsRetryableError(errors.New("bad request")))
}

type countingModel struct {
	calls int
	errs  []error
}

func (c *countingModel) Generate(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	idx := c.calls
	c.calls++
	if idx < len(c.errs) && c.errs[idx] != nil {
		return nil, c.errs[idx]
	}
	return schema.AssistantMessage("ok", nil), nil
}

func (c *countingModel) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

func TestRateLimitedChatModel_RetriesTransientErrors(t *testing.T) {
	inner := &countingModel{errs: []error{errors.New("rate limit reached")}}
	limited := NewRateLimitedChatModel(inner, 6000).WithRetryPolicy(time.Millisecond, 2)

	msg, err := limited.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	assert.Equal(t, "ok", msg.Content)
	assert.Equal(t, 2, inner.calls)
}

func TestNewChatModelWithRateLimit_UsesQuota(t *testing.T) {
	m := NewChatModelWithRateLimit(&countingModel{}, "qwen-plus", map[string]int{"qwen-plus": 100}, 10, 0, time.Millisecond)
	limited, ok := m.(*RateLimitedChatModel)
	require.True(t, ok)
	assert.InDelta(t, 90.0/60.0, limited.Limiter().rate, 1e-9)
	assert.Equal(t, 3, limited.Limiter().maxRetries)
}
