package ratelimit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// ErrRateLimited 在非阻塞获取令牌失败时返回
var ErrRateLimited = errors.New("请求过于频繁，令牌不足")

// TokenBucket 实现令牌桶算法的限流器，速率以每分钟请求数(QPM)表示
type TokenBucket struct {
	rate           float64       // 每秒生成的令牌数
	capacity       float64       // 桶的容量
	tokens         float64       // 当前令牌数
	lastRefillTime time.Time     // 上次填充令牌的时间
	mutex          sync.Mutex    // 互斥锁，保证并发安全
	retryWaitTime  time.Duration // 首次重试的等待时间，之后指数退避
	maxRetries     int           // 最大重试次数
	retryable      func(error) bool
	now            func() time.Time
}

// NewTokenBucket 创建一个新的令牌桶限流器
// qpm <= 0 时使用 30；burst <= 0 时取 qpm 的一半，至少为 1
func NewTokenBucket(qpm int, burst int) *TokenBucket {
	if qpm <= 0 {
		qpm = 30
	}
	if burst <= 0 {
		burst = qpm / 2
		if burst <= 0 {
			burst = 1
		}
	}

	tb := &TokenBucket{
		rate:          float64(qpm) / 60.0,
		capacity:      float64(burst),
		tokens:        float64(burst), // 初始填满
		retryWaitTime: 1 * time.Second,
		maxRetries:    3,
		retryable:     IsRetryableError,
		now:           time.Now,
	}
	tb.lastRefillTime = tb.now()
	return tb
}

// WithRetryPolicy 设置重试策略
func (tb *TokenBucket) WithRetryPolicy(waitTime time.Duration, maxRetries int) *TokenBucket {
	if waitTime > 0 {
		tb.retryWaitTime = waitTime
	}
	if maxRetries >= 0 {
		tb.maxRetries = maxRetries
	}
	return tb
}

// WithRetryClassifier 替换默认的可重试错误判定
func (tb *TokenBucket) WithRetryClassifier(fn func(error) bool) *TokenBucket {
	if fn != nil {
		tb.retryable = fn
	}
	return tb
}

// refill 根据经过的时间填充令牌，调用方需持有锁
func (tb *TokenBucket) refill() {
	now := tb.now()
	elapsed := now.Sub(tb.lastRefillTime).Seconds()
	tb.lastRefillTime = now

	tb.tokens += elapsed * tb.rate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
}

// Allow 判断是否允许通过一个请求，消耗一个令牌
func (tb *TokenBucket) Allow() bool {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.refill()
	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true
	}
	return false
}

// TryAcquire 与 Allow 相同，但令牌不足时返回 ErrRateLimited
func (tb *TokenBucket) TryAcquire() error {
	if tb.Allow() {
		return nil
	}
	return ErrRateLimited
}

// Available 返回当前可用令牌数（向下取整）
func (tb *TokenBucket) Available() int {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()
	tb.refill()
	return int(tb.tokens)
}

// Wait 阻塞直到有令牌可用或 ctx 结束
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		tb.mutex.Lock()
		tb.refill()

		if tb.tokens >= 1.0 {
			tb.tokens -= 1.0
			tb.mutex.Unlock()
			return nil
		}

		waitTime := time.Duration((1.0 - tb.tokens) / tb.rate * float64(time.Second))
		tb.mutex.Unlock()

		timer := time.NewTimer(waitTime)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// RetryWithBackoff 每次尝试前先获取令牌，遇到可重试错误按指数退避重试
func (tb *TokenBucket) RetryWithBackoff(ctx context.Context, fn func() error) error {
	var err error

	for attempt := 0; attempt <= tb.maxRetries; attempt++ {
		if err = tb.Wait(ctx); err != nil {
			return err
		}

		err = fn()
		if err == nil {
			return nil
		}

		if !tb.retryable(err) || attempt >= tb.maxRetries {
			return err
		}

		backoff := tb.retryWaitTime * time.Duration(1<<uint(attempt))
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return err
}

// IsRetryableError 根据错误信息判断是否值得重试
// 上下文取消与超时不重试
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	return containsAny(err.Error(), []string{
		"timeout",
		"connection reset",
		"EOF",
		"connection refused",
		"429",
		"502",
		"503",
		"504",
		"rate limit",
		"RESOURCE_EXHAUSTED",
		"no such host",
		"服务器繁忙",
		"请求超过限额",
	})
}

func containsAny(s string, substrs []string) bool {
	for _, substr := range substrs {
		if substr != "" && strings.Contains(s, substr) {
			return true
		}
	}
	return false
}
