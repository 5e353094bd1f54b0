package outbox // 定义了发件箱模式（Outbox Pattern）的实现

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"profile-insight-go/internal/config"
	"profile-insight-go/internal/logger"
	"profile-insight-go/internal/storage/models"
	"profile-insight-go/internal/tracing"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultPollingInterval = 5 * time.Second // 默认轮询间隔
	defaultBatchSize       = 10              // 每次轮询处理的消息批量大小
	maxRetryCount          = 5               // 发布失败的最大重试次数
)

// Publisher 消息发布器，storage.RabbitMQ 满足该接口
type Publisher interface {
	PublishMessage(ctx context.Context, exchangeName, routingKey string, message []byte, persistent bool) error
}

// MessageRelay 轮询 outbox 表并将消息发布到消息代理
type MessageRelay struct {
	db              *gorm.DB
	publisher       Publisher
	logger          zerolog.Logger
	pollingInterval time.Duration
	batchSize       int
	tracer          trace.Tracer

	started  atomic.Bool
	stopOnce sync.Once
	done     chan struct{}
	stopped  chan struct{}
}

// NewMessageRelay 创建 MessageRelay，cfg 为 nil 时使用默认间隔和批量
func NewMessageRelay(db *gorm.DB, publisher Publisher, cfg *config.OutboxConfig) *MessageRelay {
	r := &MessageRelay{
		db:              db,
		publisher:       publisher,
		logger:          logger.Logger.With().Str("component", "outbox").Logger(),
		pollingInterval: defaultPollingInterval,
		batchSize:       defaultBatchSize,
		tracer:          otel.Tracer("profile-insight-go/outbox"),
		done:            make(chan struct{}),
		stopped:         make(chan struct{}),
	}
	if cfg != nil {
		r.pollingInterval = config.GetDuration(cfg.PollInterval, defaultPollingInterval)
		if cfg.BatchSize > 0 {
			r.batchSize = cfg.BatchSize
		}
	}
	return r
}

// Start 在后台开始轮询，ctx 取消或调用 Stop 后退出
func (r *MessageRelay) Start(ctx context.Context) {
	if !r.started.CompareAndSwap(false, true) {
		return
	}
	r.logger.Info().
		Dur("interval", r.pollingInterval).
		Int("batch_size", r.batchSize).
		Msg("MessageRelay starting")

	go func() {
		defer close(r.stopped)
		ticker := time.NewTicker(r.pollingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				r.logger.Info().Msg("MessageRelay stopped")
				return
			case <-r.done:
				r.logger.Info().Msg("MessageRelay stopped")
				return
			case <-ticker.C:
				if _, err := r.ProcessPendingMessages(ctx); err != nil {
					r.logger.Error().Err(err).Msg("处理待发布消息失败")
				}
			}
		}
	}()
}

// Stop 停止轮询并等待当前批次结束
func (r *MessageRelay) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
	})
	if r.started.Load() {
		<-r.stopped
	}
}

// ProcessPendingMessages 获取并处理一批待发布消息，返回成功发布的条数
func (r *MessageRelay) ProcessPendingMessages(ctx context.Context) (int, error) {
	var messages []models.OutboxMessage

	// 空轮询不建 span
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return 0, tx.Error
	}
	defer tx.Rollback()

	// SKIP LOCKED 让多个实例可以同时轮询
	err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ?", models.OutboxStatusPending).
		Order("created_at asc").
		Limit(r.batchSize).
		Find(&messages).Error
	if err != nil {
		return 0, err
	}

	if len(messages) == 0 {
		return 0, tx.Commit().Error
	}

	ctx, span := r.tracer.Start(ctx, "outbox.ProcessBatch",
		trace.WithAttributes(
			attribute.Int("messaging.batch.message_count", len(messages)),
		),
	)
	defer span.End()

	sent := 0
	for i := range messages {
		msg := &messages[i]
		pubErr := r.publisher.PublishMessage(ctx, msg.TargetExchange, msg.TargetRoutingKey, []byte(msg.Payload), true)
		if pubErr != nil {
			tracing.RecordError(span, pubErr, tracing.ErrorTypeRabbitMQ)
			r.logger.Warn().
				Err(pubErr).
				Uint64("id", msg.ID).
				Str("aggregate_id", msg.AggregateID).
				Int("retry", msg.RetryCount+1).
				Msg("发布outbox消息失败")
		} else {
			sent++
		}
		applyPublishResult(msg, pubErr, time.Now())

		if err := tx.Save(msg).Error; err != nil {
			// 整个事务回滚，下一次轮询会重新拾取
			return 0, err
		}
	}

	span.SetAttributes(attribute.Int("messaging.batch.sent_count", sent))
	if err := tx.Commit().Error; err != nil {
		return 0, err
	}
	return sent, nil
}

// applyPublishResult 根据发布结果更新消息状态，失败达到上限后标记为 FAILED
func applyPublishResult(msg *models.OutboxMessage, pubErr error, now time.Time) {
	if pubErr != nil {
		msg.MarkPublishFailed(pubErr, maxRetryCount)
		return
	}
	msg.MarkSent(now)
}
