package models

import "time"

// outbox 消息状态
const (
	OutboxStatusPending = "PENDING"
	OutboxStatusSent    = "SENT"
	OutboxStatusFailed  = "FAILED"
)

// OutboxMessage 与档案提交同事务写入的待发布事件，由 outbox 中继投递到 RabbitMQ
type OutboxMessage struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`
	// 档案提交ID
	AggregateID      string     `gorm:"type:char(36);not null;index:idx_outbox_aggregate"`
	EventType        string     `gorm:"type:varchar(64);not null"`
	Payload          string     `gorm:"type:json;not null"`
	TargetExchange   string     `gorm:"type:varchar(255);not null"`
	TargetRoutingKey string     `gorm:"type:varchar(255);not null"`
	Status           string     `gorm:"type:varchar(16);default:'PENDING';not null;index:idx_outbox_status_created,priority:1"`
	RetryCount       int        `gorm:"default:0"`
	CreatedAt        time.Time  `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);index:idx_outbox_status_created,priority:2"`
	ProcessedAt      *time.Time `gorm:"type:datetime(6);null"`
	ErrorMessage     string     `gorm:"type:text"`
}

func (OutboxMessage) TableName() string {
	return "outbox_messages"
}

// MarkSent 发布成功
func (m *OutboxMessage) MarkSent(now time.Time) {
	m.Status = OutboxStatusSent
	m.ProcessedAt = &now
	m.ErrorMessage = ""
}

// MarkPublishFailed 记录一次发布失败，累计 maxRetries 次后不再重试
func (m *OutboxMessage) MarkPublishFailed(err error, maxRetries int) {
	m.RetryCount++
	m.ErrorMessage = err.Error()
	if m.RetryCount >= maxRetries {
		m.Status = OutboxStatusFailed
	}
}
