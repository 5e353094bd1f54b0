package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"profile-insight-go/internal/storage/models"

	"github.com/google/uuid"
)

// 事件类型
const (
	EventProfileParsed     = "ProfileParsed"
	EventAnalysisRequested = "ProfileAnalysisRequested"
)

// ProfileEventMessage 档案事件消息，档案解析完成和请求分析共用
type ProfileEventMessage struct {
	MessageID    string    `json:"message_id"`
	EventType    string    `json:"event_type"`
	SubmissionID string    `json:"submission_id"`
	Source       string    `json:"source"`
	TextMD5      string    `json:"text_md5,omitempty"`
	TargetRole   string    `json:"target_role,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// NewProfileEventMessage 创建带唯一消息ID的事件
func NewProfileEventMessage(eventType, submissionID, source, textMD5, targetRole string) ProfileEventMessage {
	return ProfileEventMessage{
		MessageID:    uuid.NewString(),
		EventType:    eventType,
		SubmissionID: submissionID,
		Source:       source,
		TextMD5:      textMD5,
		TargetRole:   targetRole,
		OccurredAt:   time.Now().UTC(),
	}
}

// NewOutboxMessage 将事件包装成待发布的 outbox 行
func NewOutboxMessage(event ProfileEventMessage, exchange, routingKey string) (*models.OutboxMessage, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("序列化事件失败: %w", err)
	}
	return &models.OutboxMessage{
		AggregateID:      event.SubmissionID,
		EventType:        event.EventType,
		Payload:          string(payload),
		TargetExchange:   exchange,
		TargetRoutingKey: routingKey,
		Status:           models.OutboxStatusPending,
	}, nil
}
