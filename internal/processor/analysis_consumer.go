package processor

import (
	"context"
	"encoding/json"
	"errors"

	"profile-insight-go/internal/analysis"
	"profile-insight-go/internal/constants"
	"profile-insight-go/internal/logger"
	"profile-insight-go/internal/storage"
	"profile-insight-go/internal/storage/models"
	"profile-insight-go/internal/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// HandleAnalysisEvent 消费 profile.parsed / profile.analyze 事件并保存分析结果
// 暂时性失败第一次重新入队，再次失败则标记为 ANALYSIS_FAILED 并确认
func (s *ProfileService) HandleAnalysisEvent(ctx context.Context, body []byte, redelivered bool) storage.DeliveryAction {
	var event storage.ProfileEventMessage
	if err := json.Unmarshal(body, &event); err != nil || event.SubmissionID == "" {
		logger.Ctx(ctx).Error().Err(err).Bytes("body", truncateBody(body)).Msg("无法解析档案事件，丢弃")
		return storage.Reject
	}

	ctx, span := tracer.Start(ctx, "ProfileService.HandleAnalysisEvent",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.message_id", event.MessageID),
			attribute.String("profile.event_type", event.EventType),
			attribute.String("profile.submission_id", event.SubmissionID),
			attribute.Bool("messaging.redelivered", redelivered),
		))
	defer span.End()

	l := logger.Ctx(ctx).With().
		Str("submission_id", event.SubmissionID).
		Str("event_type", event.EventType).
		Logger()

	if s.components.Analyzer == nil || s.components.Submissions == nil {
		l.Error().Msg("分析器或持久化存储未初始化，无法处理分析事件")
		return storage.Reject
	}

	if s.components.Locker != nil {
		lockKey := storage.AnalysisLockKey(event.SubmissionID)
		token, err := s.components.Locker.AcquireLock(ctx, lockKey, constants.AnalysisLockTTL)
		if err != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeRedis)
			l.Warn().Err(err).Msg("获取分析锁失败")
			return s.retryOrFail(ctx, event.SubmissionID, redelivered)
		}
		if token == "" {
			// 另一个消费者正在分析同一份档案：自动分析事件是重复的，
			// 用户显式请求的分析（可能带不同目标岗位）放回队列稍后处理
			if event.EventType == storage.EventAnalysisRequested {
				l.Info().Msg("档案正在分析中，分析请求放回队列")
				return storage.Requeue
			}
			l.Info().Msg("档案正在分析中，跳过重复事件")
			return storage.Ack
		}
		defer func() {
			if _, err := s.components.Locker.ReleaseLock(context.WithoutCancel(ctx), lockKey, token); err != nil {
				l.Warn().Err(err).Msg("释放分析锁失败")
			}
		}()
	}

	sub, err := s.components.Submissions.GetSubmission(ctx, event.SubmissionID)
	if errors.Is(err, storage.ErrSubmissionNotFound) {
		l.Warn().Msg("档案提交不存在，丢弃事件")
		return storage.Ack
	}
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		l.Error().Err(err).Msg("读取档案提交失败")
		return s.retryOrFail(ctx, event.SubmissionID, redelivered)
	}

	record, err := sub.ProfileRecord()
	if err != nil {
		l.Error().Err(err).Msg("档案记录损坏")
		s.markFailed(ctx, event.SubmissionID)
		return storage.Ack
	}

	result, err := s.Analyze(ctx, record, event.TargetRole)
	if err != nil {
		if errors.Is(err, analysis.ErrInvalidProfile) {
			// 没有姓名的档案无法分析，重试也没有意义
			l.Warn().Err(err).Msg("档案不满足分析条件")
			s.markFailed(ctx, event.SubmissionID)
			return storage.Ack
		}
		l.Error().Err(err).Msg("档案分析失败")
		return s.retryOrFail(ctx, event.SubmissionID, redelivered)
	}

	row, err := models.NewProfileAnalysis(event.SubmissionID, event.TargetRole, result)
	if err != nil {
		l.Error().Err(err).Msg("构造分析结果失败")
		s.markFailed(ctx, event.SubmissionID)
		return storage.Ack
	}
	if err := s.components.Submissions.SaveAnalysis(ctx, row); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		l.Error().Err(err).Msg("保存分析结果失败")
		return s.retryOrFail(ctx, event.SubmissionID, redelivered)
	}

	l.Info().
		Int("overall_score", result.OverallScore).
		Bool("fallback", result.Fallback).
		Msg("异步分析完成")
	return storage.Ack
}

func (s *ProfileService) retryOrFail(ctx context.Context, submissionID string, redelivered bool) storage.DeliveryAction {
	if !redelivered {
		return storage.Requeue
	}
	s.markFailed(ctx, submissionID)
	return storage.Ack
}

func (s *ProfileService) markFailed(ctx context.Context, submissionID string) {
	if err := s.components.Submissions.UpdateSubmissionStatus(ctx, submissionID, models.StatusFailed); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("submission_id", submissionID).Msg("更新档案状态失败")
	}
}

func truncateBody(body []byte) []byte {
	const limit = 256
	if len(body) > limit {
		return body[:limit]
	}
	return body
}
