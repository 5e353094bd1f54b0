package storage

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"profile-insight-go/internal/config"
	"profile-insight-go/internal/storage/models"
	"profile-insight-go/internal/types"

	"github.com/gofrs/uuid/v5"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestOriginalObjectKey(t *testing.T) {
	assert.Equal(t, "profiles/abc/original.pdf", OriginalObjectKey("abc", ".PDF"))
	assert.Equal(t, "profiles/abc/original.png", OriginalObjectKey("abc", "png"))
	assert.Equal(t, "profiles/abc/original", OriginalObjectKey("abc", ""))
}

func TestContentTypeForExt(t *testing.T) {
	assert.Equal(t, "application/pdf", ContentTypeForExt(".pdf"))
	assert.Equal(t, "image/jpeg", ContentTypeForExt("JPEG"))
	assert.Equal(t, "application/octet-stream", ContentTypeForExt(".docx"))
}

func TestNewOutboxMessage(t *testing.T) {
	event := NewProfileEventMessage(EventProfileParsed, "sub-1", "pdf", "md5", "")
	msg, err := NewOutboxMessage(event, "profile.events", "profile.parsed")
	require.NoError(t, err)

	assert.Equal(t, "sub-1", msg.AggregateID)
	assert.Equal(t, EventProfileParsed, msg.EventType)
	assert.Equal(t, models.OutboxStatusPending, msg.Status)
	assert.Equal(t, "profile.events", msg.TargetExchange)
	assert.Equal(t, "profile.parsed", msg.TargetRoutingKey)

	var decoded ProfileEventMessage
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &decoded))
	assert.Equal(t, event.MessageID, decoded.MessageID)
	assert.NotContains(t, msg.Payload, "target_role")
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "app:profile:parse:abc", ParsedProfileKey("abc"))
	assert.Equal(t, "app:analysis:lock:sub-1", AnalysisLockKey("sub-1"))

	rec := types.NewProfileRecord()
	rec.Name = "Jane Doe"

	k1, err := AnalysisResultKey(rec, "Data Engineer")
	require.NoError(t, err)
	k2, err := AnalysisResultKey(rec, "  data engineer ")
	require.NoError(t, err)
	assert.Equal(t, k1, k2, "目标岗位大小写和首尾空白不影响缓存键")

	k3, err := AnalysisResultKey(rec, "")
	require.NoError(t, err)
	assert.NotEqual(t, k1, k3)

	rec.Headline = "Engineer"
	k4, err := AnalysisResultKey(rec, "Data Engineer")
	require.NoError(t, err)
	assert.NotEqual(t, k1, k4)
}

func TestHeaderCarrier_RoundTripsTraceContext(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "publish")
	defer span.End()

	prop := propagation.TraceContext{}
	headers := amqp.Table{}
	prop.Inject(ctx, HeaderCarrier(headers))
	assert.Contains(t, HeaderCarrier(headers).Keys(), "traceparent")

	extracted := prop.Extract(context.Background(), HeaderCarrier(headers))
	assert.Equal(t, span.SpanContext().TraceID(), trace.SpanContextFromContext(extracted).TraceID())

	// 非字符串头忽略
	assert.Equal(t, "", HeaderCarrier(amqp.Table{"x": 1}).Get("x"))
}

func TestStorage_NilSafe(t *testing.T) {
	var s *Storage
	assert.False(t, s.Persistent())
	s.Close()
}

func TestNewStorage_NoComponentsConfigured(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.MinIO.Endpoint = ""
	cfg.RabbitMQ.URL = ""
	cfg.MySQL.Host = ""
	cfg.Redis.Address = ""

	s, err := NewStorage(context.Background(), cfg)
	require.NoError(t, err)
	assert.False(t, s.Persistent())
	assert.Nil(t, s.Redis)
}

// 以下用例需要真实服务，通过环境变量开启
func TestRedis_ParseCacheIntegration(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDRESS")
	if addr == "" {
		t.Skipf("未设置 TEST_REDIS_ADDRESS，跳过Redis集成测试")
	}
	r, err := NewRedisAdapter(&config.RedisConfig{Address: addr})
	require.NoError(t, err)
	defer r.Close()

	ctx := context.Background()
	md5 := "integration-" + time.Now().Format("150405.000000")
	defer r.Client.Del(ctx, ParsedProfileKey(md5))

	got, err := r.GetParsedProfile(ctx, md5)
	require.NoError(t, err)
	assert.Nil(t, got)

	rec := types.NewProfileRecord()
	rec.Name = "Jane Doe"
	rec.Skills = []string{"Go"}
	require.NoError(t, r.SetParsedProfile(ctx, md5, rec))

	got, err = r.GetParsedProfile(ctx, md5)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec, *got)

	lockKey := AnalysisLockKey(md5)
	token, err := r.AcquireLock(ctx, lockKey, time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	again, err := r.AcquireLock(ctx, lockKey, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, again)

	released, err := r.ReleaseLock(ctx, lockKey, "wrong-token")
	require.NoError(t, err)
	assert.False(t, released)
	released, err = r.ReleaseLock(ctx, lockKey, token)
	require.NoError(t, err)
	assert.True(t, released)
}

func TestMySQL_SubmissionIntegration(t *testing.T) {
	host := os.Getenv("TEST_MYSQL_HOST")
	if host == "" {
		t.Skipf("未设置 TEST_MYSQL_HOST，跳过MySQL集成测试")
	}
	cfg := config.DefaultConfig().MySQL
	cfg.Host = host
	cfg.Password = os.Getenv("TEST_MYSQL_PASSWORD")

	m, err := NewMySQL(&cfg)
	require.NoError(t, err)
	defer m.Close()

	ctx := context.Background()
	_, err = m.GetSubmission(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrSubmissionNotFound)

	event := NewProfileEventMessage(EventAnalysisRequested, "00000000-0000-0000-0000-000000000000", "text", "", "")
	outbox, err := NewOutboxMessage(event, "profile.events", "profile.analyze")
	require.NoError(t, err)
	assert.ErrorIs(t, m.RequestAnalysis(ctx, event.SubmissionID, outbox), ErrSubmissionNotFound)

	// 写入、分页列出、覆盖记录
	id := uuid.Must(uuid.NewV4()).String()
	record := types.NewProfileRecord()
	record.Name = "Jane Doe"
	data, err := json.Marshal(record)
	require.NoError(t, err)
	require.NoError(t, m.CreateSubmissionWithEvent(ctx, &models.ProfileSubmission{
		SubmissionID: id,
		Source:       string(types.SourceText),
		RawText:      "Jane Doe",
		Record:       data,
		Status:       models.StatusParsed,
	}, nil))

	ids, err := m.ListSubmissionIDs(ctx, "", 1000)
	require.NoError(t, err)
	assert.Contains(t, ids, id)

	record.Headline = "Software Engineer"
	require.NoError(t, m.UpdateSubmissionRecord(ctx, id, record))
	saved, err := m.GetSubmission(ctx, id)
	require.NoError(t, err)
	got, err := saved.ProfileRecord()
	require.NoError(t, err)
	assert.Equal(t, "Software Engineer", got.Headline)
	assert.Equal(t, models.StatusParsed, saved.Status)
}
