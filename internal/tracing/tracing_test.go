package tracing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"profile-insight-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestRecordErrorWithInfo_SetsStatusAndAttributes(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	_, span := tp.Tracer("test").Start(context.Background(), "op")
	RecordErrorWithInfo(span, errors.New("boom"), ErrorTypeModel, attribute.String("profile.source", "pdf"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)

	v, ok := attrValue(spans[0].Attributes(), "error.type")
	require.True(t, ok)
	assert.Equal(t, "model", v.AsString())
	v, ok = attrValue(spans[0].Attributes(), "profile.source")
	require.True(t, ok)
	assert.Equal(t, "pdf", v.AsString())
}

func TestRecordError_NilIsNoop(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	_, span := tp.Tracer("test").Start(context.Background(), "op")
	RecordError(span, nil, ErrorTypeDB)
	span.End()

	assert.Equal(t, codes.Unset, recorder.Ended()[0].Status().Code)
}

func TestErrorTypeOf(t *testing.T) {
	wrapped := fmt.Errorf("调用模型: %w", context.DeadlineExceeded)
	assert.Equal(t, ErrorTypeTimeout, ErrorTypeOf(wrapped, ErrorTypeModel))
	assert.Equal(t, ErrorTypeModel, ErrorTypeOf(errors.New("x"), ErrorTypeModel))
}

func TestMaskPII(t *testing.T) {
	cases := map[string]string{
		"":                  "",
		"A":                 "*",
		"张三":                "张*",
		"王小明":               "王*明",
		"jane@example.com":  "ja************om",
		"+1 (555) 123-4567": "+1*************67",
	}
	for in, want := range cases {
		assert.Equal(t, want, MaskPII(in), in)
	}
}

func TestSafeURL(t *testing.T) {
	assert.Equal(t, "https://www.linkedin.com/in/jane-doe",
		SafeURL("https://user:pw@www.linkedin.com/in/jane-doe?trk=abc#top"))
	assert.Equal(t, "not a url", SafeURL("not a url"))
	assert.LessOrEqual(t, len([]rune(SafeURL("https://example.com/"+strings.Repeat("a", 400)))), MaxURLLength)
}

func TestSafeFileName(t *testing.T) {
	assert.Equal(t, "Ja****oe.pdf", SafeFileName("Jane_Doe.pdf"))
	assert.Equal(t, "", SafeFileName(""))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 50))
	assert.Equal(t, "abc...xyz", TruncateString("abcdefghijklmnopqrstuvwxyz", 9))
	assert.Equal(t, "ab", TruncateString("abcdef", 2))
}

func TestProfileAttributes(t *testing.T) {
	r := types.NewProfileRecord()
	r.Name = "Jane Doe"
	r.Skills = []string{"Go", "SQL"}

	attrs := ProfileAttributes(r)
	v, ok := attrValue(attrs, "profile.has_name")
	require.True(t, ok)
	assert.True(t, v.AsBool())
	v, ok = attrValue(attrs, "profile.skills_count")
	require.True(t, ok)
	assert.Equal(t, int64(2), v.AsInt64())
	for _, kv := range attrs {
		assert.NotEqual(t, "Jane Doe", kv.Value.Emit())
	}
}

func TestInit_DisabledIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Options{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
