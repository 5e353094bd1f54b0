package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"with prose", `Sure! Here it is: {"a":{"b":2}} hope it helps`, `{"a":{"b":2}}`},
		{"brace inside string", `{"a":"x}y","b":1} tail`, `{"a":"x}y","b":1}`},
		{"escaped quote", `{"a":"say \"}\" now"}`, `{"a":"say \"}\" now"}`},
		{"unterminated", `{"a":1`, ""},
		{"none", "no json here", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSONObject(tt.in))
		})
	}
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("\uFEFF```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("  ```\n{\"a\":1}```  "))
}

func TestSanitizeJSON(t *testing.T) {
	assert.Equal(t, `{"a":[1,2],"b":{"c":"d"}}`, sanitizeJSON(`{"a":[1,2,],"b":{"c":"d",},}`))
	assert.Equal(t, `{"a":"x, ]"}`, sanitizeJSON(`{"a":"x, ]"}`), "字符串内的逗号保持不变")
	assert.Equal(t, `{"q":"he said \"hi\" ok"}`, sanitizeJSON(`{"q":"he said "hi" ok"}`))
	assert.Equal(t, `{"q":"v"}`, sanitizeJSON("{\u201cq\u201d:\u201cv\u201d}"))
}

func TestDecodeAnalysis_SanitizeRetry(t *testing.T) {
	content := `{"overallScore": 70, "sectionScores": {"headline": 60,}, "insights": ["uses "quotes" inside"],}`
	result, err := decodeAnalysis(content)
	require.NoError(t, err)
	assert.Equal(t, 70, result.OverallScore)
	assert.Equal(t, 60, result.SectionScores.Headline)
	assert.Equal(t, []string{`uses "quotes" inside`}, result.Insights)
	assert.NotNil(t, result.CareerMatches)
	assert.NotNil(t, result.MissingSkills)
}

func TestDecodeAnalysis_Invalid(t *testing.T) {
	_, err := decodeAnalysis("nothing")
	assert.ErrorIs(t, err, ErrNoJSONObject)

	_, err = decodeAnalysis(`{"sectionScores": {}}`)
	assert.ErrorIs(t, err, ErrInvalidAnalysis)

	_, err = decodeAnalysis(`{"overallScore": 10}`)
	assert.ErrorIs(t, err, ErrInvalidAnalysis)
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0, clampScore(-5))
	assert.Equal(t, 100, clampScore(101))
	assert.Equal(t, 50, clampScore(49.5))
}
