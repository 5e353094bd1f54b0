package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanExtractedText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"统一换行", "Jane\r\nDoe\rSmith", "Jane\nDoe\nSmith"},
		{"压缩多余空行", "Jane\n\n\n\n\nDoe", "Jane\n\nDoe"},
		{"压缩空格", "Go,    Rust", "Go, Rust"},
		{"去掉页码", "Page 3 of 10\nJane Doe", "Jane Doe"},
		{"去掉导出标记", "Jane Doe\nGenerated on 2024-01-01 by LinkedIn", "Jane Doe"},
		{"去掉控制字符和不换行空格", "Jane\u00a0Doe\x00", "Jane Doe"},
		{"换页符转换行", "Page one\fPage two", "Page one\nPage two"},
		{"过滤分隔线数字和孤立符号", "Jane Doe\n-----\n===\n12\n•\nX", "Jane Doe\nX"},
		{"去掉Resume和LinkedIn字样", "My Resume\nLinkedIn Profile", "My\nProfile"},
		{"连字与全角字符归一化", "So\ufb01a Engineer\n\uff27\uff4f", "Sofia Engineer\nGo"},
		{"空文本", "  \n\n ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanExtractedText(tt.in))
		})
	}
}
