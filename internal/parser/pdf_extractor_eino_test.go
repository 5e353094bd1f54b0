package parser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEinoPDFTextExtractor(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	extractor, err := NewEinoPDFTextExtractor(ctx)
	require.NoError(t, err, "创建PDF提取器不应返回错误")
	require.NotNil(t, extractor.parser, "PDF提取器内部的parser不应为nil")
	assert.Equal(t, 30*time.Second, extractor.timeout, "默认超时应为30秒")

	custom, err := NewEinoPDFTextExtractor(ctx, WithEinoTimeout(5*time.Second), WithEinoLogger(zerolog.Nop()))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, custom.timeout, "应该使用自定义超时")
}

func TestEinoPDFTextExtractor_InvalidPDF(t *testing.T) {
	ctx := context.Background()
	extractor, err := NewEinoPDFTextExtractor(ctx, WithEinoLogger(zerolog.Nop()))
	require.NoError(t, err)

	_, _, err = extractor.ExtractTextFromBytes(ctx, []byte("this is definitely not a pdf"), "broken.pdf")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPDFUnreadable), "非PDF内容应返回 ErrPDFUnreadable, 实际: %v", err)
}

func TestEinoPDFTextExtractor_MissingFile(t *testing.T) {
	extractor, err := NewEinoPDFTextExtractor(context.Background(), WithEinoLogger(zerolog.Nop()))
	require.NoError(t, err)

	_, _, err = extractor.ExtractFromFile(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist), "文件不存在时应保留原始错误")
}
