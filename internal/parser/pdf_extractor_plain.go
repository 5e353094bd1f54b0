package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"

	"profile-insight-go/internal/logger"
)

// PlainPDFTextExtractor 使用 ledongthuc/pdf 按内容流顺序提取纯文本
// 对部分 Eino 解析器读不出文字的导出型PDF更宽容
type PlainPDFTextExtractor struct {
	logger zerolog.Logger
}

// NewPlainPDFTextExtractor 创建纯文本PDF提取器
func NewPlainPDFTextExtractor(l ...zerolog.Logger) *PlainPDFTextExtractor {
	e := &PlainPDFTextExtractor{
		logger: logger.Logger.With().Str("component", "pdf_extractor_plain").Logger(),
	}
	if len(l) > 0 {
		e.logger = l[0]
	}
	return e
}

// ExtractText 实现 PDFTextExtractor
func (e *PlainPDFTextExtractor) ExtractText(ctx context.Context, reader io.Reader, uri string) (text string, meta map[string]interface{}, err error) {
	startTime := time.Now()
	meta = map[string]interface{}{
		"source_uri": uri,
		"extractor":  "ledongthuc",
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", meta, fmt.Errorf("读取PDF数据失败: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", meta, err
	}

	// 库在遇到畸形对象时可能 panic
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn().Interface("panic", r).Str("uri", uri).Msg("PDF解析异常")
			text, err = "", fmt.Errorf("%w: %v", ErrPDFUnreadable, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", meta, fmt.Errorf("%w: %v", ErrPDFUnreadable, err)
	}
	meta["page_count"] = r.NumPage()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", meta, fmt.Errorf("%w: %v", ErrPDFUnreadable, err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", meta, fmt.Errorf("%w: %v", ErrPDFUnreadable, err)
	}

	text = buf.String()
	meta["text_length"] = len(text)
	meta["processing_duration_ms"] = time.Since(startTime).Milliseconds()
	if strings.TrimSpace(text) == "" {
		return "", meta, ErrNoTextExtracted
	}
	return text, meta, nil
}

// TextExtractor 与 processor 中的 PDFTextExtractor 签名一致
type TextExtractor interface {
	ExtractText(ctx context.Context, reader io.Reader, uri string) (string, map[string]interface{}, error)
}

// FallbackPDFExtractor 依次尝试多个提取器，直到得到非空文本
// 全部失败时返回最后一个错误
type FallbackPDFExtractor struct {
	extractors []TextExtractor
	logger     zerolog.Logger
}

// NewFallbackPDFExtractor 按给定顺序组合提取器
func NewFallbackPDFExtractor(extractors ...TextExtractor) *FallbackPDFExtractor {
	return &FallbackPDFExtractor{
		extractors: extractors,
		logger:     logger.Logger.With().Str("component", "pdf_extractor_chain").Logger(),
	}
}

// ExtractText 实现 PDFTextExtractor
func (f *FallbackPDFExtractor) ExtractText(ctx context.Context, reader io.Reader, uri string) (string, map[string]interface{}, error) {
	if len(f.extractors) == 0 {
		return "", nil, ErrNoTextExtracted
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", nil, fmt.Errorf("读取PDF数据失败: %w", err)
	}

	var lastErr error
	var lastMeta map[string]interface{}
	for i, ex := range f.extractors {
		text, meta, err := ex.ExtractText(ctx, bytes.NewReader(data), uri)
		if err == nil {
			if i > 0 {
				f.logger.Info().Str("uri", uri).Int("extractor_index", i).Msg("备用PDF提取器成功")
			}
			return text, meta, nil
		}
		if ctx.Err() != nil {
			return "", meta, err
		}
		f.logger.Debug().Err(err).Str("uri", uri).Int("extractor_index", i).Msg("PDF提取器失败，尝试下一个")
		lastErr, lastMeta = err, meta
	}
	return "", lastMeta, lastErr
}
