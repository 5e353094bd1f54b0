package parser

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainPDFTextExtractor_InvalidPDF(t *testing.T) {
	e := NewPlainPDFTextExtractor(zerolog.Nop())
	_, meta, err := e.ExtractText(context.Background(), strings.NewReader("definitely not a pdf"), "bad.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPDFUnreadable)
	assert.Equal(t, "ledongthuc", meta["extractor"])
}

func TestPlainPDFTextExtractor_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := NewPlainPDFTextExtractor().ExtractText(ctx, strings.NewReader("%PDF-1.4"), "x.pdf")
	assert.ErrorIs(t, err, context.Canceled)
}

// scriptedExtractor 读取全部输入后返回预设结果
type scriptedExtractor struct {
	text  string
	err   error
	calls int
	seen  string
}

func (s *scriptedExtractor) ExtractText(ctx context.Context, r io.Reader, uri string) (string, map[string]interface{}, error) {
	s.calls++
	data, _ := io.ReadAll(r)
	s.seen = string(data)
	return s.text, map[string]interface{}{"uri": uri}, s.err
}

func TestFallbackPDFExtractor(t *testing.T) {
	first := &scriptedExtractor{err: ErrNoTextExtracted}
	second := &scriptedExtractor{text: "Jane Doe"}
	third := &scriptedExtractor{text: "never"}

	chain := NewFallbackPDFExtractor(first, second, third)
	text, meta, err := chain.ExtractText(context.Background(), strings.NewReader("%PDF data"), "cv.pdf")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", text)
	assert.Equal(t, "cv.pdf", meta["uri"])
	assert.Equal(t, "%PDF data", first.seen)
	assert.Equal(t, "%PDF data", second.seen, "每个提取器都应拿到完整数据")
	assert.Equal(t, 0, third.calls)
}

func TestFallbackPDFExtractor_AllFail(t *testing.T) {
	boom := errors.New("boom")
	chain := NewFallbackPDFExtractor(&scriptedExtractor{err: ErrPDFUnreadable}, &scriptedExtractor{err: boom})
	_, _, err := chain.ExtractText(context.Background(), strings.NewReader("x"), "cv.pdf")
	assert.ErrorIs(t, err, boom)

	_, _, err = NewFallbackPDFExtractor().ExtractText(context.Background(), strings.NewReader("x"), "cv.pdf")
	assert.ErrorIs(t, err, ErrNoTextExtracted)
}

func TestPDFInspector_RejectsBrokenFiles(t *testing.T) {
	inspector := NewPDFInspector(0)
	assert.Equal(t, DefaultMaxPDFPages, inspector.maxPages)

	_, err := inspector.Inspect(nil)
	assert.ErrorIs(t, err, ErrPDFUnreadable)

	_, err = inspector.Inspect([]byte("not a pdf at all"))
	assert.ErrorIs(t, err, ErrPDFUnreadable)
}
