package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"profile-insight-go/internal/logger"
)

// MaxOCRImages 单次识别的图片数量上限
const MaxOCRImages = 10

// 支持OCR的图片类型
var supportedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/jpg":  true,
	"image/webp": true,
	"image/gif":  true,
	"image/bmp":  true,
	"image/tiff": true,
}

// IsSupportedImageType 判断内容类型是否可以送去OCR
func IsSupportedImageType(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return supportedImageTypes[ct]
}

// ImageInput 一张待识别的图片
type ImageInput struct {
	Name        string
	ContentType string
	Data        []byte
}

// TikaOCRExtractor 通过Apache Tika服务器（内置Tesseract）识别图片中的文字
type TikaOCRExtractor struct {
	// Tika服务器地址，例如 http://localhost:9998
	ServerURL string
	// HTTP客户端，可配置超时等参数
	Client *http.Client
	// OCR语言，对应Tesseract语言包
	language string
	// 同时识别的图片数
	concurrency int
	logger      zerolog.Logger
}

// TikaOption 定义配置选项函数
type TikaOption func(*TikaOCRExtractor)

// WithTikaLogger 配置自定义日志记录器
func WithTikaLogger(l zerolog.Logger) TikaOption {
	return func(e *TikaOCRExtractor) {
		e.logger = l
	}
}

// WithTimeout 配置HTTP客户端超时时间
func WithTimeout(timeout time.Duration) TikaOption {
	return func(e *TikaOCRExtractor) {
		e.Client.Timeout = timeout
	}
}

// WithOCRLanguage 配置OCR语言，默认 eng
func WithOCRLanguage(lang string) TikaOption {
	return func(e *TikaOCRExtractor) {
		if lang != "" {
			e.language = lang
		}
	}
}

// WithOCRConcurrency 配置并发识别的图片数，<= 0 时保持默认值 3
func WithOCRConcurrency(n int) TikaOption {
	return func(e *TikaOCRExtractor) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// NewTikaOCRExtractor 创建一个新的Tika OCR识别器
func NewTikaOCRExtractor(serverURL string, options ...TikaOption) *TikaOCRExtractor {
	extractor := &TikaOCRExtractor{
		ServerURL: strings.TrimRight(serverURL, "/"),
		Client: &http.Client{
			Timeout: 60 * time.Second,
		},
		language:    "eng",
		concurrency: 3,
		logger:      logger.Logger.With().Str("component", "tika_ocr").Logger(),
	}
	for _, option := range options {
		option(extractor)
	}
	return extractor
}

// RecognizeImages 并发识别多张图片，结果按上传顺序用空行连接
// 单张图片失败只记录日志并跳过，全部为空时返回 ErrNoTextExtracted
func (e *TikaOCRExtractor) RecognizeImages(ctx context.Context, images []ImageInput) (string, error) {
	if len(images) == 0 {
		return "", ErrNoTextExtracted
	}
	if len(images) > MaxOCRImages {
		return "", fmt.Errorf("%w: %d > %d", ErrTooManyImages, len(images), MaxOCRImages)
	}
	for _, img := range images {
		if !IsSupportedImageType(img.ContentType) {
			return "", fmt.Errorf("%w: %s (%s)", ErrUnsupportedImage, img.ContentType, img.Name)
		}
	}

	results := make([]string, len(images))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, img := range images {
		g.Go(func() error {
			text, err := e.RecognizeImage(gctx, img)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				e.logger.Warn().Err(err).Str("image", img.Name).Msg("图片OCR失败，跳过")
				return nil
			}
			results[i] = strings.TrimSpace(text)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	texts := make([]string, 0, len(results))
	for _, t := range results {
		if t != "" {
			texts = append(texts, t)
		}
	}
	if len(texts) == 0 {
		return "", ErrNoTextExtracted
	}
	return strings.Join(texts, "\n\n"), nil
}

// RecognizeImage 识别单张图片
func (e *TikaOCRExtractor) RecognizeImage(ctx context.Context, img ImageInput) (string, error) {
	startTime := time.Now()
	url := fmt.Sprintf("%s/tika", e.ServerURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(img.Data))
	if err != nil {
		return "", fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", img.ContentType)
	req.Header.Set("Accept", "text/plain")
	req.Header.Set("X-Tika-OCRLanguage", e.language)
	if img.Name != "" {
		req.Header.Set("X-Tika-Resource-Name", img.Name)
	}

	resp, err := e.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("发送请求到Tika服务器失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tika服务器返回错误状态码: %d", resp.StatusCode)
	}

	textBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("读取Tika响应失败: %w", err)
	}

	e.logger.Debug().Str("image", img.Name).Int("chars", len(textBytes)).
		Dur("duration", time.Since(startTime)).Msg("图片OCR完成")
	return string(textBytes), nil
}
