package processor

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"profile-insight-go/internal/analysis"
	"profile-insight-go/internal/config"
	"profile-insight-go/internal/parser"
	"profile-insight-go/internal/storage"
	"profile-insight-go/pkg/ratelimit"

	"github.com/cloudwego/eino/components/model"
	"github.com/rs/zerolog"
)

// Components 聚合所有功能组件依赖，便于集中管理和测试替换
// 除 PDFExtractor 外都可以为 nil，对应功能降级或返回 *NotInit 错误
type Components struct {
	// 文本提取
	PDFInspector PDFInspector
	PDFExtractor PDFTextExtractor
	OCR          OCRExtractor
	Scraper      WebScraper

	// 分析
	Analyzer ProfileAnalyzer

	// 存储层依赖
	Submissions SubmissionStore
	Cache       ProfileCache
	Originals   OriginalStore
	Locker      AnalysisLocker

	// 需要随服务一起关闭的资源
	closers []func() error
}

// ComponentOpt 修改 Components 中的单个字段
type ComponentOpt func(*Components)

// WithPDF 设置PDF校验器和提取器
func WithPDF(inspector PDFInspector, extractor PDFTextExtractor) ComponentOpt {
	return func(c *Components) {
		c.PDFInspector = inspector
		c.PDFExtractor = extractor
	}
}

// WithOCR 设置OCR提取器
func WithOCR(ocr OCRExtractor) ComponentOpt {
	return func(c *Components) { c.OCR = ocr }
}

// WithScraper 设置网页抓取器
func WithScraper(s WebScraper) ComponentOpt {
	return func(c *Components) { c.Scraper = s }
}

// WithAnalyzer 设置分析器
func WithAnalyzer(a ProfileAnalyzer) ComponentOpt {
	return func(c *Components) { c.Analyzer = a }
}

// WithSubmissionStore 设置持久化存储
func WithSubmissionStore(s SubmissionStore) ComponentOpt {
	return func(c *Components) { c.Submissions = s }
}

// WithProfileCache 设置缓存
func WithProfileCache(cache ProfileCache) ComponentOpt {
	return func(c *Components) { c.Cache = cache }
}

// WithOriginalStore 设置原始文件存储
func WithOriginalStore(o OriginalStore) ComponentOpt {
	return func(c *Components) { c.Originals = o }
}

// WithLocker 设置分析锁
func WithLocker(l AnalysisLocker) ComponentOpt {
	return func(c *Components) { c.Locker = l }
}

// NewComponentsFromConfig 按配置创建所有组件，store 为 nil 或部分为 nil 时对应能力不启用
func NewComponentsFromConfig(ctx context.Context, cfg *config.Config, store *storage.Storage, l zerolog.Logger) (Components, error) {
	var c Components

	// PDF：eino 解析器为主，ledongthuc/pdf 兜底
	eino, err := parser.NewEinoPDFTextExtractor(ctx, parser.WithEinoLogger(l))
	if err != nil {
		return c, fmt.Errorf("创建PDF提取器失败: %w", err)
	}
	c.PDFInspector = parser.NewPDFInspector(cfg.PDF.MaxPages)
	c.PDFExtractor = parser.NewFallbackPDFExtractor(eino, parser.NewPlainPDFTextExtractor(l))

	if cfg.Tika.ServerURL != "" {
		opts := []parser.TikaOption{
			parser.WithTikaLogger(l),
			parser.WithOCRLanguage(cfg.Tika.Language),
			parser.WithOCRConcurrency(cfg.Tika.Concurrency),
		}
		if cfg.Tika.Timeout > 0 {
			opts = append(opts, parser.WithTimeout(time.Duration(cfg.Tika.Timeout)*time.Second))
		}
		c.OCR = parser.NewTikaOCRExtractor(cfg.Tika.ServerURL, opts...)
	} else {
		l.Warn().Msg("未配置Tika服务器，OCR解析不可用")
	}

	scraper, closer, err := newScraper(cfg.Scraper, l)
	if err != nil {
		return c, err
	}
	c.Scraper = scraper
	if closer != nil {
		c.closers = append(c.closers, closer)
	}

	if cfg.Analysis.APIKey() != "" {
		analyzer, err := NewAnalyzerFromConfig(ctx, cfg, l)
		if err != nil {
			return c, err
		}
		c.Analyzer = analyzer
	} else {
		l.Warn().Str("provider", cfg.Analysis.Provider).Msg("未配置分析模型密钥，档案分析不可用")
	}

	if store != nil {
		if store.MySQL != nil {
			c.Submissions = store.MySQL
		}
		if store.Redis != nil {
			c.Cache = store.Redis
			c.Locker = store.Redis
		}
		if store.MinIO != nil {
			c.Originals = store.MinIO
		}
	}
	return c, nil
}

func newScraper(cfg config.ScraperConfig, l zerolog.Logger) (*parser.WebScraper, func() error, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = 3
	}
	opts := []parser.ScraperOption{
		parser.WithHTTPClient(&http.Client{Timeout: timeout}),
		parser.WithAllowedHosts(cfg.AllowedHosts...),
		parser.WithPublicHostsOnly(cfg.PublicHostsOnly),
		parser.WithRetry(uint(attempts), 500*time.Millisecond),
		parser.WithScraperLogger(l),
	}

	if ttl := config.GetDuration(cfg.CacheTTL, 0); ttl > 0 {
		cache, err := parser.NewPageCache(ttl)
		if err != nil {
			return nil, nil, fmt.Errorf("创建页面缓存失败: %w", err)
		}
		opts = append(opts, parser.WithPageCache(cache))
	}

	var closer func() error
	if cfg.RenderJS {
		rOpts := []parser.RendererOption{
			parser.WithNavigationTimeout(timeout * 2),
			parser.WithRendererLogger(l),
		}
		if cfg.BrowserURL != "" {
			rOpts = append(rOpts, parser.WithRemoteBrowser(cfg.BrowserURL))
		}
		renderer := parser.NewRodRenderer(rOpts...)
		opts = append(opts, parser.WithRenderer(renderer))
		closer = renderer.Close
	}
	return parser.NewWebScraper(opts...), closer, nil
}

// NewAnalyzerFromConfig 按 provider 创建聊天模型，套上限流后构造分析器
func NewAnalyzerFromConfig(ctx context.Context, cfg *config.Config, l zerolog.Logger) (*analysis.Analyzer, error) {
	ac := cfg.Analysis
	modelName := ac.ModelName()

	var base model.BaseChatModel
	switch ac.Provider {
	case config.ProviderGemini:
		m, err := analysis.NewGeminiChatModel(ctx, ac.Gemini.APIKey, modelName)
		if err != nil {
			return nil, fmt.Errorf("创建Gemini模型失败: %w", err)
		}
		base = m
	case config.ProviderQwen, "":
		m, err := analysis.NewQwenChatModel(ac.Qwen.APIKey, modelName, ac.Qwen.APIURL,
			analysis.WithQwenJSONMode(ac.Qwen.JSONMode),
			analysis.WithQwenLogger(l))
		if err != nil {
			return nil, fmt.Errorf("创建Qwen模型失败: %w", err)
		}
		base = m
	default:
		return nil, fmt.Errorf("不支持的分析模型提供方: %s", ac.Provider)
	}

	// 显式配置的 QPM 优先于模型配额表
	quotas := ac.ModelQPMLimits
	if ac.QPM > 0 {
		quotas = nil
	}
	limited := ratelimit.NewChatModelWithRateLimit(
		base,
		modelName,
		quotas,
		ac.QPM,
		ac.MaxRetries,
		time.Duration(ac.RetryWaitSeconds)*time.Second,
	)

	return analysis.NewAnalyzer(limited,
		analysis.WithAnalyzerLogger(l),
		analysis.WithModelName(modelName),
		analysis.WithTemperature(float32(ac.Temperature)),
		analysis.WithMaxTokens(ac.MaxTokens),
		analysis.WithAnalyzeTimeout(config.GetDuration(ac.Timeout, 90*time.Second)),
	), nil
}
