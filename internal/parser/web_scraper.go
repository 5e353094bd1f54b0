package parser

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/publicsuffix"

	"profile-insight-go/internal/logger"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// maxPageBytes 页面体积上限
const maxPageBytes = 5 << 20

// 档案页面中可能承载主体内容的区域标记
var profileRegionHints = []string{"profile", "experience", "about", "summary", "skills", "education", "top-card"}

var hiddenStylePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)display\s*:\s*none`),
	regexp.MustCompile(`(?i)visibility\s*:\s*hidden`),
}

// HTTPStatusError 目标站点返回了非200状态码
type HTTPStatusError struct {
	StatusCode int
	URL        string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.URL)
}

// PageCache 页面缓存，GetSet 对同一个 key 的并发加载只执行一次
type PageCache interface {
	GetSet(ctx context.Context, key string, fetch func(context.Context) ([]byte, error), ttl ...time.Duration) ([]byte, error)
}

// PageRenderer 通过浏览器渲染页面并返回最终的HTML
type PageRenderer interface {
	Render(ctx context.Context, pageURL string) ([]byte, error)
}

// WebScraper 抓取公开档案页面并提取可见文本
type WebScraper struct {
	client          *http.Client
	allowedHosts    []string
	publicHostsOnly bool
	userAgent       string
	attempts        uint
	retryDelay      time.Duration
	cache           PageCache
	renderer        PageRenderer
	logger          zerolog.Logger
}

// ScraperOption 抓取器配置选项
type ScraperOption func(*WebScraper)

// WithHTTPClient 使用自定义HTTP客户端
func WithHTTPClient(c *http.Client) ScraperOption {
	return func(s *WebScraper) {
		s.client = c
	}
}

// WithAllowedHosts 限制可抓取的站点（按注册域名或后缀匹配），为空表示不限制
func WithAllowedHosts(hosts ...string) ScraperOption {
	return func(s *WebScraper) {
		s.allowedHosts = hosts
	}
}

// WithRetry 配置重试次数和初始间隔
func WithRetry(attempts uint, delay time.Duration) ScraperOption {
	return func(s *WebScraper) {
		if attempts > 0 {
			s.attempts = attempts
		}
		if delay > 0 {
			s.retryDelay = delay
		}
	}
}

// WithPublicHostsOnly 拒绝IP地址以及没有公共后缀的主机名（localhost、内网域名）
func WithPublicHostsOnly(enabled bool) ScraperOption {
	return func(s *WebScraper) {
		s.publicHostsOnly = enabled
	}
}

// WithPageCache 缓存抓取到的页面
func WithPageCache(c PageCache) ScraperOption {
	return func(s *WebScraper) {
		s.cache = c
	}
}

// WithRenderer 用浏览器渲染代替直接的HTTP请求
func WithRenderer(r PageRenderer) ScraperOption {
	return func(s *WebScraper) {
		s.renderer = r
	}
}

// WithScraperLogger 配置日志记录器
func WithScraperLogger(l zerolog.Logger) ScraperOption {
	return func(s *WebScraper) {
		s.logger = l
	}
}

// NewWebScraper 创建网页抓取器
func NewWebScraper(options ...ScraperOption) *WebScraper {
	s := &WebScraper{
		client:     &http.Client{Timeout: 30 * time.Second},
		userAgent:  defaultUserAgent,
		attempts:   3,
		retryDelay: 500 * time.Millisecond,
		logger:     logger.Logger.With().Str("component", "web_scraper").Logger(),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// ValidateURL 校验URL协议和站点
func (s *WebScraper) ValidateURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: 不支持的协议 %q", ErrInvalidURL, u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	if s.publicHostsOnly && !isPublicHost(host) {
		return nil, fmt.Errorf("%w: 不允许访问非公网主机 %s", ErrInvalidURL, host)
	}
	if len(s.allowedHosts) == 0 {
		return u, nil
	}
	domain, _ := publicsuffix.EffectiveTLDPlusOne(host)
	for _, allowed := range s.allowedHosts {
		allowed = strings.ToLower(strings.TrimSpace(allowed))
		if allowed == "" {
			continue
		}
		if host == allowed || domain == allowed || strings.HasSuffix(host, "."+allowed) {
			return u, nil
		}
	}
	return nil, fmt.Errorf("%w: 站点 %s 不在允许范围内", ErrInvalidURL, host)
}

// isPublicHost 主机名必须落在 ICANN 管理的公共后缀之下
func isPublicHost(host string) bool {
	if host == "" || net.ParseIP(host) != nil {
		return false
	}
	suffix, icann := publicsuffix.PublicSuffix(host)
	return icann && suffix != host
}

// Scrape 抓取页面并返回可见文本，每个块级元素一行
func (s *WebScraper) Scrape(ctx context.Context, rawURL string) (string, error) {
	u, err := s.ValidateURL(rawURL)
	if err != nil {
		return "", err
	}

	body, err := s.load(ctx, u.String())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	text, err := ExtractVisibleText(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: 解析HTML失败: %v", ErrFetchFailed, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrNoTextExtracted
	}
	s.logger.Info().Str("url", u.String()).Int("chars", len(text)).Msg("页面抓取完成")
	return text, nil
}

// load 选择渲染或直接抓取，配置了缓存时经由缓存加载
func (s *WebScraper) load(ctx context.Context, target string) ([]byte, error) {
	loader := s.fetch
	if s.renderer != nil {
		loader = s.renderer.Render
	}
	if s.cache == nil {
		return loader(ctx, target)
	}
	return s.cache.GetSet(ctx, PageCacheKey(target), func(ctx context.Context) ([]byte, error) {
		return loader(ctx, target)
	})
}

// PageCacheKey 将URL转换为缓存键
func PageCacheKey(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:])
}

func (s *WebScraper) fetch(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	jitter := s.retryDelay / 2
	if jitter <= 0 {
		jitter = time.Millisecond
	}

	return retry.DoWithData(
		func() ([]byte, error) {
			resp, err := s.client.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return nil, &HTTPStatusError{StatusCode: resp.StatusCode, URL: target}
			}
			return io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
		},
		retry.Context(ctx),
		retry.Attempts(s.attempts),
		retry.Delay(s.retryDelay),
		retry.MaxJitter(jitter),
		retry.RetryIf(isRetryableFetchError),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Debug().Uint("attempt", n+1).Str("url", target).Err(err).Msg("重试抓取页面")
		}),
	)
}

// isRetryableFetchError 只重试网络错误、429和5xx
func isRetryableFetchError(err error) bool {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500
	}
	return true
}

// ExtractVisibleText 从HTML中提取可见文本
// 优先取档案相关区域，找不到时退回到整个 body
func ExtractVisibleText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	var regions []*html.Node
	findProfileRegions(doc, &regions)

	var blocks []string
	for _, region := range regions {
		collectBlocks(region, &blocks)
	}
	if len(blocks) == 0 {
		root := findElement(doc, atom.Body)
		if root == nil {
			root = doc
		}
		collectBlocks(root, &blocks)
	}
	return strings.Join(blocks, "\n"), nil
}

// skipElement 跳过脚本、导航等不可见或无关元素
func skipElement(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript, atom.Nav, atom.Footer, atom.Header,
		atom.Svg, atom.Form, atom.Template, atom.Iframe:
		return true
	}
	for _, a := range n.Attr {
		switch a.Key {
		case "hidden":
			return true
		case "aria-hidden":
			if a.Val == "true" {
				return true
			}
		case "style":
			for _, p := range hiddenStylePatterns {
				if p.MatchString(a.Val) {
					return true
				}
			}
		}
	}
	return false
}

func isProfileRegion(n *html.Node) bool {
	if n.DataAtom == atom.Main || n.DataAtom == atom.Article {
		return true
	}
	for _, a := range n.Attr {
		if a.Key != "class" && a.Key != "id" && a.Key != "data-section" {
			continue
		}
		v := strings.ToLower(a.Val)
		for _, hint := range profileRegionHints {
			if strings.Contains(v, hint) {
				return true
			}
		}
	}
	return false
}

// findProfileRegions 收集最外层的档案区域，已命中区域的子树不再继续查找
func findProfileRegions(n *html.Node, regions *[]*html.Node) {
	if n.Type == html.ElementNode {
		if skipElement(n) {
			return
		}
		if isProfileRegion(n) {
			*regions = append(*regions, n)
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		findProfileRegions(c, regions)
	}
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func isBlockElement(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Section, atom.Li, atom.Ul, atom.Ol, atom.Tr, atom.Table,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Br, atom.Article,
		atom.Main, atom.Aside, atom.Dd, atom.Dt, atom.Blockquote, atom.Pre:
		return true
	}
	return false
}

// collectBlocks 深度优先遍历，块级元素边界处换行，行内文本以空格连接
func collectBlocks(n *html.Node, blocks *[]string) {
	var sb strings.Builder
	flush := func() {
		line := strings.Join(strings.Fields(sb.String()), " ")
		if line != "" {
			*blocks = append(*blocks, line)
		}
		sb.Reset()
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
			return
		case html.ElementNode:
			if skipElement(n) {
				return
			}
		}
		block := n.Type == html.ElementNode && isBlockElement(n.DataAtom)
		if block {
			flush()
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			flush()
		}
	}
	walk(n)
	flush()
}
