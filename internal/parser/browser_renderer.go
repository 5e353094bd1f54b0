package parser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"profile-insight-go/internal/logger"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
	"github.com/rs/zerolog"
)

// RodRenderer 用无头Chrome渲染需要执行脚本的档案页面
// 浏览器在第一次 Render 时才启动，之后复用同一个实例
type RodRenderer struct {
	remoteURL  string
	navTimeout time.Duration
	logger     zerolog.Logger

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
}

// RendererOption 渲染器配置选项
type RendererOption func(*RodRenderer)

// WithRemoteBrowser 连接已有的浏览器（DevTools websocket 地址），不在本地启动Chrome
func WithRemoteBrowser(wsURL string) RendererOption {
	return func(r *RodRenderer) {
		r.remoteURL = wsURL
	}
}

// WithNavigationTimeout 配置单个页面的导航超时
func WithNavigationTimeout(d time.Duration) RendererOption {
	return func(r *RodRenderer) {
		if d > 0 {
			r.navTimeout = d
		}
	}
}

// WithRendererLogger 配置日志记录器
func WithRendererLogger(l zerolog.Logger) RendererOption {
	return func(r *RodRenderer) {
		r.logger = l
	}
}

// NewRodRenderer 创建浏览器渲染器
func NewRodRenderer(options ...RendererOption) *RodRenderer {
	r := &RodRenderer{
		navTimeout: 30 * time.Second,
		logger:     logger.Logger.With().Str("component", "rod_renderer").Logger(),
	}
	for _, option := range options {
		option(r)
	}
	return r
}

func (r *RodRenderer) connect() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser != nil {
		return r.browser, nil
	}

	wsURL := r.remoteURL
	if wsURL == "" {
		l := launcher.New().Headless(true).Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("启动浏览器失败: %w", err)
		}
		wsURL = u
		r.lnch = l
		r.logger.Info().Str("url", wsURL).Msg("本地Chrome已启动")
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("连接浏览器失败: %w", err)
	}
	r.browser = b
	return b, nil
}

// Render 打开页面、等待加载完成后返回整个文档的HTML
func (r *RodRenderer) Render(ctx context.Context, pageURL string) ([]byte, error) {
	b, err := r.connect()
	if err != nil {
		return nil, err
	}

	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("创建标签页失败: %w", err)
	}
	defer page.Close()

	navCtx, cancel := context.WithTimeout(ctx, r.navTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		return nil, fmt.Errorf("打开页面 %s 失败: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		r.logger.Warn().Err(err).Str("url", pageURL).Msg("等待页面加载超时，使用当前DOM")
	}

	res, err := page.Context(navCtx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return nil, fmt.Errorf("读取页面DOM失败: %w", err)
	}
	return []byte(res.Value.Str()), nil
}

// Close 关闭浏览器，本地启动的Chrome进程一并清理
func (r *RodRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var err error
	if r.browser != nil {
		err = r.browser.Close()
		r.browser = nil
	}
	if r.lnch != nil {
		r.lnch.Cleanup()
		r.lnch = nil
	}
	return err
}
