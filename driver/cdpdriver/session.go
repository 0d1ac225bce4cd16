package cdpdriver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	log "github.com/sirupsen/logrus"

	"auto_resume_go/driver"
	"auto_resume_go/model"
	"auto_resume_go/resolver"
)

// Session 一个 chromedp 管理的浏览器进程
type Session struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu      sync.Mutex
	used    bool
	cancels []context.CancelFunc
}

var _ driver.Session = (*Session)(nil)

// Launch 启动带用户目录的 Chrome
func Launch(ctx context.Context, opts driver.LaunchOptions) (*Session, error) {
	opts = opts.WithDefaults()
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(opts.Width, opts.Height),
	)
	if opts.UserDataDir != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(opts.UserDataDir))
	}
	if opts.ChromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ChromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	// 第一次 Run 才会真正启动浏览器
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("启动浏览器失败: %w", err)
	}
	log.WithFields(log.Fields{"userDataDir": opts.UserDataDir, "headless": opts.Headless}).Info("✓ chromedp 浏览器已启动")
	return &Session{allocCancel: allocCancel, browserCtx: browserCtx, browserCancel: browserCancel}, nil
}

func (s *Session) NewPage(ctx context.Context, url string) (resolver.Page, error) {
	s.mu.Lock()
	tabCtx := s.browserCtx
	if s.used {
		var cancel context.CancelFunc
		tabCtx, cancel = chromedp.NewContext(s.browserCtx)
		s.cancels = append(s.cancels, cancel)
	}
	s.used = true
	s.mu.Unlock()

	p := New(tabCtx)
	if err := p.Navigate(ctx, url); err != nil {
		log.WithError(err).WithField("url", url).Warn("页面导航失败")
	}
	return p, nil
}

func (s *Session) Cookies(ctx context.Context) ([]model.BrowserCookie, error) {
	var cookies []*network.Cookie
	if err := chromedp.Run(s.browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().Do(ctx)
		return err
	})); err != nil {
		return nil, fmt.Errorf("获取Cookie失败: %w", err)
	}
	out := make([]model.BrowserCookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, model.BrowserCookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		})
	}
	return out, nil
}

func (s *Session) SetCookies(ctx context.Context, cookies []model.BrowserCookie) error {
	if len(cookies) == 0 {
		return nil
	}
	params := make([]*network.CookieParam, len(cookies))
	for i, c := range cookies {
		params[i] = &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: network.CookieSameSite(c.SameSite),
		}
		if c.Expires > 0 {
			exp := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
			params[i].Expires = &exp
		}
	}
	return chromedp.Run(s.browserCtx, network.SetCookies(params))
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cancel := range s.cancels {
		cancel()
	}
	s.browserCancel()
	s.allocCancel()
	return nil
}
