package pwdriver

import (
	"context"
	"fmt"

	"github.com/playwright-community/playwright-go"
	log "github.com/sirupsen/logrus"

	"auto_resume_go/driver"
	"auto_resume_go/model"
	"auto_resume_go/resolver"
)

// Session 持久化用户目录的 playwright 浏览器
type Session struct {
	pw      *playwright.Playwright
	context playwright.BrowserContext
	// blank 启动时自带的空白页，第一次打开页面时复用
	blank playwright.Page
}

var _ driver.Session = (*Session)(nil)

// Launch 启动 playwright 并以持久化上下文打开浏览器
func Launch(ctx context.Context, opts driver.LaunchOptions) (*Session, error) {
	opts = opts.WithDefaults()
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("启动Playwright失败: %w", err)
	}

	launch := playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(opts.Headless),
		Viewport: &playwright.Size{Width: opts.Width, Height: opts.Height},
		Args: []string{
			"--start-maximized",
			"--disable-blink-features=AutomationControlled",
		},
	}
	if opts.ChromePath != "" {
		launch.ExecutablePath = playwright.String(opts.ChromePath)
	}
	bctx, err := pw.Chromium.LaunchPersistentContext(opts.UserDataDir, launch)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("启动浏览器失败: %w", err)
	}
	s := &Session{pw: pw, context: bctx}
	if pages := bctx.Pages(); len(pages) > 0 {
		s.blank = pages[0]
	}
	log.WithFields(log.Fields{"userDataDir": opts.UserDataDir, "headless": opts.Headless}).Info("✓ Playwright 浏览器已启动")
	return s, nil
}

func (s *Session) NewPage(ctx context.Context, url string) (resolver.Page, error) {
	page := s.blank
	s.blank = nil
	if page == nil {
		var err error
		if page, err = s.context.NewPage(); err != nil {
			return nil, fmt.Errorf("创建页面失败: %w", err)
		}
	}
	page.SetDefaultTimeout(30000)
	p := New(page)
	if err := p.Navigate(ctx, url); err != nil {
		// 页面仍然保留，之后刷新时重试
		log.WithError(err).WithField("url", url).Warn("页面导航失败")
	}
	return p, nil
}

// Context 返回浏览器上下文
func (s *Session) Context() playwright.BrowserContext {
	return s.context
}

func (s *Session) Cookies(ctx context.Context) ([]model.BrowserCookie, error) {
	cookies, err := s.context.Cookies()
	if err != nil {
		return nil, fmt.Errorf("获取Cookie失败: %w", err)
	}
	out := make([]model.BrowserCookie, 0, len(cookies))
	for _, c := range cookies {
		bc := model.BrowserCookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HttpOnly,
			Secure:   c.Secure,
		}
		if c.SameSite != nil {
			bc.SameSite = string(*c.SameSite)
		}
		out = append(out, bc)
	}
	return out, nil
}

func (s *Session) SetCookies(ctx context.Context, cookies []model.BrowserCookie) error {
	if len(cookies) == 0 {
		return nil
	}
	params := make([]playwright.OptionalCookie, 0, len(cookies))
	for _, c := range cookies {
		oc := playwright.OptionalCookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   playwright.String(c.Domain),
			Path:     playwright.String(c.Path),
			HttpOnly: playwright.Bool(c.HTTPOnly),
			Secure:   playwright.Bool(c.Secure),
		}
		if c.Expires > 0 {
			oc.Expires = playwright.Float(c.Expires)
		}
		if c.SameSite != "" {
			ss := playwright.SameSiteAttribute(c.SameSite)
			oc.SameSite = &ss
		}
		params = append(params, oc)
	}
	if err := s.context.AddCookies(params); err != nil {
		return fmt.Errorf("添加Cookie到浏览器失败: %w", err)
	}
	return nil
}

func (s *Session) Close() error {
	var firstErr error
	if s.context != nil {
		if err := s.context.Close(); err != nil {
			firstErr = err
		}
	}
	if s.pw != nil {
		if err := s.pw.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
