package roddriver

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	log "github.com/sirupsen/logrus"

	"auto_resume_go/driver"
	"auto_resume_go/model"
	"auto_resume_go/resolver"
)

// Session rod 启动的浏览器
type Session struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	stealth  bool
}

var _ driver.Session = (*Session)(nil)

func Launch(ctx context.Context, opts driver.LaunchOptions) (*Session, error) {
	opts = opts.WithDefaults()
	l := launcher.New().
		Headless(opts.Headless).
		Set("disable-blink-features", "AutomationControlled").
		Set("window-size", strconv.Itoa(opts.Width)+","+strconv.Itoa(opts.Height))
	if opts.UserDataDir != "" {
		l = l.UserDataDir(opts.UserDataDir)
	}
	if opts.ChromePath != "" {
		l = l.Bin(opts.ChromePath)
	}
	wsURL, err := l.Context(ctx).Launch()
	if err != nil {
		return nil, fmt.Errorf("启动浏览器失败: %w", err)
	}

	browser := rod.New().ControlURL(wsURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("连接浏览器失败: %w", err)
	}
	log.WithFields(log.Fields{"userDataDir": opts.UserDataDir, "stealth": opts.Stealth}).Info("✓ rod 浏览器已启动")
	return &Session{launcher: l, browser: browser, stealth: opts.Stealth}, nil
}

func (s *Session) NewPage(ctx context.Context, url string) (resolver.Page, error) {
	var (
		page *rod.Page
		err  error
	)
	if s.stealth {
		page, err = stealth.Page(s.browser)
	} else {
		page, err = s.browser.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("创建页面失败: %w", err)
	}
	p := New(page)
	if err := p.Navigate(ctx, url); err != nil {
		log.WithError(err).WithField("url", url).Warn("页面导航失败")
	}
	return p, nil
}

func (s *Session) Cookies(ctx context.Context) ([]model.BrowserCookie, error) {
	cookies, err := s.browser.GetCookies()
	if err != nil {
		return nil, fmt.Errorf("获取Cookie失败: %w", err)
	}
	out := make([]model.BrowserCookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, model.BrowserCookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  float64(c.Expires),
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
	params := make([]*proto.NetworkCookieParam, len(cookies))
	for i, c := range cookies {
		params[i] = &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: proto.NetworkCookieSameSite(c.SameSite),
			Expires:  proto.TimeSinceEpoch(c.Expires),
		}
	}
	return s.browser.SetCookies(params)
}

func (s *Session) Close() error {
	err := s.browser.Close()
	s.launcher.Kill()
	return err
}
