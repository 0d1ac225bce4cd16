// worker/browser_manager/manager.go
package browser_manager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"auto_resume_go/driver"
	"auto_resume_go/model"
	"auto_resume_go/resolver"
	"auto_resume_go/service"
)

const reloadConcurrency = 4

// Tab 一个配置地址对应的标签页
type Tab struct {
	URL  string
	Host string
	Page resolver.Page
}

// Manager 管理浏览器实例、配置地址的标签页以及Cookie的持久化
type Manager struct {
	session       driver.Session
	cookieService *service.CookieService

	urls  []string
	hosts map[string]bool

	tabs   map[string]*Tab
	order  []string
	tabsMu sync.Mutex

	log *log.Entry
}

// NewManager 创建管理器，urls 为需要保持打开的页面
func NewManager(session driver.Session, cookieService *service.CookieService, urls []string, logger *log.Entry) (*Manager, error) {
	if logger == nil {
		logger = log.WithField("component", "browser")
	}
	hosts := make(map[string]bool, len(urls))
	for _, u := range urls {
		h, err := driver.Host(u)
		if err != nil {
			return nil, err
		}
		hosts[h] = true
	}
	return &Manager{
		session:       session,
		cookieService: cookieService,
		urls:          append([]string(nil), urls...),
		hosts:         hosts,
		tabs:          make(map[string]*Tab),
		log:           logger,
	}, nil
}

// Init 恢复数据库中的Cookie，然后打开全部配置地址
func (m *Manager) Init(ctx context.Context) error {
	m.log.Info("========================================")
	m.log.Info("  初始化浏览器自动化引擎")
	m.log.Info("========================================")

	if err := m.RestoreCookies(ctx); err != nil {
		m.log.WithError(err).Warn("[Cookie] 恢复Cookie失败，继续启动")
	}
	opened, err := m.RefreshOrOpenPages(ctx)
	if err != nil {
		return err
	}
	m.log.WithField("opened", opened).Info("✓ 浏览器自动化引擎初始化完成")
	return nil
}

// RestoreCookies 把所有已保存站点的Cookie写回浏览器
func (m *Manager) RestoreCookies(ctx context.Context) error {
	if m.cookieService == nil {
		return nil
	}
	hosts, err := m.cookieService.Hosts()
	if err != nil {
		return fmt.Errorf("读取已保存站点失败: %w", err)
	}
	var errs []error
	for _, host := range hosts {
		cookies, err := m.cookieService.LoadCookies(host)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if len(cookies) == 0 {
			m.log.WithField("host", host).Info("[Cookie] 数据库未找到Cookie，跳过加载")
			continue
		}
		if err := m.session.SetCookies(ctx, cookies); err != nil {
			errs = append(errs, fmt.Errorf("添加%s Cookie到浏览器失败: %w", host, err))
			continue
		}
		m.log.WithFields(log.Fields{"host": host, "count": len(cookies)}).Info("[Cookie] 已从数据库加载Cookie")
	}
	return errors.Join(errs...)
}

// RefreshOrOpenPages 为还没有标签页的配置地址打开新标签，返回新打开的数量
func (m *Manager) RefreshOrOpenPages(ctx context.Context) (int, error) {
	opened := 0
	var errs []error
	for _, u := range m.urls {
		if err := ctx.Err(); err != nil {
			return opened, err
		}
		if m.tab(u) != nil {
			m.log.WithField("url", u).Info("[已打开]")
			continue
		}
		page, err := m.session.NewPage(ctx, u)
		if err != nil {
			m.log.WithError(err).WithField("url", u).Error("[打开失败]")
			errs = append(errs, err)
			continue
		}
		host, _ := driver.Host(u)
		m.tabsMu.Lock()
		m.tabs[u] = &Tab{URL: u, Host: host, Page: page}
		m.order = append(m.order, u)
		m.tabsMu.Unlock()
		opened++
		m.log.WithField("url", u).Info("[打开]")
	}
	return opened, errors.Join(errs...)
}

// ReloadAll 并发重新加载每个配置地址的标签页，返回成功的数量
func (m *Manager) ReloadAll(ctx context.Context) int {
	var reloaded atomic.Int32
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(reloadConcurrency)
	for _, u := range m.urls {
		t := m.tab(u)
		if t == nil {
			m.log.WithField("url", u).Warn("[未找到页面]")
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if err := t.Page.Reload(ctx); err != nil {
				m.log.WithError(err).WithField("url", t.URL).Error("[刷新失败]")
				return nil
			}
			reloaded.Add(1)
			m.log.WithField("url", t.URL).Info("[已刷新]")
			return nil
		})
	}
	_ = g.Wait()
	return int(reloaded.Load())
}

// Tabs 按打开顺序返回全部标签页
func (m *Manager) Tabs() []*Tab {
	m.tabsMu.Lock()
	defer m.tabsMu.Unlock()
	out := make([]*Tab, 0, len(m.order))
	for _, u := range m.order {
		out = append(out, m.tabs[u])
	}
	return out
}

// MatchingTabs 当前地址仍属于某个配置站点的标签页，其余的跳过
func (m *Manager) MatchingTabs(ctx context.Context) []*Tab {
	out := make([]*Tab, 0)
	for _, t := range m.Tabs() {
		current, err := t.Page.URL(ctx)
		if err != nil {
			m.log.WithError(err).WithField("url", t.URL).Warn("[跳过] 读取页面地址失败")
			continue
		}
		if !m.Matches(current) {
			m.log.WithField("url", current).Info("[跳过] 当前页面 URL 与配置不符")
			continue
		}
		out = append(out, t)
	}
	return out
}

// Matches 地址中包含任一配置站点的主机名
func (m *Manager) Matches(raw string) bool {
	for h := range m.hosts {
		if strings.Contains(raw, h) {
			return true
		}
	}
	return false
}

// PageFor 返回配置地址对应的标签页
func (m *Manager) PageFor(url string) (resolver.Page, bool) {
	t := m.tab(url)
	if t == nil {
		return nil, false
	}
	return t.Page, true
}

func (m *Manager) tab(url string) *Tab {
	m.tabsMu.Lock()
	defer m.tabsMu.Unlock()
	return m.tabs[url]
}

// Session 底层浏览器会话
func (m *Manager) Session() driver.Session {
	return m.session
}

// SaveCookies 按配置站点分组保存当前浏览器的Cookie
func (m *Manager) SaveCookies(ctx context.Context, remark string) error {
	if m.cookieService == nil {
		return nil
	}
	cookies, err := m.session.Cookies(ctx)
	if err != nil {
		return fmt.Errorf("获取Cookie失败: %w", err)
	}
	var errs []error
	for host, group := range GroupByHost(cookies, m.hostList()) {
		if err := m.cookieService.SaveCookies(host, group, remark); err != nil {
			m.log.WithError(err).WithField("host", host).Error("[Cookie] 保存Cookie失败")
			errs = append(errs, err)
			continue
		}
		m.log.WithFields(log.Fields{"host": host, "count": len(group)}).Info("[Cookie] 保存Cookie成功")
	}
	return errors.Join(errs...)
}

func (m *Manager) hostList() []string {
	out := make([]string, 0, len(m.hosts))
	for h := range m.hosts {
		out = append(out, h)
	}
	return out
}

// GroupByHost 把Cookie归到作用域覆盖它的主机下，不属于任何主机的丢弃
func GroupByHost(cookies []model.BrowserCookie, hosts []string) map[string][]model.BrowserCookie {
	out := make(map[string][]model.BrowserCookie)
	for _, c := range cookies {
		domain := strings.TrimPrefix(strings.ToLower(c.Domain), ".")
		if domain == "" {
			continue
		}
		for _, h := range hosts {
			host := strings.ToLower(h)
			if host == domain || strings.HasSuffix(host, "."+domain) {
				out[h] = append(out[h], c)
			}
		}
	}
	return out
}

// Close 保存Cookie后关闭浏览器
func (m *Manager) Close(ctx context.Context) error {
	m.log.Info("开始关闭浏览器管理器...")
	if err := m.SaveCookies(ctx, "close"); err != nil {
		m.log.WithError(err).Warn("[Cookie] 关闭前保存Cookie失败")
	}
	m.tabsMu.Lock()
	m.tabs = make(map[string]*Tab)
	m.order = nil
	m.tabsMu.Unlock()
	if err := m.session.Close(); err != nil {
		return fmt.Errorf("关闭浏览器失败: %w", err)
	}
	m.log.Info("浏览器管理器关闭完成")
	return nil
}
