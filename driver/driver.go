// Package driver 定义浏览器会话接口，以及各驱动共用的页面脚本。
//
// 具体实现见 pwdriver（playwright）、cdpdriver（chromedp）和 roddriver（rod）。
package driver

import (
	"context"
	"fmt"
	"net/url"

	"auto_resume_go/model"
	"auto_resume_go/resolver"
)

// LaunchOptions 启动持久化浏览器的参数
type LaunchOptions struct {
	ChromePath  string
	UserDataDir string
	Headless    bool
	// Stealth 注入反自动化检测脚本，目前只有 rod 支持
	Stealth bool
	Width   int
	Height  int
}

// WithDefaults 未设置的视口使用 1920x1080
func (o LaunchOptions) WithDefaults() LaunchOptions {
	if o.Width <= 0 {
		o.Width = 1920
	}
	if o.Height <= 0 {
		o.Height = 1080
	}
	return o
}

// Session 一个浏览器实例
type Session interface {
	// NewPage 打开新标签页并导航到 url
	NewPage(ctx context.Context, url string) (resolver.Page, error)
	Cookies(ctx context.Context) ([]model.BrowserCookie, error)
	SetCookies(ctx context.Context, cookies []model.BrowserCookie) error
	Close() error
}

// Host 返回地址中的主机名
func Host(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("解析地址失败: %w", err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("地址缺少主机名: %s", raw)
	}
	return u.Hostname(), nil
}

// 页面内执行的脚本，第一个参数为元素
const (
	// KeyScript 给元素分配唯一标识，带文档前缀，刷新后不会与旧文档的标识重复
	KeyScript = `(e) => {
  if (!e.__autoResumeKey) {
    window.__autoResumeDoc = window.__autoResumeDoc || Math.random().toString(36).slice(2, 10);
    window.__autoResumeSeq = (window.__autoResumeSeq || 0) + 1;
    e.__autoResumeKey = window.__autoResumeDoc + ':k' + window.__autoResumeSeq;
  }
  return e.__autoResumeKey;
}`
	TextScript    = `(e) => (e.innerText || e.textContent || '')`
	ValueScript   = `(e) => (e.value !== undefined && e.value !== null ? String(e.value) : (e.innerText || ''))`
	AttrScript    = `(e, name) => (e.hasAttribute(name) ? e.getAttribute(name) : null)`
	TagScript     = `(e) => e.tagName.toLowerCase()`
	CheckedScript = `(e) => !!e.checked`
	ParentScript  = `(e) => e.parentElement`
	BoxScript     = `(e) => {
  const r = e.getBoundingClientRect();
  const s = window.getComputedStyle(e);
  if (s.display === 'none' || s.visibility === 'hidden' || r.width === 0 || r.height === 0) return null;
  return [r.x, r.y, r.width, r.height];
}`
	ScrollScript = `(e) => e.scrollIntoView({block: 'center', inline: 'nearest'})`
	// SelectScript 按文字或值选择原生 select 的选项
	SelectScript = `(e, label) => {
  for (const o of e.options) {
    if (o.text.trim() === label || o.value === label) {
      e.value = o.value;
      e.dispatchEvent(new Event('input', {bubbles: true}));
      e.dispatchEvent(new Event('change', {bubbles: true}));
      return true;
    }
  }
  return false;
}`
	ViewportScript = `() => [window.innerWidth, window.innerHeight]`
)

// Modifier 按键是否为修饰键
func Modifier(key string) bool {
	switch key {
	case resolver.KeyControl, resolver.KeyMeta, "Shift", "Alt":
		return true
	}
	return false
}
