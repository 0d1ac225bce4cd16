// Package pwdriver 基于 playwright-go 的页面驱动。
package pwdriver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"auto_resume_go/driver"
	"auto_resume_go/resolver"
)

// 单次元素操作的超时，避免使用 playwright 默认的 30 秒
const actionTimeout = 5000

type node struct {
	h   playwright.ElementHandle
	key string
}

func (n *node) Key() string {
	return n.key
}

// Page 把 playwright.Page 适配为 resolver.Page
type Page struct {
	page       playwright.Page
	dialogOnce sync.Once
	handles    handles
}

var _ resolver.Page = (*Page)(nil)

func New(page playwright.Page) *Page {
	return &Page{page: page}
}

// Raw 返回底层的 playwright 页面
func (p *Page) Raw() playwright.Page {
	return p.page
}

// Unwrap 取出 playwright 页面，其他驱动返回 false
func Unwrap(page resolver.Page) (playwright.Page, bool) {
	if p, ok := page.(*Page); ok {
		return p.page, true
	}
	return nil, false
}

func (p *Page) wrap(h playwright.ElementHandle) (*node, error) {
	key, err := h.Evaluate(driver.KeyScript)
	if err != nil {
		_ = h.Dispose()
		return nil, fmt.Errorf("标记元素失败: %w", err)
	}
	return p.handles.adopt(p.page.URL(), fmt.Sprint(key), h), nil
}

func unwrap(n resolver.Node) (playwright.ElementHandle, error) {
	pn, ok := n.(*node)
	if !ok || pn == nil {
		return nil, fmt.Errorf("不是 playwright 节点: %T", n)
	}
	return pn.h, nil
}

func (p *Page) QueryAll(ctx context.Context, scope resolver.Node, selector string) ([]resolver.Node, error) {
	var (
		found []playwright.ElementHandle
		err   error
	)
	if scope == nil {
		found, err = p.page.QuerySelectorAll(selector)
	} else {
		h, uerr := unwrap(scope)
		if uerr != nil {
			return nil, uerr
		}
		found, err = h.QuerySelectorAll(selector)
	}
	if err != nil {
		return nil, fmt.Errorf("查询 %q 失败: %w", selector, err)
	}
	out := make([]resolver.Node, 0, len(found))
	for _, h := range found {
		n, err := p.wrap(h)
		if err != nil {
			// 元素在查询后被移除
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (p *Page) evalString(n resolver.Node, script string, arg ...interface{}) (string, error) {
	h, err := unwrap(n)
	if err != nil {
		return "", err
	}
	v, err := h.Evaluate(script, arg...)
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", nil
	}
	return fmt.Sprint(v), nil
}

func (p *Page) Text(ctx context.Context, n resolver.Node) (string, error) {
	return p.evalString(n, driver.TextScript)
}

func (p *Page) Value(ctx context.Context, n resolver.Node) (string, error) {
	return p.evalString(n, driver.ValueScript)
}

func (p *Page) BoundingBox(ctx context.Context, n resolver.Node) (*resolver.Box, error) {
	h, err := unwrap(n)
	if err != nil {
		return nil, err
	}
	rect, err := h.BoundingBox()
	if err != nil {
		return nil, err
	}
	if rect == nil {
		return nil, nil
	}
	return &resolver.Box{X: rect.X, Y: rect.Y, Width: rect.Width, Height: rect.Height}, nil
}

func (p *Page) Parent(ctx context.Context, n resolver.Node) (resolver.Node, error) {
	h, err := unwrap(n)
	if err != nil {
		return nil, err
	}
	js, err := h.EvaluateHandle(driver.ParentScript)
	if err != nil {
		return nil, err
	}
	parent := js.AsElement()
	if parent == nil {
		_ = js.Dispose()
		return nil, nil
	}
	return p.wrap(parent)
}

func (p *Page) Attribute(ctx context.Context, n resolver.Node, name string) (string, bool, error) {
	h, err := unwrap(n)
	if err != nil {
		return "", false, err
	}
	v, err := h.Evaluate(driver.AttrScript, name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return fmt.Sprint(v), true, nil
}

func (p *Page) TagName(ctx context.Context, n resolver.Node) (string, error) {
	return p.evalString(n, driver.TagScript)
}

func (p *Page) Checked(ctx context.Context, n resolver.Node) (bool, error) {
	h, err := unwrap(n)
	if err != nil {
		return false, err
	}
	v, err := h.Evaluate(driver.CheckedScript)
	if err != nil {
		return false, err
	}
	b, _ := v.(bool)
	return b, nil
}

func (p *Page) ScrollIntoView(ctx context.Context, n resolver.Node) error {
	h, err := unwrap(n)
	if err != nil {
		return err
	}
	return h.ScrollIntoViewIfNeeded(playwright.ElementHandleScrollIntoViewIfNeededOptions{
		Timeout: playwright.Float(actionTimeout),
	})
}

func (p *Page) Click(ctx context.Context, n resolver.Node) error {
	h, err := unwrap(n)
	if err != nil {
		return err
	}
	return h.Click(playwright.ElementHandleClickOptions{Timeout: playwright.Float(actionTimeout)})
}

func (p *Page) SelectOption(ctx context.Context, n resolver.Node, label string) error {
	h, err := unwrap(n)
	if err != nil {
		return err
	}
	labels := []string{label}
	if _, err := h.SelectOption(playwright.SelectOptionValues{Labels: &labels},
		playwright.ElementHandleSelectOptionOptions{Timeout: playwright.Float(actionTimeout)}); err == nil {
		return nil
	}
	values := []string{label}
	_, err = h.SelectOption(playwright.SelectOptionValues{Values: &values},
		playwright.ElementHandleSelectOptionOptions{Timeout: playwright.Float(actionTimeout)})
	return err
}

func (p *Page) MouseMove(ctx context.Context, x, y float64) error {
	return p.page.Mouse().Move(x, y)
}

func (p *Page) MouseClick(ctx context.Context, x, y float64) error {
	return p.page.Mouse().Click(x, y)
}

func (p *Page) KeyDown(ctx context.Context, key string) error {
	return p.page.Keyboard().Down(key)
}

func (p *Page) KeyUp(ctx context.Context, key string) error {
	return p.page.Keyboard().Up(key)
}

func (p *Page) KeyPress(ctx context.Context, key string) error {
	return p.page.Keyboard().Press(key)
}

func (p *Page) Type(ctx context.Context, text string) error {
	return p.page.Keyboard().Type(text)
}

func (p *Page) Viewport(ctx context.Context) (float64, float64, error) {
	if size := p.page.ViewportSize(); size != nil {
		return float64(size.Width), float64(size.Height), nil
	}
	v, err := p.page.Evaluate(driver.ViewportScript)
	if err != nil {
		return 0, 0, err
	}
	dims, ok := v.([]interface{})
	if !ok || len(dims) != 2 {
		return 0, 0, fmt.Errorf("视口尺寸格式异常: %v", v)
	}
	return toFloat(dims[0]), toFloat(dims[1]), nil
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

func (p *Page) Sleep(ctx context.Context, d time.Duration) error {
	return resolver.SleepContext(ctx, d)
}

func (p *Page) URL(ctx context.Context) (string, error) {
	return p.page.URL(), nil
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	p.handles.release()
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(60000),
	})
	return err
}

func (p *Page) Reload(ctx context.Context) error {
	p.handles.release()
	_, err := p.page.Reload(playwright.PageReloadOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(60000),
	})
	return err
}

func (p *Page) Back(ctx context.Context) error {
	p.handles.release()
	_, err := p.page.GoBack()
	return err
}

func (p *Page) BringToFront(ctx context.Context) error {
	return p.page.BringToFront()
}

func (p *Page) AcceptDialogs(ctx context.Context) error {
	p.dialogOnce.Do(func() {
		p.page.OnDialog(func(d playwright.Dialog) {
			_ = d.Accept()
		})
	})
	return nil
}
