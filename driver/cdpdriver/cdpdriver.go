// Package cdpdriver 基于 chromedp/cdproto 的页面驱动。
//
// 节点以 Runtime 远程对象表示，所有对象放在同一个对象组里，导航时统一释放。
package cdpdriver

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"auto_resume_go/driver"
	"auto_resume_go/resolver"
)

const objectGroup = "auto-resume"

type node struct {
	id  runtime.RemoteObjectID
	key string
}

func (n *node) Key() string {
	return n.key
}

// Page 一个 chromedp 标签页
type Page struct {
	ctx context.Context

	mu         sync.Mutex
	modifiers  input.Modifier
	dialogOnce sync.Once
}

var _ resolver.Page = (*Page)(nil)

// New tabCtx 为 chromedp.NewContext 创建的标签页上下文
func New(tabCtx context.Context) *Page {
	return &Page{ctx: tabCtx}
}

// Context 标签页的 chromedp 上下文
func (p *Page) Context() context.Context {
	return p.ctx
}

func (p *Page) run(actions ...chromedp.Action) error {
	return chromedp.Run(p.ctx, actions...)
}

func unwrap(n resolver.Node) (*node, error) {
	cn, ok := n.(*node)
	if !ok || cn == nil {
		return nil, fmt.Errorf("不是 chromedp 节点: %T", n)
	}
	return cn, nil
}

// bind 把脚本包装为以 this 为第一个参数的函数声明
func bind(script string, args ...interface{}) (string, error) {
	decl := "function() { return (" + script + ")(this"
	for _, a := range args {
		raw, err := json.Marshal(a)
		if err != nil {
			return "", err
		}
		decl += ", " + string(raw)
	}
	return decl + "); }", nil
}

// callValue 在元素上执行脚本并把返回值解码到 out
func (p *Page) callValue(id runtime.RemoteObjectID, out interface{}, script string, args ...interface{}) error {
	decl, err := bind(script, args...)
	if err != nil {
		return err
	}
	return p.run(chromedp.ActionFunc(func(ctx context.Context) error {
		res, exc, err := runtime.CallFunctionOn(decl).
			WithObjectID(id).
			WithReturnByValue(true).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return fmt.Errorf("脚本异常: %s", exc.Text)
		}
		if out == nil || res == nil || len(res.Value) == 0 {
			return nil
		}
		return json.Unmarshal([]byte(res.Value), out)
	}))
}

// callObject 在元素上执行脚本，返回结果对象；结果为 null 时返回空 ID
func (p *Page) callObject(id runtime.RemoteObjectID, script string, args ...interface{}) (runtime.RemoteObjectID, error) {
	decl, err := bind(script, args...)
	if err != nil {
		return "", err
	}
	var obj runtime.RemoteObjectID
	err = p.run(chromedp.ActionFunc(func(ctx context.Context) error {
		res, exc, err := runtime.CallFunctionOn(decl).
			WithObjectID(id).
			WithObjectGroup(objectGroup).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return fmt.Errorf("脚本异常: %s", exc.Text)
		}
		if res != nil {
			obj = res.ObjectID
		}
		return nil
	}))
	return obj, err
}

func (p *Page) wrap(id runtime.RemoteObjectID) (*node, error) {
	var key string
	if err := p.callValue(id, &key, driver.KeyScript); err != nil {
		return nil, fmt.Errorf("标记元素失败: %w", err)
	}
	return &node{id: id, key: key}, nil
}

func (p *Page) QueryAll(ctx context.Context, scope resolver.Node, selector string) ([]resolver.Node, error) {
	var list runtime.RemoteObjectID
	if scope == nil {
		expr := fmt.Sprintf("Array.from(document.querySelectorAll(%q))", selector)
		err := p.run(chromedp.ActionFunc(func(ctx context.Context) error {
			res, exc, err := runtime.Evaluate(expr).WithObjectGroup(objectGroup).Do(ctx)
			if err != nil {
				return err
			}
			if exc != nil {
				return fmt.Errorf("脚本异常: %s", exc.Text)
			}
			list = res.ObjectID
			return nil
		}))
		if err != nil {
			return nil, fmt.Errorf("查询 %q 失败: %w", selector, err)
		}
	} else {
		sn, err := unwrap(scope)
		if err != nil {
			return nil, err
		}
		if list, err = p.callObject(sn.id, `(e, sel) => Array.from(e.querySelectorAll(sel))`, selector); err != nil {
			return nil, fmt.Errorf("查询 %q 失败: %w", selector, err)
		}
	}

	var length int
	if err := p.callValue(list, &length, `(a) => a.length`); err != nil {
		return nil, err
	}
	out := make([]resolver.Node, 0, length)
	for i := 0; i < length; i++ {
		id, err := p.callObject(list, `(a, i) => a[i]`, i)
		if err != nil || id == "" {
			continue
		}
		n, err := p.wrap(id)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (p *Page) evalString(n resolver.Node, script string, args ...interface{}) (string, error) {
	cn, err := unwrap(n)
	if err != nil {
		return "", err
	}
	var s *string
	if err := p.callValue(cn.id, &s, script, args...); err != nil {
		return "", err
	}
	if s == nil {
		return "", nil
	}
	return *s, nil
}

func (p *Page) Text(ctx context.Context, n resolver.Node) (string, error) {
	return p.evalString(n, driver.TextScript)
}

func (p *Page) Value(ctx context.Context, n resolver.Node) (string, error) {
	return p.evalString(n, driver.ValueScript)
}

func (p *Page) BoundingBox(ctx context.Context, n resolver.Node) (*resolver.Box, error) {
	cn, err := unwrap(n)
	if err != nil {
		return nil, err
	}
	var rect []float64
	if err := p.callValue(cn.id, &rect, driver.BoxScript); err != nil {
		return nil, err
	}
	if len(rect) != 4 {
		return nil, nil
	}
	return &resolver.Box{X: rect[0], Y: rect[1], Width: rect[2], Height: rect[3]}, nil
}

func (p *Page) Parent(ctx context.Context, n resolver.Node) (resolver.Node, error) {
	cn, err := unwrap(n)
	if err != nil {
		return nil, err
	}
	id, err := p.callObject(cn.id, driver.ParentScript)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, nil
	}
	return p.wrap(id)
}

func (p *Page) Attribute(ctx context.Context, n resolver.Node, name string) (string, bool, error) {
	cn, err := unwrap(n)
	if err != nil {
		return "", false, err
	}
	var v *string
	if err := p.callValue(cn.id, &v, driver.AttrScript, name); err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (p *Page) TagName(ctx context.Context, n resolver.Node) (string, error) {
	return p.evalString(n, driver.TagScript)
}

func (p *Page) Checked(ctx context.Context, n resolver.Node) (bool, error) {
	cn, err := unwrap(n)
	if err != nil {
		return false, err
	}
	var b bool
	err = p.callValue(cn.id, &b, driver.CheckedScript)
	return b, err
}

func (p *Page) ScrollIntoView(ctx context.Context, n resolver.Node) error {
	cn, err := unwrap(n)
	if err != nil {
		return err
	}
	return p.callValue(cn.id, nil, driver.ScrollScript)
}

// Click 滚动到元素后在中心点按下并释放鼠标
func (p *Page) Click(ctx context.Context, n resolver.Node) error {
	if err := p.ScrollIntoView(ctx, n); err != nil {
		return err
	}
	box, err := p.BoundingBox(ctx, n)
	if err != nil {
		return err
	}
	if box == nil {
		return fmt.Errorf("元素不可见，无法点击")
	}
	c := box.Center()
	return p.MouseClick(ctx, c.X, c.Y)
}

func (p *Page) SelectOption(ctx context.Context, n resolver.Node, label string) error {
	cn, err := unwrap(n)
	if err != nil {
		return err
	}
	var ok bool
	if err := p.callValue(cn.id, &ok, driver.SelectScript, label); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("未找到选项 %q", label)
	}
	return nil
}

func (p *Page) MouseMove(ctx context.Context, x, y float64) error {
	return p.run(input.DispatchMouseEvent(input.MouseMoved, x, y))
}

func (p *Page) MouseClick(ctx context.Context, x, y float64) error {
	return p.run(chromedp.MouseClickXY(x, y))
}

func (p *Page) KeyDown(ctx context.Context, key string) error {
	def := lookupKey(key)
	p.mu.Lock()
	p.modifiers |= def.modifier
	mods := p.modifiers
	p.mu.Unlock()
	return p.run(def.event(input.KeyDown, mods))
}

func (p *Page) KeyUp(ctx context.Context, key string) error {
	def := lookupKey(key)
	p.mu.Lock()
	p.modifiers &^= def.modifier
	mods := p.modifiers
	p.mu.Unlock()
	return p.run(def.event(input.KeyUp, mods))
}

func (p *Page) KeyPress(ctx context.Context, key string) error {
	def := lookupKey(key)
	p.mu.Lock()
	mods := p.modifiers
	p.mu.Unlock()
	return p.run(def.event(input.KeyDown, mods), def.event(input.KeyUp, mods))
}

func (p *Page) Type(ctx context.Context, text string) error {
	return p.run(input.InsertText(text))
}

func (p *Page) Viewport(ctx context.Context) (float64, float64, error) {
	var dims []float64
	if err := p.run(chromedp.Evaluate("("+driver.ViewportScript+")()", &dims)); err != nil {
		return 0, 0, err
	}
	if len(dims) != 2 {
		return 0, 0, fmt.Errorf("视口尺寸格式异常: %v", dims)
	}
	return dims[0], dims[1], nil
}

func (p *Page) Sleep(ctx context.Context, d time.Duration) error {
	return resolver.SleepContext(ctx, d)
}

func (p *Page) URL(ctx context.Context) (string, error) {
	var u string
	err := p.run(chromedp.Location(&u))
	return u, err
}

func (p *Page) releaseObjects() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		_ = runtime.ReleaseObjectGroup(objectGroup).Do(ctx)
		return nil
	})
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	return p.run(p.releaseObjects(), chromedp.Navigate(url))
}

func (p *Page) Reload(ctx context.Context) error {
	return p.run(p.releaseObjects(), chromedp.Reload())
}

func (p *Page) Back(ctx context.Context) error {
	return p.run(p.releaseObjects(), chromedp.NavigateBack())
}

func (p *Page) BringToFront(ctx context.Context) error {
	return p.run(page.BringToFront())
}

func (p *Page) AcceptDialogs(ctx context.Context) error {
	p.dialogOnce.Do(func() {
		chromedp.ListenTarget(p.ctx, func(ev interface{}) {
			if _, ok := ev.(*page.EventJavascriptDialogOpening); ok {
				go func() {
					_ = chromedp.Run(p.ctx, page.HandleJavaScriptDialog(true))
				}()
			}
		})
	})
	return nil
}
