// Package roddriver 基于 go-rod 的页面驱动，可选注入 stealth 脚本。
package roddriver

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"

	"auto_resume_go/driver"
	"auto_resume_go/resolver"
)

type node struct {
	el  *rod.Element
	key string
}

func (n *node) Key() string {
	return n.key
}

// Page 一个 rod 标签页
type Page struct {
	page       *rod.Page
	dialogOnce sync.Once
}

var _ resolver.Page = (*Page)(nil)

func New(page *rod.Page) *Page {
	return &Page{page: page}
}

// Raw 返回底层的 rod 页面
func (p *Page) Raw() *rod.Page {
	return p.page
}

// bind 生成以元素为 this 的普通函数
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

func unwrap(n resolver.Node) (*rod.Element, error) {
	rn, ok := n.(*node)
	if !ok || rn == nil {
		return nil, fmt.Errorf("不是 rod 节点: %T", n)
	}
	return rn.el, nil
}

func (p *Page) eval(el *rod.Element, script string, args ...interface{}) (*proto.RuntimeRemoteObject, error) {
	decl, err := bind(script, args...)
	if err != nil {
		return nil, err
	}
	return el.Eval(decl)
}

func (p *Page) wrap(el *rod.Element) (*node, error) {
	res, err := p.eval(el, driver.KeyScript)
	if err != nil {
		return nil, fmt.Errorf("标记元素失败: %w", err)
	}
	return &node{el: el, key: res.Value.Str()}, nil
}

func (p *Page) QueryAll(ctx context.Context, scope resolver.Node, selector string) ([]resolver.Node, error) {
	var (
		els rod.Elements
		err error
	)
	if scope == nil {
		els, err = p.page.Context(ctx).Elements(selector)
	} else {
		el, uerr := unwrap(scope)
		if uerr != nil {
			return nil, uerr
		}
		els, err = el.Context(ctx).Elements(selector)
	}
	if err != nil {
		return nil, fmt.Errorf("查询 %q 失败: %w", selector, err)
	}
	out := make([]resolver.Node, 0, len(els))
	for _, el := range els {
		n, err := p.wrap(el)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (p *Page) evalString(n resolver.Node, script string, args ...interface{}) (string, error) {
	el, err := unwrap(n)
	if err != nil {
		return "", err
	}
	res, err := p.eval(el, script, args...)
	if err != nil {
		return "", err
	}
	if res.Value.Nil() {
		return "", nil
	}
	return res.Value.Str(), nil
}

func (p *Page) Text(ctx context.Context, n resolver.Node) (string, error) {
	return p.evalString(n, driver.TextScript)
}

func (p *Page) Value(ctx context.Context, n resolver.Node) (string, error) {
	return p.evalString(n, driver.ValueScript)
}

func (p *Page) BoundingBox(ctx context.Context, n resolver.Node) (*resolver.Box, error) {
	el, err := unwrap(n)
	if err != nil {
		return nil, err
	}
	res, err := p.eval(el, driver.BoxScript)
	if err != nil {
		return nil, err
	}
	if res.Value.Nil() {
		return nil, nil
	}
	arr := res.Value.Arr()
	if len(arr) != 4 {
		return nil, nil
	}
	return &resolver.Box{X: arr[0].Num(), Y: arr[1].Num(), Width: arr[2].Num(), Height: arr[3].Num()}, nil
}

func (p *Page) Parent(ctx context.Context, n resolver.Node) (resolver.Node, error) {
	el, err := unwrap(n)
	if err != nil {
		return nil, err
	}
	decl, _ := bind(driver.ParentScript)
	res, err := el.Evaluate(rod.Eval(decl).ByObject())
	if err != nil {
		return nil, err
	}
	if res.ObjectID == "" {
		return nil, nil
	}
	parent, err := p.page.ElementFromObject(res)
	if err != nil {
		return nil, err
	}
	return p.wrap(parent)
}

func (p *Page) Attribute(ctx context.Context, n resolver.Node, name string) (string, bool, error) {
	el, err := unwrap(n)
	if err != nil {
		return "", false, err
	}
	res, err := p.eval(el, driver.AttrScript, name)
	if err != nil {
		return "", false, err
	}
	if res.Value.Nil() {
		return "", false, nil
	}
	return res.Value.Str(), true, nil
}

func (p *Page) TagName(ctx context.Context, n resolver.Node) (string, error) {
	return p.evalString(n, driver.TagScript)
}

func (p *Page) Checked(ctx context.Context, n resolver.Node) (bool, error) {
	el, err := unwrap(n)
	if err != nil {
		return false, err
	}
	res, err := p.eval(el, driver.CheckedScript)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

func (p *Page) ScrollIntoView(ctx context.Context, n resolver.Node) error {
	el, err := unwrap(n)
	if err != nil {
		return err
	}
	return el.Context(ctx).ScrollIntoView()
}

func (p *Page) Click(ctx context.Context, n resolver.Node) error {
	el, err := unwrap(n)
	if err != nil {
		return err
	}
	clickCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return el.Context(clickCtx).Click(proto.InputMouseButtonLeft, 1)
}

func (p *Page) SelectOption(ctx context.Context, n resolver.Node, label string) error {
	el, err := unwrap(n)
	if err != nil {
		return err
	}
	res, err := p.eval(el, driver.SelectScript, label)
	if err != nil {
		return err
	}
	if !res.Value.Bool() {
		return fmt.Errorf("未找到选项 %q", label)
	}
	return nil
}

func (p *Page) MouseMove(ctx context.Context, x, y float64) error {
	return p.page.Mouse.MoveTo(proto.Point{X: x, Y: y})
}

func (p *Page) MouseClick(ctx context.Context, x, y float64) error {
	if err := p.page.Mouse.MoveTo(proto.Point{X: x, Y: y}); err != nil {
		return err
	}
	return p.page.Mouse.Click(proto.InputMouseButtonLeft, 1)
}

var keyTable = map[string]input.Key{
	resolver.KeyEnter:     input.Enter,
	resolver.KeyTab:       input.Tab,
	resolver.KeyBackspace: input.Backspace,
	resolver.KeyEscape:    input.Escape,
	resolver.KeyControl:   input.ControlLeft,
	resolver.KeyMeta:      input.MetaLeft,
	resolver.KeyA:         input.KeyA,
}

func toKey(name string) (input.Key, error) {
	if k, ok := keyTable[name]; ok {
		return k, nil
	}
	if r := []rune(name); len(r) == 1 {
		return input.Key(r[0]), nil
	}
	return 0, fmt.Errorf("不支持的按键: %s", name)
}

func (p *Page) KeyDown(ctx context.Context, key string) error {
	k, err := toKey(key)
	if err != nil {
		return err
	}
	return p.page.Keyboard.Press(k)
}

func (p *Page) KeyUp(ctx context.Context, key string) error {
	k, err := toKey(key)
	if err != nil {
		return err
	}
	return p.page.Keyboard.Release(k)
}

func (p *Page) KeyPress(ctx context.Context, key string) error {
	k, err := toKey(key)
	if err != nil {
		return err
	}
	return p.page.Keyboard.Type(k)
}

func (p *Page) Type(ctx context.Context, text string) error {
	return p.page.InsertText(text)
}

func (p *Page) Viewport(ctx context.Context) (float64, float64, error) {
	res, err := p.page.Eval(driver.ViewportScript)
	if err != nil {
		return 0, 0, err
	}
	arr := res.Value.Arr()
	if len(arr) != 2 {
		return 0, 0, fmt.Errorf("视口尺寸格式异常: %v", res.Value.Raw())
	}
	return arr[0].Num(), arr[1].Num(), nil
}

func (p *Page) Sleep(ctx context.Context, d time.Duration) error {
	return resolver.SleepContext(ctx, d)
}

func (p *Page) URL(ctx context.Context) (string, error) {
	info, err := p.page.Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	pg := p.page.Context(navCtx)
	if err := pg.Navigate(url); err != nil {
		return err
	}
	return pg.WaitDOMStable(time.Second, 0)
}

func (p *Page) Reload(ctx context.Context) error {
	return p.page.Reload()
}

func (p *Page) Back(ctx context.Context) error {
	return p.page.NavigateBack()
}

func (p *Page) BringToFront(ctx context.Context) error {
	_, err := p.page.Activate()
	return err
}

func (p *Page) AcceptDialogs(ctx context.Context) error {
	p.dialogOnce.Do(func() {
		wait := p.page.EachEvent(func(e *proto.PageJavascriptDialogOpening) {
			_ = proto.PageHandleJavaScriptDialog{Accept: true}.Call(p.page)
		})
		go wait()
	})
	return nil
}
