// Package domtest 提供基于静态 HTML 的内存驱动，用于在没有浏览器的情况下测试解析与填写逻辑。
//
// 几何信息来自 data-box="x,y,w,h" 属性，没有该属性的元素视为未渲染。
// 点击带 data-reveal="name" 的元素会显示所有 data-hidden-until="name" 的子树，
// data-close="name" 则重新隐藏；data-navigate="url" 会修改当前地址；
// data-click-fail 让结构化点击返回错误，只能通过坐标点击激活。
package domtest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"auto_resume_go/resolver"
)

// Node domtest 节点句柄
type Node struct {
	n   *html.Node
	key string
}

func (n *Node) Key() string {
	return n.key
}

// HTML 返回底层节点，测试中用于断言
func (n *Node) HTML() *html.Node {
	return n.n
}

// Page 内存中的页面，实现 resolver.Page
type Page struct {
	doc       *html.Node
	nodes     map[*html.Node]*Node
	selectors map[string]cascadia.Selector

	values    map[*html.Node]string
	checked   map[*html.Node]bool
	revealed  map[string]bool
	focused   *html.Node
	selectAll bool
	held      map[string]bool

	width  float64
	height float64

	url     string
	history []string

	// Events 按发生顺序记录的输入事件
	Events []string
	// Sleeps 记录所有等待时长，不会真正等待
	Sleeps []time.Duration
	// Reloads 调用 Reload 的次数
	Reloads int
	// DialogsAccepted AcceptDialogs 是否被调用
	DialogsAccepted bool
}

var _ resolver.Page = (*Page)(nil)

// Parse 解析 HTML 文本为页面，视口默认 1920x1080
func Parse(src string) (*Page, error) {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("解析HTML失败: %w", err)
	}
	p := &Page{
		doc:       doc,
		nodes:     make(map[*html.Node]*Node),
		selectors: make(map[string]cascadia.Selector),
		values:    make(map[*html.Node]string),
		checked:   make(map[*html.Node]bool),
		revealed:  make(map[string]bool),
		held:      make(map[string]bool),
		width:     1920,
		height:    1080,
		url:       "about:blank",
	}
	p.initState(doc)
	return p, nil
}

// MustParse 与 Parse 相同，出错时 panic
func MustParse(src string) *Page {
	p, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Page) initState(n *html.Node) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "input":
			p.values[n] = attr(n, "value")
			if _, ok := attrOK(n, "checked"); ok {
				p.checked[n] = true
			}
		case "textarea":
			p.values[n] = rawText(n)
		case "select":
			p.values[n] = firstOptionValue(n)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.initState(c)
	}
}

// SetViewport 修改视口尺寸
func (p *Page) SetViewport(w, h float64) {
	p.width, p.height = w, h
}

// SetURL 修改当前地址，不记入历史
func (p *Page) SetURL(url string) {
	p.url = url
}

func (p *Page) wrap(n *html.Node) *Node {
	if w, ok := p.nodes[n]; ok {
		return w
	}
	w := &Node{n: n, key: "n" + strconv.Itoa(len(p.nodes)+1)}
	p.nodes[n] = w
	return w
}

func (p *Page) unwrap(n resolver.Node) (*html.Node, error) {
	w, ok := n.(*Node)
	if !ok || w == nil {
		return nil, errors.New("不是 domtest 节点")
	}
	return w.n, nil
}

func (p *Page) compile(selector string) (cascadia.Selector, error) {
	if sel, ok := p.selectors[selector]; ok {
		return sel, nil
	}
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("选择器 %q 无效: %w", selector, err)
	}
	p.selectors[selector] = sel
	return sel, nil
}

// Find 返回第一个匹配选择器的节点，测试断言用
func (p *Page) Find(selector string) *Node {
	sel, err := p.compile(selector)
	if err != nil {
		panic(err)
	}
	n := sel.MatchFirst(p.doc)
	if n == nil {
		return nil
	}
	return p.wrap(n)
}

// ValueOf 第一个匹配节点的当前值
func (p *Page) ValueOf(selector string) string {
	n := p.Find(selector)
	if n == nil {
		return ""
	}
	return p.values[n.n]
}

// IsChecked 第一个匹配节点是否被勾选
func (p *Page) IsChecked(selector string) bool {
	n := p.Find(selector)
	return n != nil && p.checked[n.n]
}

// Focused 当前获得焦点的节点
func (p *Page) Focused() *Node {
	if p.focused == nil {
		return nil
	}
	return p.wrap(p.focused)
}

// Revealed 某个隐藏区域当前是否显示
func (p *Page) Revealed(name string) bool {
	return p.revealed[name]
}

func (p *Page) QueryAll(ctx context.Context, scope resolver.Node, selector string) ([]resolver.Node, error) {
	sel, err := p.compile(selector)
	if err != nil {
		return nil, err
	}
	root := p.doc
	if scope != nil {
		if root, err = p.unwrap(scope); err != nil {
			return nil, err
		}
	}
	out := make([]resolver.Node, 0)
	for _, m := range sel.MatchAll(root) {
		if m == root {
			continue
		}
		out = append(out, p.wrap(m))
	}
	return out, nil
}

func (p *Page) Text(ctx context.Context, n resolver.Node) (string, error) {
	hn, err := p.unwrap(n)
	if err != nil {
		return "", err
	}
	return strings.Join(strings.Fields(rawText(hn)), " "), nil
}

func (p *Page) Value(ctx context.Context, n resolver.Node) (string, error) {
	hn, err := p.unwrap(n)
	if err != nil {
		return "", err
	}
	return p.values[hn], nil
}

func (p *Page) BoundingBox(ctx context.Context, n resolver.Node) (*resolver.Box, error) {
	hn, err := p.unwrap(n)
	if err != nil {
		return nil, err
	}
	return p.box(hn), nil
}

func (p *Page) box(n *html.Node) *resolver.Box {
	if n.Type != html.ElementNode {
		return nil
	}
	for a := n; a != nil; a = a.Parent {
		if name, ok := attrOK(a, "data-hidden-until"); ok && !p.revealed[name] {
			return nil
		}
	}
	raw, ok := attrOK(n, "data-box")
	if !ok {
		return nil
	}
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return nil
	}
	var v [4]float64
	for i, s := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil
		}
		v[i] = f
	}
	return &resolver.Box{X: v[0], Y: v[1], Width: v[2], Height: v[3]}
}

func (p *Page) Parent(ctx context.Context, n resolver.Node) (resolver.Node, error) {
	hn, err := p.unwrap(n)
	if err != nil {
		return nil, err
	}
	if hn.Parent == nil || hn.Parent.Type != html.ElementNode {
		return nil, nil
	}
	return p.wrap(hn.Parent), nil
}

func (p *Page) Attribute(ctx context.Context, n resolver.Node, name string) (string, bool, error) {
	hn, err := p.unwrap(n)
	if err != nil {
		return "", false, err
	}
	v, ok := attrOK(hn, name)
	return v, ok, nil
}

func (p *Page) TagName(ctx context.Context, n resolver.Node) (string, error) {
	hn, err := p.unwrap(n)
	if err != nil {
		return "", err
	}
	return hn.Data, nil
}

func (p *Page) Checked(ctx context.Context, n resolver.Node) (bool, error) {
	hn, err := p.unwrap(n)
	if err != nil {
		return false, err
	}
	return p.checked[hn], nil
}

func (p *Page) ScrollIntoView(ctx context.Context, n resolver.Node) error {
	hn, err := p.unwrap(n)
	if err != nil {
		return err
	}
	p.record("scroll", p.wrap(hn).key)
	return nil
}

func (p *Page) Click(ctx context.Context, n resolver.Node) error {
	hn, err := p.unwrap(n)
	if err != nil {
		return err
	}
	if _, fail := attrOK(hn, "data-click-fail"); fail {
		return errors.New("element is not clickable")
	}
	if p.box(hn) == nil {
		return errors.New("element is not visible")
	}
	p.record("click", p.wrap(hn).key)
	p.activate(hn)
	return nil
}

func (p *Page) SelectOption(ctx context.Context, n resolver.Node, label string) error {
	hn, err := p.unwrap(n)
	if err != nil {
		return err
	}
	if hn.Data != "select" {
		return errors.New("element is not a <select>")
	}
	for _, opt := range descendants(hn, "option") {
		text := strings.TrimSpace(rawText(opt))
		if text == label || attr(opt, "value") == label {
			v, ok := attrOK(opt, "value")
			if !ok {
				v = text
			}
			p.values[hn] = v
			p.record("select", label)
			return nil
		}
	}
	return fmt.Errorf("option %q not found", label)
}

func (p *Page) MouseMove(ctx context.Context, x, y float64) error {
	p.record("move", fmt.Sprintf("%.0f,%.0f", x, y))
	return nil
}

func (p *Page) MouseClick(ctx context.Context, x, y float64) error {
	target := p.hit(p.doc, x, y)
	p.record("mouse", fmt.Sprintf("%.0f,%.0f", x, y))
	if target != nil {
		p.activate(target)
	}
	return nil
}

// hit 返回包含该点的最深层可见元素
func (p *Page) hit(n *html.Node, x, y float64) *html.Node {
	var found *html.Node
	if b := p.box(n); b != nil && x >= b.X && x <= b.Right() && y >= b.Y && y <= b.Bottom() {
		found = n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if deeper := p.hit(c, x, y); deeper != nil {
			found = deeper
		}
	}
	return found
}

func (p *Page) activate(n *html.Node) {
	switch {
	case isEditable(n):
		p.focus(n)
	case n.Data == "input" && (attr(n, "type") == "checkbox" || attr(n, "type") == "radio"):
		p.checked[n] = !p.checked[n]
	case n.Data == "label":
		if id := attr(n, "for"); id != "" {
			if target := p.byID(id); target != nil {
				p.activate(target)
			}
		}
	}
	for a := n; a != nil; a = a.Parent {
		if a.Type != html.ElementNode {
			continue
		}
		if name, ok := attrOK(a, "data-reveal"); ok {
			p.revealed[name] = true
		}
		if name, ok := attrOK(a, "data-close"); ok {
			p.revealed[name] = false
		}
		if url, ok := attrOK(a, "data-navigate"); ok {
			p.history = append(p.history, p.url)
			p.url = url
		}
	}
}

func (p *Page) focus(n *html.Node) {
	if p.focused != n {
		p.selectAll = false
	}
	p.focused = n
	p.record("focus", p.wrap(n).key)
}

func (p *Page) KeyDown(ctx context.Context, key string) error {
	p.held[key] = true
	p.record("down", key)
	return nil
}

func (p *Page) KeyUp(ctx context.Context, key string) error {
	delete(p.held, key)
	p.record("up", key)
	return nil
}

func (p *Page) KeyPress(ctx context.Context, key string) error {
	p.record("press", key)
	switch key {
	case resolver.KeyA:
		if p.held[resolver.KeyControl] || p.held[resolver.KeyMeta] {
			p.selectAll = true
			return nil
		}
		return p.Type(ctx, "a")
	case resolver.KeyBackspace:
		if p.focused != nil && isEditable(p.focused) {
			v := p.values[p.focused]
			if p.selectAll {
				v = ""
			} else if v != "" {
				_, size := utf8.DecodeLastRuneInString(v)
				v = v[:len(v)-size]
			}
			p.values[p.focused] = v
		}
		p.selectAll = false
	case resolver.KeyTab:
		p.selectAll = false
		p.focusNext()
	}
	return nil
}

func (p *Page) focusNext() {
	var editable []*html.Node
	walk(p.doc, func(n *html.Node) {
		if isEditable(n) && p.box(n) != nil {
			editable = append(editable, n)
		}
	})
	for i, n := range editable {
		if n == p.focused {
			if i+1 < len(editable) {
				p.focus(editable[i+1])
			} else {
				p.focused = nil
			}
			return
		}
	}
}

func (p *Page) Type(ctx context.Context, text string) error {
	p.record("type", text)
	if p.focused == nil || !isEditable(p.focused) {
		return nil
	}
	if p.selectAll {
		p.values[p.focused] = text
		p.selectAll = false
		return nil
	}
	p.values[p.focused] += text
	return nil
}

func (p *Page) Viewport(ctx context.Context) (float64, float64, error) {
	return p.width, p.height, nil
}

func (p *Page) Sleep(ctx context.Context, d time.Duration) error {
	p.Sleeps = append(p.Sleeps, d)
	return ctx.Err()
}

func (p *Page) URL(ctx context.Context) (string, error) {
	return p.url, nil
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	p.history = append(p.history, p.url)
	p.url = url
	p.record("navigate", url)
	return nil
}

func (p *Page) Reload(ctx context.Context) error {
	p.Reloads++
	p.record("reload", p.url)
	return nil
}

func (p *Page) Back(ctx context.Context) error {
	if len(p.history) == 0 {
		return errors.New("no history")
	}
	p.url = p.history[len(p.history)-1]
	p.history = p.history[:len(p.history)-1]
	p.record("back", p.url)
	return nil
}

func (p *Page) BringToFront(ctx context.Context) error {
	p.record("front", p.url)
	return nil
}

func (p *Page) AcceptDialogs(ctx context.Context) error {
	p.DialogsAccepted = true
	return nil
}

func (p *Page) record(kind, detail string) {
	p.Events = append(p.Events, kind+":"+detail)
}

// Count 统计某类事件的次数
func (p *Page) Count(kind string) int {
	total := 0
	for _, e := range p.Events {
		if strings.HasPrefix(e, kind+":") {
			total++
		}
	}
	return total
}

func (p *Page) byID(id string) *html.Node {
	var found *html.Node
	walk(p.doc, func(n *html.Node) {
		if found == nil && n.Type == html.ElementNode && attr(n, "id") == id {
			found = n
		}
	})
	return found
}

func isEditable(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.Data {
	case "textarea", "select":
		return true
	case "input":
		switch attr(n, "type") {
		case "hidden", "checkbox", "radio", "button", "submit":
			return false
		}
		return true
	}
	return false
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func descendants(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	walk(n, func(c *html.Node) {
		if c != n && c.Type == html.ElementNode && c.Data == tag {
			out = append(out, c)
		}
	})
	return out
}

func firstOptionValue(sel *html.Node) string {
	opts := descendants(sel, "option")
	for _, o := range opts {
		if _, ok := attrOK(o, "selected"); ok {
			return optionValue(o)
		}
	}
	if len(opts) > 0 {
		return optionValue(opts[0])
	}
	return ""
}

func optionValue(o *html.Node) string {
	if v, ok := attrOK(o, "value"); ok {
		return v
	}
	return strings.TrimSpace(rawText(o))
}

func rawText(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode && (c.Parent == nil || (c.Parent.Data != "script" && c.Parent.Data != "style")) {
			b.WriteString(c.Data)
		}
	})
	return b.String()
}

func attr(n *html.Node, name string) string {
	v, _ := attrOK(n, name)
	return v
}

func attrOK(n *html.Node, name string) (string, bool) {
	if n == nil || n.Type != html.ElementNode {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}
