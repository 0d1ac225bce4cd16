package resolver

import (
	"context"
	"time"
)

// Node 页面节点句柄，只在一次查询内有效
type Node interface {
	// Key 同一页面内唯一标识该节点
	Key() string
}

// Box 视口坐标系下的矩形
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Point 视口坐标
type Point struct {
	X float64
	Y float64
}

func (b Box) Center() Point {
	return Point{X: b.X + b.Width/2, Y: b.Y + b.Height/2}
}

func (b Box) Bottom() float64 {
	return b.Y + b.Height
}

func (b Box) Right() float64 {
	return b.X + b.Width
}

// 按键名称，由各驱动翻译为自己的键码
const (
	KeyEnter     = "Enter"
	KeyTab       = "Tab"
	KeyBackspace = "Backspace"
	KeyEscape    = "Escape"
	KeyControl   = "Control"
	KeyMeta      = "Meta"
	KeyA         = "KeyA"
)

// Driver 解析器依赖的浏览器能力集合
//
// scope 为 nil 时在整个文档内查询。BoundingBox 在节点未渲染时返回 nil。
// Parent 到达文档根时返回 nil。
type Driver interface {
	QueryAll(ctx context.Context, scope Node, selector string) ([]Node, error)
	Text(ctx context.Context, n Node) (string, error)
	Value(ctx context.Context, n Node) (string, error)
	BoundingBox(ctx context.Context, n Node) (*Box, error)
	Parent(ctx context.Context, n Node) (Node, error)
	Attribute(ctx context.Context, n Node, name string) (string, bool, error)
	TagName(ctx context.Context, n Node) (string, error)
	Checked(ctx context.Context, n Node) (bool, error)

	ScrollIntoView(ctx context.Context, n Node) error
	Click(ctx context.Context, n Node) error
	SelectOption(ctx context.Context, n Node, label string) error
	MouseMove(ctx context.Context, x, y float64) error
	MouseClick(ctx context.Context, x, y float64) error
	KeyDown(ctx context.Context, key string) error
	KeyUp(ctx context.Context, key string) error
	KeyPress(ctx context.Context, key string) error
	Type(ctx context.Context, text string) error

	Viewport(ctx context.Context) (width, height float64, err error)
	Sleep(ctx context.Context, d time.Duration) error
}

// Navigator 页面级导航能力，仅供编排层使用
type Navigator interface {
	URL(ctx context.Context) (string, error)
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	Back(ctx context.Context) error
	BringToFront(ctx context.Context) error
	// AcceptDialogs 之后弹出的 beforeunload/alert 对话框全部自动确认
	AcceptDialogs(ctx context.Context) error
}

// Page 一个标签页同时具备的两组能力
type Page interface {
	Driver
	Navigator
}

// SleepContext 可被取消的等待，供各驱动实现 Sleep
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
