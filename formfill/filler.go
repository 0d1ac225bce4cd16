package formfill

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"auto_resume_go/model"
	"auto_resume_go/resolver"
)

// State 单个输入框的填写进度
type State int

const (
	Idle State = iota
	Focused
	Cleared
	Typed
	Committed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Focused:
		return "Focused"
	case Cleared:
		return "Cleared"
	case Typed:
		return "Typed"
	case Committed:
		return "Committed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Options 填写节奏
type Options struct {
	// Settle 每次激活、输入后的等待
	Settle time.Duration
	// SelectAllModifier 全选时按住的修饰键，为空时 macOS 用 Meta，其余用 Control
	SelectAllModifier string
}

func DefaultOptions() Options {
	return Options{Settle: 500 * time.Millisecond}
}

// Filler 把值写进解析出的输入框
type Filler struct {
	res  *resolver.Resolver
	drv  resolver.Driver
	opts Options
	log  *log.Entry
}

func New(res *resolver.Resolver, opts Options, logger *log.Entry) *Filler {
	if logger == nil {
		logger = log.WithField("component", "formfill")
	}
	if opts.Settle <= 0 {
		opts.Settle = DefaultOptions().Settle
	}
	if opts.SelectAllModifier == "" {
		opts.SelectAllModifier = resolver.KeyControl
		if runtime.GOOS == "darwin" {
			opts.SelectAllModifier = resolver.KeyMeta
		}
	}
	return &Filler{res: res, drv: res.Driver(), opts: opts, log: logger}
}

func (f *Filler) Resolver() *resolver.Resolver {
	return f.res
}

// FieldResult 一个字段的填写结果
type FieldResult struct {
	Label     string
	Parts     int
	Committed int
	// State 最后一个部分到达的状态
	State State
	Match *resolver.MatchResult
	Err   error
}

func (r FieldResult) OK() bool {
	return r.Err == nil && r.Parts > 0 && r.Committed == r.Parts
}

// FillField 按标签顺序解析输入框并填写；复合字段的后续部分依赖 Tab 移动的焦点，不再重新解析
func (f *Filler) FillField(ctx context.Context, scope resolver.Node, spec model.FieldSpec) FieldResult {
	query := strings.Join(spec.Labels, "/")
	result := FieldResult{Parts: len(spec.Values)}
	if len(spec.Values) == 0 {
		result.Err = fmt.Errorf("字段 %s 没有配置值", query)
		return result
	}

	var lastErr error
	for _, label := range spec.Labels {
		match, err := f.res.FindInputByLabel(ctx, scope, label)
		if err == nil {
			result.Label = label
			result.Match = match
			break
		}
		lastErr = err
	}
	if result.Match == nil {
		if lastErr == nil {
			lastErr = &resolver.ResolveError{Op: "填写字段", Query: query, Err: resolver.ErrNotFound}
		}
		f.log.WithField("query", query).Warn("[字段填写] 未找到任何符合标签的输入框，跳过此字段")
		result.Err = lastErr
		return result
	}

	if spec.Kind == model.FieldDropdown {
		if err := f.SelectOption(ctx, result.Match.Node, spec.Values[0]); err != nil {
			result.Err = err
			return result
		}
		result.State = Committed
		result.Committed = result.Parts
		return result
	}

	for i, value := range spec.Values {
		entry := f.log.WithFields(log.Fields{"label": result.Label, "part": i + 1, "parts": len(spec.Values)})
		var (
			state State
			err   error
		)
		if i == 0 {
			state, err = f.Fill(ctx, result.Match.Node, value)
		} else {
			state, err = f.FillFocused(ctx, value)
		}
		result.State = state
		if err != nil {
			entry.WithError(err).WithField("state", state).Warn("[字段填写] 部分填写失败")
			result.Err = err
			return result
		}
		result.Committed++
		entry.Debug("[字段填写] 部分填写完成")
	}
	f.log.WithFields(result.Match.Fields(result.Label)).Info("[字段填写] 字段填写成功")
	return result
}

// Fill 在指定节点上走完 聚焦→清空→输入→确认
func (f *Filler) Fill(ctx context.Context, n resolver.Node, value string) (State, error) {
	state := Idle
	if err := f.Activate(ctx, n, value); err != nil {
		return state, err
	}
	state = Focused
	if err := f.sleep(ctx); err != nil {
		return state, err
	}

	current, err := f.drv.Value(ctx, n)
	if err != nil {
		return state, fmt.Errorf("读取输入框内容失败: %w", err)
	}
	if current != "" {
		if err := f.clear(ctx); err != nil {
			return state, err
		}
		f.log.Debug("[填写字段] 已清空现有内容")
	}
	state = Cleared
	return f.typeAndCommit(ctx, state, value)
}

// FillFocused 复合字段的后续部分：焦点已经由上一部分的 Tab 移到相邻输入框
func (f *Filler) FillFocused(ctx context.Context, value string) (State, error) {
	state := Focused
	if err := f.clear(ctx); err != nil {
		return state, err
	}
	state = Cleared
	return f.typeAndCommit(ctx, state, value)
}

// Replace 聚焦后无条件全选替换，只按 Tab 离开，不按回车
func (f *Filler) Replace(ctx context.Context, n resolver.Node, value string) error {
	if err := f.Activate(ctx, n, value); err != nil {
		return err
	}
	if err := f.clear(ctx); err != nil {
		return err
	}
	if err := f.drv.Type(ctx, value); err != nil {
		return fmt.Errorf("输入内容失败: %w", err)
	}
	if err := f.sleep(ctx); err != nil {
		return err
	}
	return f.drv.KeyPress(ctx, resolver.KeyTab)
}

// Activate 滚动到节点并点击；结构化点击失败时改用中心点坐标点击
func (f *Filler) Activate(ctx context.Context, n resolver.Node, query string) error {
	box, err := resolver.VisibleBox(ctx, f.drv, n)
	if err != nil {
		return fmt.Errorf("读取元素位置失败: %w", err)
	}
	if box == nil {
		f.log.WithField("query", query).Error("[填写字段] 目标元素不可见")
		return &resolver.ResolveError{Op: "激活元素", Query: query, Err: resolver.ErrNotVisible}
	}

	clickErr := f.drv.ScrollIntoView(ctx, n)
	if clickErr == nil {
		if err := f.half(ctx); err != nil {
			return err
		}
		clickErr = f.drv.Click(ctx, n)
	}
	if clickErr == nil {
		return nil
	}

	f.log.WithError(clickErr).WithField("query", query).Warn("[填写字段] 点击元素失败，改用坐标点击")
	// 滚动后位置可能变化，重新读取
	if fresh, err := resolver.VisibleBox(ctx, f.drv, n); err == nil && fresh != nil {
		box = fresh
	}
	c := box.Center()
	if err := f.drv.MouseMove(ctx, c.X, c.Y); err != nil {
		return resolver.ActivationError("激活元素", query, err)
	}
	if err := f.half(ctx); err != nil {
		return err
	}
	if err := f.drv.MouseClick(ctx, c.X, c.Y); err != nil {
		return resolver.ActivationError("激活元素", query, errors.Join(clickErr, err))
	}
	return nil
}

// ClickMatch 点击解析结果的中心点，失败时退回结构化点击
func (f *Filler) ClickMatch(ctx context.Context, m *resolver.MatchResult, query string) error {
	box, err := resolver.VisibleBox(ctx, f.drv, m.Node)
	if err != nil {
		return fmt.Errorf("读取元素位置失败: %w", err)
	}
	if box == nil {
		return &resolver.ResolveError{Op: "点击", Query: query, Err: resolver.ErrNotVisible}
	}
	c := box.Center()
	if err := f.drv.MouseClick(ctx, c.X, c.Y); err != nil {
		f.log.WithError(err).WithField("query", query).Warn("[点击] 坐标点击失败，改用元素点击")
		if err := f.drv.Click(ctx, m.Node); err != nil {
			return resolver.ActivationError("点击", query, err)
		}
	}
	return f.sleep(ctx)
}

func (f *Filler) clear(ctx context.Context) error {
	mod := f.opts.SelectAllModifier
	if err := f.drv.KeyDown(ctx, mod); err != nil {
		return fmt.Errorf("按下%s失败: %w", mod, err)
	}
	pressErr := f.drv.KeyPress(ctx, resolver.KeyA)
	if err := f.drv.KeyUp(ctx, mod); err != nil && pressErr == nil {
		pressErr = err
	}
	if pressErr != nil {
		return fmt.Errorf("全选失败: %w", pressErr)
	}
	if err := f.half(ctx); err != nil {
		return err
	}
	if err := f.drv.KeyPress(ctx, resolver.KeyBackspace); err != nil {
		return fmt.Errorf("删除原内容失败: %w", err)
	}
	return f.sleep(ctx)
}

func (f *Filler) typeAndCommit(ctx context.Context, state State, value string) (State, error) {
	if err := f.drv.Type(ctx, value); err != nil {
		return state, fmt.Errorf("输入内容失败: %w", err)
	}
	state = Typed
	if err := f.sleep(ctx); err != nil {
		return state, err
	}
	if err := f.drv.KeyPress(ctx, resolver.KeyEnter); err != nil {
		return state, fmt.Errorf("按回车确认失败: %w", err)
	}
	if err := f.sleep(ctx); err != nil {
		return state, err
	}
	if err := f.drv.KeyPress(ctx, resolver.KeyTab); err != nil {
		return state, fmt.Errorf("按Tab离开失败: %w", err)
	}
	if err := f.sleep(ctx); err != nil {
		return state, err
	}
	return Committed, nil
}

func (f *Filler) sleep(ctx context.Context) error {
	return f.drv.Sleep(ctx, f.opts.Settle)
}

func (f *Filler) half(ctx context.Context) error {
	return f.drv.Sleep(ctx, f.opts.Settle/2)
}
