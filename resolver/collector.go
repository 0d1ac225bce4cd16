package resolver

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// 候选节点查询用的选择器
const (
	ClickableSelector     = `button, a, [role="button"], input[type="button"], input[type="submit"], [class*="button"], [class*="btn"]`
	TitleSelector         = `h1, h2, h3, h4, h5, h6, div, span, p`
	LabelSelector         = `label, div, span, p, h1, h2, h3, h4, h5, h6`
	InputSelector         = `input:not([type="hidden"]), textarea, select`
	PlaceholderSelector   = `input[placeholder], textarea[placeholder]`
	KeywordSelector       = `button, a, [role="button"], label, span, div, p, li, h1, h2, h3, h4, h5, h6`
	TextContainerSelector = `label, span, div, p`
	ToggleSelector        = `input[type="checkbox"], input[type="radio"]`
)

// 下拉选项按优先级依次查询
var OptionSelectors = []string{
	`span[title]`,
	`div[title]`,
	`li[role="option"]`,
	`div[role="option"]`,
	`div.el-select-dropdown__item`,
	`div[class*="option"]`,
	`li`,
	`div`,
}

// Candidate 通过过滤的候选节点
type Candidate struct {
	Node  Node
	Box   Box
	Text  string
	Order int
}

// textFilter 返回 false 的节点不再读取几何信息
type textFilter func(text string) bool

// collect 查询选择器，按文本过滤后保留可见节点，同一节点只保留一次
func (r *Resolver) collect(ctx context.Context, scope Node, selector string, keep textFilter) ([]Candidate, error) {
	nodes, err := r.drv.QueryAll(ctx, scope, selector)
	if err != nil {
		return nil, fmt.Errorf("查询 %s 失败: %w", selector, err)
	}
	seen := make(map[string]bool, len(nodes))
	out := make([]Candidate, 0)
	for i, n := range nodes {
		if seen[n.Key()] {
			continue
		}
		seen[n.Key()] = true

		var text string
		if keep != nil {
			text, err = r.drv.Text(ctx, n)
			if err != nil {
				// 节点在查询后被移除，跳过
				continue
			}
			if !keep(text) {
				continue
			}
		}
		box, err := VisibleBox(ctx, r.drv, n)
		if err != nil || box == nil {
			continue
		}
		out = append(out, Candidate{Node: n, Box: *box, Text: text, Order: i})
	}
	return out, nil
}

// isDisabled disabled 属性或 aria-disabled="true"
func (r *Resolver) isDisabled(ctx context.Context, n Node) bool {
	if _, ok, err := r.drv.Attribute(ctx, n, "disabled"); err == nil && ok {
		return true
	}
	if v, ok, err := r.drv.Attribute(ctx, n, "aria-disabled"); err == nil && ok && v == "true" {
		return true
	}
	return false
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// CollectClickables 包含任一关键词、未禁用、文本不过长、尺寸不超过视口一定比例的可点击元素
func (r *Resolver) CollectClickables(ctx context.Context, keywords []string) ([]Candidate, error) {
	vw, vh, err := r.drv.Viewport(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取视口尺寸失败: %w", err)
	}
	cands, err := r.collect(ctx, nil, ClickableSelector, func(text string) bool {
		if runeLen(text) >= r.opts.MaxClickableText {
			return false
		}
		for _, kw := range keywords {
			if containsFold(text, kw) {
				return true
			}
		}
		return false
	})
	if err != nil {
		return nil, err
	}
	out := cands[:0]
	for _, c := range cands {
		if r.isDisabled(ctx, c.Node) {
			continue
		}
		if vw > 0 && c.Box.Width >= vw*r.opts.ViewportFraction {
			continue
		}
		if vh > 0 && c.Box.Height >= vh*r.opts.ViewportFraction {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// CollectLabels 文本包含标签文字且长度接近的可见元素
func (r *Resolver) CollectLabels(ctx context.Context, scope Node, label string) ([]Candidate, error) {
	limit := runeLen(label) + r.opts.LabelExtraLength
	return r.collect(ctx, scope, LabelSelector, func(text string) bool {
		return strings.Contains(text, label) && runeLen(strings.TrimSpace(text)) <= limit
	})
}

// CollectInputs 可见的输入框和文本域
func (r *Resolver) CollectInputs(ctx context.Context, scope Node) ([]Candidate, error) {
	return r.collect(ctx, scope, InputSelector, nil)
}

// CollectTitles 匹配任一标题文字的可见元素，Text 字段记录命中的标题
func (r *Resolver) CollectTitles(ctx context.Context, titles []string) ([]Candidate, error) {
	nodes, err := r.drv.QueryAll(ctx, nil, TitleSelector)
	if err != nil {
		return nil, fmt.Errorf("查询标题失败: %w", err)
	}
	out := make([]Candidate, 0)
	for i, n := range nodes {
		text, err := r.drv.Text(ctx, n)
		if err != nil {
			continue
		}
		trimmed := strings.TrimSpace(text)
		for _, title := range titles {
			if !strings.Contains(trimmed, title) || runeLen(trimmed) > runeLen(title)+r.opts.TitleExtraLength {
				continue
			}
			box, err := VisibleBox(ctx, r.drv, n)
			if err != nil || box == nil {
				break
			}
			out = append(out, Candidate{Node: n, Box: *box, Text: title, Order: i})
			break
		}
	}
	return out, nil
}

// innermost 去掉包含其他候选的外层节点
func (r *Resolver) innermost(ctx context.Context, cands []Candidate) []Candidate {
	out := make([]Candidate, 0, len(cands))
	for i, outer := range cands {
		wraps := false
		for j, inner := range cands {
			if i == j {
				continue
			}
			if ok, err := Contains(ctx, r.drv, outer.Node, inner.Node); err == nil && ok {
				wraps = true
				break
			}
		}
		if !wraps {
			out = append(out, outer)
		}
	}
	return out
}
