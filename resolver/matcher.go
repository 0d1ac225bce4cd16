package resolver

import (
	"context"
	"math"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Resolver 按结构和位置的接近程度，把一段文字解析为页面上的具体元素
//
// Resolver 不缓存任何节点，每次调用都重新查询。
type Resolver struct {
	drv  Driver
	opts Options
	log  *log.Entry
}

func New(drv Driver, opts Options, logger *log.Entry) *Resolver {
	if logger == nil {
		logger = log.WithField("component", "resolver")
	}
	return &Resolver{drv: drv, opts: opts.withDefaults(), log: logger}
}

func (r *Resolver) Driver() Driver {
	return r.drv
}

func (r *Resolver) Options() Options {
	return r.opts
}

// FindSectionTitle 查找简历区块标题并滚动到可见位置，多个标题文字按顺序尝试
func (r *Resolver) FindSectionTitle(ctx context.Context, titles []string) (*MatchResult, error) {
	query := strings.Join(titles, "/")
	r.log.WithField("query", query).Info("[查找标题] 开始查找区块标题")

	cands, err := r.CollectTitles(ctx, titles)
	if err != nil {
		return nil, err
	}
	cands = r.innermost(ctx, cands)
	if len(cands) == 0 {
		r.log.WithField("query", query).Error("[查找标题] 未找到可见的标题")
		return nil, notFound("查找标题", query)
	}
	title := cands[0]
	if err := r.drv.ScrollIntoView(ctx, title.Node); err != nil {
		r.log.WithError(err).Warn("[查找标题] 滚动到标题失败")
	}
	if err := r.drv.Sleep(ctx, r.opts.ScrollSettle); err != nil {
		return nil, err
	}
	box, err := VisibleBox(ctx, r.drv, title.Node)
	if err != nil {
		return nil, err
	}
	if box == nil {
		return nil, notVisible("查找标题", query)
	}

	res := &MatchResult{
		Node:       title.Node,
		Box:        *box,
		Score:      Score{X: box.X},
		Path:       Describe(ctx, r.drv, title.Node),
		Via:        ViaText,
		Considered: len(cands),
	}
	r.log.WithFields(res.Fields(title.Text)).Info("[查找标题] 找到标题")
	return res, nil
}

// FindAddButton 在标题附近查找关键词按钮：共同祖先越深越好，其次距离越近越好
//
// 明显高于标题，或与标题同一行却在标题左侧的按钮会被排除。
func (r *Resolver) FindAddButton(ctx context.Context, title Node, keywords []string) (*MatchResult, error) {
	query := strings.Join(keywords, "/")
	titleBox, err := VisibleBox(ctx, r.drv, title)
	if err != nil {
		return nil, err
	}
	if titleBox == nil {
		r.log.WithField("query", query).Error("[点击按钮] 标题元素不可见，无法计算位置")
		return nil, notVisible("查找按钮", query)
	}

	cands, err := r.CollectClickables(ctx, keywords)
	if err != nil {
		return nil, err
	}
	if len(cands) == 0 {
		r.log.WithField("query", query).Error("[点击按钮] 未找到任何可见的候选按钮")
		return nil, notFound("查找按钮", query)
	}

	scoredCands := make([]scored, 0, len(cands))
	for _, c := range cands {
		// 标题自身或包住标题的节点不算按钮
		if wraps, err := Contains(ctx, r.drv, c.Node, title); err != nil || wraps {
			continue
		}
		depth, err := r.ancestorDepth(ctx, title, c.Node)
		if err != nil {
			continue
		}
		entry := r.log.WithFields(log.Fields{"query": query, "text": strings.TrimSpace(c.Text), "depth": depth})
		if depth <= r.opts.MinAncestorDepth {
			entry.Debug("[点击按钮] 共同祖先过浅，跳过")
			continue
		}
		if !r.buttonPlacementOK(*titleBox, c.Box) {
			entry.Debug("[点击按钮] 按钮位于标题上方或左侧，跳过")
			continue
		}
		scoredCands = append(scoredCands, scored{
			node:  c.Node,
			box:   c.Box,
			order: c.Order,
			score: Score{Depth: depth, Distance: Distance(*titleBox, c.Box), X: c.Box.X},
		})
	}

	winner, ok := best(scoredCands)
	if !ok {
		r.log.WithFields(log.Fields{"query": query, "candidates": len(cands)}).Error("[点击按钮] 没有符合位置条件的按钮")
		return nil, notFound("查找按钮", query)
	}
	res := r.result(ctx, winner, ViaProximity, len(scoredCands))
	r.log.WithFields(res.Fields(query)).Info("[点击按钮] 确定最佳按钮")
	return res, nil
}

// buttonPlacementOK 按钮应在标题同一行右侧或下方
func (r *Resolver) buttonPlacementOK(title, button Box) bool {
	if button.Y < title.Y-r.opts.ButtonAboveTolerance {
		return false
	}
	if math.Abs(button.Y-title.Y) < title.Height && button.X < title.X {
		return false
	}
	return true
}

// FindInputByLabel 查找与标签文字关联的输入框
//
// label[for] 与输入框 id 一致时直接胜出；否则按共同祖先深度、中心距离、横坐标依次比较。
// 没有任何标签候选或候选全部被排除时，回退到 placeholder 匹配。scope 为 nil 时搜索整页。
func (r *Resolver) FindInputByLabel(ctx context.Context, scope Node, label string) (*MatchResult, error) {
	r.log.WithField("query", label).Info("[查找字段] 开始查找输入框")
	return r.findInput(ctx, scope, label, true)
}

func (r *Resolver) findInput(ctx context.Context, scope Node, label string, verbose bool) (*MatchResult, error) {
	labels, err := r.CollectLabels(ctx, scope, label)
	if err != nil {
		return nil, err
	}
	inputs, err := r.CollectInputs(ctx, scope)
	if err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		if verbose {
			r.log.WithField("query", label).Info("[查找字段] 未找到标签文字，尝试通过 placeholder 查找")
		}
		return r.findByPlaceholder(ctx, scope, label, verbose)
	}

	if res := r.matchForLinkage(ctx, labels, inputs); res != nil {
		if verbose {
			r.log.WithFields(res.Fields(label)).Info("[查找字段] 通过 label for 属性匹配到输入框")
		}
		return res, nil
	}

	scoredCands := make([]scored, 0)
	for _, l := range labels {
		for _, in := range inputs {
			if in.Box.Bottom() < l.Box.Y-r.opts.InputAboveTolerance {
				continue
			}
			lca, err := LowestCommonAncestor(ctx, r.drv, l.Node, in.Node)
			if err != nil || lca == nil {
				continue
			}
			if scope != nil {
				if inside, err := Contains(ctx, r.drv, scope, lca); err != nil || !inside {
					continue
				}
			}
			depth, err := Depth(ctx, r.drv, lca)
			if err != nil || depth <= r.opts.MinAncestorDepth {
				continue
			}
			scoredCands = append(scoredCands, scored{
				node:  in.Node,
				box:   in.Box,
				order: in.Order,
				score: Score{Depth: depth, Distance: Distance(l.Box, in.Box), X: in.Box.X},
			})
		}
	}

	winner, ok := best(scoredCands)
	if !ok {
		if verbose {
			r.log.WithFields(log.Fields{"query": label, "labels": len(labels), "inputs": len(inputs)}).
				Info("[查找字段] 标签附近没有合适的输入框，尝试通过 placeholder 查找")
		}
		return r.findByPlaceholder(ctx, scope, label, verbose)
	}
	res := r.result(ctx, winner, ViaProximity, len(scoredCands))
	if verbose {
		r.log.WithFields(res.Fields(label)).Info("[查找字段] 找到输入框")
	}
	return res, nil
}

// matchForLinkage label[for] 与输入框 id 完全一致
func (r *Resolver) matchForLinkage(ctx context.Context, labels, inputs []Candidate) *MatchResult {
	for _, l := range labels {
		tag, err := r.drv.TagName(ctx, l.Node)
		if err != nil || !strings.EqualFold(tag, "label") {
			continue
		}
		forID, ok, err := r.drv.Attribute(ctx, l.Node, "for")
		if err != nil || !ok || forID == "" {
			continue
		}
		for _, in := range inputs {
			id, ok, err := r.drv.Attribute(ctx, in.Node, "id")
			if err != nil || !ok || id != forID {
				continue
			}
			return &MatchResult{
				Node:       in.Node,
				Box:        in.Box,
				Score:      Score{Distance: Distance(l.Box, in.Box), X: in.Box.X},
				Path:       Describe(ctx, r.drv, in.Node),
				Via:        ViaForLinkage,
				Considered: len(inputs),
			}
		}
	}
	return nil
}

// findByPlaceholder 回退路径：placeholder 包含查询文字（不区分大小写）的第一个可见输入框
func (r *Resolver) findByPlaceholder(ctx context.Context, scope Node, label string, verbose bool) (*MatchResult, error) {
	nodes, err := r.drv.QueryAll(ctx, scope, PlaceholderSelector)
	if err != nil {
		return nil, err
	}
	for i, n := range nodes {
		ph, ok, err := r.drv.Attribute(ctx, n, "placeholder")
		if err != nil || !ok || !containsFold(ph, label) {
			continue
		}
		box, err := VisibleBox(ctx, r.drv, n)
		if err != nil || box == nil {
			continue
		}
		res := r.result(ctx, scored{node: n, box: *box, order: i, score: Score{X: box.X}}, ViaPlaceholder, 1)
		if verbose {
			r.log.WithFields(res.Fields(label)).WithField("fallback", true).
				Warn("[查找字段] 通过 placeholder 回退匹配到输入框")
		}
		return res, nil
	}
	if verbose {
		r.log.WithField("query", label).Error("[查找字段] 未能找到关联的输入框")
	}
	return nil, notFound("查找字段", label)
}

// FindOption 在已展开的下拉列表中查找选项，必须位于视口高度内
func (r *Resolver) FindOption(ctx context.Context, option string) (*MatchResult, error) {
	_, vh, err := r.drv.Viewport(ctx)
	if err != nil {
		return nil, err
	}
	limit := runeLen(option) + r.opts.OptionExtraLength
	for _, sel := range OptionSelectors {
		cands, err := r.collect(ctx, nil, sel, func(text string) bool {
			trimmed := strings.TrimSpace(text)
			return strings.Contains(trimmed, option) && runeLen(trimmed) <= limit
		})
		if err != nil {
			return nil, err
		}
		for _, c := range cands {
			if c.Box.Y < 0 || (vh > 0 && c.Box.Y > vh) {
				continue
			}
			res := r.result(ctx, scored{node: c.Node, box: c.Box, order: c.Order, score: Score{X: c.Box.X}}, ViaText, len(cands))
			r.log.WithFields(res.Fields(option)).WithField("selector", sel).Info("[下拉选择] 找到选项")
			return res, nil
		}
	}
	r.log.WithField("query", option).Warn("[下拉选择] 未在展开的列表中找到选项")
	return nil, notFound("查找选项", option)
}

// KeywordOptions 关键词查找的方式
type KeywordOptions struct {
	// Selector 为空时使用 KeywordSelector
	Selector string
	// Exact 要求去空白后的文本与关键词完全相同
	Exact bool
	// Reverse 从最后一个关键词开始尝试
	Reverse bool
}

// FindKeyword 按顺序尝试关键词，返回第一个有命中的关键词里文本最短的可用元素
func (r *Resolver) FindKeyword(ctx context.Context, keywords []string, opts KeywordOptions) (*MatchResult, string, error) {
	selector := opts.Selector
	if selector == "" {
		selector = KeywordSelector
	}
	ordered := make([]string, len(keywords))
	copy(ordered, keywords)
	if opts.Reverse {
		for i, j := 0, len(ordered)-1; i < j; i, j = i+1, j-1 {
			ordered[i], ordered[j] = ordered[j], ordered[i]
		}
	}

	for _, kw := range ordered {
		cands, err := r.collect(ctx, nil, selector, func(text string) bool {
			trimmed := strings.TrimSpace(text)
			if opts.Exact {
				return trimmed == kw
			}
			return strings.Contains(trimmed, kw)
		})
		if err != nil {
			return nil, "", err
		}
		var pick *Candidate
		for i := range cands {
			c := &cands[i]
			if r.isDisabled(ctx, c.Node) {
				r.log.WithField("query", kw).Info("[点击关键词] 元素被禁用，跳过")
				continue
			}
			if pick == nil || runeLen(strings.TrimSpace(c.Text)) < runeLen(strings.TrimSpace(pick.Text)) {
				pick = c
			}
		}
		if pick == nil {
			r.log.WithField("query", kw).Debug("[点击关键词] 未找到关键词")
			continue
		}
		res := r.result(ctx, scored{node: pick.Node, box: pick.Box, order: pick.Order, score: Score{X: pick.Box.X}}, ViaKeyword, len(cands))
		r.log.WithFields(res.Fields(kw)).Info("[点击关键词] 找到关键词元素")
		return res, kw, nil
	}
	return nil, "", notFound("查找关键词", strings.Join(keywords, "/"))
}

// 可能承载新弹出表单的容器
var ContainerSelectors = []string{
	`[role="dialog"]`,
	`.ant-modal-content`,
	`.el-dialog`,
	`form`,
	`[class*="form-modal"]`,
	`[class*="modal-dialog"]`,
	`[class*="drawer-content"]`,
	`div[tabindex="-1"]`,
}

// FindFormContainer 轮询等待包含首个字段的可见容器出现，超时返回 ErrNotFound
func (r *Resolver) FindFormContainer(ctx context.Context, firstLabel string, timeout time.Duration) (*MatchResult, error) {
	attempts := int(timeout/r.opts.PollInterval) + 1
	for i := 0; i < attempts; i++ {
		if res := r.probeContainer(ctx, firstLabel); res != nil {
			r.log.WithFields(res.Fields(firstLabel)).Info("[表单识别] 识别到表单容器")
			return res, nil
		}
		if err := r.drv.Sleep(ctx, r.opts.PollInterval); err != nil {
			return nil, err
		}
	}
	r.log.WithFields(log.Fields{"query": firstLabel, "timeout": timeout}).Warn("[表单识别] 超时未识别到表单容器")
	return nil, notFound("识别表单容器", firstLabel)
}

func (r *Resolver) probeContainer(ctx context.Context, firstLabel string) *MatchResult {
	field, err := r.findInput(ctx, nil, firstLabel, false)
	if err != nil {
		return nil
	}
	for _, sel := range ContainerSelectors {
		cands, err := r.collect(ctx, nil, sel, nil)
		if err != nil {
			continue
		}
		for _, c := range cands {
			if inside, err := Contains(ctx, r.drv, c.Node, field.Node); err == nil && inside {
				return r.result(ctx, scored{node: c.Node, box: c.Box, order: c.Order}, ViaText, len(cands))
			}
		}
	}
	return nil
}

// WaitVisible 按固定间隔轮询 find，直到成功或超过 timeout
func (r *Resolver) WaitVisible(ctx context.Context, timeout time.Duration, find func(ctx context.Context) (*MatchResult, error)) (*MatchResult, error) {
	attempts := int(timeout/r.opts.PollInterval) + 1
	var lastErr error
	for i := 0; i < attempts; i++ {
		res, err := find(ctx)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if err := r.drv.Sleep(ctx, r.opts.PollInterval); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (r *Resolver) ancestorDepth(ctx context.Context, a, b Node) (int, error) {
	lca, err := LowestCommonAncestor(ctx, r.drv, a, b)
	if err != nil {
		return 0, err
	}
	return Depth(ctx, r.drv, lca)
}

func (r *Resolver) result(ctx context.Context, s scored, via string, considered int) *MatchResult {
	return &MatchResult{
		Node:       s.node,
		Box:        s.box,
		Score:      s.score,
		Path:       Describe(ctx, r.drv, s.node),
		Via:        via,
		Considered: considered,
	}
}
