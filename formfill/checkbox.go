package formfill

import (
	"context"
	"strings"
	"unicode/utf8"

	"auto_resume_go/resolver"
)

// TickAgreements 勾选包含关键词的协议/确认项，返回成功处理的关键词数
//
// 文本容器内有 checkbox/radio 时只在未勾选时点击它，否则点击容器本身。
func (f *Filler) TickAgreements(ctx context.Context, keywords []string) int {
	limit := f.res.Options().CheckboxTextLength
	ticked := 0
	for _, kw := range keywords {
		entry := f.log.WithField("query", kw)
		if f.tickOne(ctx, kw, limit) {
			ticked++
		} else {
			entry.Warn("[勾选] 未找到可点击的勾选项")
		}
		if err := f.sleep(ctx); err != nil {
			return ticked
		}
	}
	return ticked
}

func (f *Filler) tickOne(ctx context.Context, kw string, limit int) bool {
	entry := f.log.WithField("query", kw)
	containers, err := f.drv.QueryAll(ctx, nil, resolver.TextContainerSelector)
	if err != nil {
		entry.WithError(err).Error("[勾选] 查询文本容器失败")
		return false
	}
	for _, el := range containers {
		text, err := f.drv.Text(ctx, el)
		if err != nil || text == "" || utf8.RuneCountInString(text) > limit || !strings.Contains(text, kw) {
			continue
		}
		toggles, err := f.drv.QueryAll(ctx, el, resolver.ToggleSelector)
		if err == nil && len(toggles) > 0 {
			toggle := toggles[0]
			checked, err := f.drv.Checked(ctx, toggle)
			if err != nil {
				continue
			}
			if checked {
				entry.Info("[勾选] 已经勾选，无需重复点击")
				return true
			}
			if err := f.drv.Click(ctx, toggle); err != nil {
				// 原生 checkbox 常被样式隐藏，点击外层文本
				if err := f.drv.Click(ctx, el); err != nil {
					entry.WithError(err).Warn("[勾选] 点击失败")
					continue
				}
			}
			entry.WithField("text", strings.TrimSpace(text)).Info("[勾选] 勾选成功")
			return true
		}
		box, err := resolver.VisibleBox(ctx, f.drv, el)
		if err != nil || box == nil {
			continue
		}
		if err := f.drv.Click(ctx, el); err != nil {
			continue
		}
		entry.WithField("text", strings.TrimSpace(text)).Info("[勾选] 未找到 input，直接点击元素本身")
		return true
	}
	return false
}
