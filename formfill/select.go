package formfill

import (
	"context"
	"strings"

	"auto_resume_go/resolver"
)

// SelectOption 原生 select 直接选择；其余下拉框先点开，再点击文本匹配的选项并回车确认
func (f *Filler) SelectOption(ctx context.Context, n resolver.Node, option string) error {
	entry := f.log.WithField("query", option)
	tag, err := f.drv.TagName(ctx, n)
	if err != nil {
		return err
	}
	if strings.EqualFold(tag, "select") {
		err := f.drv.SelectOption(ctx, n, option)
		if err == nil {
			entry.Info("[下拉选择] 通过原生 select 选择成功")
			return f.sleep(ctx)
		}
		entry.WithError(err).Warn("[下拉选择] 原生 select 选择失败，尝试模拟点击")
	}

	box, err := resolver.VisibleBox(ctx, f.drv, n)
	if err != nil {
		return err
	}
	if box == nil {
		entry.Error("[下拉选择] 下拉框不可见")
		return &resolver.ResolveError{Op: "下拉选择", Query: option, Err: resolver.ErrNotVisible}
	}
	if err := f.drv.ScrollIntoView(ctx, n); err != nil {
		entry.WithError(err).Debug("[下拉选择] 滚动失败")
	}
	if err := f.half(ctx); err != nil {
		return err
	}
	// 滚动后重新取位置
	if fresh, err := resolver.VisibleBox(ctx, f.drv, n); err == nil && fresh != nil {
		box = fresh
	}
	c := box.Center()
	if err := f.drv.MouseClick(ctx, c.X, c.Y); err != nil {
		return resolver.ActivationError("展开下拉框", option, err)
	}
	if err := f.sleep(ctx); err != nil {
		return err
	}

	match, err := f.res.FindOption(ctx, option)
	if err != nil {
		return err
	}
	if err := f.drv.ScrollIntoView(ctx, match.Node); err != nil {
		entry.WithError(err).Debug("[下拉选择] 滚动到选项失败")
	}
	if err := f.half(ctx); err != nil {
		return err
	}
	oc := match.Box.Center()
	if fresh, err := resolver.VisibleBox(ctx, f.drv, match.Node); err == nil && fresh != nil {
		oc = fresh.Center()
	}
	if err := f.drv.MouseClick(ctx, oc.X, oc.Y); err != nil {
		return resolver.ActivationError("点击选项", option, err)
	}
	if err := f.half(ctx); err != nil {
		return err
	}
	if err := f.drv.KeyPress(ctx, resolver.KeyEnter); err != nil {
		return err
	}
	entry.Info("[下拉选择] 通过模拟点击选择成功")
	return f.half(ctx)
}
