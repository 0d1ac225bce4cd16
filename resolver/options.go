package resolver

import "time"

// Options 解析器的经验阈值，默认值针对常见招聘站点的简历编辑页
type Options struct {
	// 最近公共祖先深度不超过该值的候选直接丢弃
	MinAncestorDepth int
	// 按钮顶部高于标题顶部超过该像素时排除
	ButtonAboveTolerance float64
	// 输入框底部高于标签顶部超过该像素时排除
	InputAboveTolerance float64
	// 可点击元素文本长度上限（不含）
	MaxClickableText int
	// 可点击元素宽高占视口比例上限（不含）
	ViewportFraction float64
	// 标题、标签文本允许比查询文本多出的字符数
	TitleExtraLength int
	LabelExtraLength int
	// 下拉选项文本允许多出的字符数
	OptionExtraLength int
	// 勾选框外层文本长度上限
	CheckboxTextLength int

	// 轮询等待的间隔
	PollInterval time.Duration
	// 滚动到标题后的等待
	ScrollSettle time.Duration
}

func DefaultOptions() Options {
	return Options{
		MinAncestorDepth:     2,
		ButtonAboveTolerance: 20,
		InputAboveTolerance:  10,
		MaxClickableText:     200,
		ViewportFraction:     0.7,
		TitleExtraLength:     20,
		LabelExtraLength:     20,
		OptionExtraLength:    5,
		CheckboxTextLength:   100,
		PollInterval:         500 * time.Millisecond,
		ScrollSettle:         500 * time.Millisecond,
	}
}

// withDefaults 把零值字段补成默认值
//
// MinAncestorDepth 和两个方向容差的 0 是有效配置，保持原样；调用方应从 DefaultOptions 开始修改。
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MinAncestorDepth < 0 {
		o.MinAncestorDepth = d.MinAncestorDepth
	}
	if o.MaxClickableText == 0 {
		o.MaxClickableText = d.MaxClickableText
	}
	if o.ViewportFraction == 0 {
		o.ViewportFraction = d.ViewportFraction
	}
	if o.TitleExtraLength == 0 {
		o.TitleExtraLength = d.TitleExtraLength
	}
	if o.LabelExtraLength == 0 {
		o.LabelExtraLength = d.LabelExtraLength
	}
	if o.OptionExtraLength == 0 {
		o.OptionExtraLength = d.OptionExtraLength
	}
	if o.CheckboxTextLength == 0 {
		o.CheckboxTextLength = d.CheckboxTextLength
	}
	if o.PollInterval == 0 {
		o.PollInterval = d.PollInterval
	}
	if o.ScrollSettle == 0 {
		o.ScrollSettle = d.ScrollSettle
	}
	return o
}
