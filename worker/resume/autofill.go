package resume

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"auto_resume_go/formfill"
	"auto_resume_go/model"
	"auto_resume_go/resolver"
)

// AutofillOptions 自动填写的节奏和关键词
type AutofillOptions struct {
	// Delay 打开表单后等待 2*Delay 再识别容器
	Delay time.Duration
	// ContainerTimeout 识别表单容器的最长等待
	ContainerTimeout time.Duration
	SaveKeywords     []string
}

func DefaultAutofillOptions() AutofillOptions {
	return AutofillOptions{
		Delay:            time.Second,
		ContainerTimeout: 5 * time.Second,
		SaveKeywords:     []string{"保存", "确定", "提交", "完成"},
	}
}

// FormSession 一条记录从点击“添加”到保存/关闭之间的临时状态，不会被保存
type FormSession struct {
	Module    string
	Record    int
	Section   model.Section
	Title     *resolver.MatchResult
	Container *resolver.MatchResult
}

// SessionReport 一条记录的填写结果
type SessionReport struct {
	Module    string
	Record    int
	Title     string
	Container string
	Fields    []formfill.FieldResult
	// SavedVia 点击的保存关键词，没有找到时为 "Escape"
	SavedVia string
	// Err 标题或添加按钮缺失导致整条记录放弃
	Err error
}

// Filled 成功填写的字段数
func (r SessionReport) Filled() int {
	n := 0
	for _, f := range r.Fields {
		if f.OK() {
			n++
		}
	}
	return n
}

// Summary 一次自动填写的全部记录
type Summary struct {
	Sessions []SessionReport
}

// Aborted 被放弃的记录数
func (s Summary) Aborted() int {
	n := 0
	for _, r := range s.Sessions {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// Autofiller 把简历数据逐条填进在线简历编辑页
type Autofiller struct {
	filler *formfill.Filler
	res    *resolver.Resolver
	drv    resolver.Driver
	opts   AutofillOptions
	log    *log.Entry
}

func NewAutofiller(filler *formfill.Filler, opts AutofillOptions, logger *log.Entry) *Autofiller {
	if logger == nil {
		logger = log.WithField("component", "autofill")
	}
	def := DefaultAutofillOptions()
	if opts.Delay <= 0 {
		opts.Delay = def.Delay
	}
	if opts.ContainerTimeout <= 0 {
		opts.ContainerTimeout = def.ContainerTimeout
	}
	if len(opts.SaveKeywords) == 0 {
		opts.SaveKeywords = def.SaveKeywords
	}
	res := filler.Resolver()
	return &Autofiller{filler: filler, res: res, drv: res.Driver(), opts: opts, log: logger}
}

// Run 依次填写个人信息、项目经历、实习经历；单条记录失败不会中断整个流程
func (a *Autofiller) Run(ctx context.Context, data *model.Resume) Summary {
	a.log.Info("--- 开始自动填写简历流程 ---")
	var summary Summary

	if data.PersonalInfo != nil && len(data.PersonalInfo.Fields) > 0 {
		summary.Sessions = append(summary.Sessions, a.FillSection(ctx, "个人信息", 1, *data.PersonalInfo))
	} else {
		a.log.Warn("[主流程] 简历数据中没有个人信息，跳过此模块")
	}

	groups := []struct {
		name    string
		records []model.Section
	}{
		{"项目经历", data.ProjectExperiences},
		{"实习经历", data.InternshipExperiences},
	}
	for _, g := range groups {
		if len(g.records) == 0 {
			a.log.Warnf("[主流程] 简历数据中没有%s，跳过此模块", g.name)
			continue
		}
		for i, rec := range g.records {
			if ctx.Err() != nil {
				a.log.Warn("[主流程] 流程被取消")
				return summary
			}
			summary.Sessions = append(summary.Sessions, a.FillSection(ctx, g.name, i+1, rec))
		}
	}

	a.log.WithFields(log.Fields{"records": len(summary.Sessions), "aborted": summary.Aborted()}).
		Info("--- 自动填写简历流程完成 ---")
	return summary
}

// FillSection 标题 → 添加 → 等待 → 识别容器 → 填写字段 → 保存或 Escape
func (a *Autofiller) FillSection(ctx context.Context, module string, record int, sec model.Section) SessionReport {
	name := fmt.Sprintf("%s (第 %d 个)", module, record)
	entry := a.log.WithField("module", name)
	report := SessionReport{Module: module, Record: record}
	entry.Info("--- 开始填充 ---")

	session := &FormSession{Module: module, Record: record, Section: sec}
	if err := a.open(ctx, session); err != nil {
		entry.WithError(err).Error("未能打开表单，跳过此记录")
		report.Err = err
		return report
	}
	report.Title = session.Title.Path
	if session.Container != nil {
		report.Container = session.Container.Path
	}

	for _, field := range sec.Fields {
		res := a.filler.FillField(ctx, nil, field)
		report.Fields = append(report.Fields, res)
		if res.OK() {
			continue
		}
		fe := entry.WithField("field", strings.Join(field.Labels, "/")).WithError(res.Err)
		if field.Optional {
			fe.Info("可选字段未能找到或填写，已跳过")
		} else {
			fe.Warn("非可选字段未能成功填写")
		}
		if ctx.Err() != nil {
			report.Err = ctx.Err()
			return report
		}
	}

	report.SavedVia = a.save(ctx, session, entry)
	entry.WithFields(log.Fields{"filled": report.Filled(), "fields": len(sec.Fields), "saved": report.SavedVia}).
		Info("--- 填充结束 ---")
	return report
}

func (a *Autofiller) open(ctx context.Context, s *FormSession) error {
	title, err := a.res.FindSectionTitle(ctx, s.Section.TitleLabels)
	if err != nil {
		return fmt.Errorf("未找到区域标题: %w", err)
	}
	s.Title = title
	if !s.Section.NeedsAdd() {
		return nil
	}

	add, err := a.res.FindAddButton(ctx, title.Node, s.Section.AddButtonLabels)
	if err != nil {
		return fmt.Errorf("未找到添加按钮: %w", err)
	}
	if err := a.filler.ClickMatch(ctx, add, strings.Join(s.Section.AddButtonLabels, "/")); err != nil {
		return fmt.Errorf("点击添加按钮失败: %w", err)
	}
	if err := a.drv.Sleep(ctx, 2*a.opts.Delay); err != nil {
		return err
	}

	if s.Section.FirstFormFieldLabel != "" {
		container, err := a.res.FindFormContainer(ctx, s.Section.FirstFormFieldLabel, a.opts.ContainerTimeout)
		if err != nil {
			// 容器只用于日志，字段仍在整页查找
			a.log.WithError(err).Warn("未能识别新表单容器，继续在整页查找字段")
		} else {
			s.Container = container
		}
	}
	return nil
}

// save 以表单容器（没有时用区域标题）为锚点查找保存类按钮，找不到时按 Escape 关闭
func (a *Autofiller) save(ctx context.Context, s *FormSession, entry *log.Entry) string {
	query := strings.Join(a.opts.SaveKeywords, "/")
	var (
		match *resolver.MatchResult
		kw    string
		err   error
	)
	if anchor := s.anchor(); anchor != nil {
		// 与添加按钮相同的方向、共同祖先、距离规则，避免点到其他模块的保存按钮
		match, err = a.res.FindAddButton(ctx, anchor, a.opts.SaveKeywords)
		if err == nil {
			kw = a.keywordOf(ctx, match)
		}
	} else {
		match, kw, err = a.res.FindKeyword(ctx, a.opts.SaveKeywords, resolver.KeywordOptions{Selector: resolver.ClickableSelector})
	}
	if err == nil {
		if err := a.filler.ClickMatch(ctx, match, query); err == nil {
			entry.WithField("keyword", kw).Info("成功点击保存/确定按钮")
			return kw
		}
	}
	entry.Warn("未找到保存/确定按钮，模拟按下 Escape")
	if err := a.drv.KeyPress(ctx, resolver.KeyEscape); err != nil {
		entry.WithError(err).Error("按下 Escape 失败")
	}
	return resolver.KeyEscape
}

// anchor 保存按钮的定位锚点
func (s *FormSession) anchor() resolver.Node {
	switch {
	case s.Container != nil:
		return s.Container.Node
	case s.Title != nil:
		return s.Title.Node
	}
	return nil
}

// keywordOf 命中按钮文字中包含的第一个关键词
func (a *Autofiller) keywordOf(ctx context.Context, m *resolver.MatchResult) string {
	text, _ := a.drv.Text(ctx, m.Node)
	for _, kw := range a.opts.SaveKeywords {
		if strings.Contains(text, kw) {
			return kw
		}
	}
	return strings.TrimSpace(text)
}
