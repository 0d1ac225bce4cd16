package resume

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	"auto_resume_go/formfill"
	"auto_resume_go/resolver"
)

var (
	ErrEditorUnreachable = errors.New("无法进入简历编辑页面")
	ErrSaveNotFound      = errors.New("未找到保存按钮")
)

// EditorOptions 刷新简历用到的关键词和等待时间
type EditorOptions struct {
	EditKeywords      []string
	UserBarKeywords   []string
	MyResumeKeywords  []string
	AgreementKeywords []string
	// SaveKeywords 精确匹配，越靠后优先级越高
	SaveKeywords    []string
	ConfirmKeywords []string

	ClickSettle time.Duration
	HoverSettle time.Duration
	StepDelay   time.Duration
	EditDelay   time.Duration
	// MinTextLength 可编辑文本的最少字符数
	MinTextLength int
}

func DefaultEditorOptions() EditorOptions {
	return EditorOptions{
		EditKeywords:      []string{"修改申请", "编辑"},
		UserBarKeywords:   []string{"头像", "用户", "+86", "个人中心"},
		MyResumeKeywords:  []string{"我的简历"},
		AgreementKeywords: []string{"确认", "同步更新在线简历", "我已阅读并同意", "隐私协议", "隐私政策说明"},
		SaveKeywords:      []string{"预览并提交", "保存", "提交", "投递简历"},
		ConfirmKeywords:   []string{"确认提交", "确定", "提交"},
		ClickSettle:       time.Second,
		HoverSettle:       1500 * time.Millisecond,
		StepDelay:         1500 * time.Millisecond,
		EditDelay:         2 * time.Second,
		MinTextLength:     5,
	}
}

func (o EditorOptions) withDefaults() EditorOptions {
	def := DefaultEditorOptions()
	fill := func(v *[]string, d []string) {
		if len(*v) == 0 {
			*v = d
		}
	}
	fill(&o.EditKeywords, def.EditKeywords)
	fill(&o.UserBarKeywords, def.UserBarKeywords)
	fill(&o.MyResumeKeywords, def.MyResumeKeywords)
	fill(&o.AgreementKeywords, def.AgreementKeywords)
	fill(&o.SaveKeywords, def.SaveKeywords)
	fill(&o.ConfirmKeywords, def.ConfirmKeywords)
	if o.ClickSettle <= 0 {
		o.ClickSettle = def.ClickSettle
	}
	if o.HoverSettle <= 0 {
		o.HoverSettle = def.HoverSettle
	}
	if o.StepDelay <= 0 {
		o.StepDelay = def.StepDelay
	}
	if o.EditDelay <= 0 {
		o.EditDelay = def.EditDelay
	}
	if o.MinTextLength <= 0 {
		o.MinTextLength = def.MinTextLength
	}
	return o
}

// Recorder 保存成功的简历记录
type Recorder interface {
	RecordSaved(sourceURL, savedURL string) error
}

// RefreshResult 一次刷新的结果
type RefreshResult struct {
	StartURL    string
	SavedURL    string
	OldText     string
	NewText     string
	Edited      bool
	Agreements  int
	SaveKeyword string
	// Saved 点击保存后地址发生了变化
	Saved bool
	At    time.Time
}

// Editor 在已打开的职位/简历页上做一次小改动并重新保存，使简历保持“最近更新”
type Editor struct {
	filler   *formfill.Filler
	res      *resolver.Resolver
	drv      resolver.Driver
	nav      resolver.Navigator
	opts     EditorOptions
	recorder Recorder
	log      *log.Entry

	mu    sync.Mutex
	saved []RefreshResult
}

func NewEditor(filler *formfill.Filler, nav resolver.Navigator, opts EditorOptions, recorder Recorder, logger *log.Entry) *Editor {
	if logger == nil {
		logger = log.WithField("component", "editor")
	}
	res := filler.Resolver()
	return &Editor{
		filler:   filler,
		res:      res,
		drv:      res.Driver(),
		nav:      nav,
		opts:     opts.withDefaults(),
		recorder: recorder,
		log:      logger,
	}
}

// Refresh 进入编辑页、修改第一段文本、勾选协议、保存，最后回到原页面
func (e *Editor) Refresh(ctx context.Context) (result RefreshResult, err error) {
	if err := e.nav.BringToFront(ctx); err != nil {
		e.log.WithError(err).Warn("[刷新简历] 切换标签页到前台失败")
	}
	start, err := e.nav.URL(ctx)
	if err != nil {
		return result, fmt.Errorf("读取当前地址失败: %w", err)
	}
	result.StartURL = start
	result.At = time.Now()
	entry := e.log.WithField("url", start)
	entry.Info("[刷新简历] 开始编辑简历")

	defer func() {
		if back := e.returnTo(ctx, start); back != nil && err == nil {
			err = back
		}
		entry.WithFields(log.Fields{"edited": result.Edited, "saved": result.Saved, "total_saved": e.SavedCount()}).
			Info("[刷新简历] 编辑简历流程结束")
	}()

	if err := e.enterEditor(ctx, start); err != nil {
		entry.WithError(err).Error("[刷新简历] 流程中止")
		return result, err
	}

	// 有的站点进入后还需要再点一次“编辑”
	if err := e.drv.Sleep(ctx, e.opts.StepDelay); err != nil {
		return result, err
	}
	e.clickFirst(ctx, e.opts.EditKeywords)

	if err := e.drv.Sleep(ctx, e.opts.EditDelay); err != nil {
		return result, err
	}
	old, updated, ok := e.editFirstText(ctx)
	if ok {
		result.Edited, result.OldText, result.NewText = true, old, updated
		entry.WithFields(log.Fields{"old": old, "new": updated}).Info("[刷新简历] 简历内容已编辑")
	} else {
		entry.Warn("[刷新简历] 没有找到文本框或未进行修改")
	}

	if err := e.drv.Sleep(ctx, e.opts.StepDelay); err != nil {
		return result, err
	}
	result.Agreements = e.filler.TickAgreements(ctx, e.opts.AgreementKeywords)

	before, _ := e.nav.URL(ctx)
	if err := e.drv.Sleep(ctx, e.opts.StepDelay); err != nil {
		return result, err
	}
	match, kw, findErr := e.res.FindKeyword(ctx, e.opts.SaveKeywords, resolver.KeywordOptions{Exact: true, Reverse: true})
	if findErr != nil {
		entry.WithError(findErr).Error("[刷新简历] 未能保存简历")
		return result, fmt.Errorf("%w: %v", ErrSaveNotFound, findErr)
	}
	if err := e.filler.ClickMatch(ctx, match, kw); err != nil {
		return result, fmt.Errorf("点击保存按钮失败: %w", err)
	}
	result.SaveKeyword = kw

	if err := e.drv.Sleep(ctx, e.opts.StepDelay); err != nil {
		return result, err
	}
	e.clickFirst(ctx, e.opts.ConfirmKeywords)
	if err := e.drv.Sleep(ctx, e.opts.EditDelay); err != nil {
		return result, err
	}

	after, _ := e.nav.URL(ctx)
	if after != before {
		result.Saved = true
		result.SavedURL = after
		e.remember(result)
		entry.WithField("saved_url", after).Info("[刷新简历] 简历已保存并跳转成功")
		if e.recorder != nil {
			if err := e.recorder.RecordSaved(start, after); err != nil {
				entry.WithError(err).Error("[刷新简历] 保存记录失败")
			}
		}
	}
	return result, nil
}

// enterEditor 先点“编辑”，地址没变再从用户菜单进入“我的简历”
func (e *Editor) enterEditor(ctx context.Context, start string) error {
	e.clickFirst(ctx, e.opts.EditKeywords)
	if url, _ := e.nav.URL(ctx); url != start {
		return nil
	}

	e.log.Info("[刷新简历] 尝试从用户菜单进入个人简历页")
	e.hoverFirst(ctx, e.opts.UserBarKeywords)
	e.clickFirst(ctx, e.opts.MyResumeKeywords)
	if url, _ := e.nav.URL(ctx); url != start {
		return nil
	}
	return ErrEditorUnreachable
}

func (e *Editor) returnTo(ctx context.Context, start string) error {
	current, err := e.nav.URL(ctx)
	if err == nil && current == start {
		return nil
	}
	if err := e.drv.Sleep(ctx, e.opts.ClickSettle); err != nil {
		return err
	}
	if err := e.nav.AcceptDialogs(ctx); err != nil {
		e.log.WithError(err).Warn("[刷新简历] 注册弹窗处理失败")
	}
	e.log.WithField("url", start).Info("[刷新简历] 返回原页面")
	if err := e.nav.Navigate(ctx, start); err != nil {
		return fmt.Errorf("返回原页面失败: %w", err)
	}
	return nil
}

func (e *Editor) clickFirst(ctx context.Context, keywords []string) bool {
	match, kw, err := e.res.FindKeyword(ctx, keywords, resolver.KeywordOptions{})
	if err != nil {
		return false
	}
	if err := e.filler.ClickMatch(ctx, match, kw); err != nil {
		e.log.WithError(err).WithField("query", kw).Warn("[点击关键词] 点击失败")
		return false
	}
	return e.drv.Sleep(ctx, e.opts.ClickSettle) == nil
}

func (e *Editor) hoverFirst(ctx context.Context, keywords []string) bool {
	match, kw, err := e.res.FindKeyword(ctx, keywords, resolver.KeywordOptions{})
	if err != nil {
		return false
	}
	c := match.Box.Center()
	if err := e.drv.MouseMove(ctx, c.X, c.Y); err != nil {
		e.log.WithError(err).WithField("query", kw).Warn("[悬停关键词] 悬停失败")
		return false
	}
	e.log.WithField("query", kw).Info("[悬停关键词] 已悬停")
	return e.drv.Sleep(ctx, e.opts.HoverSettle) == nil
}

// editFirstText 修改第一个可见且内容足够长的多行/单行文本框
func (e *Editor) editFirstText(ctx context.Context) (string, string, bool) {
	for _, sel := range []string{"textarea", `input[type="text"]`} {
		nodes, err := e.drv.QueryAll(ctx, nil, sel)
		if err != nil {
			continue
		}
		for _, n := range nodes {
			box, err := resolver.VisibleBox(ctx, e.drv, n)
			if err != nil || box == nil {
				continue
			}
			value, err := e.drv.Value(ctx, n)
			if err != nil || value == "" {
				if value, err = e.drv.Text(ctx, n); err != nil {
					continue
				}
			}
			if utf8.RuneCountInString(value) < e.opts.MinTextLength {
				continue
			}
			updated := ModifyText(value)
			if err := e.filler.Replace(ctx, n, updated); err != nil {
				e.log.WithError(err).Warn("[编辑文本] 输入新内容失败")
				continue
			}
			return value, updated, true
		}
	}
	return "", "", false
}

// ModifyText 切换末尾标点，没有标点时追加句号
func ModifyText(text string) string {
	switch {
	case strings.HasSuffix(text, "，"):
		return strings.TrimSuffix(text, "，") + "。"
	case strings.HasSuffix(text, "。"):
		return strings.TrimSuffix(text, "。") + "，"
	default:
		return text + "。"
	}
}

func (e *Editor) remember(r RefreshResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.saved = append(e.saved, r)
}

// SavedCount 本进程内成功保存的次数
func (e *Editor) SavedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.saved)
}

// Saved 返回成功保存的记录副本
func (e *Editor) Saved() []RefreshResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]RefreshResult, len(e.saved))
	copy(out, e.saved)
	return out
}
