// Package boss Boss直聘推荐列表自动投递
package boss

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	locators "auto_resume_go/Locators"
	"auto_resume_go/model"
	"auto_resume_go/resolver"
	"auto_resume_go/service"
	"auto_resume_go/utils"
	"auto_resume_go/worker/task"
)

// Options 投递节奏
type Options struct {
	MaxListMisses  int
	MaxApplyErrors int
	ScrollFraction float64
	// NoMoreWait 没有新卡片、返回上一页或刷新之后的等待
	NoMoreWait time.Duration
	// ActionDelay 每处理一张卡片后的等待
	ActionDelay time.Duration
	RetryWait   time.Duration
	DetailWait  time.Duration
	ChatWait    time.Duration
	ListTimeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		MaxListMisses:  3,
		MaxApplyErrors: 3,
		ScrollFraction: 0.8,
		NoMoreWait:     5 * time.Second,
		ActionDelay:    time.Second,
		RetryWait:      3 * time.Second,
		DetailWait:     2500 * time.Millisecond,
		ChatWait:       2 * time.Second,
		ListTimeout:    8 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxListMisses <= 0 {
		o.MaxListMisses = d.MaxListMisses
	}
	if o.MaxApplyErrors <= 0 {
		o.MaxApplyErrors = d.MaxApplyErrors
	}
	if o.ScrollFraction <= 0 {
		o.ScrollFraction = d.ScrollFraction
	}
	if o.NoMoreWait <= 0 {
		o.NoMoreWait = d.NoMoreWait
	}
	if o.ActionDelay <= 0 {
		o.ActionDelay = d.ActionDelay
	}
	if o.RetryWait <= 0 {
		o.RetryWait = d.RetryWait
	}
	if o.DetailWait <= 0 {
		o.DetailWait = d.DetailWait
	}
	if o.ChatWait <= 0 {
		o.ChatWait = d.ChatWait
	}
	if o.ListTimeout <= 0 {
		o.ListTimeout = d.ListTimeout
	}
	return o
}

// ErrNotLoggedIn 页面未登录Boss直聘
var ErrNotLoggedIn = errors.New("请先登录Boss直聘")

// Applier 单线程地逐张处理推荐列表中的职位卡片
type Applier struct {
	board  Board
	jobs   *service.AppliedJobService
	opts   Options
	runner *task.Runner
	state  *ApplyState
	sleep  func(ctx context.Context, d time.Duration) error
	log    *log.Entry
}

func NewApplier(board Board, jobs *service.AppliedJobService, opts Options, logger *log.Entry) *Applier {
	if logger == nil {
		logger = log.WithField("component", "boss")
	}
	opts = opts.withDefaults()
	return &Applier{
		board:  board,
		jobs:   jobs,
		opts:   opts,
		runner: task.NewRunner("boss"),
		state:  NewApplyState(opts.MaxListMisses, opts.MaxApplyErrors),
		sleep:  resolver.SleepContext,
		log:    logger,
	}
}

func (a *Applier) IsRunning() bool {
	return a.runner.IsRunning()
}

// Status 运行状态，供控制台日志使用
func (a *Applier) Status() map[string]interface{} {
	return a.runner.GetStatus()
}

// Run 阻塞运行投递循环直到 Stop 或 ctx 取消；已在运行时只提示
func (a *Applier) Run(ctx context.Context, progress task.ProgressFunc) error {
	return a.runner.Execute(ctx, progress, func(ctx context.Context, report task.Reporter) error {
		if !a.board.LoggedIn(ctx) {
			return ErrNotLoggedIn
		}
		a.state.Reset()
		if a.jobs != nil {
			if n, err := a.jobs.Load(); err != nil {
				a.log.WithError(err).Warn("[BossAuto] 读取已处理职位失败")
			} else {
				a.log.WithField("count", n).Info("[BossAuto] 已加载处理过的职位")
			}
		}
		defer func() {
			a.state.Reset()
			if a.jobs != nil {
				a.jobs.Reset()
			}
		}()
		report("info", "自动投递已启动！将按顺序处理职位。")
		a.loop(ctx, report)
		report("info", "自动投递已完全停止。")
		return nil
	})
}

// Stop 请求停止，当前卡片处理完后退出
func (a *Applier) Stop() {
	if !a.runner.IsRunning() {
		a.log.Info("[BossAuto] 自动投递当前未运行。")
		return
	}
	a.runner.Stop()
	a.log.Info("[BossAuto] 自动投递停止指令已发出，当前操作完成后将完全停止。")
}

func (a *Applier) loop(ctx context.Context, report task.Reporter) {
	for ctx.Err() == nil && !a.runner.ShouldStop() {
		out := a.Step(ctx)
		var wait time.Duration
		switch out {
		case GoBack:
			if err := a.board.GoBack(ctx); err != nil {
				report("error", fmt.Sprintf("返回上一页失败: %v，停止自动投递", err))
				return
			}
			a.state.ResetQueue()
			a.state.ApplyErrors = 0
			wait = a.opts.NoMoreWait
		case RefreshPage:
			if err := a.board.Reload(ctx); err != nil {
				report("error", fmt.Sprintf("刷新页面失败: %v，停止自动投递", err))
				return
			}
			a.state.ResetQueue()
			a.state.ApplyErrors = 0
			wait = a.opts.NoMoreWait
		case NoMoreCards:
			a.log.Info("[BossAuto] 当前轮次未找到新的可投递卡片或已达列表底部")
			a.state.ApplyErrors = 0
			wait = a.opts.NoMoreWait
		default:
			wait = utils.Jitter(a.opts.ActionDelay)
		}
		if err := a.sleep(ctx, wait); err != nil {
			return
		}
	}
}

// Step 执行一轮：发现卡片、处理第一张可操作的卡片，或滚动列表
func (a *Applier) Step(ctx context.Context) Outcome {
	if !a.board.ListVisible(ctx, a.opts.ListTimeout) {
		out := a.state.ListMissing()
		a.log.WithField("misses", a.state.ListMisses).Warn("[BossAuto] 未找到职位列表滚动容器，可能页面已跳转或刷新")
		if out == Processed {
			_ = a.sleep(ctx, a.opts.RetryWait)
		}
		return out
	}
	a.state.ListFound()

	infos, err := a.board.Cards(ctx)
	if err != nil {
		a.log.WithError(err).Warn("[BossAuto] 读取卡片失败")
		return Processed
	}
	entries := make([]CardEntry, 0, len(infos))
	for _, info := range infos {
		id, temp := CardID(info.Href, info.DataJobID)
		entries = append(entries, CardEntry{ID: id, Temp: temp, Name: info.Name, Company: info.Company})
	}
	var processed func(string) bool
	if a.jobs != nil {
		processed = a.jobs.IsProcessed
	}
	discovered := a.state.Sync(entries, processed)
	a.log.WithFields(log.Fields{"visible": len(infos), "new": discovered}).Debug("[BossAuto] 已更新卡片队列")

	index, card, ok := a.nextActionable(ctx)
	if !ok {
		before, after, err := a.board.ScrollList(ctx, a.opts.ScrollFraction)
		if err != nil {
			a.log.WithError(err).Warn("[BossAuto] 滚动列表失败")
		}
		_ = a.sleep(ctx, a.opts.RetryWait)
		return a.state.Scrolled(err == nil && after != before)
	}

	entry := a.log.WithFields(log.Fields{"index": index + 1, "job": card.ID})
	status, err := a.apply(ctx, index)
	if err != nil {
		entry.WithError(err).Error("[BossAuto] 投递过程中发生错误")
		a.closePopups(ctx)
		a.mark(card, model.ApplyStatusFailed)
		return a.state.Failed(index)
	}
	a.mark(card, status)
	a.state.Applied(index)
	entry.WithField("status", status).Info("[BossAuto] 卡片处理完成")
	return Processed
}

func (a *Applier) nextActionable(ctx context.Context) (int, CardEntry, bool) {
	for {
		i, card, ok := a.state.Next()
		if !ok {
			return -1, CardEntry{}, false
		}
		if a.board.CardVisible(ctx, i, time.Second) {
			return i, card, true
		}
		a.log.WithFields(log.Fields{"index": i + 1, "job": card.ID}).Warn("[BossAuto] 卡片在当前页面中不可用，标记为已处理")
		a.state.MarkUnavailable(i)
	}
}

func (a *Applier) apply(ctx context.Context, index int) (string, error) {
	if err := a.board.ClickCard(ctx, index); err != nil {
		return "", err
	}
	if err := a.sleep(ctx, a.opts.DetailWait); err != nil {
		return "", err
	}

	status := model.ApplyStatusSkipped
	clicked, err := a.board.ClickIfVisible(ctx, locators.CHAT_BUTTON, 5*time.Second)
	if err != nil {
		return "", err
	}
	if clicked {
		if err := a.sleep(ctx, a.opts.ChatWait); err != nil {
			return "", err
		}
		stayed, err := a.board.ClickIfVisible(ctx, locators.STAY_BUTTON, 5*time.Second)
		if err != nil {
			return "", err
		}
		if stayed {
			status = model.ApplyStatusApplied
			a.log.Info("[BossAuto] 找到“留在此页”按钮，投递成功")
		} else if ok, _ := a.board.ClickIfVisible(ctx, locators.CHAT_DIALOG_CLOSE, 1500*time.Millisecond); ok {
			a.log.Info("[BossAuto] 未找到“留在此页”按钮，已关闭聊天窗口")
		}
	} else {
		a.log.Info("[BossAuto] 页面中未找到“立即沟通”按钮，跳过此卡片")
	}

	if ok, _ := a.board.ClickIfVisible(ctx, locators.DETAIL_CLOSE, 1500*time.Millisecond); ok {
		a.log.Debug("[BossAuto] 已关闭职位详情侧栏")
	}
	return status, nil
}

func (a *Applier) closePopups(ctx context.Context) {
	for _, sel := range []string{locators.CHAT_DIALOG_CLOSE, locators.DETAIL_CLOSE} {
		if _, err := a.board.ClickIfVisible(ctx, sel, 1500*time.Millisecond); err != nil {
			a.log.WithError(err).Debug("[BossAuto] 关闭弹窗失败")
		}
	}
}

func (a *Applier) mark(card CardEntry, status string) {
	if a.jobs == nil {
		return
	}
	if err := a.jobs.MarkProcessed(card.ID, status, card.Name, card.Company, !card.Temp); err != nil {
		a.log.WithError(err).WithField("job", card.ID).Warn("[BossAuto] 保存处理记录失败")
	}
}
