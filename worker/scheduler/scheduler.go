// Package scheduler 按 cron 表达式定时执行页面刷新和简历编辑
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// JobFunc 定时任务体，ctx 在调度器停止时取消
type JobFunc func(ctx context.Context)

// EntryInfo 已注册任务的调度信息
type EntryInfo struct {
	Name string
	Spec string
	Next time.Time
	Prev time.Time
}

type job struct {
	name string
	spec string
	id   cron.EntryID
	fn   JobFunc
}

type Scheduler struct {
	cron *cron.Cron

	mu     sync.Mutex
	jobs   map[string]*job
	order  []string
	ctx    context.Context
	cancel context.CancelFunc

	log *log.Entry
}

func New(logger *log.Entry) *Scheduler {
	if logger == nil {
		logger = log.WithField("component", "scheduler")
	}
	cronLogger := cron.PrintfLogger(logger)
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		jobs:   make(map[string]*job),
		ctx:    ctx,
		cancel: cancel,
		log:    logger,
	}
}

// ValidateSpec 校验标准五段式表达式
func ValidateSpec(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("无效的定时表达式 %q: %w", spec, err)
	}
	return nil
}

// Add 注册任务；上一轮还没结束时跳过本轮
func (s *Scheduler) Add(name, spec string, fn JobFunc) error {
	if err := ValidateSpec(spec); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("定时任务 %s 已存在", name)
	}
	j := &job{name: name, spec: spec, fn: fn}
	id, err := s.cron.AddFunc(spec, func() { s.run(j) })
	if err != nil {
		return fmt.Errorf("注册定时任务 %s 失败: %w", name, err)
	}
	j.id = id
	s.jobs[name] = j
	s.order = append(s.order, name)
	s.log.WithFields(log.Fields{"job": name, "spec": spec}).Info("[定时任务] 已注册")
	return nil
}

func (s *Scheduler) run(j *job) {
	entry := s.log.WithField("job", j.name)
	entry.WithField("at", time.Now().Format("2006-01-02 15:04:05")).Info("[定时任务] 开始执行")
	start := time.Now()
	j.fn(s.ctx)
	entry.WithField("elapsed", time.Since(start).Round(time.Millisecond)).Info("[定时任务] 执行结束")
}

// RunNow 立即同步执行一次已注册的任务
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("定时任务 %s 不存在", name)
	}
	s.run(j)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("[定时任务] 调度器已启动")
}

// Stop 停止调度并取消正在运行的任务，等待它们退出或 ctx 到期
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info("[定时任务] 调度器已停止")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("等待定时任务结束超时: %w", ctx.Err())
	}
}

// Entries 按注册顺序返回任务的下次执行时间
func (s *Scheduler) Entries() []EntryInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]EntryInfo, 0, len(s.order))
	for _, name := range s.order {
		j := s.jobs[name]
		e := s.cron.Entry(j.id)
		out = append(out, EntryInfo{Name: name, Spec: j.spec, Next: e.Next, Prev: e.Prev})
	}
	return out
}
