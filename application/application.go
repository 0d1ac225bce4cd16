// Package application 组装数据库、浏览器、定时任务和各个自动化流程
package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
	"gorm.io/gorm"

	"auto_resume_go/config"
	"auto_resume_go/driver"
	"auto_resume_go/driver/pwdriver"
	"auto_resume_go/formfill"
	"auto_resume_go/repository"
	"auto_resume_go/resolver"
	"auto_resume_go/service"
	"auto_resume_go/utils"
	"auto_resume_go/worker/boss"
	"auto_resume_go/worker/browser_manager"
	"auto_resume_go/worker/resume"
	"auto_resume_go/worker/scheduler"
	"auto_resume_go/worker/task"
)

// 定时任务名称
const (
	JobRefresh = "refresh"
	JobEdit    = "edit"
)

type Application struct {
	cfg *config.GlobalConfig
	db  *gorm.DB

	cookieService     *service.CookieService
	resumeService     *service.ResumeService
	appliedJobService *service.AppliedJobService

	browser   *browser_manager.Manager
	scheduler *scheduler.Scheduler
	applier   *boss.Applier

	// pages 同一时间只允许一个流程操作配置的标签页
	pages *semaphore.Weighted

	editorsMu sync.Mutex
	editors   map[string]*resume.Editor

	wg  sync.WaitGroup
	log *log.Entry
}

// NewApplication 创建新的应用程序实例
func NewApplication(cfg *config.GlobalConfig) *Application {
	return &Application{
		cfg:     cfg,
		pages:   semaphore.NewWeighted(1),
		editors: make(map[string]*resume.Editor),
		log:     log.WithField("component", "app"),
	}
}

// InitDatabase 初始化数据库连接
func (app *Application) InitDatabase() error {
	app.log.Info("初始化数据库连接...")
	dbCfg := app.cfg.Database
	dsn := dbCfg.DSN
	if dbCfg.Dialect == "sqlite" && dsn != ":memory:" {
		dsn = utils.ResolvePath(dsn)
	}
	db, err := repository.Open(dbCfg.Dialect, dsn, dbCfg.MaxIdleConns, dbCfg.MaxOpenConns)
	if err != nil {
		return fmt.Errorf("数据库初始化失败: %w", err)
	}
	app.db = db
	app.log.WithField("dialect", dbCfg.Dialect).Info("✓ 数据库连接成功，表迁移完成")
	return nil
}

// InitServices 初始化数据库和所有服务，不启动浏览器
func (app *Application) InitServices() error {
	app.log.Info("========================================")
	app.log.Info("   初始化应用程序服务")
	app.log.Info("========================================")

	if app.db == nil {
		if err := app.InitDatabase(); err != nil {
			return err
		}
	}
	app.cookieService = service.NewCookieService(repository.NewCookieRepository(app.db))
	app.resumeService = service.NewResumeService(repository.NewSavedResumeRepository(app.db))
	app.appliedJobService = service.NewAppliedJobService(repository.NewAppliedJobRepository(app.db))
	app.scheduler = scheduler.New(log.WithField("component", "scheduler"))
	app.log.Info("✓ 所有服务初始化完成")
	return nil
}

// InitBrowser 启动浏览器并打开配置的页面
func (app *Application) InitBrowser(ctx context.Context) error {
	if err := app.cfg.RequireURLs(); err != nil {
		return err
	}
	session, err := browser_manager.Launch(ctx, app.cfg.Browser)
	if err != nil {
		return fmt.Errorf("启动浏览器失败: %w", err)
	}
	return app.UseSession(ctx, session)
}

// UseSession 使用已经启动的浏览器会话
func (app *Application) UseSession(ctx context.Context, session driver.Session) error {
	manager, err := browser_manager.NewManager(session, app.cookieService, app.cfg.Browser.URLs, log.WithField("component", "browser"))
	if err != nil {
		_ = session.Close()
		return err
	}
	app.browser = manager
	if err := manager.Init(ctx); err != nil {
		app.log.WithError(err).Warn("部分页面打开失败，可以稍后输入 re 重试")
	}
	return nil
}

// Start 注册并启动定时任务
func (app *Application) Start() error {
	app.log.Info("========================================")
	app.log.Info("   启动简历自动化助手")
	app.log.Info("========================================")

	sched := app.cfg.Schedule
	if err := app.scheduler.Add(JobRefresh, sched.RefreshTime, func(ctx context.Context) {
		app.ReloadPages(ctx)
	}); err != nil {
		return err
	}
	if err := app.scheduler.Add(JobEdit, sched.EditTime, func(ctx context.Context) {
		app.EditResumes(ctx, false)
	}); err != nil {
		return err
	}
	app.scheduler.Start()
	for _, e := range app.scheduler.Entries() {
		app.log.WithFields(log.Fields{"job": e.Name, "spec": e.Spec, "next": e.Next.Format("2006-01-02 15:04:05")}).Info("[定时任务] 下次执行")
	}
	app.log.Info("✓ 浏览器已启动，定时器运行中，等待倒计时或指令...")
	return nil
}

// Stop 停止应用程序
func (app *Application) Stop(ctx context.Context) error {
	app.log.Info("========================================")
	app.log.Info("   停止应用程序")
	app.log.Info("========================================")

	var errs []error
	if app.applier != nil {
		app.applier.Stop()
	}
	if app.scheduler != nil {
		if err := app.scheduler.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	done := make(chan struct{})
	go func() {
		app.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("等待后台任务结束超时: %w", ctx.Err()))
	}

	if app.browser != nil {
		app.log.Info("关闭浏览器...")
		if err := app.browser.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if app.db != nil {
		app.log.Info("关闭数据库连接...")
		if sqlDB, err := app.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) == 0 {
		app.log.Info("✓ 应用程序已安全停止")
	}
	return errors.Join(errs...)
}

// RefreshPages 打开还没有打开的配置页面
func (app *Application) RefreshPages(ctx context.Context) error {
	if app.browser == nil {
		return errBrowserNotReady
	}
	release, err := app.lockPages(ctx)
	if err != nil {
		return err
	}
	defer release()
	app.log.Info("[指令] 刷新/打开网页...")
	_, err = app.browser.RefreshOrOpenPages(ctx)
	return err
}

// ReloadPages 重新加载全部配置页面
func (app *Application) ReloadPages(ctx context.Context) {
	if app.browser == nil {
		return
	}
	release, err := app.lockPages(ctx)
	if err != nil {
		app.log.WithError(err).Warn("[定时任务] 页面刷新已取消")
		return
	}
	defer release()
	n := app.browser.ReloadAll(ctx)
	app.log.WithField("count", n).Info("[定时任务] 页面刷新完成")
}

var errBrowserNotReady = errors.New("浏览器尚未启动")

// lockPages 等待其他标签页流程结束，返回的函数释放占用
func (app *Application) lockPages(ctx context.Context) (func(), error) {
	if err := app.pages.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("等待其他页面任务结束失败: %w", err)
	}
	return func() { app.pages.Release(1) }, nil
}

// EditResumes 在每个标签页上刷新一次简历；onlyMatching 时跳过已离开配置站点的标签
func (app *Application) EditResumes(ctx context.Context, onlyMatching bool) []resume.RefreshResult {
	if app.browser == nil {
		app.log.Warn(errBrowserNotReady.Error())
		return nil
	}
	release, err := app.lockPages(ctx)
	if err != nil {
		app.log.WithError(err).Warn("[编辑简历] 已取消")
		return nil
	}
	defer release()
	app.log.Info("[指令] 开始编辑简历...")
	tabs := app.browser.Tabs()
	if onlyMatching {
		tabs = app.browser.MatchingTabs(ctx)
	}
	results := make([]resume.RefreshResult, 0, len(tabs))
	for _, tab := range tabs {
		if ctx.Err() != nil {
			break
		}
		res, err := app.editorFor(tab).Refresh(ctx)
		if err != nil {
			app.log.WithError(err).WithField("url", tab.URL).Error("[编辑失败]")
			continue
		}
		results = append(results, res)
	}
	saved := 0
	for _, r := range results {
		if r.Saved {
			saved++
		}
	}
	app.log.WithField("saved", saved).Infof("[统计] 本次成功保存简历 %d 条", saved)
	if app.resumeService != nil {
		app.resumeService.LogStatistics()
	}
	return results
}

func (app *Application) editorFor(tab *browser_manager.Tab) *resume.Editor {
	app.editorsMu.Lock()
	defer app.editorsMu.Unlock()
	if e, ok := app.editors[tab.URL]; ok {
		return e
	}
	logger := log.WithFields(log.Fields{"component": "editor", "tab": tab.Host})
	e := resume.NewEditor(app.filler(tab.Page, logger), tab.Page, resume.DefaultEditorOptions(), app.resumeService, logger)
	app.editors[tab.URL] = e
	return e
}

func (app *Application) filler(page resolver.Page, logger *log.Entry) *formfill.Filler {
	res := resolver.New(page, app.cfg.Resolver.Options(), logger)
	return formfill.New(res, app.cfg.Fill.Options(), logger)
}

// FillResume 读取简历数据并在标签页上自动填写；url 为空时使用第一个配置页面
func (app *Application) FillResume(ctx context.Context, url string) (resume.Summary, error) {
	if app.browser == nil {
		return resume.Summary{}, errBrowserNotReady
	}
	data, err := app.resumeService.LoadResume(utils.ResolvePath(app.cfg.Resume.DataFile))
	if err != nil {
		return resume.Summary{}, err
	}
	release, err := app.lockPages(ctx)
	if err != nil {
		return resume.Summary{}, err
	}
	defer release()
	page, err := app.pageFor(ctx, url)
	if err != nil {
		return resume.Summary{}, err
	}
	if err := page.BringToFront(ctx); err != nil {
		app.log.WithError(err).Warn("[自动填写] 切换标签页到前台失败")
	}

	logger := log.WithField("component", "autofill")
	opts := resume.DefaultAutofillOptions()
	if d := app.cfg.Fill.Delay; d > 0 {
		opts.Delay = d
	}
	if d := app.cfg.Fill.ContainerTimeout; d > 0 {
		opts.ContainerTimeout = d
	}
	if len(app.cfg.Fill.SaveKeywords) > 0 {
		opts.SaveKeywords = app.cfg.Fill.SaveKeywords
	}
	start := time.Now()
	summary := resume.NewAutofiller(app.filler(page, logger), opts, logger).Run(ctx, data)
	app.log.WithFields(log.Fields{
		"sessions": len(summary.Sessions),
		"aborted":  summary.Aborted(),
		"elapsed":  utils.FormatDuration(time.Since(start)),
	}).Info("[自动填写] 结束")
	return summary, ctx.Err()
}

func (app *Application) pageFor(ctx context.Context, url string) (resolver.Page, error) {
	if url == "" {
		tabs := app.browser.Tabs()
		if len(tabs) == 0 {
			return nil, errors.New("没有已打开的页面")
		}
		return tabs[0].Page, nil
	}
	if page, ok := app.browser.PageFor(url); ok {
		return page, nil
	}
	return app.browser.Session().NewPage(ctx, url)
}

// StartApply 在后台启动Boss直聘自动投递，已在运行时只提示
func (app *Application) StartApply(ctx context.Context) error {
	if app.browser == nil {
		return errBrowserNotReady
	}
	if app.applier == nil {
		if app.cfg.Browser.Driver != config.DriverPlaywright {
			return fmt.Errorf("自动投递需要 %s 驱动", config.DriverPlaywright)
		}
		page, err := app.bossPage(ctx)
		if err != nil {
			return err
		}
		raw, ok := pwdriver.Unwrap(page)
		if !ok {
			return fmt.Errorf("自动投递需要 %s 驱动", config.DriverPlaywright)
		}
		b := app.cfg.Boss
		app.applier = boss.NewApplier(boss.NewPlaywrightBoard(raw), app.appliedJobService, boss.Options{
			MaxListMisses:  b.MaxListMisses,
			MaxApplyErrors: b.MaxApplyErrors,
			ScrollFraction: b.ScrollFraction,
			NoMoreWait:     b.NoMoreWait,
			ActionDelay:    b.ActionDelay,
		}, log.WithField("component", "boss"))
	}
	if app.applier.IsRunning() {
		app.log.Info("[BossAuto] 自动投递已在运行中。")
		return nil
	}
	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		if err := app.applier.Run(ctx, task.LogProgress); err != nil {
			app.log.WithError(err).Error("[BossAuto] 自动投递异常结束")
		}
	}()
	return nil
}

// StopApply 停止自动投递
func (app *Application) StopApply() {
	if app.applier == nil {
		app.log.Info("[BossAuto] 自动投递当前未运行。")
		return
	}
	app.applier.Stop()
	app.log.WithFields(app.applier.Status()).Debug("[BossAuto] 当前状态")
}

// bossPage 自动投递单独使用一个停在推荐列表的标签页，不与定时刷新和简历编辑共用
func (app *Application) bossPage(ctx context.Context) (resolver.Page, error) {
	listURL := app.cfg.Boss.ListURL
	if _, err := driver.Host(listURL); err != nil {
		return nil, fmt.Errorf("boss.listUrl: %w", err)
	}
	page, err := app.browser.Session().NewPage(ctx, listURL)
	if err != nil {
		return nil, fmt.Errorf("打开职位列表页失败: %w", err)
	}
	return page, nil
}
