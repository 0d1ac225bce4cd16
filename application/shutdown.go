package application

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// ShutdownTimeout 优雅关闭的最长等待
const ShutdownTimeout = 30 * time.Second

// Serve 启动控制台并阻塞到收到关闭信号，然后停止应用程序
func (app *Application) Serve(in io.Reader, out io.Writer) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := app.Console(out).Run(ctx, in); err != nil && ctx.Err() == nil {
			app.log.WithError(err).Warn("控制台输入已关闭")
		}
	}()

	// 创建信号监听通道
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sigChan)

	sig := <-sigChan
	app.log.Infof("接收到信号: %v，开始优雅关闭...", sig)
	cancel()
	app.Shutdown()
}

// Shutdown 在超时时间内停止应用程序
func (app *Application) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	// 在单独的goroutine中执行关闭操作
	done := make(chan error, 1)
	go func() {
		done <- app.Stop(ctx)
	}()

	select {
	case err := <-done:
		if err != nil {
			app.log.WithError(err).Warn("应用程序关闭时出现错误")
			return
		}
		app.log.Info("✓ 应用程序优雅关闭完成")
	case <-ctx.Done():
		app.log.Warn("⚠️ 关闭超时，强制退出")
	}
}
