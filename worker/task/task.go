// Package task 管理后台任务的运行状态和进度回调
package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// JobProgressMessage 任务进度消息
type JobProgressMessage struct {
	Platform  string `json:"platform"`
	Type      string `json:"type"` // info, warning, error, progress, success
	Message   string `json:"message"`
	Current   *int   `json:"current,omitempty"`
	Total     *int   `json:"total,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// ProgressFunc 进度回调
type ProgressFunc func(message JobProgressMessage)

// Reporter 任务体内部上报进度
type Reporter func(msgType, message string)

// LogProgress 默认进度回调，输出到日志
func LogProgress(message JobProgressMessage) {
	entry := log.WithFields(log.Fields{"platform": message.Platform, "type": message.Type})
	if message.Current != nil && message.Total != nil {
		entry = entry.WithField("progress", fmt.Sprintf("%d/%d", *message.Current, *message.Total))
	}
	switch message.Type {
	case "error":
		entry.Error(message.Message)
	case "warning":
		entry.Warn(message.Message)
	default:
		entry.Info(message.Message)
	}
}

// Runner 同一个任务同一时间只运行一次，可以请求停止
type Runner struct {
	platform string

	running     bool
	shouldStop  bool
	cancel      context.CancelFunc
	statusMutex sync.RWMutex
}

func NewRunner(platform string) *Runner {
	return &Runner{platform: platform}
}

// Execute 运行任务；已经在运行时只发出警告。Stop 会取消传给 fn 的 context
func (r *Runner) Execute(ctx context.Context, progress ProgressFunc, fn func(ctx context.Context, report Reporter) error) error {
	if progress == nil {
		progress = LogProgress
	}
	r.statusMutex.Lock()
	if r.running {
		r.statusMutex.Unlock()
		progress(r.message("warning", "任务已在运行中"))
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	r.running = true
	r.shouldStop = false
	r.cancel = cancel
	r.statusMutex.Unlock()

	defer func() {
		cancel()
		r.statusMutex.Lock()
		r.running = false
		r.shouldStop = false
		r.cancel = nil
		r.statusMutex.Unlock()
	}()

	progress(r.message("info", "开始执行任务..."))
	err := fn(ctx, func(msgType, message string) {
		progress(r.message(msgType, message))
	})
	if err != nil {
		progress(r.message("error", "任务执行失败: "+err.Error()))
		return err
	}
	progress(r.message("success", "任务执行完成"))
	return nil
}

// Stop 请求停止正在运行的任务
func (r *Runner) Stop() {
	r.statusMutex.Lock()
	defer r.statusMutex.Unlock()

	if r.running {
		r.shouldStop = true
		if r.cancel != nil {
			r.cancel()
		}
		log.WithField("platform", r.platform).Info("收到停止任务的请求")
	}
}

// ShouldStop 供任务体轮询
func (r *Runner) ShouldStop() bool {
	r.statusMutex.RLock()
	defer r.statusMutex.RUnlock()
	return r.shouldStop
}

// IsRunning 检查是否正在运行
func (r *Runner) IsRunning() bool {
	r.statusMutex.RLock()
	defer r.statusMutex.RUnlock()
	return r.running
}

// GetStatus 获取任务状态
func (r *Runner) GetStatus() map[string]interface{} {
	r.statusMutex.RLock()
	defer r.statusMutex.RUnlock()

	return map[string]interface{}{
		"platform":  r.platform,
		"isRunning": r.running,
	}
}

func (r *Runner) message(msgType, message string) JobProgressMessage {
	return JobProgressMessage{
		Platform:  r.platform,
		Type:      msgType,
		Message:   message,
		Timestamp: time.Now().UnixMilli(),
	}
}

// Progress 带计数的进度消息
func Progress(platform, message string, current, total int) JobProgressMessage {
	return JobProgressMessage{
		Platform:  platform,
		Type:      "progress",
		Message:   message,
		Current:   &current,
		Total:     &total,
		Timestamp: time.Now().UnixMilli(),
	}
}
