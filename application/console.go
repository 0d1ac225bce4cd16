package application

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Commands 控制台可以触发的操作
type Commands interface {
	RefreshPages(ctx context.Context) error
	EditResumes(ctx context.Context) error
	FillResume(ctx context.Context) error
	StartApply(ctx context.Context) error
	StopApply(ctx context.Context) error
}

const consoleHelp = "[提示] 输入命令：re、edit、fill、bstart 或 bstop"

// Console 逐行读取标准输入并执行命令
type Console struct {
	cmds     Commands
	out      io.Writer
	handlers map[string]func(ctx context.Context) error
	log      *log.Entry
}

func NewConsole(cmds Commands, out io.Writer) *Console {
	c := &Console{cmds: cmds, out: out, log: log.WithField("component", "console")}
	c.handlers = map[string]func(ctx context.Context) error{
		"re":     cmds.RefreshPages,
		"edit":   cmds.EditResumes,
		"fill":   cmds.FillResume,
		"bstart": cmds.StartApply,
		"bstop":  cmds.StopApply,
	}
	return c
}

// Dispatch 执行一行输入，未知命令打印提示；空行忽略
func (c *Console) Dispatch(ctx context.Context, line string) error {
	command := strings.ToLower(strings.TrimSpace(line))
	if command == "" {
		return nil
	}
	handler, ok := c.handlers[command]
	if !ok {
		fmt.Fprintln(c.out, consoleHelp)
		return nil
	}
	if err := handler(ctx); err != nil {
		c.log.WithError(err).WithField("command", command).Error("[指令] 执行失败")
		return err
	}
	return nil
}

// Run 读取输入直到 EOF 或 ctx 取消
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- scanner.Err()
		close(lines)
	}()

	fmt.Fprintln(c.out, consoleHelp)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return <-errc
			}
			_ = c.Dispatch(ctx, line)
		}
	}
}

// consoleCommands 把应用程序的方法适配成控制台命令
type consoleCommands struct {
	app *Application
}

func (c consoleCommands) RefreshPages(ctx context.Context) error {
	return c.app.RefreshPages(ctx)
}

func (c consoleCommands) EditResumes(ctx context.Context) error {
	c.app.EditResumes(ctx, true)
	return nil
}

func (c consoleCommands) FillResume(ctx context.Context) error {
	_, err := c.app.FillResume(ctx, "")
	return err
}

func (c consoleCommands) StartApply(ctx context.Context) error {
	return c.app.StartApply(ctx)
}

func (c consoleCommands) StopApply(ctx context.Context) error {
	c.app.StopApply()
	return nil
}

// Console 绑定到当前应用程序的控制台
func (app *Application) Console(out io.Writer) *Console {
	return NewConsole(consoleCommands{app: app}, out)
}
