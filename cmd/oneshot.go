package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"auto_resume_go/application"
)

var (
	fillURL  string
	fillData string
)

var fillCmd = &cobra.Command{
	Use:   "fill",
	Short: "在页面上自动填写一次简历",
	RunE: func(cmd *cobra.Command, args []string) error {
		if fillData != "" {
			cfg.Resume.DataFile = fillData
		}
		return withApp(func(ctx context.Context, app *application.Application) error {
			summary, err := app.FillResume(ctx, fillURL)
			if err != nil {
				return err
			}
			for _, s := range summary.Sessions {
				fmt.Fprintf(cmd.OutOrStdout(), "%s #%d: 填写 %d/%d 个字段，保存方式 %s\n",
					s.Module, s.Record, s.Filled(), len(s.Fields), s.SavedVia)
			}
			return nil
		})
	},
}

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "在所有配置页面上刷新一次简历",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, app *application.Application) error {
			for _, r := range app.EditResumes(ctx, true) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s saved=%v\n", r.StartURL, r.SavedURL, r.Saved)
			}
			return nil
		})
	},
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "在Boss直聘推荐列表中自动投递，直到收到中断信号",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, app *application.Application) error {
			if err := app.StartApply(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			app.StopApply()
			return nil
		})
	},
}

func init() {
	fillCmd.Flags().StringVar(&fillURL, "url", "", "要填写的页面，默认使用第一个配置页面")
	fillCmd.Flags().StringVar(&fillData, "data", "", "简历数据文件(yaml/json)，覆盖配置中的 resume.dataFile")
	rootCmd.AddCommand(fillCmd, editCmd, applyCmd)
}

// withApp 启动浏览器执行一次操作，结束或收到中断信号后关闭
func withApp(fn func(ctx context.Context, app *application.Application) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := application.NewApplication(cfg)
	if err := app.InitServices(); err != nil {
		return fmt.Errorf("服务初始化失败: %w", err)
	}
	defer app.Shutdown()
	if err := app.InitBrowser(ctx); err != nil {
		return err
	}
	if err := fn(ctx, app); err != nil {
		log.WithError(err).Error("[指令] 执行失败")
		return err
	}
	return nil
}
