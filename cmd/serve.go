package cmd

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"auto_resume_go/application"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动浏览器、定时任务和命令行控制台",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log.Info("🚀 启动简历自动化助手...")
	app := application.NewApplication(cfg)
	if err := app.InitServices(); err != nil {
		return fmt.Errorf("服务初始化失败: %w", err)
	}
	if err := app.InitBrowser(context.Background()); err != nil {
		app.Shutdown()
		return err
	}
	if err := app.Start(); err != nil {
		app.Shutdown()
		return fmt.Errorf("应用程序启动失败: %w", err)
	}
	app.Serve(os.Stdin, cmd.OutOrStdout())
	log.Info("👋 应用程序已退出")
	return nil
}
