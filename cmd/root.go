package cmd

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"auto_resume_go/config"
)

var (
	configPath string
	logLevel   string
	cfg        *config.GlobalConfig
)

var rootCmd = &cobra.Command{
	Use:          "auto-resume",
	Short:        "在线简历自动填写、定时刷新与Boss直聘自动投递",
	Long:         "打开配置的招聘网站页面，按标签就近定位输入框自动填写简历，定时编辑保存以保持简历活跃，并可在Boss直聘推荐列表中逐张自动投递。",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.InitConfig(configPath)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}
		if logLevel != "" {
			loaded.Log.Level = logLevel
		}
		if err := loaded.Log.Apply(); err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

// Execute 执行根命令，失败时以非零状态退出
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Error("❌ 执行失败")
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径，默认在 ./config 和项目根目录的 config 下查找 config.yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别: debug, info, warn, error")
}
