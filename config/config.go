package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"auto_resume_go/formfill"
	"auto_resume_go/resolver"
	"auto_resume_go/utils"
	"auto_resume_go/worker/scheduler"
)

// 全局配置结构体
type GlobalConfig struct {
	Browser  BrowserConfig  `mapstructure:"browser"`
	Resolver ResolverConfig `mapstructure:"resolver"`
	Fill     FillConfig     `mapstructure:"fill"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Database DatabaseConfig `mapstructure:"database"`
	Resume   ResumeConfig   `mapstructure:"resume"`
	Boss     BossConfig     `mapstructure:"boss"`
	Log      LogConfig      `mapstructure:"log"`
}

// 浏览器配置
type BrowserConfig struct {
	// Driver playwright | chromedp | rod
	Driver      string   `mapstructure:"driver"`
	ChromePath  string   `mapstructure:"chromePath"`
	UserDataDir string   `mapstructure:"userDataDir"`
	Headless    bool     `mapstructure:"headless"`
	Stealth     bool     `mapstructure:"stealth"`
	Width       int      `mapstructure:"width"`
	Height      int      `mapstructure:"height"`
	URLs        []string `mapstructure:"urls"`
}

// 支持的浏览器驱动
const (
	DriverPlaywright = "playwright"
	DriverChromedp   = "chromedp"
	DriverRod        = "rod"
)

// 元素定位阈值
//
// 三个方向阈值使用指针，未配置为 nil，显式配置的 0 会保留。
type ResolverConfig struct {
	MinAncestorDepth     *int          `mapstructure:"minAncestorDepth"`
	ButtonAboveTolerance *float64      `mapstructure:"buttonAboveTolerance"`
	InputAboveTolerance  *float64      `mapstructure:"inputAboveTolerance"`
	MaxClickableText     int           `mapstructure:"maxClickableText"`
	ViewportFraction     float64       `mapstructure:"viewportFraction"`
	PollInterval         time.Duration `mapstructure:"pollInterval"`
	ScrollSettle         time.Duration `mapstructure:"scrollSettle"`
}

// 表单填写节奏
type FillConfig struct {
	Settle           time.Duration `mapstructure:"settle"`
	Delay            time.Duration `mapstructure:"delay"`
	ContainerTimeout time.Duration `mapstructure:"containerTimeout"`
	SaveKeywords     []string      `mapstructure:"saveKeywords"`
}

// 定时任务，cron 表达式
type ScheduleConfig struct {
	RefreshTime string `mapstructure:"refreshTime"`
	EditTime    string `mapstructure:"editTime"`
}

// 数据库配置
type DatabaseConfig struct {
	// Dialect mysql | sqlite
	Dialect      string `mapstructure:"dialect"`
	DSN          string `mapstructure:"dsn"`
	MaxIdleConns int    `mapstructure:"maxIdleConns"`
	MaxOpenConns int    `mapstructure:"maxOpenConns"`
}

// 简历数据
type ResumeConfig struct {
	DataFile string `mapstructure:"dataFile"`
}

// BossConfig Boss直聘自动投递配置
type BossConfig struct {
	ListURL        string        `mapstructure:"listUrl"`
	MaxListMisses  int           `mapstructure:"maxListMisses"`
	MaxApplyErrors int           `mapstructure:"maxApplyErrors"`
	ScrollFraction float64       `mapstructure:"scrollFraction"`
	NoMoreWait     time.Duration `mapstructure:"noMoreWait"`
	ActionDelay    time.Duration `mapstructure:"actionDelay"`
}

// 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ConfigRequiredError 配置缺失错误
type ConfigRequiredError struct {
	ConfigKey string
}

func (e *ConfigRequiredError) Error() string {
	return "缺少必要配置: " + e.ConfigKey
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("browser.driver", DriverPlaywright)
	v.SetDefault("browser.userDataDir", "./data/browser")
	v.SetDefault("browser.width", 1920)
	v.SetDefault("browser.height", 1080)

	def := resolver.DefaultOptions()
	v.SetDefault("resolver.maxClickableText", def.MaxClickableText)
	v.SetDefault("resolver.viewportFraction", def.ViewportFraction)
	v.SetDefault("resolver.pollInterval", def.PollInterval)
	v.SetDefault("resolver.scrollSettle", def.ScrollSettle)

	v.SetDefault("fill.settle", formfill.DefaultOptions().Settle)
	v.SetDefault("fill.delay", time.Second)
	v.SetDefault("fill.containerTimeout", 5*time.Second)

	v.SetDefault("schedule.refreshTime", "*/30 * * * *")
	v.SetDefault("schedule.editTime", "0 */2 * * *")

	v.SetDefault("database.dialect", "sqlite")
	v.SetDefault("database.dsn", "./data/auto_resume.db")
	v.SetDefault("database.maxIdleConns", 10)
	v.SetDefault("database.maxOpenConns", 100)

	v.SetDefault("resume.dataFile", "./config/resume.yaml")

	v.SetDefault("boss.listUrl", "https://www.zhipin.com/web/geek/jobs")
	v.SetDefault("boss.maxListMisses", 3)
	v.SetDefault("boss.maxApplyErrors", 3)
	v.SetDefault("boss.scrollFraction", 0.8)
	v.SetDefault("boss.noMoreWait", 5*time.Second)
	v.SetDefault("boss.actionDelay", time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// InitConfig 初始化配置；path 为空时在项目的 config 目录下查找 config.yaml
//
// 环境变量以 AUTORESUME_ 为前缀覆盖配置，例如 AUTORESUME_DATABASE_DSN。
func InitConfig(path string) (*GlobalConfig, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("AUTORESUME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config") // 配置文件名称（不带扩展名）
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		if root, err := utils.GetProjectRoot(); err == nil {
			v.AddConfigPath(filepath.Join(root, "config"))
		}
	}

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		if _, missing := err.(viper.ConfigFileNotFoundError); !missing || path != "" {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	// 解析配置文件到结构体
	var config GlobalConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate 检查必要配置
func (c *GlobalConfig) Validate() error {
	switch c.Database.Dialect {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("不支持的数据库类型: %q", c.Database.Dialect)
	}
	if c.Database.DSN == "" {
		return &ConfigRequiredError{ConfigKey: "database.dsn"}
	}
	switch c.Browser.Driver {
	case DriverPlaywright, DriverChromedp, DriverRod:
	default:
		return fmt.Errorf("不支持的浏览器驱动: %q", c.Browser.Driver)
	}
	for key, spec := range map[string]string{
		"schedule.refreshTime": c.Schedule.RefreshTime,
		"schedule.editTime":    c.Schedule.EditTime,
	} {
		if err := scheduler.ValidateSpec(spec); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

// RequireURLs 需要打开页面的命令调用
func (c *GlobalConfig) RequireURLs() error {
	if len(c.Browser.URLs) == 0 {
		return &ConfigRequiredError{ConfigKey: "browser.urls"}
	}
	return nil
}

// Options 转换为元素定位参数，未配置的字段使用默认值
func (c ResolverConfig) Options() resolver.Options {
	opts := resolver.DefaultOptions()
	if c.MinAncestorDepth != nil && *c.MinAncestorDepth >= 0 {
		opts.MinAncestorDepth = *c.MinAncestorDepth
	}
	if c.ButtonAboveTolerance != nil {
		opts.ButtonAboveTolerance = *c.ButtonAboveTolerance
	}
	if c.InputAboveTolerance != nil {
		opts.InputAboveTolerance = *c.InputAboveTolerance
	}
	if c.MaxClickableText > 0 {
		opts.MaxClickableText = c.MaxClickableText
	}
	if c.ViewportFraction > 0 {
		opts.ViewportFraction = c.ViewportFraction
	}
	if c.PollInterval > 0 {
		opts.PollInterval = c.PollInterval
	}
	if c.ScrollSettle > 0 {
		opts.ScrollSettle = c.ScrollSettle
	}
	return opts
}

func (c FillConfig) Options() formfill.Options {
	return formfill.Options{Settle: c.Settle}
}
