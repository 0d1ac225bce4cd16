package browser_manager

import (
	"context"
	"fmt"

	"auto_resume_go/config"
	"auto_resume_go/driver"
	"auto_resume_go/driver/cdpdriver"
	"auto_resume_go/driver/pwdriver"
	"auto_resume_go/driver/roddriver"
)

// Launch 按配置选择驱动启动浏览器
func Launch(ctx context.Context, cfg config.BrowserConfig) (driver.Session, error) {
	opts := driver.LaunchOptions{
		ChromePath:  cfg.ChromePath,
		UserDataDir: cfg.UserDataDir,
		Headless:    cfg.Headless,
		Stealth:     cfg.Stealth,
		Width:       cfg.Width,
		Height:      cfg.Height,
	}
	switch cfg.Driver {
	case "", config.DriverPlaywright:
		return pwdriver.Launch(ctx, opts)
	case config.DriverChromedp:
		return cdpdriver.Launch(ctx, opts)
	case config.DriverRod:
		return roddriver.Launch(ctx, opts)
	}
	return nil, fmt.Errorf("不支持的浏览器驱动: %s", cfg.Driver)
}
