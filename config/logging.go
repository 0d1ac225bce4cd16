package config

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
)

// Apply 设置全局 logrus 级别和输出格式
func (c LogConfig) Apply() error {
	level, err := log.ParseLevel(c.Level)
	if err != nil {
		return fmt.Errorf("日志级别无效: %w", err)
	}
	log.SetLevel(level)
	log.SetOutput(os.Stdout)
	switch c.Format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	}
	return nil
}
