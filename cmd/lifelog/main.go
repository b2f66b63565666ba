// Package main 是 lifelog 的命令行入口。
// serve 启动 HTTP 服务与夜间封存任务，其余子命令用于运维与本地调试。
package main

import (
	"os"

	log "github.com/sirupsen/logrus"
)

func main() {
	setupLogging()

	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

// setupLogging 设置默认格式，加载配置后再按 LOG_LEVEL / GIN_MODE 调整。
func setupLogging() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.InfoLevel)
}
