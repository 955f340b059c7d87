package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"code.cloudfoundry.org/bytefmt"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"job_applier_go/config"
)

// Setup 按配置初始化全局 logrus，返回的 io.Closer 用于关闭日志文件
func Setup(cfg config.LogConfig) (io.Closer, error) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("无效的日志级别 %q: %w", cfg.Level, err)
	}
	log.SetLevel(level)

	switch cfg.Format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05"})
	case "", "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	default:
		return nil, fmt.Errorf("不支持的日志格式: %s", cfg.Format)
	}

	if cfg.File == "" {
		log.SetOutput(os.Stdout)
		return nopCloser{}, nil
	}

	maxSize, err := maxSizeMB(cfg.MaxSize)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, fmt.Errorf("创建日志目录失败: %w", err)
	}
	writer := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    maxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		LocalTime:  true,
	}
	log.SetOutput(io.MultiWriter(os.Stdout, writer))
	return writer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// maxSizeMB 将 "100MB" 之类的配置换算为 lumberjack 使用的 MB，最小 1
func maxSizeMB(s string) (int, error) {
	if s == "" {
		return 100, nil
	}
	n, err := bytefmt.ToBytes(s)
	if err != nil {
		return 0, fmt.Errorf("无效的日志文件大小 %q: %w", s, err)
	}
	mb := int(n / bytefmt.MEGABYTE)
	if mb < 1 {
		mb = 1
	}
	return mb, nil
}
