package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/screepers/steamless-client/internal/config"
	"github.com/screepers/steamless-client/internal/version"
)

// InitLogger 按全局配置构建 JSON logger。
// 日志文件不可用时退回 stdout，并在 stderr 与日志中各留一条 logger_fallback。
// Debug 模式额外记录调用位置。
func InitLogger(cfg config.GlobalConfig) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("无法解析日志级别: %w", err)
	}

	out, outErr := openOutput(cfg)
	if outErr != nil {
		fmt.Fprintf(os.Stderr, "logger_fallback: %v\n", outErr)
	}

	logger := &logrus.Logger{
		Out:          out,
		Formatter:    &logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano},
		Hooks:        make(logrus.LevelHooks),
		Level:        level,
		ExitFunc:     os.Exit,
		ReportCaller: cfg.Debug,
	}
	logger.AddHook(versionHook{})

	// 同步 logrus 全局实例，少量直接调用 logrus.* 的地方保持同一格式和去向。
	logrus.SetFormatter(logger.Formatter)
	logrus.SetOutput(logger.Out)
	logrus.SetLevel(level)

	if outErr != nil {
		logger.WithFields(logrus.Fields{
			"action": "logger_fallback",
			"path":   cfg.LogFilePath,
		}).Warn(outErr.Error())
	}
	return logger, nil
}

// Close 释放轮转文件句柄，stdout/stderr 不关闭。
func Close(logger *logrus.Logger) error {
	if logger == nil || logger.Out == os.Stdout || logger.Out == os.Stderr {
		return nil
	}
	if closer, ok := logger.Out.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func openOutput(cfg config.GlobalConfig) (io.Writer, error) {
	if cfg.LogFilePath == "" {
		return os.Stdout, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LogFilePath), 0o755); err != nil {
		return os.Stdout, fmt.Errorf("创建日志目录失败: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   cfg.LogFilePath,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		Compress:   cfg.LogCompress,
		LocalTime:  true,
	}, nil
}

// versionHook 给每条日志补上版本号，便于对照用户提交的日志排查。
type versionHook struct{}

func (versionHook) Levels() []logrus.Level { return logrus.AllLevels }

func (versionHook) Fire(entry *logrus.Entry) error {
	if _, ok := entry.Data["version"]; !ok {
		entry.Data["version"] = version.Version
	}
	return nil
}
