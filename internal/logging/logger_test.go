package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"

	"github.com/screepers/steamless-client/internal/config"
	"github.com/screepers/steamless-client/internal/version"
)

func TestConfigureDefaultsToStdout(t *testing.T) {
	logger, err := InitLogger(config.GlobalConfig{LogLevel: "info"})
	if err != nil {
		t.Fatalf("配置失败: %v", err)
	}
	if logger.Out != os.Stdout {
		t.Fatalf("未指定文件时应输出到 stdout")
	}
}

func TestInitLoggerRejectsBadLevel(t *testing.T) {
	if _, err := InitLogger(config.GlobalConfig{LogLevel: "loud"}); err == nil {
		t.Fatalf("非法日志级别应返回错误")
	}
}

func TestInitLoggerFallbackWhenDirUnavailable(t *testing.T) {
	dir := t.TempDir()
	blocked := filepath.Join(dir, "blocked")
	if err := os.WriteFile(blocked, []byte("file"), 0o600); err != nil {
		t.Fatalf("创建文件失败: %v", err)
	}

	cfg := config.GlobalConfig{
		LogLevel:    "info",
		LogFilePath: filepath.Join(blocked, "sub", "steamless.log"),
	}
	logger, err := InitLogger(cfg)
	if err != nil {
		t.Fatalf("初始化不应失败: %v", err)
	}
	if logger.Out != os.Stdout {
		t.Fatalf("fallback 时应退回 stdout")
	}
}

func TestConfigureCreatesRotatingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "steamless.log")
	cfg := config.GlobalConfig{LogLevel: "debug", LogFilePath: path}
	logger, err := InitLogger(cfg)
	if err != nil {
		t.Fatalf("配置失败: %v", err)
	}
	logger.Info("test")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("预期创建日志文件: %v", err)
	}
}

func TestRequestFields(t *testing.T) {
	fields := RequestFields("http://localhost:21025", "/api/version", "steam", "")
	if _, ok := fields["request_id"]; ok {
		t.Fatalf("空 request id 不应写入字段")
	}
	fields = RequestFields("http://localhost:21025", "/api/version", "steam", "abc")
	if fields["request_id"] != "abc" || fields["module_key"] != "steam" {
		t.Fatalf("unexpected fields %v", fields)
	}
	if ServerFields("localhost:8080", "", "steam", false)["backend_mode"] != "path" {
		t.Fatalf("未固定后端时应为 path 模式")
	}
}

func TestCloseRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steamless.log")
	logger, err := InitLogger(config.GlobalConfig{LogLevel: "info", LogFilePath: path})
	if err != nil {
		t.Fatalf("配置失败: %v", err)
	}
	logger.Info("before_close")
	if err := Close(logger); err != nil {
		t.Fatalf("关闭日志失败: %v", err)
	}
	stdout, _ := InitLogger(config.GlobalConfig{LogLevel: "info"})
	if err := Close(stdout); err != nil {
		t.Fatalf("stdout 关闭应为 no-op: %v", err)
	}
}

func TestEntriesCarryVersionAndCallerInDebug(t *testing.T) {
	logger, err := InitLogger(config.GlobalConfig{LogLevel: "debug", Debug: true})
	if err != nil {
		t.Fatalf("配置失败: %v", err)
	}
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	logger.WithField("action", "probe").Debug("official_like_probe")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("日志不是合法 JSON: %v (%s)", err, buf.String())
	}
	if entry["version"] != version.Version {
		t.Fatalf("缺少 version 字段: %v", entry)
	}
	if _, ok := entry["func"]; !ok {
		t.Fatalf("debug 模式应记录调用位置: %v", entry)
	}
}
