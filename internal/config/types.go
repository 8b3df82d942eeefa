package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/screepers/steamless-client/internal/clientmodule"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if seconds, err := time.ParseDuration(raw); err == nil {
		*d = Duration(seconds)
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

// GlobalConfig 描述进程级运行参数：监听地址、日志与上游超时。
type GlobalConfig struct {
	ListenHost      string   `mapstructure:"ListenHost"`
	ListenPort      int      `mapstructure:"ListenPort"`
	LogLevel        string   `mapstructure:"LogLevel"`
	LogFilePath     string   `mapstructure:"LogFilePath"`
	LogMaxSize      int      `mapstructure:"LogMaxSize"`
	LogMaxBackups   int      `mapstructure:"LogMaxBackups"`
	LogCompress     bool     `mapstructure:"LogCompress"`
	UpstreamTimeout Duration `mapstructure:"UpstreamTimeout"`
	Debug           bool     `mapstructure:"Debug"`
}

// ClientConfig 决定客户端包来源、后端选择方式与改写策略。
type ClientConfig struct {
	Package         string `mapstructure:"Package"`
	Backend         string `mapstructure:"Backend"`
	InternalBackend string `mapstructure:"InternalBackend"`
	ServerList      string `mapstructure:"ServerList"`
	Beautify        bool   `mapstructure:"Beautify"`
	ClientModule    string `mapstructure:"ClientModule"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global GlobalConfig `mapstructure:",squash"`
	Client ClientConfig `mapstructure:",squash"`
}

// ListenAddress 返回 http.Server 使用的监听地址。
func (g GlobalConfig) ListenAddress() string {
	return net.JoinHostPort(g.ListenHost, strconv.Itoa(g.ListenPort))
}

// DisplayHost 返回面向浏览器展示的主机名，0.0.0.0 显示为 localhost。
func (g GlobalConfig) DisplayHost() string {
	if g.ListenHost == "0.0.0.0" || g.ListenHost == "" {
		return "localhost"
	}
	return g.ListenHost
}

// FixedBackend 表示是否配置了全局固定后端。
func (c ClientConfig) FixedBackend() bool {
	return strings.TrimSpace(c.Backend) != ""
}

// StrategyOverrides 将客户端配置映射为模块策略覆盖项。
func (c ClientConfig) StrategyOverrides() clientmodule.StrategyOptions {
	return clientmodule.StrategyOptions{Beautify: c.Beautify}
}
