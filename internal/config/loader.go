package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/screepers/steamless-client/internal/clientmodule"
)

// EnvPrefix 是环境变量覆盖的前缀，例如 STEAMLESS_PACKAGE。
const EnvPrefix = "STEAMLESS"

// Overrides 保存命令行显式传入的值，键为配置字段名（如 "ListenPort"），优先级最高。
type Overrides map[string]any

// Load 依次合并默认值、可选的 TOML 文件、STEAMLESS_* 环境变量与命令行覆盖项，然后校验。
func Load(path string, overrides Overrides) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置失败: %w", err)
		}
	}

	for key, value := range overrides {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyGlobalDefaults(&cfg.Global)
	applyClientDefaults(&cfg.Client)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	absPackage, err := filepath.Abs(cfg.Client.Package)
	if err != nil {
		return nil, fmt.Errorf("无法解析客户端包路径: %w", err)
	}
	cfg.Client.Package = absPackage

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenHost", "localhost")
	v.SetDefault("ListenPort", 8080)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("UpstreamTimeout", "0s")
	v.SetDefault("Debug", false)

	v.SetDefault("Package", "")
	v.SetDefault("Backend", "")
	v.SetDefault("InternalBackend", "")
	v.SetDefault("ServerList", "")
	v.SetDefault("Beautify", false)
	v.SetDefault("ClientModule", clientmodule.DefaultModuleKey())
}

func applyGlobalDefaults(g *GlobalConfig) {
	g.ListenHost = strings.TrimSpace(g.ListenHost)
	if g.ListenHost == "" {
		g.ListenHost = "localhost"
	}
	if g.ListenPort == 0 {
		g.ListenPort = 8080
	}
	if g.Debug {
		g.LogLevel = "debug"
	}
}

func applyClientDefaults(c *ClientConfig) {
	c.Package = strings.TrimSpace(c.Package)
	c.Backend = strings.TrimRight(strings.TrimSpace(c.Backend), "/")
	c.InternalBackend = strings.TrimRight(strings.TrimSpace(c.InternalBackend), "/")
	c.ServerList = strings.TrimSpace(c.ServerList)
	if trimmed := strings.TrimSpace(c.ClientModule); trimmed == "" {
		c.ClientModule = clientmodule.DefaultModuleKey()
	} else {
		c.ClientModule = strings.ToLower(trimmed)
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}
