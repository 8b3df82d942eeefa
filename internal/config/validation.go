package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/sirupsen/logrus"

	"github.com/screepers/steamless-client/internal/clientmodule"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("ListenPort", "必须在 1-65535")
	}
	if _, err := logrus.ParseLevel(g.LogLevel); err != nil {
		return newFieldError("LogLevel", fmt.Sprintf("无法识别的日志级别: %s", g.LogLevel))
	}
	if g.LogMaxSize < 0 {
		return newFieldError("LogMaxSize", "不能为负数")
	}
	if g.LogMaxBackups < 0 {
		return newFieldError("LogMaxBackups", "不能为负数")
	}
	if g.UpstreamTimeout.DurationValue() < 0 {
		return newFieldError("UpstreamTimeout", "不能为负数")
	}

	client := c.Client
	if client.Package == "" {
		return newFieldError("Package", "不能为空，需指向 package.nw")
	}
	if client.Backend != "" {
		if err := validateBackend(client.Backend); err != nil {
			return fmt.Errorf("Backend: %w", err)
		}
	}
	if client.InternalBackend != "" {
		if client.Backend == "" {
			return newFieldError("InternalBackend", "需要同时配置 Backend")
		}
		if err := validateBackend(client.InternalBackend); err != nil {
			return fmt.Errorf("InternalBackend: %w", err)
		}
	}
	if _, ok := clientmodule.Resolve(client.ClientModule); !ok {
		return newFieldError("ClientModule", fmt.Sprintf("未注册模块: %s", client.ClientModule))
	}

	return nil
}

func validateBackend(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https，后端: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("后端缺少 Host: %s", raw)
	}
	return nil
}
