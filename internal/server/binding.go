package server

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/screepers/steamless-client/internal/archive"
	"github.com/screepers/steamless-client/internal/clientmodule"
	"github.com/screepers/steamless-client/internal/config"
)

// ClientBinding 将配置、客户端模块与已加载的归档聚合在一起，
// 供路由层和诊断接口复用，避免每个请求重复解析配置。
type ClientBinding struct {
	// Package/Entries/ModTime 描述已加载的 package.nw。
	Package string
	Entries int
	ModTime time.Time
	// ModuleKey/Module/Strategy 是配置选中的客户端模块及合并覆盖后的策略。
	ModuleKey string
	Module    clientmodule.ModuleMetadata
	Strategy  clientmodule.RewriteStrategy
	// FixedBackend 为空时使用路径内嵌后端模式。
	FixedBackend    string
	InternalBackend string
	ServerList      string
	// DisplayHost/ListenPort 用于生成浏览器可见的链接。
	DisplayHost string
	ListenPort  int
}

// NewClientBinding 根据配置与归档索引构建绑定。调用方应在启动阶段创建一次并复用。
func NewClientBinding(cfg *config.Config, index *archive.Index) (*ClientBinding, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	runtime, err := cfg.Runtime()
	if err != nil {
		return nil, err
	}

	binding := &ClientBinding{
		Package:         cfg.Client.Package,
		ModuleKey:       runtime.Module.Key,
		Module:          runtime.Module,
		Strategy:        runtime.Strategy,
		FixedBackend:    strings.TrimSpace(cfg.Client.Backend),
		InternalBackend: strings.TrimSpace(cfg.Client.InternalBackend),
		ServerList:      cfg.Client.ServerList,
		DisplayHost:     cfg.Global.DisplayHost(),
		ListenPort:      cfg.Global.ListenPort,
	}
	if index != nil {
		binding.Package = index.Path()
		binding.Entries = index.Len()
		binding.ModTime = index.ModTime()
	}
	return binding, nil
}

// Mode 返回 fixed 或 path，用于日志与诊断输出。
func (b *ClientBinding) Mode() string {
	if b != nil && b.FixedBackend != "" {
		return "fixed"
	}
	return "path"
}

// FallbackHost 是请求缺少 Host 头时使用的 host:port。
func (b *ClientBinding) FallbackHost() string {
	if b == nil {
		return ""
	}
	return net.JoinHostPort(b.DisplayHost, strconv.Itoa(b.ListenPort))
}

// normalizeHost 去掉首尾空白与末尾的点，保留端口。
func normalizeHost(raw string) string {
	host := strings.TrimSpace(raw)
	if h, p, err := net.SplitHostPort(host); err == nil {
		return net.JoinHostPort(strings.TrimSuffix(h, "."), p)
	}
	return strings.TrimSuffix(host, ".")
}
