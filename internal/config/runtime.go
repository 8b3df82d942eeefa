package config

import (
	"fmt"

	"github.com/screepers/steamless-client/internal/clientmodule"
)

// ClientRuntime 将客户端配置与模块元数据合并，方便运行时快速取用策略。
type ClientRuntime struct {
	Config   ClientConfig
	Module   clientmodule.ModuleMetadata
	Strategy clientmodule.RewriteStrategy
}

// BuildClientRuntime 根据客户端配置和模块元数据创建运行时描述，应用命令行覆盖。
func BuildClientRuntime(cfg ClientConfig, meta clientmodule.ModuleMetadata) ClientRuntime {
	return ClientRuntime{
		Config:   cfg,
		Module:   meta,
		Strategy: clientmodule.ResolveStrategy(meta, cfg.StrategyOverrides()),
	}
}

// Runtime 解析当前配置选中的客户端模块（假定 Validate 已经通过）。
func (c *Config) Runtime() (ClientRuntime, error) {
	meta, ok := clientmodule.Resolve(c.Client.ClientModule)
	if !ok {
		return ClientRuntime{}, newFieldError("ClientModule", fmt.Sprintf("未注册模块: %s", c.Client.ClientModule))
	}
	return BuildClientRuntime(c.Client, meta), nil
}
