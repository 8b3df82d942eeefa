package clientmodule

// StrategyOptions 描述来自配置/命令行的覆盖项。
type StrategyOptions struct {
	Beautify bool
}

// ResolveStrategy 将模块的默认策略与运行时覆盖合并；命令行只能打开 beautify，不能关闭模块默认值。
func ResolveStrategy(meta ModuleMetadata, opts StrategyOptions) RewriteStrategy {
	strategy := meta.Strategy
	if opts.Beautify {
		strategy.Beautify = true
	}
	return strategy
}
