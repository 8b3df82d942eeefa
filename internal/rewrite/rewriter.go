package rewrite

import (
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	indexAsset  = "index.html"
	configAsset = "config.js"
	bundleAsset = "build.min.js"
)

// Options 控制 Rewriter 的行为。
type Options struct {
	ModuleKey string
	Beautify  bool
	Logger    *logrus.Logger
}

// Rewriter 按资源名分派改写规则，本身无状态，可被多个请求并发使用。
type Rewriter struct {
	moduleKey string
	hooks     Hooks
	beautify  bool
	logger    *logrus.Logger
}

// New 根据客户端模块 key 取得 hooks 并构造 Rewriter。
func New(opts Options) *Rewriter {
	hooks, _ := FetchHooks(opts.ModuleKey)
	return &Rewriter{
		moduleKey: normalizeHookKey(opts.ModuleKey),
		hooks:     hooks,
		beautify:  opts.Beautify,
		logger:    opts.Logger,
	}
}

// NeedsText 报告资源是否需要以文本形式读出并交给 Rewrite；其余资源直接流式返回。
func NeedsText(name string) bool {
	return name == indexAsset || strings.HasSuffix(name, ".js")
}

// IsBundle 报告资源是否为客户端主 bundle，服务端在改写前需要探测 official-like。
func IsBundle(name string) bool {
	return name == bundleAsset
}

// Rewrite 返回改写后的内容。相同输入与相同 Context 总是产生相同输出。
func (r *Rewriter) Rewrite(name, src string, ctx *Context) string {
	switch {
	case name == indexAsset:
		return r.rewriteIndex(src, ctx)
	case name == configAsset:
		out := r.configRule()(ctx, src)
		r.logUnchanged("config", name, src, out)
		return out
	case strings.HasSuffix(name, ".js"):
		out := src
		if name == bundleAsset {
			out = r.bundleRule()(ctx, src)
			r.logUnchanged("bundle", name, src, out)
		}
		if r.beautify {
			out = Beautify(out)
		}
		return out
	default:
		return src
	}
}

func (r *Rewriter) rewriteIndex(src string, ctx *Context) string {
	if !strings.Contains(src, TitleMarker) {
		r.logSkipped("index_marker", indexAsset)
	}
	var scripts []Script
	if r.hooks.IndexScripts != nil {
		scripts = r.hooks.IndexScripts(ctx)
	}
	tags := make([]string, 0, len(scripts))
	for _, script := range scripts {
		tag, err := ScriptTag(script.Name, script.Args)
		if err != nil {
			if r.logger != nil {
				r.logger.WithFields(logrus.Fields{
					"action":     "rewrite",
					"module_key": r.moduleKey,
					"script":     script.Name,
				}).WithError(err).Warn("script_render_failed")
			}
			continue
		}
		tags = append(tags, tag)
	}
	return RewriteIndex(src, tags)
}

func (r *Rewriter) configRule() func(*Context, string) string {
	if r.hooks.RewriteConfig != nil {
		return r.hooks.RewriteConfig
	}
	return RewriteConfig
}

func (r *Rewriter) bundleRule() func(*Context, string) string {
	if r.hooks.RewriteBundle != nil {
		return r.hooks.RewriteBundle
	}
	return RewriteBundle
}

func (r *Rewriter) logUnchanged(rule, name, before, after string) {
	if before == after {
		r.logSkipped(rule, name)
	}
}

func (r *Rewriter) logSkipped(rule, name string) {
	if r.logger == nil {
		return
	}
	r.logger.WithFields(logrus.Fields{
		"action":     "rewrite",
		"rule":       rule,
		"asset":      name,
		"module_key": r.moduleKey,
	}).Debug("rewrite_skipped")
}
