package steam

import (
	"github.com/screepers/steamless-client/internal/rewrite"
)

var scriptNames = []string{"clientAuth", "removeDecorations", "customMenuLinks"}

func init() {
	rewrite.MustRegisterHooks(moduleKey, rewrite.Hooks{
		IndexScripts: indexScripts,
	})
}

func indexScripts(ctx *rewrite.Context) []rewrite.Script {
	backend := rewrite.Arg{Name: "backend", Value: ctx.Backend}
	seasonLink, ptrLink, serverListLink := ctx.MenuLinks()
	return []rewrite.Script{
		{Name: "clientAuth", Args: []rewrite.Arg{backend}},
		{Name: "removeDecorations", Args: []rewrite.Arg{backend}},
		{Name: "customMenuLinks", Args: []rewrite.Arg{
			backend,
			optionalLink("seasonLink", seasonLink),
			optionalLink("ptrLink", ptrLink),
			optionalLink("serverListLink", serverListLink),
		}},
	}
}

// optionalLink 把空链接渲染为 null，客户端脚本据此移除菜单项。
func optionalLink(name, link string) rewrite.Arg {
	if link == "" {
		return rewrite.Arg{Name: name}
	}
	return rewrite.Arg{Name: name, Value: link}
}
