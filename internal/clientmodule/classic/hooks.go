package classic

import (
	"github.com/screepers/steamless-client/internal/rewrite"
)

var scriptNames = []string{"clientStartup", "removeRoomDecorations"}

func init() {
	rewrite.MustRegisterHooks(moduleKey, rewrite.Hooks{
		IndexScripts:  indexScripts,
		RewriteBundle: rewrite.RewriteBundleURLs,
	})
}

func indexScripts(ctx *rewrite.Context) []rewrite.Script {
	args := []rewrite.Arg{{Name: "backend", Value: ctx.Backend}}
	scripts := make([]rewrite.Script, 0, len(scriptNames))
	for _, name := range scriptNames {
		scripts = append(scripts, rewrite.Script{Name: name, Args: args})
	}
	return scripts
}
