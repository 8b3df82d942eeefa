// Package classic 描述早期客户端构建的改写策略：只注入启动脚本与房间装饰移除，不改写菜单。
package classic

import (
	"github.com/screepers/steamless-client/internal/clientmodule"
)

const moduleKey = "classic"

func init() {
	clientmodule.MustRegister(clientmodule.ModuleMetadata{
		Key:            moduleKey,
		Description:    "Earlier client builds: startup script and room decoration removal, bundle options left untouched",
		MigrationState: clientmodule.MigrationStateLegacy,
		ClientVersions: []string{"pre-menu"},
		Scripts:        scriptNames,
		Strategy:       clientmodule.RewriteStrategy{},
	})
}
