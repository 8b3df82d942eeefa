// Package steam 描述 Steam 版客户端（当前版本）的改写策略与注册逻辑。
package steam

import (
	"github.com/screepers/steamless-client/internal/clientmodule"
)

const moduleKey = "steam"

func init() {
	clientmodule.MustRegister(clientmodule.ModuleMetadata{
		Key:            moduleKey,
		Description:    "Current Steam client package with auth reset, room decoration removal and custom menu links",
		MigrationState: clientmodule.MigrationStateGA,
		ClientVersions: []string{"steam"},
		Scripts:        scriptNames,
		Strategy: clientmodule.RewriteStrategy{
			ProbeOfficialLike:  true,
			PatchServerOptions: true,
		},
	})
}
