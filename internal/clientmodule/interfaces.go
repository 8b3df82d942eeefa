package clientmodule

// MigrationState 描述模块上线阶段，方便观测端区分 legacy/beta/ga。
type MigrationState string

const (
	MigrationStateLegacy MigrationState = "legacy"
	MigrationStateBeta   MigrationState = "beta"
	MigrationStateGA     MigrationState = "ga"
)

// RewriteStrategy 描述模块对资源改写的默认策略。
type RewriteStrategy struct {
	// ProbeOfficialLike 表示改写 build.min.js 前需要探测后端是否声明 official-like。
	ProbeOfficialLike bool
	// PatchServerOptions 表示 bundle 中的 options 对象需要补 host/port/official。
	PatchServerOptions bool
	// Beautify 表示默认对 JS 资源重新排版。
	Beautify bool
}

// ModuleMetadata 记录一个客户端模块的静态信息，供配置校验和诊断端使用。
type ModuleMetadata struct {
	Key            string
	Description    string
	MigrationState MigrationState
	ClientVersions []string
	Scripts        []string
	Strategy       RewriteStrategy
}

// DefaultModuleKey 返回默认客户端模块的键值。
func DefaultModuleKey() string {
	return defaultModuleKey
}
