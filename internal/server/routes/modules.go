package routes

import (
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/screepers/steamless-client/internal/clientmodule"
	"github.com/screepers/steamless-client/internal/rewrite"
	"github.com/screepers/steamless-client/internal/server"
)

// RegisterModuleRoutes 暴露 /-/modules 诊断接口，查询已注册的客户端模块与当前绑定。
func RegisterModuleRoutes(app *fiber.App, binding *server.ClientBinding) {
	if app == nil || binding == nil {
		return
	}

	app.Get("/-/modules", func(c fiber.Ctx) error {
		hookStatus := rewrite.HookSnapshot(clientmodule.Keys())
		payload := fiber.Map{
			"modules":       encodeModules(clientmodule.List(), hookStatus),
			"client":        encodeBinding(binding),
			"hook_registry": hookStatus,
		}
		return c.JSON(payload)
	})

	app.Get("/-/modules/:key", func(c fiber.Ctx) error {
		key := strings.ToLower(strings.TrimSpace(c.Params("key")))
		if key == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "module_key_required"})
		}
		meta, ok := clientmodule.Resolve(key)
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "module_not_found"})
		}
		encoded := encodeModule(meta)
		encoded.HookStatus = rewrite.HookStatus(key)
		return c.JSON(encoded)
	})
}

type modulePayload struct {
	Key            string                      `json:"key"`
	Description    string                      `json:"description"`
	MigrationState clientmodule.MigrationState `json:"migration_state"`
	ClientVersions []string                    `json:"client_versions"`
	Scripts        []string                    `json:"scripts"`
	Strategy       strategyPayload             `json:"strategy"`
	HookStatus     string                      `json:"hook_status,omitempty"`
}

type strategyPayload struct {
	ProbeOfficialLike  bool `json:"probe_official_like"`
	PatchServerOptions bool `json:"patch_server_options"`
	Beautify           bool `json:"beautify"`
}

type bindingPayload struct {
	Package         string          `json:"package"`
	Entries         int             `json:"entries"`
	LastModified    string          `json:"last_modified,omitempty"`
	ModuleKey       string          `json:"module_key"`
	BackendMode     string          `json:"backend_mode"`
	FixedBackend    string          `json:"fixed_backend,omitempty"`
	InternalBackend string          `json:"internal_backend,omitempty"`
	Port            int             `json:"port"`
	Strategy        strategyPayload `json:"strategy"`
}

func encodeModules(mods []clientmodule.ModuleMetadata, status map[string]string) []modulePayload {
	if len(mods) == 0 {
		return nil
	}
	sort.Slice(mods, func(i, j int) bool {
		return mods[i].Key < mods[j].Key
	})
	result := make([]modulePayload, 0, len(mods))
	for _, meta := range mods {
		item := encodeModule(meta)
		if s, ok := status[meta.Key]; ok {
			item.HookStatus = s
		}
		result = append(result, item)
	}
	return result
}

func encodeModule(meta clientmodule.ModuleMetadata) modulePayload {
	return modulePayload{
		Key:            meta.Key,
		Description:    meta.Description,
		MigrationState: meta.MigrationState,
		ClientVersions: append([]string(nil), meta.ClientVersions...),
		Scripts:        append([]string(nil), meta.Scripts...),
		Strategy:       encodeStrategy(meta.Strategy),
	}
}

func encodeStrategy(s clientmodule.RewriteStrategy) strategyPayload {
	return strategyPayload{
		ProbeOfficialLike:  s.ProbeOfficialLike,
		PatchServerOptions: s.PatchServerOptions,
		Beautify:           s.Beautify,
	}
}

func encodeBinding(b *server.ClientBinding) bindingPayload {
	payload := bindingPayload{
		Package:         b.Package,
		Entries:         b.Entries,
		ModuleKey:       b.ModuleKey,
		BackendMode:     b.Mode(),
		FixedBackend:    b.FixedBackend,
		InternalBackend: b.InternalBackend,
		Port:            b.ListenPort,
		Strategy:        encodeStrategy(b.Strategy),
	}
	if !b.ModTime.IsZero() {
		payload.LastModified = b.ModTime.UTC().Format(time.RFC3339)
	}
	return payload
}
