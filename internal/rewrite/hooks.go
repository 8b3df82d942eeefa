package rewrite

import (
	"errors"
	"strings"
	"sync"
)

// Script 描述一个需要注入 index.html 的脚本模板及其参数。
type Script struct {
	Name string
	Args []Arg
}

// Hooks 描述客户端模块可定制的改写点，nil 字段回退到默认规则。
type Hooks struct {
	IndexScripts  func(ctx *Context) []Script
	RewriteConfig func(ctx *Context, src string) string
	RewriteBundle func(ctx *Context, src string) string
}

var hookRegistry sync.Map

// ErrDuplicateHook indicates a module key already has hooks registered.
var ErrDuplicateHook = errors.New("hook already registered")

// RegisterHooks stores hooks for the given client module key.
func RegisterHooks(moduleKey string, hooks Hooks) error {
	key := normalizeHookKey(moduleKey)
	if key == "" {
		return errors.New("module key required")
	}
	if _, loaded := hookRegistry.LoadOrStore(key, hooks); loaded {
		return ErrDuplicateHook
	}
	return nil
}

// MustRegisterHooks panics on registration failure.
func MustRegisterHooks(moduleKey string, hooks Hooks) {
	if err := RegisterHooks(moduleKey, hooks); err != nil {
		panic(err)
	}
}

// FetchHooks retrieves hooks associated with a module key.
func FetchHooks(moduleKey string) (Hooks, bool) {
	key := normalizeHookKey(moduleKey)
	if key == "" {
		return Hooks{}, false
	}
	if value, ok := hookRegistry.Load(key); ok {
		if hooks, ok := value.(Hooks); ok {
			return hooks, true
		}
	}
	return Hooks{}, false
}

// HookStatus returns hook registration status for a module key.
func HookStatus(moduleKey string) string {
	if _, ok := FetchHooks(moduleKey); ok {
		return "registered"
	}
	return "missing"
}

// HookSnapshot returns status for a list of module keys.
func HookSnapshot(keys []string) map[string]string {
	out := make(map[string]string, len(keys))
	for _, key := range keys {
		if normalized := normalizeHookKey(key); normalized != "" {
			out[normalized] = HookStatus(normalized)
		}
	}
	return out
}

func normalizeHookKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
