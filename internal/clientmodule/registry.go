package clientmodule

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

const defaultModuleKey = "steam"

var (
	// ErrDuplicateModule 表示模块键或客户端版本别名已被占用。
	ErrDuplicateModule = errors.New("module already registered")
	// ErrInvalidModule 表示模块元数据缺少键值。
	ErrInvalidModule = errors.New("module key is required")
)

var globalRegistry = newRegistry()

// registry 以模块键为主索引，ClientVersions 作为别名指向同一模块。
type registry struct {
	mu      sync.RWMutex
	modules map[string]ModuleMetadata
	aliases map[string]string
}

func newRegistry() *registry {
	return &registry{
		modules: make(map[string]ModuleMetadata),
		aliases: make(map[string]string),
	}
}

// Register 将客户端模块加入全局注册表。
func Register(meta ModuleMetadata) error {
	return globalRegistry.register(meta)
}

// MustRegister 供各模块包在 init() 中调用，失败即 panic。
func MustRegister(meta ModuleMetadata) {
	if err := Register(meta); err != nil {
		panic(err)
	}
}

// Resolve 按模块键或客户端版本别名查找模块，大小写不敏感。
func Resolve(key string) (ModuleMetadata, bool) {
	return globalRegistry.resolve(key)
}

// List 返回按键排序的模块列表。
func List() []ModuleMetadata {
	return globalRegistry.list()
}

// Keys 返回已注册模块键，不含别名。
func Keys() []string {
	mods := List()
	keys := make([]string, 0, len(mods))
	for _, meta := range mods {
		keys = append(keys, meta.Key)
	}
	return keys
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func (r *registry) register(meta ModuleMetadata) error {
	meta.Key = normalizeKey(meta.Key)
	if meta.Key == "" {
		return ErrInvalidModule
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.taken(meta.Key) {
		return fmt.Errorf("%w: %s", ErrDuplicateModule, meta.Key)
	}
	aliases := make([]string, 0, len(meta.ClientVersions))
	for _, version := range meta.ClientVersions {
		alias := normalizeKey(version)
		if alias == "" || alias == meta.Key {
			continue
		}
		if r.taken(alias) {
			return fmt.Errorf("%w: client version %s", ErrDuplicateModule, alias)
		}
		aliases = append(aliases, alias)
	}

	r.modules[meta.Key] = meta
	for _, alias := range aliases {
		r.aliases[alias] = meta.Key
	}
	return nil
}

// taken 要求调用方持有锁。
func (r *registry) taken(key string) bool {
	if _, ok := r.modules[key]; ok {
		return true
	}
	_, ok := r.aliases[key]
	return ok
}

func (r *registry) resolve(key string) (ModuleMetadata, bool) {
	key = normalizeKey(key)
	if key == "" {
		return ModuleMetadata{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if target, ok := r.aliases[key]; ok {
		key = target
	}
	meta, ok := r.modules[key]
	return meta, ok
}

func (r *registry) list() []ModuleMetadata {
	r.mu.RLock()
	mods := make([]ModuleMetadata, 0, len(r.modules))
	for _, meta := range r.modules {
		mods = append(mods, meta)
	}
	r.mu.RUnlock()

	sort.Slice(mods, func(i, j int) bool { return mods[i].Key < mods[j].Key })
	return mods
}
