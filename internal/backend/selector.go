package backend

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// OfficialBackend 是官方服务器的 origin，只有它支持 /season 与 /ptr 前缀。
const OfficialBackend = "https://screeps.com"

var (
	embeddedPattern = regexp.MustCompile(`^/\(([^)]+)\)(/.*)$`)
	prefixPattern   = regexp.MustCompile(`^/(season|ptr)`)
)

// Descriptor 描述一次请求解析出的后端与剩余路径，每个请求重新计算。
type Descriptor struct {
	// Backend 为去掉尾部斜杠的 origin，例如 https://screeps.com。
	Backend string
	// Endpoint 为以 / 开头的应用路径，保留调用方传入的查询串。
	Endpoint string
}

// Selector 在固定后端与路径内嵌后端两种模式之间二选一，启动时确定。
type Selector struct {
	fixed string
}

// NewSelector 创建 Selector；fixed 为空时使用 /(<origin>)<endpoint> 路径内嵌模式。
func NewSelector(fixed string) *Selector {
	return &Selector{fixed: TrimTrailingSlashes(strings.TrimSpace(fixed))}
}

// Fixed 表示是否配置了全局固定后端。
func (s *Selector) Fixed() bool {
	return s != nil && s.fixed != ""
}

// FixedBackend 返回固定后端，路径内嵌模式下为空。
func (s *Selector) FixedBackend() string {
	if s == nil {
		return ""
	}
	return s.fixed
}

// Extract 从原始请求路径中解析后端与 endpoint；路径内嵌模式下不匹配时返回 false。
func (s *Selector) Extract(raw string) (Descriptor, bool) {
	if s.Fixed() {
		if raw == "" {
			raw = "/"
		}
		return Descriptor{Backend: s.fixed, Endpoint: raw}, true
	}

	groups := embeddedPattern.FindStringSubmatch(raw)
	if groups == nil {
		return Descriptor{}, false
	}
	origin := groups[1]
	if decoded, err := url.PathUnescape(origin); err == nil {
		origin = decoded
	}
	origin = TrimTrailingSlashes(origin)
	if origin == "" {
		return Descriptor{}, false
	}
	return Descriptor{Backend: origin, Endpoint: groups[2]}, true
}

// TrimTrailingSlashes 去掉 origin 末尾的所有斜杠。
func TrimTrailingSlashes(raw string) string {
	return strings.TrimRight(raw, "/")
}

// IsOfficial 判断是否为官方服务器。
func IsOfficial(backend string) bool {
	return backend == OfficialBackend
}

// DetectPrefix 仅在官方后端时识别 /season 或 /ptr 前缀。
func DetectPrefix(backend, endpoint string) string {
	if !IsOfficial(backend) {
		return ""
	}
	return prefixPattern.FindString(endpoint)
}

// AssetPath 将 endpoint 映射为归档内的相对路径：去掉前缀与查询串，根路径映射到 index.html。
func AssetPath(endpoint, prefix string) string {
	clean := endpoint
	if idx := strings.IndexAny(clean, "?#"); idx >= 0 {
		clean = clean[:idx]
	}
	if prefix != "" {
		clean = strings.Replace(clean, prefix, "", 1)
	}
	if clean == "/" {
		return "index.html"
	}
	if clean == "" {
		return ""
	}
	return clean[1:]
}

// WithReturnURL 为 /api/auth 开头的 endpoint 追加 returnUrl，使登录完成后跳回当前后端。
func WithReturnURL(endpoint, backend string) string {
	if !strings.HasPrefix(endpoint, "/api/auth") {
		return endpoint
	}
	separator := "?"
	switch {
	case strings.HasSuffix(endpoint, "?"):
		separator = ""
	case strings.Contains(endpoint, "?"):
		separator = "&"
	}
	return endpoint + separator + "returnUrl=" + EncodeURIComponent(backend)
}

var componentUnescapes = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EncodeURIComponent 与浏览器 encodeURIComponent 的保留字符集保持一致。
func EncodeURIComponent(raw string) string {
	return componentUnescapes.Replace(url.QueryEscape(raw))
}

// Target 解析最终转发目标：internal 覆盖优先于浏览器可见的 backend。
func Target(backend, internal string) (*url.URL, error) {
	raw := strings.TrimSpace(internal)
	if raw == "" {
		raw = backend
	}
	if raw == "" {
		return nil, errors.New("backend target is empty")
	}
	parsed, err := url.Parse(TrimTrailingSlashes(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid backend target %q: %w", raw, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("backend target %q must be an absolute origin", raw)
	}
	return parsed, nil
}

// TrimLocalSubdomain 将 sub.localhost:8080 还原为 localhost:8080，其它 host 原样返回。
func TrimLocalSubdomain(host string) string {
	parts := strings.Split(host, ".")
	for _, part := range parts {
		if strings.Contains(part, "localhost") {
			return part
		}
	}
	return host
}
