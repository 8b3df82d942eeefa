package server

import (
	"net/url"

	"github.com/gofiber/fiber/v3"

	"github.com/screepers/steamless-client/internal/backend"
)

// ProxyRoute 汇总一次转发所需的信息，由路由层解析后交给代理层。
type ProxyRoute struct {
	// Descriptor 是从请求路径解析出的后端与原始 endpoint。
	Descriptor backend.Descriptor
	// Target 是实际连接的 origin（InternalBackend 优先）。
	Target *url.URL
	// Endpoint 是转发给后端的 path+query，/api/auth 已追加 returnUrl。
	Endpoint string
	// ModuleKey 记录当前客户端模块，便于日志输出。
	ModuleKey string
}

// ProxyHandler describes the component responsible for proxying requests to
// the selected backend. It allows injecting fake handlers during tests.
type ProxyHandler interface {
	Handle(fiber.Ctx, *ProxyRoute) error
}

// ProxyHandlerFunc adapts a function to the ProxyHandler interface.
type ProxyHandlerFunc func(fiber.Ctx, *ProxyRoute) error

// Handle makes ProxyHandlerFunc satisfy ProxyHandler.
func (f ProxyHandlerFunc) Handle(c fiber.Ctx, route *ProxyRoute) error {
	return f(c, route)
}

// NewProxyRoute 根据 Descriptor 计算目标地址与转发 endpoint。
func NewProxyRoute(desc backend.Descriptor, internal, moduleKey string) (*ProxyRoute, error) {
	target, err := backend.Target(desc.Backend, internal)
	if err != nil {
		return nil, err
	}
	return &ProxyRoute{
		Descriptor: desc,
		Target:     target,
		Endpoint:   backend.WithReturnURL(desc.Endpoint, desc.Backend),
		ModuleKey:  moduleKey,
	}, nil
}
