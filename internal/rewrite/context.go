package rewrite

import (
	"github.com/screepers/steamless-client/internal/backend"
)

// Route 是客户端使用的固定路由。
type Route string

const (
	RouteRoot     Route = "/"
	RouteAPI      Route = "/api"
	RouteAssets   Route = "/assets"
	RouteHistory  Route = "/room-history"
	RouteSocket   Route = "/socket"
	RouteRegister Route = "/#!/register"
)

// Context 是单个请求的改写上下文，每次请求重新构建，不跨请求复用。
type Context struct {
	// Host 是浏览器访问本代理时使用的 host[:port]。
	Host string
	// Backend 是去掉尾部斜杠的后端 origin。
	Backend string
	// Prefix 为官方服务器的 /season 或 /ptr，其它情况为空。
	Prefix string
	// Official 表示后端为官方服务器。
	Official bool
	// OfficialLike 表示私服在 /api/version 中声明了 official-like。
	OfficialLike bool
	// FixedBackend 表示全局固定后端模式，此时 URL 中不带 /(<origin>) 段。
	FixedBackend bool
	// Internal 是服务端访问后端时优先使用的内部地址，不出现在改写结果中。
	Internal string
}

// BasePath 返回路径内嵌模式下的 /(<origin>) 段。
func (c *Context) BasePath() string {
	if c.FixedBackend {
		return ""
	}
	return "/(" + c.Backend + ")"
}

// Path 组合 basePath（full 时）+ prefix（withPrefix 时）+ route。
func (c *Context) Path(route Route, full, withPrefix bool) string {
	out := ""
	if full {
		out = c.BasePath()
	}
	if withPrefix {
		out += c.Prefix
	}
	return out + string(route)
}

// URL 返回浏览器可直接访问的绝对地址。
func (c *Context) URL(route Route, withPrefix bool) string {
	return "http://" + c.Host + c.Path(route, true, withPrefix)
}

// MenuLinks 计算客户端菜单中赛季、PTR 与切换服务器三个链接；为空表示移除对应菜单项。
func (c *Context) MenuLinks() (seasonLink, ptrLink, serverListLink string) {
	if c.Official && c.Prefix == "" {
		root := c.URL(RouteRoot, true)
		seasonLink = root + "season/"
		ptrLink = root + "ptr/"
	} else {
		seasonLink = c.URL(RouteRoot, false)
	}
	if !c.FixedBackend {
		serverListLink = "http://" + backend.TrimLocalSubdomain(c.Host) + "/"
	}
	return seasonLink, ptrLink, serverListLink
}
