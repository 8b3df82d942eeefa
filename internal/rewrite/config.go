package rewrite

import (
	"regexp"
)

var (
	apiURLPattern    = regexp.MustCompile(`(API_URL = ')[^']*`)
	historyPattern   = regexp.MustCompile(`(HISTORY_URL = ')[^']*`)
	websocketPattern = regexp.MustCompile(`(WEBSOCKET_URL = ')[^']*`)
	prefixPattern    = regexp.MustCompile(`(PREFIX: ')[^']*`)
	ptrPattern       = regexp.MustCompile(`(PTR: )[^,]*`)
)

// RewriteConfig 将 config.js 中的 API/历史/WebSocket 地址指向本代理，并写入 PREFIX 与 PTR。
func RewriteConfig(ctx *Context, src string) string {
	src = replaceFirst(src, apiURLPattern, ctx.Path(RouteAPI, true, true)+"/")
	src = replaceFirst(src, historyPattern, ctx.Path(RouteHistory, true, true)+"/")
	src = replaceFirst(src, websocketPattern, ctx.Path(RouteSocket, true, true)+"/")

	prefix := ""
	if len(ctx.Prefix) > 1 {
		prefix = ctx.Prefix[1:]
	}
	src = replaceFirst(src, prefixPattern, prefix)

	ptr := "false"
	if ctx.Prefix == "/ptr" {
		ptr = "true"
	}
	return replaceFirst(src, ptrPattern, ptr)
}

// replaceFirst 只替换第一处匹配：保留第一个捕获组并在其后追加 value。
func replaceFirst(src string, pattern *regexp.Regexp, value string) string {
	loc := pattern.FindStringSubmatchIndex(src)
	if loc == nil {
		return src
	}
	return src[:loc[3]] + value + src[loc[1]:]
}
