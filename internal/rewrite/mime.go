package rewrite

import (
	"path"
	"strings"
)

const defaultContentType = "text/html"

var contentTypes = map[string]string{
	".css":   "text/css",
	".html":  "text/html",
	".js":    "text/javascript",
	".map":   "application/json",
	".png":   "image/png",
	".svg":   "image/svg+xml",
	".ttf":   "font/ttf",
	".woff":  "font/woff",
	".woff2": "font/woff2",
}

// ContentType 按扩展名（不区分大小写）返回 MIME 类型，未知扩展名回退 text/html。
func ContentType(name string) string {
	if ct, ok := contentTypes[strings.ToLower(path.Ext(name))]; ok {
		return ct
	}
	return defaultContentType
}
