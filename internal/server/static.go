package server

import (
	"fmt"
	"io/fs"

	"github.com/gofiber/fiber/v3"
)

type staticFile struct {
	path        string
	contentType string
}

// publicFiles 是落地页依赖的静态资源，仅在路径内嵌后端模式下对外提供。
var publicFiles = []staticFile{
	{path: "public/favicon.png", contentType: "image/png"},
	{path: "public/style.css", contentType: "text/css"},
	{path: "dist/serverStatus.js", contentType: "text/javascript"},
}

// serveStatic 命中静态表时写出响应并返回 true。
func serveStatic(c fiber.Ctx, files fs.FS, urlPath string) (bool, error) {
	if files == nil || len(urlPath) < 2 {
		return false, nil
	}
	name := urlPath[1:]
	for _, file := range publicFiles {
		if file.path != name {
			continue
		}
		data, err := fs.ReadFile(files, file.path)
		if err != nil {
			return true, fmt.Errorf("read static file %s: %w", file.path, err)
		}
		c.Set(fiber.HeaderContentType, file.contentType)
		return true, c.Send(data)
	}
	return false, nil
}
