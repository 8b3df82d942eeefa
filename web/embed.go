// Package web 内置落地页模板与静态资源。
package web

import "embed"

// FS 包含 public/、dist/ 与 views/ 三个目录。
//
//go:embed public dist views
var FS embed.FS
