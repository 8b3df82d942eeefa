package server

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"

	"github.com/gofiber/fiber/v3"

	"github.com/screepers/steamless-client/internal/serverlist"
	"github.com/screepers/steamless-client/internal/version"
)

const landingTemplate = "views/index.html"

// Landing 渲染服务器列表落地页。服务器列表在每次请求时重新读取，
// 修改列表文件无需重启。
type Landing struct {
	tmpl       *template.Template
	serverList string
	links      serverlist.LinkOptions
}

type landingData struct {
	Version   string
	Groups    []serverlist.Group
	Community []serverlist.Page
}

// NewLanding 从 files 中解析模板；serverList 为空时使用内置列表。
func NewLanding(files fs.FS, serverList, host string, port int) (*Landing, error) {
	tmpl, err := template.ParseFS(files, landingTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse landing template: %w", err)
	}
	return &Landing{
		tmpl:       tmpl,
		serverList: serverList,
		links:      serverlist.LinkOptions{Protocol: "http", Host: host, Port: port},
	}, nil
}

// Render 列表为空时返回 false，交由后续流程处理。
func (l *Landing) Render(c fiber.Ctx) (bool, error) {
	if l == nil {
		return false, nil
	}
	servers, err := serverlist.Load(l.serverList)
	if err != nil {
		return false, err
	}
	groups, err := serverlist.Build(servers, l.links)
	if err != nil {
		return false, err
	}
	if len(groups) == 0 {
		return false, nil
	}

	var buf bytes.Buffer
	data := landingData{
		Version:   version.Version,
		Groups:    groups,
		Community: serverlist.CommunityPages(),
	}
	if err := l.tmpl.Execute(&buf, data); err != nil {
		return false, fmt.Errorf("render landing page: %w", err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return true, c.Send(buf.Bytes())
}
