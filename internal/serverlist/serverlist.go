// Package serverlist 读取服务器列表文件并生成落地页所需的分组与链接。
package serverlist

import (
	_ "embed"
	"fmt"
	"html/template"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

//go:embed server_list.json
var defaultList []byte

// Server 是列表文件中的一条记录。
type Server struct {
	Type      string `json:"type" yaml:"type"`
	Name      string `json:"name" yaml:"name"`
	URL       string `json:"url" yaml:"url"`
	Subdomain string `json:"subdomain,omitempty" yaml:"subdomain,omitempty"`
}

// Entry 是渲染到落地页的服务器链接。
// Link/API 中的 "(origin)" 必须原样输出，不能被模板转义为 %28/%29。
type Entry struct {
	Server
	Link template.URL
	API  template.URL
}

// Group 是同一 type 的服务器集合，按首次出现顺序排列。
type Group struct {
	Type    string
	Name    string
	Logo    template.URL
	Servers []Entry
}

// LinkOptions 描述浏览器访问本代理的地址。
type LinkOptions struct {
	Protocol string
	Host     string
	Port     int
}

// Page 是社区资源链接。
type Page struct {
	Title string
	URL   string
}

// Load 读取服务器列表；path 为空时使用内置列表。.yaml/.yml 以 YAML 解析，其它按 JSON。
func Load(path string) ([]Server, error) {
	if path == "" {
		return Parse(defaultList, "json")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取服务器列表失败: %w", err)
	}
	format := "json"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	}
	return Parse(data, format)
}

// Parse 按给定格式解析服务器列表。
func Parse(data []byte, format string) ([]Server, error) {
	var servers []Server
	var err error
	if format == "yaml" {
		err = yaml.Unmarshal(data, &servers)
	} else {
		err = json.Unmarshal(data, &servers)
	}
	if err != nil {
		return nil, fmt.Errorf("解析服务器列表失败: %w", err)
	}
	for i, server := range servers {
		if server.Type == "" || server.URL == "" {
			return nil, fmt.Errorf("服务器列表第 %d 项缺少 type 或 url", i)
		}
	}
	return servers, nil
}

// Build 按 type 分组并生成每个服务器的访问链接与状态 API 地址。
func Build(servers []Server, opts LinkOptions) ([]Group, error) {
	if opts.Protocol == "" {
		opts.Protocol = "http"
	}
	hostPort := opts.Host
	if opts.Port != defaultPort(opts.Protocol) {
		hostPort = opts.Host + ":" + strconv.Itoa(opts.Port)
	}
	useSubdomains := opts.Host == "localhost"

	var groups []Group
	index := make(map[string]int)
	for _, server := range servers {
		origin, urlPath, err := splitURL(server.URL)
		if err != nil {
			return nil, fmt.Errorf("服务器 %s 地址无效: %w", server.Name, err)
		}

		subdomain := ""
		if useSubdomains && server.Subdomain != "" {
			subdomain = server.Subdomain + "."
		}
		entry := Entry{
			Server: server,
			Link:   template.URL(fmt.Sprintf("%s://%s%s/(%s)%s", opts.Protocol, subdomain, hostPort, origin, urlPath)),
			API:    template.URL(fmt.Sprintf("%s://%s/(%s)%sapi/version", opts.Protocol, hostPort, origin, urlPath)),
		}

		pos, ok := index[server.Type]
		if !ok {
			group := Group{Type: server.Type, Name: capitalize(server.Type)}
			if server.Type == "official" {
				group.Logo = template.URL(fmt.Sprintf("%s://%s:%d/(file)/logotype.svg", opts.Protocol, opts.Host, opts.Port))
			}
			groups = append(groups, group)
			pos = len(groups) - 1
			index[server.Type] = pos
		}
		groups[pos].Servers = append(groups[pos].Servers, entry)
	}
	return groups, nil
}

// CommunityPages 返回落地页底部的社区链接。
func CommunityPages() []Page {
	return []Page{
		{Title: "Screeps Wiki", URL: "https://wiki.screepspl.us/index.php/Screeps_Wiki"},
		{Title: "Community Grafana", URL: "https://pandascreeps.com/"},
		{Title: "MarvinTMB's videos", URL: "https://www.youtube.com/playlist?list=PLGlzrjCmziEj7hQZSwcmkXkMXgkQXUQ6C"},
		{Title: "Atanner's videos", URL: "https://www.youtube.com/watch?v=N7KMOG8C5vA&list=PLw9di5JwI6p-HUP0yPUxciaEjrsFb2kR2"},
		{Title: "Muon's blog", URL: "https://bencbartlett.com/blog/tag/screeps/"},
		{Title: "Harabi's blog", URL: "https://sy-harabi.github.io/"},
	}
}

func splitURL(raw string) (string, string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", "", fmt.Errorf("缺少协议或主机: %s", raw)
	}
	urlPath := u.EscapedPath()
	if !strings.HasSuffix(urlPath, "/") {
		urlPath += "/"
	}
	return u.Scheme + "://" + u.Host, urlPath, nil
}

func defaultPort(protocol string) int {
	if protocol == "https" {
		return 443
	}
	return 80
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
