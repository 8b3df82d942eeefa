package rewrite

import (
	"embed"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/goccy/go-json"
)

//go:embed scripts/*.js
var scriptFS embed.FS

// ErrUnknownScript 表示请求的脚本模板不存在。
var ErrUnknownScript = errors.New("unknown script template")

var scriptToken = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Arg 是注入脚本的一个具名参数，Value 以 JSON 形式写入脚本。
type Arg struct {
	Name  string
	Value any
}

// ScriptTag 渲染 scripts/<name>.js 模板并包裹为立即执行的 <script> 标签。
// 未提供的 {{token}} 渲染为 null。
func ScriptTag(name string, args []Arg) (string, error) {
	raw, err := scriptFS.ReadFile("scripts/" + name + ".js")
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownScript, name)
	}

	values := make(map[string]string, len(args))
	for _, arg := range args {
		encoded, err := json.Marshal(arg.Value)
		if err != nil {
			return "", fmt.Errorf("encode script arg %s: %w", arg.Name, err)
		}
		values[arg.Name] = string(encoded)
	}

	body := scriptToken.ReplaceAllStringFunc(string(raw), func(token string) string {
		key := token[2 : len(token)-2]
		if v, ok := values[key]; ok {
			return v
		}
		return "null"
	})
	body = strings.TrimRight(body, "\n")

	return "<script>\n(function() {\n" + body + "\n})();\n</script>", nil
}

// ScriptNames 列出内置脚本模板名称（不含扩展名）。
func ScriptNames() []string {
	entries, err := scriptFS.ReadDir("scripts")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, strings.TrimSuffix(entry.Name(), ".js"))
	}
	return names
}
