package rewrite

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/js"
)

const (
	officialCDN    = "https://d3os7yery2usni.cloudfront.net"
	officialClient = "https://screeps.com/a/"
	// maxOptionsScan 限制单个 options 对象向后扫描的字节数。
	maxOptionsScan = 64 << 10
)

var (
	optionsPattern     = regexp.MustCompile(`\boptions=\{`)
	roomHistoryPattern = regexp.MustCompile(`http://"\+s\.options\.host\+":"\+s\.options\.port\+"/room-history`)
)

// RewriteBundle 是 build.min.js 的默认规则：补全服务器 options，并把历史记录、CDN 与客户端地址指向本代理。
func RewriteBundle(ctx *Context, src string) string {
	host, port := backendHostPort(ctx.Backend)
	src = PatchOptions(src, host, port, ctx.Official || ctx.OfficialLike)
	return RewriteBundleURLs(ctx, src)
}

// RewriteBundleURLs 只替换 bundle 中写死的地址，不触碰 options 对象。
func RewriteBundleURLs(ctx *Context, src string) string {
	if !ctx.Official {
		src = roomHistoryPattern.ReplaceAllLiteralString(src, ctx.URL(RouteHistory, true))
		src = strings.ReplaceAll(src, officialCDN, ctx.Backend+"/assets")
	}
	return strings.ReplaceAll(src, officialClient, ctx.URL(RouteRoot, true))
}

// PatchOptions 查找每个 `options={...}` 对象字面量，对包含 apiUrl 的对象追加 host、port、official 三个字段。
//
// 对象的结束位置通过逐个尝试 `}` 并用 JS 解析器校验语法来确定；无法解析的候选被跳过。
// 匹配从后向前处理，插入内容不会影响前面的偏移。
func PatchOptions(src, host, port string, official bool) string {
	matches := optionsPattern.FindAllStringIndex(src, -1)
	for m := len(matches) - 1; m >= 0; m-- {
		start := matches[m][0]
		limit := len(src)
		if start+maxOptionsScan < limit {
			limit = start + maxOptionsScan
		}
		for i := start; i < limit; i++ {
			next := strings.IndexByte(src[i:limit], '}')
			if next < 0 {
				break
			}
			i += next
			payload := src[start : i+1]
			if !parsesAsFunctionBody(payload) {
				continue
			}
			if strings.Contains(payload, "apiUrl") {
				src = src[:i] + optionsSuffix(host, port, official) + src[i+1:]
			}
			break
		}
	}
	return src
}

func optionsSuffix(host, port string, official bool) string {
	encodedHost, err := json.Marshal(host)
	if err != nil {
		encodedHost = []byte(strconv.Quote(host))
	}
	if port == "" {
		port = "80"
	}
	return ",\nhost: " + string(encodedHost) +
		",\nport: " + port +
		",\nofficial: " + strconv.FormatBool(official) +
		",\n} "
}

func parsesAsFunctionBody(payload string) bool {
	_, err := js.Parse(parse.NewInputString("(function(){\n"+payload+"\n})"), js.Options{})
	return err == nil
}

func backendHostPort(backend string) (string, string) {
	u, err := url.Parse(backend)
	if err != nil {
		return "", ""
	}
	return u.Hostname(), u.Port()
}
