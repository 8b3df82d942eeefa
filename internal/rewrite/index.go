package rewrite

import (
	"regexp"
	"strings"
)

// TitleMarker 是 index.html 中注入脚本的锚点。
const TitleMarker = "<title>Screeps</title>"

type trackerStub struct {
	pattern *regexp.Regexp
	stub    string
}

var trackerStubs = []trackerStub{
	proxyStub("xsolla", "xnt"),
	proxyStub("facebook", "fbq"),
	proxyStub("google", "ga"),
	proxyStub("mxpnl", "mixpanel"),
	proxyStub("twttr", "twttr"),
	{
		pattern: trackerPattern("onRecaptchaLoad"),
		stub:    "<script>function onRecaptchaLoad(){}</script>",
	},
}

func trackerPattern(vendor string) *regexp.Regexp {
	return regexp.MustCompile(`<script[^>]*>[^>]*` + regexp.QuoteMeta(vendor) + `[^>]*</script>`)
}

func proxyStub(vendor, symbol string) trackerStub {
	return trackerStub{
		pattern: trackerPattern(vendor),
		stub:    "<script>" + symbol + " = new Proxy(() => " + symbol + ", { get: () => " + symbol + " })</script>",
	}
}

// RewriteIndex 在标题锚点之后插入脚本标签，并把第三方统计脚本替换为无害桩。
func RewriteIndex(src string, tags []string) string {
	if len(tags) > 0 {
		replacement := TitleMarker + "\n" + strings.Join(tags, "\n")
		src = strings.Replace(src, TitleMarker, replacement, 1)
	}
	for _, tracker := range trackerStubs {
		src = tracker.pattern.ReplaceAllLiteralString(src, tracker.stub)
	}
	return src
}
