package server

import (
	"net"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/screepers/steamless-client/internal/config"
)

// newUpstreamTransport 构建转发用 Transport。
// 关闭自动解压：Accept-Encoding 原样交给后端，响应体按后端编码直接回写浏览器。
func newUpstreamTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
		ForceAttemptHTTP2:     true,
		DisableCompression:    true,
	}
}

// NewUpstreamClient 返回 API 转发与 official-like 探测共用的 http.Client。
// 3xx 不跟随，原样交给浏览器；仅当 UpstreamTimeout > 0 时设置整体超时。
func NewUpstreamClient(cfg *config.Config) *http.Client {
	client := &http.Client{
		Transport: newUpstreamTransport(),
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	if cfg != nil {
		if timeout := cfg.Global.UpstreamTimeout.DurationValue(); timeout > 0 {
			client.Timeout = timeout
		}
	}
	return client
}

// hopByHopHeaders: RFC 7230 6.1，外加非标准的 Proxy-Connection。
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// CopyHeaders 追加 src 的端到端头到 dst。
// 固定的 hop-by-hop 字段以及 Connection 头中列出的字段都不会复制。
func CopyHeaders(dst, src http.Header) {
	listed := connectionTokens(src)
	for key, values := range src {
		canonical := textproto.CanonicalMIMEHeaderKey(key)
		if IsHopByHopHeader(canonical) {
			continue
		}
		if _, skip := listed[canonical]; skip {
			continue
		}
		for _, value := range values {
			dst.Add(canonical, value)
		}
	}
}

// IsHopByHopHeader reports whether key is one of the fixed hop-by-hop headers.
func IsHopByHopHeader(key string) bool {
	canonical := textproto.CanonicalMIMEHeaderKey(key)
	for _, name := range hopByHopHeaders {
		if name == canonical {
			return true
		}
	}
	return false
}

func connectionTokens(h http.Header) map[string]struct{} {
	values := h.Values("Connection")
	if len(values) == 0 {
		return nil
	}
	tokens := make(map[string]struct{})
	for _, value := range values {
		for _, token := range strings.Split(value, ",") {
			if token = strings.TrimSpace(token); token != "" {
				tokens[textproto.CanonicalMIMEHeaderKey(token)] = struct{}{}
			}
		}
	}
	return tokens
}
