package proxy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/screepers/steamless-client/internal/logging"
	"github.com/screepers/steamless-client/internal/metrics"
	"github.com/screepers/steamless-client/internal/server"
)

// Handler 把归档未命中的请求原样转发给后端，并把响应流式写回浏览器。
// 不做缓存与重试，所有上游请求复用共享 http.Client。
type Handler struct {
	client  *http.Client
	logger  *logrus.Logger
	metrics *metrics.Metrics
}

// NewHandler constructs a proxy handler with shared HTTP client/logger/metrics.
func NewHandler(client *http.Client, logger *logrus.Logger, m *metrics.Metrics) *Handler {
	if client == nil {
		client = http.DefaultClient
	}
	return &Handler{
		client:  client,
		logger:  logger,
		metrics: m,
	}
}

// Handle 实现 server.ProxyHandler。
func (h *Handler) Handle(c fiber.Ctx, route *server.ProxyRoute) error {
	started := time.Now()
	requestID := server.RequestID(c)

	upstreamURL, err := resolveUpstreamURL(route)
	if err != nil {
		h.logResult(route, "", requestID, 0, started, err)
		return h.writeError(c, fiber.StatusBadGateway, "upstream_failed")
	}

	req, err := h.buildUpstreamRequest(c, upstreamURL)
	if err != nil {
		h.logResult(route, upstreamURL.String(), requestID, 0, started, err)
		return h.writeError(c, fiber.StatusBadGateway, "upstream_failed")
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return h.respondTransportError(c, route, upstreamURL, requestID, started, err)
	}
	defer resp.Body.Close()

	copyResponseHeaders(c, resp.Header)
	c.Status(resp.StatusCode)

	if c.Method() == http.MethodHead {
		h.logResult(route, upstreamURL.String(), requestID, resp.StatusCode, started, nil)
		return nil
	}

	_, err = io.Copy(c.Response().BodyWriter(), resp.Body)
	h.logResult(route, upstreamURL.String(), requestID, resp.StatusCode, started, err)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, fmt.Sprintf("proxy stream failed: %v", err))
	}
	return nil
}

// respondTransportError 连接被拒绝时返回纯文本 500，让客户端停止加载；其它错误返回 502 JSON。
func (h *Handler) respondTransportError(
	c fiber.Ctx,
	route *server.ProxyRoute,
	upstream *url.URL,
	requestID string,
	started time.Time,
	err error,
) error {
	code, _ := DescribeError(err)
	h.metrics.ProxyError(code)
	h.logResult(route, upstream.String(), requestID, 0, started, err)

	if code == "ECONNREFUSED" {
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlain)
		return c.Status(fiber.StatusInternalServerError).SendString(FormatError(err))
	}
	return h.writeError(c, fiber.StatusBadGateway, "upstream_failed")
}

func (h *Handler) buildUpstreamRequest(c fiber.Ctx, upstream *url.URL) (*http.Request, error) {
	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := http.NewRequestWithContext(ctx, c.Method(), upstream.String(), bytesReader(c.BodyRaw()))
	if err != nil {
		return nil, err
	}

	server.CopyHeaders(req.Header, fiberHeadersAsHTTP(c))
	// change origin：后端看到的是自己的 Host。
	req.Host = upstream.Host
	req.Header.Del("Host")
	if ip := c.IP(); ip != "" {
		if prior := req.Header.Get("X-Forwarded-For"); prior != "" {
			req.Header.Set("X-Forwarded-For", prior+", "+ip)
		} else {
			req.Header.Set("X-Forwarded-For", ip)
		}
	}
	return req, nil
}

func (h *Handler) writeError(c fiber.Ctx, status int, code string) error {
	return c.Status(status).JSON(fiber.Map{"error": code})
}

func (h *Handler) logResult(
	route *server.ProxyRoute,
	upstream string,
	requestID string,
	status int,
	started time.Time,
	err error,
) {
	if h.logger == nil {
		return
	}
	fields := logging.RequestFields(route.Descriptor.Backend, route.Endpoint, route.ModuleKey, requestID)
	fields["action"] = "proxy"
	fields["upstream"] = upstream
	fields["upstream_status"] = status
	fields["elapsed_ms"] = time.Since(started).Milliseconds()
	if err != nil {
		code, description := DescribeError(err)
		fields["error"] = err.Error()
		fields["error_code"] = code
		fields["error_description"] = description
		h.logger.WithFields(fields).Error("proxy_failed")
		return
	}
	h.logger.WithFields(fields).Info("proxy_complete")
}

// resolveUpstreamURL 拼接目标 origin 与原始 endpoint，保留 endpoint 的转义形式。
func resolveUpstreamURL(route *server.ProxyRoute) (*url.URL, error) {
	if route == nil || route.Target == nil {
		return nil, fmt.Errorf("proxy route has no target")
	}
	endpoint := route.Endpoint
	if endpoint == "" {
		endpoint = "/"
	}
	return url.Parse(strings.TrimRight(route.Target.String(), "/") + endpoint)
}

func bytesReader(b []byte) io.Reader {
	if len(b) == 0 {
		return http.NoBody
	}
	return bytes.NewReader(b)
}

func fiberHeadersAsHTTP(c fiber.Ctx) http.Header {
	header := http.Header{}
	c.Request().Header.VisitAll(func(key, value []byte) {
		header.Add(string(key), string(value))
	})
	return header
}

// copyResponseHeaders 逐值追加，Set-Cookie 等多值头不会被覆盖。
func copyResponseHeaders(c fiber.Ctx, headers http.Header) {
	for key, values := range headers {
		if server.IsHopByHopHeader(key) {
			continue
		}
		for _, value := range values {
			c.Response().Header.Add(key, value)
		}
	}
}
