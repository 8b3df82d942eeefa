package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/screepers/steamless-client/internal/archive"
	"github.com/screepers/steamless-client/internal/backend"
	"github.com/screepers/steamless-client/internal/logging"
	"github.com/screepers/steamless-client/internal/metrics"
	"github.com/screepers/steamless-client/internal/rewrite"
)

// OfficialLikeProber 判断私服是否声明 official-like，测试中可替换。
type OfficialLikeProber interface {
	OfficialLike(ctx context.Context, target *url.URL, prefix string) bool
}

// AppOptions controls how the Fiber application serves the client package.
type AppOptions struct {
	Logger  *logrus.Logger
	Binding *ClientBinding
	Archive archive.Store
	Proxy   ProxyHandler
	// Rewriter 为空时按 Binding 的模块与策略创建。
	Rewriter *rewrite.Rewriter
	// Prober 为空时 build.min.js 不做 official-like 探测。
	Prober  OfficialLikeProber
	Metrics *metrics.Metrics
	// Landing/Static 仅在路径内嵌后端模式下生效，为空表示关闭对应功能。
	Landing *Landing
	Static  fs.FS
}

const (
	contextKeyRequestID = "_steamless_request_id"
	contextKeyKind      = "_steamless_kind"
)

// 请求分类，用作指标标签。
const (
	kindDiagnostics = "diagnostics"
	kindStatic      = "static"
	kindLanding     = "landing"
	kindAsset       = "asset"
	kindProxy       = "proxy"
	kindUnmatched   = "unmatched"
	kindUpgrade     = "upgrade"
)

const immutableCacheControl = "public,max-age=31536000,immutable"

// NewApp builds a Fiber application that serves archive assets and falls back
// to the proxy handler for everything the archive cannot answer.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Binding == nil {
		return nil, errors.New("client binding is required")
	}
	if opts.Archive == nil {
		return nil, errors.New("archive is required")
	}
	if opts.Proxy == nil {
		return nil, errors.New("proxy handler is required")
	}
	if opts.Binding.ListenPort <= 0 {
		return nil, fmt.Errorf("invalid listen port: %d", opts.Binding.ListenPort)
	}
	if opts.Rewriter == nil {
		opts.Rewriter = rewrite.New(rewrite.Options{
			ModuleKey: opts.Binding.ModuleKey,
			Beautify:  opts.Binding.Strategy.Beautify,
			Logger:    opts.Logger,
		})
	}

	h := &assetHandler{
		opts:     opts,
		selector: backend.NewSelector(opts.Binding.FixedBackend),
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(requestContextMiddleware(opts))

	app.All("/*", h.serve)

	return app, nil
}

// requestContextMiddleware 负责生成请求 ID，并在请求结束后记录指标。
func requestContextMiddleware(opts AppOptions) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}
		opts.Metrics.ObserveRequest(requestKind(c), status, time.Since(start))
		return err
	}
}

type assetHandler struct {
	opts     AppOptions
	selector *backend.Selector
}

func (h *assetHandler) serve(c fiber.Ctx) error {
	rawPath := rawRequestPath(c)
	if isDiagnosticsPath(rawPath) {
		setKind(c, kindDiagnostics)
		return c.Next()
	}

	// WebSocket 升级由前端 net/http 处理，进入 Fiber 说明绕过了前端。
	if c.Get(fiber.HeaderUpgrade) != "" {
		setKind(c, kindUpgrade)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "upgrade_required",
		})
	}

	if !h.selector.Fixed() {
		if ok, err := serveStatic(c, h.opts.Static, c.Path()); ok {
			setKind(c, kindStatic)
			return err
		}
		if p := c.Path(); p == "/" || p == "/index.html" {
			ok, err := h.opts.Landing.Render(c)
			if err != nil {
				h.opts.Logger.WithFields(logrus.Fields{
					"action":     "landing",
					"request_id": RequestID(c),
					"error":      err.Error(),
				}).Error("landing_failed")
				return err
			}
			if ok {
				setKind(c, kindLanding)
				return nil
			}
		}
	}

	desc, ok := h.selector.Extract(rawPath)
	if !ok {
		setKind(c, kindUnmatched)
		return renderBackendUnmatched(c, h.opts.Logger, rawPath)
	}

	prefix := backend.DetectPrefix(desc.Backend, desc.Endpoint)
	name := backend.AssetPath(desc.Endpoint, prefix)
	entry, err := h.opts.Archive.Lookup(name)
	switch {
	case err == nil:
		setKind(c, kindAsset)
		return h.serveAsset(c, desc, prefix, name, entry)
	case !errors.Is(err, archive.ErrNotFound):
		return err
	}

	setKind(c, kindProxy)
	// 代理需要完整的 path+query。
	desc, _ = h.selector.Extract(rawRequestURI(c))
	route, err := NewProxyRoute(desc, h.opts.Binding.InternalBackend, h.opts.Binding.ModuleKey)
	if err != nil {
		h.opts.Logger.WithFields(logrus.Fields{
			"action":     "backend_lookup",
			"backend":    desc.Backend,
			"request_id": RequestID(c),
			"error":      err.Error(),
		}).Warn("backend_invalid")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "backend_invalid",
		})
	}
	return h.opts.Proxy.Handle(c, route)
}

func (h *assetHandler) serveAsset(c fiber.Ctx, desc backend.Descriptor, prefix, name string, entry *archive.Entry) error {
	modTime := h.opts.Archive.ModTime()
	c.Set(fiber.HeaderLastModified, modTime.UTC().Format(http.TimeFormat))
	if notModified(c.Get(fiber.HeaderIfModifiedSince), modTime) {
		c.Status(fiber.StatusNotModified)
		return nil
	}

	rctx := h.rewriteContext(c, desc, prefix)
	c.Set(fiber.HeaderContentType, rewrite.ContentType(name))
	if c.Query("bust") != "" {
		c.Set(fiber.HeaderCacheControl, immutableCacheControl)
	}

	if !rewrite.NeedsText(name) {
		body, err := entry.Open()
		if err != nil {
			return fmt.Errorf("open %s: %w", name, err)
		}
		h.logServed(c, desc, name, false)
		return c.SendStream(body, int(entry.Size))
	}

	src, err := entry.ReadText()
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if rewrite.IsBundle(name) && h.opts.Binding.Strategy.ProbeOfficialLike && !rctx.Official && h.opts.Prober != nil {
		if target, err := backend.Target(desc.Backend, rctx.Internal); err == nil {
			rctx.OfficialLike = h.opts.Prober.OfficialLike(c.Context(), target, prefix)
		}
	}
	out := h.opts.Rewriter.Rewrite(name, src, rctx)
	rewritten := out != src
	if rewritten {
		h.opts.Metrics.RewriteApplied(name)
	}
	h.logServed(c, desc, name, rewritten)
	return c.SendString(out)
}

// rewriteContext 为当前请求构建改写上下文，每次请求都重新计算。
func (h *assetHandler) rewriteContext(c fiber.Ctx, desc backend.Descriptor, prefix string) *rewrite.Context {
	host := normalizeHost(string(c.Request().Header.Host()))
	if host == "" {
		host = h.opts.Binding.FallbackHost()
	}
	return &rewrite.Context{
		Host:         host,
		Backend:      desc.Backend,
		Prefix:       prefix,
		Official:     backend.IsOfficial(desc.Backend),
		FixedBackend: h.selector.Fixed(),
		Internal:     h.opts.Binding.InternalBackend,
	}
}

func (h *assetHandler) logServed(c fiber.Ctx, desc backend.Descriptor, name string, rewritten bool) {
	fields := logging.RequestFields(desc.Backend, desc.Endpoint, h.opts.Binding.ModuleKey, RequestID(c))
	fields["action"] = "asset"
	fields["asset"] = name
	fields["rewritten"] = rewritten
	h.opts.Logger.WithFields(fields).Debug("asset_served")
}

func renderBackendUnmatched(c fiber.Ctx, logger *logrus.Logger, path string) error {
	logger.WithFields(logrus.Fields{
		"action":     "backend_lookup",
		"path":       path,
		"request_id": RequestID(c),
	}).Debug("backend unmatched")

	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": "backend_unmatched",
	})
}

// rawRequestPath 返回未经规范化的请求路径：/(http://host) 中的 // 不能被合并。
func rawRequestPath(c fiber.Ctx) string {
	if raw := c.Request().URI().PathOriginal(); len(raw) > 0 {
		if idx := strings.IndexAny(string(raw), "?#"); idx >= 0 {
			return string(raw[:idx])
		}
		return string(raw)
	}
	return c.Path()
}

// rawRequestURI 返回原始 path+query。
func rawRequestURI(c fiber.Ctx) string {
	path := rawRequestPath(c)
	if query := c.Request().URI().QueryString(); len(query) > 0 {
		return path + "?" + string(query)
	}
	return path
}

func setKind(c fiber.Ctx, kind string) {
	c.Locals(contextKeyKind, kind)
}

func requestKind(c fiber.Ctx) string {
	if value, ok := c.Locals(contextKeyKind).(string); ok {
		return value
	}
	return kindUnmatched
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

func isDiagnosticsPath(path string) bool {
	return strings.HasPrefix(path, "/-/")
}
