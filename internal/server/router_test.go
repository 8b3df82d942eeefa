package server

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/screepers/steamless-client/internal/archive"
	"github.com/screepers/steamless-client/internal/archive/archivetest"
	"github.com/screepers/steamless-client/internal/config"
	"github.com/screepers/steamless-client/web"
)

var archiveModTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

var testPackage = map[string]string{
	"index.html":       "<html><head><title>Screeps</title></head><body></body></html>",
	"config.js":        "var API_URL = 'https://screeps.com/api/';",
	"build.min.js":     `s.options={apiUrl:"/api/"};`,
	"images/logo.png":  "\x89PNG\r\n\x1a\nbinary",
	"logotype.svg":     `<svg xmlns="http://www.w3.org/2000/svg"></svg>`,
	"vendor/plain.txt": "plain text",
}

func TestRouterServesRewrittenIndexInFixedMode(t *testing.T) {
	app := newTestApp(t, "https://screeps.com", nil)

	req := httptest.NewRequest("GET", "http://localhost:8080/", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 status, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/html" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if reqID := resp.Header.Get("X-Request-ID"); reqID == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}
	if lm := resp.Header.Get("Last-Modified"); lm != archiveModTime.Format(http.TimeFormat) {
		t.Fatalf("unexpected Last-Modified %q", lm)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	if title := doc.Find("title").Text(); title != "Screeps" {
		t.Fatalf("title should be kept, got %q", title)
	}
	if n := doc.Find("script").Length(); n < 3 {
		t.Fatalf("expected injected scripts, got %d", n)
	}
	if app.proxy.calls != 0 {
		t.Fatalf("archive hit must not reach proxy")
	}
}

func TestRouterConditionalGet(t *testing.T) {
	app := newTestApp(t, "https://screeps.com", nil)

	req := httptest.NewRequest("GET", "/config.js", nil)
	req.Header.Set("If-Modified-Since", archiveModTime.Format(http.TimeFormat))
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotModified {
		t.Fatalf("expected 304, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if len(body) != 0 {
		t.Fatalf("304 must have empty body, got %q", body)
	}

	req = httptest.NewRequest("GET", "/config.js", nil)
	req.Header.Set("If-Modified-Since", archiveModTime.Add(-time.Hour).Format(http.TimeFormat))
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for stale cache, got %d", resp.StatusCode)
	}
}

func TestRouterStreamsBinaryAssetsUnchanged(t *testing.T) {
	app := newTestApp(t, "https://screeps.com", nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/images/logo.png?bust=123", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Equal(body, []byte(testPackage["images/logo.png"])) {
		t.Fatalf("binary asset changed: %q", body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "public,max-age=31536000,immutable" {
		t.Fatalf("unexpected cache control %q", cc)
	}
}

func TestRouterEmptyBustIsNotCached(t *testing.T) {
	app := newTestApp(t, "https://screeps.com", nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/vendor/plain.txt?bust=", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "" {
		t.Fatalf("empty bust must not set cache control, got %q", cc)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/html" {
		t.Fatalf("unknown extension should default to text/html, got %q", ct)
	}
}

func TestRouterReturns404WhenBackendUnmatched(t *testing.T) {
	app := newTestApp(t, "", nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/version", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 status, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte(`"backend_unmatched"`)) {
		t.Fatalf("expected backend_unmatched error, got %s", string(body))
	}
}

func TestRouterProxiesArchiveMissWithReturnURL(t *testing.T) {
	app := newTestApp(t, "", nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/(http://localhost:21025)/api/auth/steam?ticket=1", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("expected proxy recorder status, got %d", resp.StatusCode)
	}
	route := app.proxy.lastRoute
	if route == nil {
		t.Fatalf("proxy was not called")
	}
	if route.Descriptor.Backend != "http://localhost:21025" {
		t.Fatalf("unexpected backend %q", route.Descriptor.Backend)
	}
	want := "/api/auth/steam?ticket=1&returnUrl=http%3A%2F%2Flocalhost%3A21025"
	if route.Endpoint != want {
		t.Fatalf("endpoint mismatch:\n got %s\nwant %s", route.Endpoint, want)
	}
	if route.Target.String() != "http://localhost:21025" {
		t.Fatalf("unexpected target %s", route.Target)
	}
}

func TestRouterServesPublicFilesAndLanding(t *testing.T) {
	app := newTestApp(t, "", nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/public/style.css", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/css" {
		t.Fatalf("unexpected content type %q", ct)
	}

	resp, err = app.Test(httptest.NewRequest("GET", "http://localhost:8080/", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected landing page, got %d", resp.StatusCode)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	if doc.Find("section.group").Length() == 0 {
		t.Fatalf("landing page should list server groups")
	}
	link, ok := doc.Find("ul.servers a").First().Attr("href")
	if !ok || !strings.Contains(link, "localhost:8080/(") {
		t.Fatalf("unexpected server link %q", link)
	}
}

func TestRouterLandingLinksReachClient(t *testing.T) {
	app := newTestApp(t, "", nil)

	resp, err := app.Test(httptest.NewRequest("GET", "http://localhost:8080/", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	link, ok := doc.Find("ul.servers a").First().Attr("href")
	if !ok {
		t.Fatalf("landing page has no server link")
	}
	logo, ok := doc.Find("section.group img").First().Attr("src")
	if !ok {
		t.Fatalf("official group should render a logo")
	}
	api, _ := doc.Find("ul.servers .status").First().Attr("data-api")
	for name, raw := range map[string]string{"href": link, "src": logo, "data-api": api} {
		if strings.Contains(raw, "%28") || strings.Contains(raw, "%29") {
			t.Fatalf("%s must keep the backend wrapper literal, got %q", name, raw)
		}
	}

	resp, err = app.Test(httptest.NewRequest("GET", link, nil))
	if err != nil {
		t.Fatalf("follow %s: %v", link, err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("server link %s should serve the client, got %d", link, resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte("<title>Screeps</title>")) {
		t.Fatalf("server link %s should serve the rewritten index, got %s", link, body)
	}

	resp, err = app.Test(httptest.NewRequest("GET", logo, nil))
	if err != nil {
		t.Fatalf("follow %s: %v", logo, err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("logo %s should be served from the package, got %d", logo, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/svg+xml" {
		t.Fatalf("unexpected logo content type %q", ct)
	}
	if app.proxy.calls != 0 {
		t.Fatalf("landing links must be served from the package, proxy calls %d", app.proxy.calls)
	}
}

func TestRouterFixedModeSkipsPublicFiles(t *testing.T) {
	app := newTestApp(t, "https://screeps.com", nil)

	if _, err := app.Test(httptest.NewRequest("GET", "/public/style.css", nil)); err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if app.proxy.calls != 1 {
		t.Fatalf("fixed mode should proxy unknown paths, got %d calls", app.proxy.calls)
	}
}

func TestRouterRejectsUpgradeRequests(t *testing.T) {
	app := newTestApp(t, "https://screeps.com", nil)

	req := httptest.NewRequest("GET", "/socket/websocket", nil)
	req.Header.Set("Upgrade", "websocket")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestRouterProbesOfficialLikeForBundle(t *testing.T) {
	prober := &proberStub{result: true}
	app := newTestApp(t, "", prober)

	resp, err := app.Test(httptest.NewRequest("GET", "/(http://localhost:21025)/build.min.js", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte("official: true")) {
		t.Fatalf("expected official-like patch, got %s", body)
	}
	if !bytes.Contains(body, []byte(`host: "localhost"`)) || !bytes.Contains(body, []byte("port: 21025")) {
		t.Fatalf("expected host and port patch, got %s", body)
	}
	if prober.target != "http://localhost:21025" {
		t.Fatalf("unexpected probe target %q", prober.target)
	}
}

func TestRouterSkipsProbeForOfficialBackend(t *testing.T) {
	prober := &proberStub{result: false}
	app := newTestApp(t, "https://screeps.com", prober)

	resp, err := app.Test(httptest.NewRequest("GET", "/build.min.js", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte("official: true")) {
		t.Fatalf("official backend should be patched as official, got %s", body)
	}
	if prober.calls != 0 {
		t.Fatalf("official backend must not be probed")
	}
}

type testApp struct {
	*fiber.App
	proxy *proxyRecorder
}

func newTestApp(t *testing.T, fixedBackend string, prober OfficialLikeProber) *testApp {
	t.Helper()

	path := archivetest.WriteZip(t, testPackage, archiveModTime)
	index, err := archive.Load(path)
	if err != nil {
		t.Fatalf("load archive: %v", err)
	}

	cfg := &config.Config{
		Global: config.GlobalConfig{ListenHost: "localhost", ListenPort: 8080},
		Client: config.ClientConfig{
			Package:      path,
			Backend:      fixedBackend,
			ClientModule: "steam",
		},
	}
	binding, err := NewClientBinding(cfg, index)
	if err != nil {
		t.Fatalf("failed to create binding: %v", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	landing, err := NewLanding(web.FS, "", binding.DisplayHost, binding.ListenPort)
	if err != nil {
		t.Fatalf("failed to create landing: %v", err)
	}

	recorder := &proxyRecorder{}
	app, err := NewApp(AppOptions{
		Logger:  logger,
		Binding: binding,
		Archive: index,
		Proxy:   recorder,
		Prober:  prober,
		Landing: landing,
		Static:  web.FS,
	})
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}

	return &testApp{App: app, proxy: recorder}
}

type proxyRecorder struct {
	lastRoute *ProxyRoute
	calls     int
}

func (p *proxyRecorder) Handle(c fiber.Ctx, route *ProxyRoute) error {
	p.lastRoute = route
	p.calls++
	return c.SendStatus(fiber.StatusNoContent)
}

type proberStub struct {
	result bool
	calls  int
	target string
}

func (p *proberStub) OfficialLike(_ context.Context, target *url.URL, _ string) bool {
	p.calls++
	p.target = target.String()
	return p.result
}
