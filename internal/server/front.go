package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
)

// FrontOptions 描述对外监听的 net/http 服务。
type FrontOptions struct {
	Addr string
	App  *fiber.App
	// WebSocket 处理所有携带 Upgrade 头的请求。
	WebSocket http.Handler
}

// NewHTTPServer 返回前端 http.Server：携带 Upgrade 头的请求交给 WebSocket 代理，
// 其余请求通过 adaptor 进入 Fiber。
func NewHTTPServer(opts FrontOptions) (*http.Server, error) {
	if opts.App == nil {
		return nil, errors.New("fiber app is required")
	}
	if opts.WebSocket == nil {
		return nil, errors.New("websocket handler is required")
	}
	return &http.Server{
		Addr:              opts.Addr,
		Handler:           newFrontHandler(opts.App, opts.WebSocket),
		ReadHeaderTimeout: 30 * time.Second,
	}, nil
}

func newFrontHandler(app *fiber.App, ws http.Handler) http.Handler {
	fiberHandler := adaptor.FiberApp(app)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Upgrade") != "" {
			ws.ServeHTTP(w, r)
			return
		}
		fiberHandler.ServeHTTP(w, r)
	})
}
