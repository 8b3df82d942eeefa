package routes

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"

	"github.com/screepers/steamless-client/internal/metrics"
)

// RegisterMetricsRoute 在 /-/metrics 暴露 Prometheus 指标。
func RegisterMetricsRoute(app *fiber.App, m *metrics.Metrics) {
	if app == nil || m == nil {
		return
	}
	app.Get("/-/metrics", adaptor.HTTPHandler(m.Handler()))
}
