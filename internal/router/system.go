package router

import (
	"github.com/labstack/echo/v4"

	"github.com/deppfellow/candychain/internal/handler"
	"github.com/deppfellow/candychain/internal/middleware"
	"github.com/deppfellow/candychain/internal/server"
)

// registerSystemRoutes mounts the endpoints that sit outside the candy API:
// health, metrics, docs and the static files under "/".
func registerSystemRoutes(r *echo.Echo, s *server.Server, h *handler.Handlers, m *middleware.Middlewares) {
	r.GET("/status", h.Health.CheckHealth)
	r.GET("/metrics", m.Metrics.Handler())
	r.GET("/docs", h.OpenAPI.ServeOpenAPIUI)

	// Explicit routes win over the catch-all, so "/" still greets.
	r.Static("/", s.Config.Server.StaticDir)
}
