// Package router builds the Echo instance: it installs the middleware
// chain and maps every route to its handler.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/deppfellow/candychain/internal/handler"
	"github.com/deppfellow/candychain/internal/middleware"
	"github.com/deppfellow/candychain/internal/server"
)

// NewRouter returns a configured Echo instance. The route table is fixed
// once this returns.
func NewRouter(s *server.Server, h *handler.Handlers) *echo.Echo {
	middlewares := middleware.NewMiddlewares(s)

	router := echo.New()
	router.HideBanner = true
	router.HidePort = true
	router.HTTPErrorHandler = middlewares.Global.GlobalErrorHandler

	router.Use(
		middleware.RequestID(),
		middlewares.Tracing.NewRelicMiddleware(),
		middlewares.Tracing.EnhanceTracing(),
		middlewares.ContextEnhancer.EnhanceContext(),
		middlewares.Metrics.Middleware(),
		middlewares.Global.RequestLogger(),
		middlewares.Global.Recover(),
		middlewares.Global.Secure(),
		middlewares.Global.CORS(),
	)

	registerSystemRoutes(router, s, h, middlewares)
	registerCandyRoutes(router, h)
	registerAdminRoutes(router, h, middlewares)

	return router
}

func registerCandyRoutes(r *echo.Echo, h *handler.Handlers) {
	r.GET("/", h.Welcome.Welcome)

	candies := r.Group("/candies")
	candies.GET("", h.Candy.ListAll)
	candies.GET("/", h.Candy.ListAll)
	candies.GET("/:candy", h.Candy.FindByName)
	candies.POST("", handler.Handle(h.Candy.Create, http.StatusCreated))
	candies.PUT("/:candy/owner", handler.Handle(h.Candy.ChangeOwner, http.StatusOK))
}

// registerAdminRoutes mounts the enrollment and wallet routes behind the
// per-client rate limiter.
func registerAdminRoutes(r *echo.Echo, h *handler.Handlers, m *middleware.Middlewares) {
	limit := m.RateLimit.Limit()

	r.GET("/Admin", h.Admin.EnrollAdmin, limit)
	r.GET("/Admin/", h.Admin.EnrollAdmin, limit)
	r.GET("/registeruser/:id", h.Admin.RegisterUser, limit)
	r.GET("/identities", h.Admin.ListIdentities, limit)
	r.DELETE("/identities/:id", h.Admin.RemoveIdentity, limit)
	r.POST("/ledger/init", handler.Handle(h.Ledger.Init, http.StatusOK), limit)
}
