package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/deppfellow/candychain/internal/config"
	"github.com/deppfellow/candychain/internal/middleware"
	"github.com/deppfellow/candychain/internal/server"
)

// HealthHandler reports whether the service and its dependencies respond.
type HealthHandler struct {
	Handler
}

func NewHealthHandler(s *server.Server) *HealthHandler {
	return &HealthHandler{
		Handler: NewHandler(s),
	}
}

// dependency is one check of GET /status. Optional checks are reported
// but never flip the overall status.
type dependency struct {
	name     string
	required bool
	ping     func(ctx context.Context) error
}

func (h *HealthHandler) dependencies() []dependency {
	cfg := h.server.Config
	deps := []dependency{{
		name:     "ledger",
		required: true,
		ping:     h.server.Ledger.Ping,
	}}

	if h.server.DB != nil {
		deps = append(deps, dependency{
			name:     "database",
			required: true,
			ping:     h.server.DB.Pool.Ping,
		})
	}

	if h.server.Redis != nil {
		deps = append(deps, dependency{
			name:     "redis",
			required: cfg.Wallet.Driver == config.WalletDriverRedis,
			ping: func(ctx context.Context) error {
				return h.server.Redis.Ping(ctx).Err()
			},
		})
	}

	if h.server.CA != nil {
		deps = append(deps, dependency{
			name: "ca",
			ping: h.server.CA.Ping,
		})
	}

	enabled := deps[:0]
	for _, dep := range deps {
		if cfg.Observability.HealthCheckEnabled(dep.name) {
			enabled = append(enabled, dep)
		}
	}
	return enabled
}

func (h *HealthHandler) runCheck(ctx context.Context, logger zerolog.Logger, dep dependency) (map[string]interface{}, bool) {
	ctx, cancel := context.WithTimeout(ctx, h.server.Config.Observability.HealthChecks.Timeout)
	defer cancel()

	start := time.Now()
	err := dep.ping(ctx)
	elapsed := time.Since(start)

	if err == nil {
		logger.Debug().
			Str("check", dep.name).
			Dur("response_time", elapsed).
			Msg("health check passed")

		return map[string]interface{}{
			"status":        "healthy",
			"response_time": elapsed.String(),
		}, true
	}

	logger.Error().
		Err(err).
		Str("check", dep.name).
		Dur("response_time", elapsed).
		Msg("health check failed")

	if app := h.server.LoggerService.GetApplication(); app != nil {
		app.RecordCustomEvent("HealthCheckError", map[string]interface{}{
			"check_type":       dep.name,
			"operation":        "health_check",
			"error_type":       dep.name + "_unhealthy",
			"response_time_ms": elapsed.Milliseconds(),
			"error_message":    err.Error(),
		})
	}

	return map[string]interface{}{
		"status":        "unhealthy",
		"response_time": elapsed.String(),
		"error":         err.Error(),
	}, !dep.required
}

// CheckHealth returns 200 when every required dependency answers and 503
// otherwise.
func (h *HealthHandler) CheckHealth(c echo.Context) error {
	start := time.Now()
	logger := middleware.GetLogger(c).With().
		Str("operation", "health_check").
		Logger()

	checks := make(map[string]interface{})
	isHealthy := true

	for _, dep := range h.dependencies() {
		result, ok := h.runCheck(c.Request().Context(), logger, dep)
		checks[dep.name] = result
		isHealthy = isHealthy && ok
	}

	response := map[string]interface{}{
		"status":      "healthy",
		"timestamp":   time.Now().UTC(),
		"environment": h.server.Config.Primary.Env,
		"ledger":      string(h.server.Config.Ledger.Driver),
		"checks":      checks,
	}

	status := http.StatusOK
	if !isHealthy {
		response["status"] = "unhealthy"
		status = http.StatusServiceUnavailable

		logger.Warn().
			Dur("total_duration", time.Since(start)).
			Msg("health check failed")
	} else {
		logger.Info().
			Dur("total_duration", time.Since(start)).
			Msg("health check passed")
	}

	if err := c.JSON(status, response); err != nil {
		return fmt.Errorf("failed to write JSON response: %w", err)
	}
	return nil
}
