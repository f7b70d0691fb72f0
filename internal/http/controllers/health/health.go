// Package health expone /healthz.
package health

import (
	"context"
	"net/http"
	"time"

	httperrors "github.com/dropDatabas3/mockidp/internal/http/errors"
	"github.com/dropDatabas3/mockidp/internal/observability/logger"
)

// Check es un chequeo de dependencia (cache, base).
type Check func(ctx context.Context) error

// Controller agrega los checks nombrados; cualquier falla da 503.
type Controller struct {
	checks  map[string]Check
	version string
}

func NewController(version string, checks map[string]Check) *Controller {
	return &Controller{checks: checks, version: version}
}

func (c *Controller) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(c.checks))
	for name, check := range c.checks {
		if err := check(ctx); err != nil {
			logger.From(ctx).Warn("health check failed", logger.Component(name), logger.Err(err))
			results[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "up"
	}

	out := map[string]any{"status": "ok", "checks": results}
	if c.version != "" {
		out["version"] = c.version
	}
	if status != http.StatusOK {
		out["status"] = "degraded"
	}
	httperrors.WriteJSON(w, status, out)
}
