// Package router arma el chi.Router del IdP.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	httpx "github.com/dropDatabas3/mockidp/internal/http"
	healthctrl "github.com/dropDatabas3/mockidp/internal/http/controllers/health"
	oauthctrl "github.com/dropDatabas3/mockidp/internal/http/controllers/oauth"
	oidcctrl "github.com/dropDatabas3/mockidp/internal/http/controllers/oidc"
	httperrors "github.com/dropDatabas3/mockidp/internal/http/errors"
	mw "github.com/dropDatabas3/mockidp/internal/http/middlewares"
	"github.com/dropDatabas3/mockidp/internal/rate"
)

// formBodyLimit acota los forms OAuth.
const formBodyLimit = 64 << 10

// Deps contiene las dependencias del router. Metrics y Limiter son opcionales.
type Deps struct {
	OAuth   *oauthctrl.Controllers
	OIDC    *oidcctrl.Controllers
	Health  *healthctrl.Controller
	Metrics *httpx.Metrics
	Limiter rate.Limiter
}

// New registra todas las rutas. Orden de middlewares global:
// recover -> request id -> security headers -> logging.
func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	if d.OIDC != nil {
		registerOIDCRoutes(r, d)
	}
	if d.OAuth != nil {
		registerOAuthRoutes(r, d)
	}
	if d.Health != nil {
		r.With(measure(d.Metrics, "healthz")).Get("/healthz", d.Health.Healthz)
	}
	// globales por fuera del router: cubren también 404/405
	return mw.Chain(r,
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithSecurityHeaders(),
		mw.WithLogging(),
	)
}

// measure devuelve el middleware de métricas o un passthrough sin Metrics.
func measure(m *httpx.Metrics, route string) func(http.Handler) http.Handler {
	if m == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return m.Middleware(route)
}
