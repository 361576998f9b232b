// Package router arma el chi.Router del servicio.
package router

import (
	"net/http"

	"github.com/dropDatabas3/crowdauth/internal/http/controllers/directory"
	"github.com/dropDatabas3/crowdauth/internal/http/controllers/health"
	"github.com/dropDatabas3/crowdauth/internal/http/controllers/session"
	httperrors "github.com/dropDatabas3/crowdauth/internal/http/errors"
	"github.com/dropDatabas3/crowdauth/internal/http/helpers"
	mw "github.com/dropDatabas3/crowdauth/internal/http/middlewares"
	"github.com/dropDatabas3/crowdauth/internal/rate"
	"github.com/go-chi/chi/v5"
)

// Deps contiene las dependencias del router.
type Deps struct {
	SSO       *mw.SSO
	Session   *session.Controller
	Directory *directory.Controller
	Health    *health.Controller

	// AdminRole protege /v1/directory.
	AdminRole string
	// LoginLimiter es opcional: rate limit por IP en el login.
	LoginLimiter rate.Limiter
	// Metrics expone /metrics si no es nil.
	Metrics http.Handler
	// TrustedProxies define de qué peers se aceptan X-Forwarded-For / X-Real-IP.
	TrustedProxies helpers.TrustedProxies
}

// New registra todas las rutas.
//
//	GET  /healthz
//	GET  /metrics
//	POST /v1/session/login
//	POST /v1/session/logout
//	GET  /v1/session/me
//	POST /v1/session/refresh
//	GET  /v1/directory/roles/{role}/users
//	GET  /v1/directory/users/{username}
func New(deps Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(mw.WithRecover(), mw.WithClientIP(deps.TrustedProxies), mw.WithRequestID(), mw.WithMetrics())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	// Infra: sin logging por request (muy frecuentes)
	if deps.Health != nil {
		r.Get("/healthz", deps.Health.Healthz)
		r.Head("/healthz", deps.Health.Healthz)
	}
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.WithSecurityHeaders(), mw.WithNoStore(), mw.WithLogging())

		r.Route("/session", func(r chi.Router) {
			r.With(mw.WithRateLimit(deps.LoginLimiter, mw.IPRateKey)).
				HandleFunc("/login", deps.Session.Login)
			r.Post("/logout", deps.Session.Logout)
			r.With(mw.WithCrowdSSO(deps.SSO), mw.RequireAuthenticated()).
				Get("/me", deps.Session.Me)
			r.With(mw.WithCrowdSSO(deps.SSO), mw.RequireAuthenticated()).
				Post("/refresh", deps.Session.Refresh)
		})

		if deps.Directory != nil {
			r.Route("/directory", func(r chi.Router) {
				r.Use(mw.WithCrowdSSO(deps.SSO), mw.RequireRole(deps.AdminRole))
				r.Get("/roles/{role}/users", deps.Directory.RoleMembers)
				r.Get("/users/{username}", deps.Directory.User)
			})
		}
	})
	return r
}
