package middlewares

import (
	"net/http"

	httperrors "github.com/dropDatabas3/crowdauth/internal/http/errors"
	"github.com/dropDatabas3/crowdauth/internal/observability/logger"
)

// RequireAuthenticated corta con 401 si WithCrowdSSO no dejó un principal.
func RequireAuthenticated() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := GetPrincipal(r.Context()); !ok {
				httperrors.WriteError(w, httperrors.ErrNotAuthenticated)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole exige un principal con role. Sin principal => 401; sin el rol => 403.
func RequireRole(role string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := GetPrincipal(r.Context())
			if !ok {
				httperrors.WriteError(w, httperrors.ErrNotAuthenticated)
				return
			}
			if !p.HasRole(role) {
				logger.From(r.Context()).Info("role required",
					logger.Component("authz"),
					logger.String("role", role),
				)
				httperrors.WriteError(w, httperrors.ErrForbidden.WithDetail("missing role "+role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
