package middlewares

import (
	"net/http"

	"github.com/dropDatabas3/crowdauth/internal/http/helpers"
)

// WithClientIP resuelve la IP del cliente una vez por request. Los headers de
// forwarding solo cuentan si el peer está en trusted.
func WithClientIP(trusted helpers.TrustedProxies) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := helpers.WithClientIP(r.Context(), trusted.Resolve(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
