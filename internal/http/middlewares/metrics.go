package middlewares

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dropDatabas3/crowdauth/internal/metrics"
	"github.com/go-chi/chi/v5"
)

// WithMetrics instrumenta requests HTTP (contador, latencia, inflight).
// La ruta se etiqueta con el patrón de chi para no explotar cardinalidad
// con usernames o roles en el path.
func WithMetrics() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			metrics.HTTPInflight.Inc()
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			defer func() {
				metrics.HTTPInflight.Dec()
				method := strings.ToUpper(r.Method)
				route := routeLabel(r)
				metrics.HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
				metrics.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
			}()

			next.ServeHTTP(rec, r)
		})
	}
}

func routeLabel(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
