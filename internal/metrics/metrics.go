// Package metrics holds the Prometheus collectors for the Crowd integration.
// They live in a standalone package so the crowd client, the auth engine and
// the HTTP layer can all record without import cycles.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CrowdRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crowd_requests_total",
		Help: "Llamadas REST a Crowd por acción y resultado",
	}, []string{"action", "outcome"})

	CrowdRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crowd_request_retries_total",
		Help: "Reintentos por falla de transporte hacia Crowd",
	}, []string{"action"})

	CrowdRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crowd_request_duration_seconds",
		Help:    "Latencia de las llamadas a Crowd, incluyendo reintentos",
		Buckets: prometheus.DefBuckets,
	}, []string{"action"})

	AuthDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crowd_auth_decisions_total",
		Help: "Decisiones de autenticación por tipo de credencial y resultado",
	}, []string{"credential", "outcome"})

	PrincipalRefresh = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crowd_principal_refresh_total",
		Help: "Refrescos de principal: skipped | refreshed | invalidated",
	}, []string{"outcome"})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Número total de requests procesadas",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Latencia de los requests HTTP",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	HTTPInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_inflight_requests",
		Help: "Requests en vuelo",
	})
)

// Register registers every collector on reg (default registerer if nil).
// Collectors that are already registered are not an error.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		CrowdRequests,
		CrowdRetries,
		CrowdRequestDuration,
		AuthDecisions,
		PrincipalRefresh,
		HTTPRequests,
		HTTPRequestDuration,
		HTTPInflight,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

// Handler exposes the default gatherer, where Register puts the collectors.
func Handler() http.Handler {
	return promhttp.Handler()
}
