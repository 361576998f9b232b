package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dropDatabas3/crowdauth/internal/http/helpers"
	"github.com/dropDatabas3/crowdauth/internal/principal"
	"github.com/dropDatabas3/crowdauth/internal/rate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thejerf/abtime"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

func withPrincipal(r *http.Request, roles ...string) *http.Request {
	p := principal.Principal{Username: "john"}.WithRoles(roles)
	return r.WithContext(WithPrincipal(r.Context(), p))
}

func TestRequireAuthenticated(t *testing.T) {
	h := RequireAuthenticated()(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Not authenticated request")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, withPrincipal(httptest.NewRequest(http.MethodGet, "/", nil)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole(t *testing.T) {
	h := RequireRole("ROLE_ADMIN")(okHandler)

	cases := map[string]struct {
		req  *http.Request
		want int
	}{
		"anonymous":  {httptest.NewRequest(http.MethodGet, "/", nil), http.StatusUnauthorized},
		"wrong role": {withPrincipal(httptest.NewRequest(http.MethodGet, "/", nil), "ROLE_USER"), http.StatusForbidden},
		"admin":      {withPrincipal(httptest.NewRequest(http.MethodGet, "/", nil), "ROLE_USER", "ROLE_ADMIN"), http.StatusOK},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, tc.req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestWithRateLimit(t *testing.T) {
	clock := abtime.NewManualAtTime(time.Unix(1700000000, 0))
	lim := rate.NewMemoryLimiter("login:", 2, time.Minute, clock)
	h := WithRateLimit(lim, nil)(okHandler)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/session/login", nil)
		req.RemoteAddr = "198.51.100.4:999"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			assert.NotEmpty(t, rec.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{200, 200, 429}, codes)

	// otra IP, otra ventana
	req := httptest.NewRequest(http.MethodPost, "/v1/session/login", nil)
	req.RemoteAddr = "198.51.100.5:999"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWithRateLimit_IgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	clock := abtime.NewManualAtTime(time.Unix(1700000000, 0))
	lim := rate.NewMemoryLimiter("login:", 2, time.Minute, clock)
	h := Chain(okHandler, WithClientIP(helpers.TrustedProxies{}), WithRateLimit(lim, nil))

	codes := make([]int, 0, 3)
	for _, spoofed := range []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"} {
		req := httptest.NewRequest(http.MethodPost, "/v1/session/login", nil)
		req.RemoteAddr = "198.51.100.9:4000"
		req.Header.Set("X-Forwarded-For", spoofed)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}

func TestWithClientIP_TrustedProxy(t *testing.T) {
	trusted, err := helpers.ParseTrustedProxies([]string{"10.0.0.0/8"})
	require.NoError(t, err)

	var seen string
	h := WithClientIP(trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = helpers.ClientIP(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:80"
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "203.0.113.7", seen)
}

func TestWithRequestID(t *testing.T) {
	var seen string
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}), WithRequestID(), WithLogging(), WithRecover())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "abc", seen)
}

func TestWithRecover(t *testing.T) {
	h := WithRecover()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
