package rememberme

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dropDatabas3/crowdauth/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thejerf/abtime"
)

func newTestService(opts Options) (*Service, *abtime.ManualTime) {
	clock := abtime.NewManualAtTime(now)
	if opts.Secret == "" {
		opts.Secret = secret
	}
	return NewService(opts, clock), clock
}

func singleCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	cks := rec.Result().Cookies()
	require.Len(t, cks, 1)
	return cks[0]
}

func TestRequested(t *testing.T) {
	s, _ := newTestService(Options{})

	for _, v := range []string{"true", "on", "1", "yes", " YES "} {
		r := httptest.NewRequest(http.MethodPost, "/login?_remember_me="+url.QueryEscape(v), nil)
		assert.True(t, s.Requested(r, ""), v)
	}
	for _, v := range []string{"", "0", "false", "no", "y"} {
		r := httptest.NewRequest(http.MethodPost, "/login?_remember_me="+url.QueryEscape(v), nil)
		assert.False(t, s.Requested(r, ""), v)
	}

	form := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("_remember_me=on"))
	form.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	assert.True(t, s.Requested(form, ""))

	plain := httptest.NewRequest(http.MethodPost, "/login", nil)
	assert.True(t, s.Requested(plain, "true"))

	always, _ := newTestService(Options{AlwaysRememberMe: true})
	assert.True(t, always.Requested(plain, ""))
}

func TestLoginSuccess_SetsSignedCookie(t *testing.T) {
	s, _ := newTestService(Options{Domain: "example.com", Secure: true, HTTPOnly: true})
	rec := httptest.NewRecorder()

	s.LoginSuccess(rec, "john", true)

	ck := singleCookie(t, rec)
	assert.Equal(t, DefaultName, ck.Name)
	assert.Equal(t, "/", ck.Path)
	assert.Equal(t, "example.com", ck.Domain)
	assert.True(t, ck.Secure)
	assert.True(t, ck.HttpOnly)
	assert.Equal(t, int(DefaultLifetime.Seconds()), ck.MaxAge)

	u, exp, err := Decode(ck.Value, secret, now)
	require.NoError(t, err)
	assert.Equal(t, "john", u)
	assert.Equal(t, now.Add(DefaultLifetime).Unix(), exp)
}

func TestLoginSuccess_NotRequestedCancels(t *testing.T) {
	s, _ := newTestService(Options{})
	rec := httptest.NewRecorder()

	s.LoginSuccess(rec, "john", false)

	ck := singleCookie(t, rec)
	assert.Empty(t, ck.Value)
	assert.Less(t, ck.MaxAge, 0)
}

func TestLoginFailAndLogoutCancel(t *testing.T) {
	s, _ := newTestService(Options{Name: "RM"})

	for _, fn := range []func(http.ResponseWriter){s.LoginFail, s.Logout} {
		rec := httptest.NewRecorder()
		fn(rec)
		ck := singleCookie(t, rec)
		assert.Equal(t, "RM", ck.Name)
		assert.Empty(t, ck.Value)
		assert.Less(t, ck.MaxAge, 0)
	}
}

func TestAutoLogin(t *testing.T) {
	s, clock := newTestService(Options{Lifetime: time.Hour})

	issue := httptest.NewRecorder()
	s.LoginSuccess(issue, "john", true)
	value := singleCookie(t, issue).Value

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultName, Value: value})
	rec := httptest.NewRecorder()

	cred, ok := s.AutoLogin(rec, req)
	require.True(t, ok)
	assert.Equal(t, auth.KindRememberMe, cred.Kind())
	assert.Equal(t, "john", cred.Username())
	assert.Empty(t, rec.Result().Cookies())

	// expired: rejected and cancelled
	clock.Advance(time.Hour + time.Second)
	rec = httptest.NewRecorder()
	_, ok = s.AutoLogin(rec, req)
	require.False(t, ok)
	ck := singleCookie(t, rec)
	assert.Empty(t, ck.Value)
}

func TestAutoLogin_NoCookie(t *testing.T) {
	s, _ := newTestService(Options{})
	rec := httptest.NewRecorder()

	_, ok := s.AutoLogin(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)
	assert.Empty(t, rec.Result().Cookies())
}

func TestAutoLogin_Garbage(t *testing.T) {
	s, _ := newTestService(Options{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultName, Value: "bm9wZQ=="})
	rec := httptest.NewRecorder()

	_, ok := s.AutoLogin(rec, req)
	assert.False(t, ok)
	assert.Len(t, rec.Result().Cookies(), 1)
}
