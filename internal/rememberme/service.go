package rememberme

import (
	"net/http"
	"strings"
	"time"

	"github.com/dropDatabas3/crowdauth/internal/auth"
	"github.com/dropDatabas3/crowdauth/internal/http/helpers"
	"github.com/dropDatabas3/crowdauth/internal/observability/logger"
	"github.com/thejerf/abtime"
)

const (
	DefaultName      = "REMEMBERME"
	DefaultLifetime  = 1209600 * time.Second
	DefaultParameter = "_remember_me"
)

// Options configura la cookie de remember-me.
type Options struct {
	Name     string
	Lifetime time.Duration
	Path     string
	Domain   string
	SameSite string
	Secure   bool
	HTTPOnly bool
	// AlwaysRememberMe emite la cookie en todo login exitoso.
	AlwaysRememberMe bool
	// Parameter es el campo del request que pide remember-me.
	Parameter string
	// Secret firma la cookie. Requerido.
	Secret string
}

// Service issues, reads and cancels the remember-me cookie.
type Service struct {
	opts   Options
	cookie helpers.CookieSpec
	clock  abtime.AbstractTime
}

// NewService applies defaults to empty Name, Lifetime and Parameter. A nil
// clock means wall time.
func NewService(opts Options, clock abtime.AbstractTime) *Service {
	if strings.TrimSpace(opts.Name) == "" {
		opts.Name = DefaultName
	}
	if opts.Lifetime <= 0 {
		opts.Lifetime = DefaultLifetime
	}
	if strings.TrimSpace(opts.Parameter) == "" {
		opts.Parameter = DefaultParameter
	}
	if clock == nil {
		clock = abtime.NewRealTime()
	}
	return &Service{
		opts: opts,
		cookie: helpers.CookieSpec{
			Name:     opts.Name,
			Domain:   opts.Domain,
			Path:     opts.Path,
			SameSite: opts.SameSite,
			Secure:   opts.Secure,
			HTTPOnly: opts.HTTPOnly,
		},
		clock: clock,
	}
}

// CookieName returns the configured cookie name.
func (s *Service) CookieName() string { return s.opts.Name }

// Parameter returns the request field that asks for remember-me.
func (s *Service) Parameter() string { return s.opts.Parameter }

// Requested reports whether the login asked to be remembered. explicit is the
// value sent in a JSON body, if any; otherwise the form/query parameter is read.
func (s *Service) Requested(r *http.Request, explicit string) bool {
	if s.opts.AlwaysRememberMe {
		return true
	}
	v := explicit
	if v == "" && r != nil {
		v = r.FormValue(s.opts.Parameter)
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "on", "1", "yes":
		return true
	}
	return false
}

// LoginSuccess replaces any previous remember-me cookie: a fresh signed
// cookie when requested, a deletion cookie otherwise.
func (s *Service) LoginSuccess(w http.ResponseWriter, username string, requested bool) {
	if !requested {
		s.cancel(w)
		return
	}
	now := s.clock.Now()
	value := Encode(username, now.Add(s.opts.Lifetime).Unix(), s.opts.Secret)
	http.SetCookie(w, s.cookie.Build(value, now, s.opts.Lifetime))
}

// LoginFail cancels the cookie.
func (s *Service) LoginFail(w http.ResponseWriter) { s.cancel(w) }

// Logout cancels the cookie.
func (s *Service) Logout(w http.ResponseWriter) { s.cancel(w) }

// AutoLogin turns a valid remember-me cookie into a credential. A present but
// invalid cookie is logged and cancelled.
func (s *Service) AutoLogin(w http.ResponseWriter, r *http.Request) (auth.Credential, bool) {
	ck, err := r.Cookie(s.opts.Name)
	if err != nil || ck.Value == "" {
		return auth.Credential{}, false
	}

	username, _, err := Decode(ck.Value, s.opts.Secret, s.clock.Now())
	if err != nil {
		logger.From(r.Context()).Warn("remember-me cookie rejected",
			logger.Component("rememberme"),
			logger.Err(err),
		)
		s.cancel(w)
		return auth.Credential{}, false
	}
	return auth.RememberMeCredential(username), true
}

func (s *Service) cancel(w http.ResponseWriter) {
	http.SetCookie(w, s.cookie.BuildDeletion())
}
