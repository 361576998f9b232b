package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dropDatabas3/crowdauth/internal/auth"
	httperrors "github.com/dropDatabas3/crowdauth/internal/http/errors"
	"github.com/dropDatabas3/crowdauth/internal/http/helpers"
	"github.com/dropDatabas3/crowdauth/internal/observability/logger"
	"github.com/dropDatabas3/crowdauth/internal/principal"
	"github.com/dropDatabas3/crowdauth/internal/rememberme"
	"github.com/dropDatabas3/crowdauth/internal/session"
	"github.com/thejerf/abtime"
)

// Authenticator es lo que el gate SSO y los controllers usan de *auth.Engine.
type Authenticator interface {
	Authenticate(ctx context.Context, cred auth.Credential, remoteAddr string) (*principal.Principal, error)
	Refresh(ctx context.Context, current principal.Principal) (auth.RefreshResult, error)
}

// SSOConfig configura el gate SSO.
type SSOConfig struct {
	Auth       Authenticator
	Sessions   session.Store
	RememberMe *rememberme.Service

	// SSOCookie es la cookie compartida con el resto de apps Crowd.
	// Domain debe venir con el punto inicial (".example.com").
	SSOCookie helpers.CookieSpec
	// SessionCookie guarda el id opaco de la sesión host.
	SessionCookie helpers.CookieSpec
	SessionTTL    time.Duration

	Clock abtime.AbstractTime
}

// SSO mantiene la sesión host sincronizada con la cookie SSO de Crowd.
type SSO struct {
	cfg SSOConfig
}

func NewSSO(cfg SSOConfig) *SSO {
	if cfg.SessionCookie.Name == "" {
		cfg.SessionCookie.Name = session.DefaultCookieName
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = session.DefaultTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = abtime.NewRealTime()
	}
	return &SSO{cfg: cfg}
}

// CookieDomain devuelve el dominio SSO sin punto inicial.
func (s *SSO) CookieDomain() string {
	return strings.TrimPrefix(s.cfg.SSOCookie.Domain, ".")
}

// RememberMe devuelve el servicio de remember-me configurado.
func (s *SSO) RememberMe() *rememberme.Service { return s.cfg.RememberMe }

// Auth devuelve el autenticador configurado.
func (s *SSO) Auth() Authenticator { return s.cfg.Auth }

// WithCrowdSSO resuelve el principal de cada request:
//
//  1. carga el principal de la sesión host (cookie sid);
//  2. sin cookie SSO: descarta la sesión e intenta remember-me;
//  3. cookie SSO igual al token de la sesión: refresh vía engine; si se
//     invalida, re-autentica con el token de la cookie;
//  4. si no, autentica el token SSO y abre una sesión nueva.
//
// Las fallas de autenticación cortan el request (403 con la cookie intacta
// para access denied, 401 y cookie borrada para el resto).
func WithCrowdSSO(s *SSO) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := logger.From(ctx).With(logger.Component("sso"))

			sid, current, hasSession := s.loadSession(r)
			token := s.ssoToken(r)

			// (2) sin cookie SSO
			if token == "" {
				if hasSession {
					s.dropSession(w, r, sid)
				}
				if cred, ok := s.cfg.RememberMe.AutoLogin(w, r); ok {
					p, err := s.cfg.Auth.Authenticate(ctx, cred, helpers.ClientIP(r))
					if err != nil {
						log.Info("remember-me login rejected", logger.Username(cred.Username()), logger.Err(err))
						s.cfg.RememberMe.LoginFail(w)
						next.ServeHTTP(w, r)
						return
					}
					r2, err := s.Establish(w, r, *p)
					if err != nil {
						log.Error("could not persist session", logger.Err(err))
						httperrors.WriteError(w, err)
						return
					}
					next.ServeHTTP(w, r2)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			// (3) sesión vigente para este token
			if hasSession && current.SessionToken == token {
				res, err := s.cfg.Auth.Refresh(ctx, current)
				if err == nil {
					if res.Refreshed {
						if err := s.cfg.Sessions.Save(ctx, sid, res.Principal); err != nil {
							log.Warn("could not store refreshed principal", logger.Err(err))
						}
					}
					next.ServeHTTP(w, s.bind(r, sid, res.Principal))
					return
				}
				log.Info("session invalidated, re-authenticating", logger.Username(current.Username))
			}
			if hasSession {
				s.dropSession(w, r, sid)
			}

			// (4) autenticar el token de la cookie
			p, err := s.cfg.Auth.Authenticate(ctx, auth.SSOTokenCredential(token), helpers.ClientIP(r))
			if err != nil {
				s.Fail(w, r, err)
				return
			}
			r2, err := s.Establish(w, r, *p)
			if err != nil {
				log.Error("could not persist session", logger.Err(err))
				httperrors.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r2)
		})
	}
}

// Establish abre una sesión host nueva para p, emite la cookie de sesión y,
// si el request no la trae ya, la cookie SSO. Devuelve el request con el
// principal en el contexto.
func (s *SSO) Establish(w http.ResponseWriter, r *http.Request, p principal.Principal) (*http.Request, error) {
	id, err := session.NewID()
	if err != nil {
		return r, err
	}
	if err := s.cfg.Sessions.Save(r.Context(), id, p); err != nil {
		return r, err
	}

	now := s.cfg.Clock.Now()
	http.SetCookie(w, s.cfg.SessionCookie.Build(id, now, s.cfg.SessionTTL))
	if p.SessionToken != "" && p.SessionToken != s.ssoToken(r) {
		http.SetCookie(w, s.cfg.SSOCookie.Build(p.SessionToken, now, 0))
	}
	return s.bind(r, id, p), nil
}

// Fail escribe la respuesta para un error de autenticación. Access denied
// conserva la cookie SSO; cualquier otro error la borra y cancela remember-me.
func (s *SSO) Fail(w http.ResponseWriter, r *http.Request, err error) {
	f, ok := auth.AsFailure(err)
	if ok && f.AccessDenied() {
		httperrors.WriteError(w, httperrors.FromFailure(f))
		return
	}
	s.ClearSSOCookie(w)
	s.cfg.RememberMe.LoginFail(w)
	if ok {
		httperrors.WriteError(w, httperrors.FromFailure(f))
		return
	}
	logger.From(r.Context()).Warn("authentication error without decision",
		logger.Component("sso"), logger.Err(err))
	httperrors.WriteError(w, httperrors.ErrInvalidCredentials.WithCause(err))
}

// ErrNoSession: el request no trae principal ni sesión host.
var ErrNoSession = errors.New("no host session bound to request")

// Reload vuelve a traer de Crowd el principal de la sesión sin importar su
// antigüedad (p.ej. tras un cambio de grupos) y guarda el snapshot nuevo.
// Un error que envuelve auth.ErrSessionInvalidated obliga a cerrar la sesión.
func (s *SSO) Reload(r *http.Request) (principal.Principal, error) {
	ctx := r.Context()
	current, ok := GetPrincipal(ctx)
	sid := GetSessionID(ctx)
	if !ok || sid == "" {
		return principal.Principal{}, ErrNoSession
	}

	res, err := s.cfg.Auth.Refresh(ctx, current.ForceRefresh())
	if err != nil {
		return principal.Principal{}, err
	}
	if err := s.cfg.Sessions.Save(ctx, sid, res.Principal); err != nil {
		return principal.Principal{}, err
	}
	return res.Principal, nil
}

// EndSession borra la sesión host del request, si hay.
func (s *SSO) EndSession(w http.ResponseWriter, r *http.Request) {
	if id := s.sessionID(r); id != "" {
		s.dropSession(w, r, id)
	}
}

// Logout borra la sesión host, la cookie SSO y la de remember-me.
func (s *SSO) Logout(w http.ResponseWriter, r *http.Request) {
	s.EndSession(w, r)
	s.ClearSSOCookie(w)
	s.cfg.RememberMe.Logout(w)
}

// ClearSSOCookie emite la cookie de borrado con el mismo domain y path.
func (s *SSO) ClearSSOCookie(w http.ResponseWriter) {
	http.SetCookie(w, s.cfg.SSOCookie.BuildDeletion())
}

func (s *SSO) ssoToken(r *http.Request) string {
	ck, err := r.Cookie(s.cfg.SSOCookie.Name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(ck.Value)
}

func (s *SSO) sessionID(r *http.Request) string {
	ck, err := r.Cookie(s.cfg.SessionCookie.Name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(ck.Value)
}

func (s *SSO) loadSession(r *http.Request) (string, principal.Principal, bool) {
	id := s.sessionID(r)
	if id == "" {
		return "", principal.Principal{}, false
	}
	p, err := s.cfg.Sessions.Get(r.Context(), id)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			logger.From(r.Context()).Warn("session lookup failed", logger.Component("sso"), logger.Err(err))
		}
		return id, principal.Principal{}, false
	}
	return id, p, true
}

func (s *SSO) dropSession(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.cfg.Sessions.Delete(r.Context(), id); err != nil {
		logger.From(r.Context()).Warn("session delete failed", logger.Component("sso"), logger.Err(err))
	}
	http.SetCookie(w, s.cfg.SessionCookie.BuildDeletion())
}

func (s *SSO) bind(r *http.Request, sid string, p principal.Principal) *http.Request {
	ctx := withSessionID(WithPrincipal(r.Context(), p), sid)
	ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.Username(p.Username)))
	return r.WithContext(ctx)
}
