// Package session contiene los controllers de /v1/session (login, logout, me).
package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dropDatabas3/crowdauth/internal/auth"
	dto "github.com/dropDatabas3/crowdauth/internal/http/dto/session"
	httperrors "github.com/dropDatabas3/crowdauth/internal/http/errors"
	"github.com/dropDatabas3/crowdauth/internal/http/helpers"
	mw "github.com/dropDatabas3/crowdauth/internal/http/middlewares"
	"github.com/dropDatabas3/crowdauth/internal/observability/logger"
)

var errDomainMismatch = errors.New("sso cookie domain does not match the application domain")

// Controller maneja login, logout y me sobre el gate SSO.
type Controller struct {
	sso    *mw.SSO
	config dto.LoginConfig
}

func NewController(sso *mw.SSO, config dto.LoginConfig) *Controller {
	if config.UsernameParameter == "" {
		config.UsernameParameter = "_username"
	}
	if config.PasswordParameter == "" {
		config.PasswordParameter = "_password"
	}
	return &Controller{sso: sso, config: config}
}

// Login maneja POST /v1/session/login (form o JSON).
func (c *Controller) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("SessionController.Login"))

	if c.config.PostOnly && r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
		return
	}

	username, password, remember, err := c.readCredentials(w, r)
	if err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON.WithCause(err))
		return
	}

	rm := c.sso.RememberMe()
	if !helpers.HostInDomain(helpers.RequestHost(r), c.sso.CookieDomain()) {
		log.Warn("login rejected", logger.String("host", helpers.RequestHost(r)), logger.Err(errDomainMismatch))
		c.sso.Fail(w, r, errDomainMismatch)
		return
	}

	p, err := c.sso.Auth().Authenticate(ctx, auth.PasswordCredential(username, password), helpers.ClientIP(r))
	if err != nil {
		if f, ok := auth.AsFailure(err); ok && f.AccessDenied() {
			rm.LoginFail(w)
		}
		c.sso.Fail(w, r, err)
		return
	}

	// Una sesión host previa no sobrevive al login
	c.sso.EndSession(w, r)
	r2, err := c.sso.Establish(w, r, *p)
	if err != nil {
		log.Error("could not persist session", logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}
	rm.LoginSuccess(w, p.Username, rm.Requested(r, remember))

	logger.From(r2.Context()).Info("login succeeded", logger.Any("roles", p.Roles))
	helpers.WriteJSON(w, http.StatusOK, dto.FromPrincipal(*p))
}

// Logout maneja POST /v1/session/logout.
func (c *Controller) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
		return
	}
	c.sso.Logout(w, r)
	w.WriteHeader(http.StatusNoContent)
}

// Refresh maneja POST /v1/session/refresh: fuerza el refresh del principal
// contra Crowd. Si Crowd ya no acepta la sesión, se cierra como en el gate.
func (c *Controller) Refresh(w http.ResponseWriter, r *http.Request) {
	p, err := c.sso.Reload(r)
	switch {
	case err == nil:
		helpers.WriteJSON(w, http.StatusOK, dto.FromPrincipal(p))
	case errors.Is(err, mw.ErrNoSession):
		httperrors.WriteError(w, httperrors.ErrNotAuthenticated)
	case errors.Is(err, auth.ErrSessionInvalidated):
		logger.From(r.Context()).Info("forced refresh invalidated session", logger.Err(err))
		c.sso.EndSession(w, r)
		c.sso.Fail(w, r, err)
	default:
		logger.From(r.Context()).Error("could not store refreshed principal", logger.Err(err))
		httperrors.WriteError(w, err)
	}
}

// Me maneja GET /v1/session/me. La ruta va detrás de RequireAuthenticated.
func (c *Controller) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := mw.GetPrincipal(r.Context())
	if !ok {
		httperrors.WriteError(w, httperrors.ErrNotAuthenticated)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.FromPrincipal(p))
}

// readCredentials lee usuario, password y el flag de remember-me del body
// JSON o del formulario. El usuario se devuelve sin espacios.
func (c *Controller) readCredentials(w http.ResponseWriter, r *http.Request) (username, password, remember string, err error) {
	if helpers.IsJSON(r) {
		var body map[string]any
		if err := helpers.ReadJSON(w, r, &body); err != nil {
			return "", "", "", err
		}
		username = strings.TrimSpace(stringField(body, c.config.UsernameParameter))
		password = stringField(body, c.config.PasswordParameter)
		remember = stringField(body, c.sso.RememberMe().Parameter())
		return username, password, remember, nil
	}

	get := r.FormValue
	if c.config.PostOnly {
		if err := r.ParseForm(); err != nil {
			return "", "", "", err
		}
		get = r.PostForm.Get
	}
	return strings.TrimSpace(get(c.config.UsernameParameter)), get(c.config.PasswordParameter), "", nil
}

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case bool:
		return fmt.Sprint(v)
	case float64:
		return fmt.Sprint(v)
	}
	return ""
}
