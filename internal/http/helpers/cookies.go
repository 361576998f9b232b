package helpers

import (
	"net/http"
	"strings"
	"time"
)

func ParseSameSite(s string) http.SameSite {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "lax":
		return http.SameSiteLaxMode
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// CookieSpec describe los atributos comunes de una cookie (SSO o remember-me).
type CookieSpec struct {
	Name     string
	Domain   string
	Path     string // default "/"
	SameSite string
	Secure   bool
	HTTPOnly bool
}

// Build arma la cookie con el valor dado. ttl <= 0 => cookie de sesión.
func (s CookieSpec) Build(value string, now time.Time, ttl time.Duration) *http.Cookie {
	ck := s.base()
	ck.Value = value
	if ttl > 0 {
		ck.Expires = now.Add(ttl).UTC()
		ck.MaxAge = int(ttl.Seconds())
	}
	return ck
}

// BuildDeletion arma la cookie que borra s en el browser. Domain y Path
// tienen que coincidir con los de la cookie original.
func (s CookieSpec) BuildDeletion() *http.Cookie {
	ck := s.base()
	ck.Value = ""
	ck.Expires = time.Unix(1, 0).UTC()
	ck.MaxAge = -1
	return ck
}

func (s CookieSpec) base() *http.Cookie {
	path := s.Path
	if strings.TrimSpace(path) == "" {
		path = "/"
	}
	ck := &http.Cookie{
		Name:     s.Name,
		Path:     path,
		HttpOnly: s.HTTPOnly,
		Secure:   s.Secure,
		SameSite: ParseSameSite(s.SameSite),
	}
	if d := strings.TrimSpace(s.Domain); d != "" {
		ck.Domain = d
	}
	return ck
}
