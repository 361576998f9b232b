// Package session contiene los DTOs de /v1/session.
package session

import (
	"time"

	"github.com/dropDatabas3/crowdauth/internal/principal"
)

// LoginConfig: nombres de los campos del formulario de login.
type LoginConfig struct {
	UsernameParameter string
	PasswordParameter string
	PostOnly          bool
}

// PrincipalResponse es la vista pública del principal. El token de sesión
// Crowd solo viaja en la cookie SSO.
type PrincipalResponse struct {
	Username        string              `json:"username"`
	FirstName       string              `json:"first_name,omitempty"`
	LastName        string              `json:"last_name,omitempty"`
	DisplayName     string              `json:"display_name,omitempty"`
	Email           string              `json:"email,omitempty"`
	Active          bool                `json:"active"`
	Roles           []string            `json:"roles"`
	Attributes      map[string][]string `json:"attributes,omitempty"`
	LastRefreshedAt *time.Time          `json:"last_refreshed_at,omitempty"`
}

func FromPrincipal(p principal.Principal) PrincipalResponse {
	out := PrincipalResponse{
		Username:    p.Username,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		DisplayName: p.DisplayName,
		Email:       p.Email,
		Active:      p.Active,
		Roles:       p.Roles,
		Attributes:  p.Attributes,
	}
	if out.Roles == nil {
		out.Roles = []string{}
	}
	if !p.LastRefreshedAt.IsZero() {
		t := p.LastRefreshedAt.UTC()
		out.LastRefreshedAt = &t
	}
	return out
}
