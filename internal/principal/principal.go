// Package principal holds the authenticated identity snapshot that travels
// with the host session, its staleness policy and the group to role mapper.
package principal

import (
	"slices"
	"time"

	"github.com/dropDatabas3/crowdauth/internal/crowd"
)

// Principal is an immutable snapshot of an authenticated identity. Producers
// return a new value instead of mutating one that may be shared.
type Principal struct {
	Username    string              `json:"username"`
	FirstName   string              `json:"first_name,omitempty"`
	LastName    string              `json:"last_name,omitempty"`
	DisplayName string              `json:"display_name,omitempty"`
	Email       string              `json:"email,omitempty"`
	Active      bool                `json:"active"`
	Attributes  map[string][]string `json:"attributes,omitempty"`
	// Roles is sorted and fully recomputed on every fetch.
	Roles []string `json:"roles"`
	// SessionToken is the Crowd SSO token; empty means no remote session.
	SessionToken    string    `json:"session_token,omitempty"`
	LastRefreshedAt time.Time `json:"last_refreshed_at"`
}

// NeedsRefresh reports whether p must be re-fetched from Crowd.
func NeedsRefresh(p Principal, interval time.Duration, now time.Time) bool {
	if p.LastRefreshedAt.IsZero() {
		return true
	}
	return now.Sub(p.LastRefreshedAt) > interval
}

// ApplyRemoteData returns p updated with u. Optional fields are only
// overwritten when u carries a non-empty value; Active is always taken from u.
// Username never changes once set. Roles and LastRefreshedAt are untouched.
func ApplyRemoteData(p Principal, u *crowd.User) Principal {
	out := p.Clone()
	if u == nil {
		out.Active = false
		return out
	}

	if out.Username == "" {
		out.Username = u.Name
	}
	setIf(&out.FirstName, u.FirstName)
	setIf(&out.LastName, u.LastName)
	setIf(&out.DisplayName, u.DisplayName)
	setIf(&out.Email, u.Email)
	setIf(&out.SessionToken, u.Token)
	out.Active = u.Active

	if len(u.Attributes) > 0 {
		if out.Attributes == nil {
			out.Attributes = make(map[string][]string, len(u.Attributes))
		}
		for name, vals := range u.Attributes {
			out.Attributes[name] = slices.Clone(vals)
		}
	}
	return out
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Clone returns a deep copy.
func (p Principal) Clone() Principal {
	out := p
	out.Roles = slices.Clone(p.Roles)
	if p.Attributes != nil {
		out.Attributes = make(map[string][]string, len(p.Attributes))
		for k, v := range p.Attributes {
			out.Attributes[k] = slices.Clone(v)
		}
	}
	return out
}

// HasRole reports whether role was granted on the last fetch.
func (p Principal) HasRole(role string) bool {
	_, ok := slices.BinarySearch(p.Roles, role)
	return ok
}

// ForceRefresh returns a copy that will be re-fetched on the next request.
func (p Principal) ForceRefresh() Principal {
	out := p.Clone()
	out.LastRefreshedAt = time.Time{}
	return out
}

// WithRoles returns a copy carrying roles (sorted, deduplicated).
func (p Principal) WithRoles(roles []string) Principal {
	out := p.Clone()
	out.Roles = normalize(roles)
	return out
}

func normalize(roles []string) []string {
	out := slices.Clone(roles)
	slices.Sort(out)
	out = slices.Compact(out)
	if out == nil {
		out = []string{}
	}
	return out
}
