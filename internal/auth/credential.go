package auth

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dropDatabas3/crowdauth/internal/util"
	"go.uber.org/zap/zapcore"
)

// CredentialKind is the explicit discriminator of a Credential.
type CredentialKind int

const (
	KindNone CredentialKind = iota
	KindPassword
	KindSSOToken
	KindRememberMe
)

func (k CredentialKind) String() string {
	switch k {
	case KindPassword:
		return "password"
	case KindSSOToken:
		return "sso_token"
	case KindRememberMe:
		return "remember_me"
	default:
		return "none"
	}
}

// Credential is one authentication attempt. It is built per request,
// consumed once by the Engine and never persisted. Fields are unexported so
// the password cannot leak through reflection based encoders.
type Credential struct {
	kind     CredentialKind
	username string
	password string
	token    string
}

// PasswordCredential is a username/password login.
func PasswordCredential(username, password string) Credential {
	return Credential{kind: KindPassword, username: username, password: password}
}

// SSOTokenCredential carries the token found in the SSO cookie.
func SSOTokenCredential(token string) Credential {
	return Credential{kind: KindSSOToken, token: token}
}

// RememberMeCredential carries a username proven by a valid remember-me cookie.
func RememberMeCredential(username string) Credential {
	return Credential{kind: KindRememberMe, username: username}
}

func (c Credential) Kind() CredentialKind { return c.kind }
func (c Credential) Username() string     { return c.username }
func (c Credential) Token() string        { return c.token }

// Empty reports whether c has nothing the engine can act on.
func (c Credential) Empty() bool {
	switch c.kind {
	case KindPassword, KindRememberMe:
		return strings.TrimSpace(c.username) == ""
	case KindSSOToken:
		return strings.TrimSpace(c.token) == ""
	default:
		return true
	}
}

func (c Credential) String() string {
	switch c.kind {
	case KindPassword:
		return fmt.Sprintf("password(username=%q, password=[redacted])", c.username)
	case KindSSOToken:
		return fmt.Sprintf("sso_token(%s)", util.MaskToken(c.token))
	case KindRememberMe:
		return fmt.Sprintf("remember_me(username=%q)", c.username)
	default:
		return "none"
	}
}

// GoString keeps %#v from printing the raw struct.
func (c Credential) GoString() string { return c.String() }

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (c Credential) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("kind", c.kind.String())
	if c.username != "" {
		enc.AddString("username", c.username)
	}
	if c.token != "" {
		enc.AddString("token", util.MaskToken(c.token))
	}
	return nil
}

// MarshalJSON never includes the password or the raw token.
func (c Credential) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind     string `json:"kind"`
		Username string `json:"username,omitempty"`
	}{c.kind.String(), c.username})
}
