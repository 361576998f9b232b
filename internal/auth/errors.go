package auth

import (
	"errors"
	"net/http"

	"github.com/dropDatabas3/crowdauth/internal/crowd"
)

var (
	// ErrNoDecision: la credencial no tiene datos utilizables; el engine no
	// aplica a este request. No es una falla.
	ErrNoDecision = errors.New("auth: no decision")

	// ErrSessionInvalidated: el refresh falló y el caller debe desloguear la
	// sesión. Envuelve la causa.
	ErrSessionInvalidated = errors.New("auth: session invalidated")
)

const (
	MsgInvalidCredentials = "Invalid credentials."
	MsgAccessDenied       = "Your account does not have access to this application"
)

// Failure is a classified authentication failure.
type Failure struct {
	Kind crowd.Kind
	Err  error
}

func newFailure(err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	k := crowd.KindOf(err)
	if k == crowd.KindUnknown {
		k = crowd.KindUnexpectedServerResponse
	}
	return &Failure{Kind: k, Err: err}
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return "auth: " + f.Kind.String() + ": " + f.Err.Error()
	}
	return "auth: " + f.Kind.String()
}

func (f *Failure) Unwrap() error { return f.Err }

// AccessDenied: Crowd validó la identidad pero negó acceso a esta aplicación.
func (f *Failure) AccessDenied() bool { return f.Kind == crowd.KindAppAccessDenied }

// ClearSSOCookie reports whether the caller must delete the SSO cookie.
// The identity is still valid elsewhere when access was only denied here.
func (f *Failure) ClearSSOCookie() bool { return !f.AccessDenied() }

// HTTPStatus is 403 for access denied and 401 for everything else.
func (f *Failure) HTTPStatus() int {
	if f.AccessDenied() {
		return http.StatusForbidden
	}
	return http.StatusUnauthorized
}

// UserMessage never reveals which part of the credential was wrong.
func (f *Failure) UserMessage() string {
	if f.AccessDenied() {
		return MsgAccessDenied
	}
	return MsgInvalidCredentials
}

// AsFailure extracts a *Failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	ok := errors.As(err, &f)
	return f, ok
}
