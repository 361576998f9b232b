package crowd

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure talking to Crowd.
type Kind int

const (
	// KindUnknown is returned by KindOf for errors that did not come from Crowd.
	KindUnknown Kind = iota
	KindInvalidCredentials
	KindAppAccessDenied
	KindInactiveAccount
	KindTokenInvalid
	KindEntityNotFound
	KindServerUnavailable
	KindAuthClientMisconfigured
	KindUnexpectedServerResponse
)

var kindNames = map[Kind]string{
	KindUnknown:                  "unknown",
	KindInvalidCredentials:       "invalid_credentials",
	KindAppAccessDenied:          "app_access_denied",
	KindInactiveAccount:          "inactive_account",
	KindTokenInvalid:             "token_invalid",
	KindEntityNotFound:           "entity_not_found",
	KindServerUnavailable:        "server_unavailable",
	KindAuthClientMisconfigured:  "auth_client_misconfigured",
	KindUnexpectedServerResponse: "unexpected_server_response",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// reasonKinds maps Crowd's machine readable "reason" to a Kind.
// Reasons not listed here fall back to KindUnexpectedServerResponse.
var reasonKinds = map[string]Kind{
	"INVALID_USER_AUTHENTICATION": KindInvalidCredentials,
	"EXPIRED_CREDENTIAL":          KindInvalidCredentials,
	"APPLICATION_ACCESS_DENIED":   KindAppAccessDenied,
	"INACTIVE_ACCOUNT":            KindInactiveAccount,
	"INVALID_SSO_TOKEN":           KindTokenInvalid,
	"USER_NOT_FOUND":              KindEntityNotFound,
	"GROUP_NOT_FOUND":             KindEntityNotFound,
}

// KindForReason resolves a reason code. ok is false for unrecognized codes.
func KindForReason(reason string) (k Kind, ok bool) {
	k, ok = reasonKinds[strings.ToUpper(strings.TrimSpace(reason))]
	return k, ok
}

// Error is returned by every Client method that fails.
type Error struct {
	Kind   Kind
	Action string // logical call name, e.g. "get_session"
	Reason string // Crowd reason code, when the server sent one
	// Message is the server supplied message or a local description.
	// It is meant for logs, not for end users.
	Message string
	Status  int
	// Payload is the raw response body, kept for diagnostics of
	// KindUnexpectedServerResponse and KindAuthClientMisconfigured.
	Payload []byte
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("crowd")
	if e.Action != "" {
		b.WriteString(" " + e.Action)
	}
	b.WriteString(": " + e.Kind.String())
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinel errors by Kind so callers can write
// errors.Is(err, crowd.ErrTokenInvalid).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels, one per Kind.
var (
	ErrInvalidCredentials       = &Error{Kind: KindInvalidCredentials}
	ErrAppAccessDenied          = &Error{Kind: KindAppAccessDenied}
	ErrInactiveAccount          = &Error{Kind: KindInactiveAccount}
	ErrTokenInvalid             = &Error{Kind: KindTokenInvalid}
	ErrEntityNotFound           = &Error{Kind: KindEntityNotFound}
	ErrServerUnavailable        = &Error{Kind: KindServerUnavailable}
	ErrAuthClientMisconfigured  = &Error{Kind: KindAuthClientMisconfigured}
	ErrUnexpectedServerResponse = &Error{Kind: KindUnexpectedServerResponse}
)

// ErrMissingRemoteAddress is returned before any request is made when a
// session is requested without the caller's network address.
var ErrMissingRemoteAddress = errors.New("crowd: remote address validation factor is required")

// KindOf returns the Kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

func unexpected(action, msg string, status int, payload []byte) *Error {
	return &Error{
		Kind:    KindUnexpectedServerResponse,
		Action:  action,
		Message: msg,
		Status:  status,
		Payload: payload,
	}
}
