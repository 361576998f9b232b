package middlewares

import (
	"context"

	"github.com/dropDatabas3/crowdauth/internal/principal"
)

type ctxKey string

const (
	ctxPrincipalKey ctxKey = "principal"
	ctxSessionKey   ctxKey = "session_id"
	ctxRequestIDKey ctxKey = "request_id"
)

// WithPrincipal inyecta una copia del principal autenticado.
func WithPrincipal(ctx context.Context, p principal.Principal) context.Context {
	return context.WithValue(ctx, ctxPrincipalKey, p.Clone())
}

// GetPrincipal devuelve el principal del request, si hay.
func GetPrincipal(ctx context.Context) (principal.Principal, bool) {
	p, ok := ctx.Value(ctxPrincipalKey).(principal.Principal)
	return p, ok
}

func withSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxSessionKey, id)
}

// GetSessionID devuelve el id de sesión host activo ("" si no hay).
func GetSessionID(ctx context.Context) string {
	s, _ := ctx.Value(ctxSessionKey).(string)
	return s
}

func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

// GetRequestID obtiene el request ID del contexto.
func GetRequestID(ctx context.Context) string {
	s, _ := ctx.Value(ctxRequestIDKey).(string)
	return s
}
