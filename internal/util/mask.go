package util

import "strings"

// MaskToken enmascara un token opaco (sesión de Crowd, cookie) para logs.
// Tokens cortos se ocultan por completo.
func MaskToken(s string) string {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return ""
	case len(s) <= 8:
		return "***"
	default:
		return s[:4] + "…" + s[len(s)-2:]
	}
}
