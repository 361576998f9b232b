package helpers

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// TrustedProxies es el conjunto de peers cuyos headers de forwarding se
// aceptan. El valor cero no confía en nadie.
type TrustedProxies struct {
	nets []*net.IPNet
}

// ParseTrustedProxies acepta IPs sueltas o CIDRs.
func ParseTrustedProxies(list []string) (TrustedProxies, error) {
	var t TrustedProxies
	for _, s := range list {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if !strings.Contains(s, "/") {
			ip := net.ParseIP(s)
			if ip == nil {
				return TrustedProxies{}, fmt.Errorf("trusted proxy %q: invalid IP", s)
			}
			bits := 8 * net.IPv6len
			if v4 := ip.To4(); v4 != nil {
				ip, bits = v4, 8*net.IPv4len
			}
			t.nets = append(t.nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(s)
		if err != nil {
			return TrustedProxies{}, fmt.Errorf("trusted proxy %q: %w", s, err)
		}
		t.nets = append(t.nets, n)
	}
	return t, nil
}

func (t TrustedProxies) trusts(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, n := range t.nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// Resolve devuelve la IP del cliente. X-Forwarded-For y X-Real-IP solo se
// leen si el peer es un proxy confiable; X-Forwarded-For se recorre de
// derecha a izquierda y gana el primer hop no confiable.
func (t TrustedProxies) Resolve(r *http.Request) string {
	peer := peerIP(r)
	if !t.trusts(peer) {
		return peer
	}
	if xf := r.Header.Values("X-Forwarded-For"); len(xf) > 0 {
		hops := strings.Split(strings.Join(xf, ","), ",")
		var leftmost string
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if net.ParseIP(hop) == nil {
				continue
			}
			leftmost = hop
			if !t.trusts(hop) {
				return hop
			}
		}
		if leftmost != "" {
			return leftmost
		}
	}
	if xr := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xr) != nil {
		return xr
	}
	return peer
}

type clientIPKey struct{}

// WithClientIP guarda en ctx la IP ya resuelta del cliente.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// ClientIP es el valor que se manda a Crowd como validation factor
// remote_address y la key del rate limit. Usa la IP resuelta por el
// middleware de client IP; sin ella, la IP del peer.
func ClientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(clientIPKey{}).(string); ok && ip != "" {
		return ip
	}
	return peerIP(r)
}

func peerIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

// RequestHost devuelve el host del request sin puerto y en minúsculas.
func RequestHost(r *http.Request) string {
	h := r.Host
	if host, _, err := net.SplitHostPort(h); err == nil {
		h = host
	}
	return strings.ToLower(strings.TrimSuffix(h, "."))
}

// HostInDomain reporta si host es domain o un subdominio suyo.
func HostInDomain(host, domain string) bool {
	domain = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(domain), "."))
	if domain == "" {
		return false
	}
	host = strings.ToLower(host)
	return host == domain || strings.HasSuffix(host, "."+domain)
}
