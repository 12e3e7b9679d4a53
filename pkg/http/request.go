package http

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// IPConfig controls how the client IP is derived from a request.
type IPConfig struct {
	TrustedProxies []string // CIDR ranges of proxies whose forwarding headers are honored
}

// ExtractClientIP derives the client IP for a request. Forwarding headers
// (X-Forwarded-For, X-Real-IP) are only honored when the direct peer is
// inside a trusted proxy range; otherwise they are attacker-controlled
// and the socket address wins.
func ExtractClientIP(r *http.Request, config *IPConfig) string {
	peer := peerAddr(r)

	if config != nil && fromTrustedProxy(peer, config.TrustedProxies) {
		// X-Forwarded-For holds client, proxy1, proxy2... Take the
		// leftmost entry that parses as an address.
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			for _, part := range strings.Split(xff, ",") {
				candidate := strings.TrimSpace(part)
				if _, err := netip.ParseAddr(candidate); err == nil {
					return candidate
				}
			}
		}

		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			if _, err := netip.ParseAddr(xri); err == nil {
				return xri
			}
		}
	}

	return peer
}

// peerAddr returns the socket address of the direct peer, without the port.
func peerAddr(r *http.Request) string {
	if r.RemoteAddr == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func fromTrustedProxy(ip string, trusted []string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()

	for _, cidr := range trusted {
		prefix, err := netip.ParsePrefix(cidr)
		if err != nil {
			continue // invalid ranges are skipped, not fatal
		}
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
