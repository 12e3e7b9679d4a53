package guard

import (
	"log/slog"
	"net/netip"
)

// AllowList gates admin access by source address. An empty list allows all
// traffic: the gate fails open when unconfigured, not closed.
type AllowList struct {
	addrs    []netip.Addr
	prefixes []netip.Prefix
	logger   *slog.Logger
}

// NewAllowList parses exact-address and CIDR entries. Invalid entries are
// skipped with a warning, never fatal.
func NewAllowList(entries []string, logger *slog.Logger) *AllowList {
	al := &AllowList{logger: logger}

	for _, entry := range entries {
		if prefix, err := netip.ParsePrefix(entry); err == nil {
			al.prefixes = append(al.prefixes, prefix)
			continue
		}
		if addr, err := netip.ParseAddr(entry); err == nil {
			al.addrs = append(al.addrs, addr)
			continue
		}
		logger.Warn("skipping invalid ip allow-list entry", slog.String("entry", entry))
	}

	return al
}

// Empty reports whether no entries are configured.
func (al *AllowList) Empty() bool {
	return len(al.addrs) == 0 && len(al.prefixes) == 0
}

// Allowed reports whether the client IP may reach the admin area. A client
// IP that fails to parse is disallowed and logged, never silently let
// through.
func (al *AllowList) Allowed(clientIP string) bool {
	if al.Empty() {
		return true
	}

	addr, err := netip.ParseAddr(clientIP)
	if err != nil {
		al.logger.Error("invalid client ip format", slog.String("ip", clientIP))
		return false
	}
	addr = addr.Unmap()

	for _, allowed := range al.addrs {
		if addr == allowed {
			return true
		}
	}
	for _, prefix := range al.prefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
