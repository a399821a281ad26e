package intercept

import (
	"net/netip"
	"strings"
)

// IsPrivateHost reports whether host names the local machine or a private
// network: "localhost", loopback, RFC 1918 / RFC 4193 ranges, or link-local
// addresses. host must not include a port.
func IsPrivateHost(host string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	addr, err := netip.ParseAddr(strings.Trim(host, "[]"))
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	return addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast()
}
