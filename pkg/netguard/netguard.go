// ABOUTME: Destination checks for server-side fetches of user supplied URLs
// ABOUTME: Rejects loopback, private, link-local and other non-public addresses

package netguard

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"syscall"
)

// ErrBlocked is returned for destinations that are not publicly routable
var ErrBlocked = errors.New("destination address is not allowed")

// shared address space and benchmarking nets are not covered by netip's predicates
var extraBlocked = []netip.Prefix{
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("64:ff9b:1::/48"),
}

// IsPublic reports whether addr is a globally routable unicast address
func IsPublic(addr netip.Addr) bool {
	addr = addr.Unmap()
	if !addr.IsValid() || !addr.IsGlobalUnicast() {
		return false
	}
	if addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast() {
		return false
	}
	for _, p := range extraBlocked {
		if p.Contains(addr) {
			return false
		}
	}
	return true
}

// CheckHost rejects host names that are literal non-public addresses or
// localhost. Other names are resolved at dial time and checked by Control.
func CheckHost(host string) error {
	h := strings.TrimSuffix(strings.ToLower(strings.Trim(host, "[]")), ".")
	if h == "" {
		return fmt.Errorf("%w: empty host", ErrBlocked)
	}
	if h == "localhost" || strings.HasSuffix(h, ".localhost") {
		return fmt.Errorf("%w: %s", ErrBlocked, host)
	}
	if addr, err := netip.ParseAddr(h); err == nil && !IsPublic(addr) {
		return fmt.Errorf("%w: %s", ErrBlocked, host)
	}
	return nil
}

// Control is a net.Dialer Control hook that refuses to connect to
// non-public addresses. It sees the resolved address, so redirects and
// DNS names pointing inwards are caught too.
func Control(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlocked, address)
	}
	addr, err := netip.ParseAddr(host)
	if err != nil || !IsPublic(addr) {
		return fmt.Errorf("%w: %s", ErrBlocked, address)
	}
	return nil
}
