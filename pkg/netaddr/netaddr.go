package netaddr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"

	"golang.org/x/net/idna"
)

// MaxAddrLen is the longest textual IPv6 address we accept (INET6_ADDRSTRLEN - 1).
const MaxAddrLen = 45

var (
	ErrInvalidPort    = errors.New("invalid port")
	ErrInvalidAddress = errors.New("invalid ipv6 address")
	ErrResolution     = errors.New("hostname resolution failed")
)

// ValidatePort parses text as a TCP port in 1..65535.
func ValidatePort(text string) (uint16, error) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 1 || n > 65535 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPort, text)
	}
	return uint16(n), nil
}

// NormalizeIPv6 validates a peer address and returns its canonical text form.
func NormalizeIPv6(text string) (string, error) {
	if text == "" || len(text) > MaxAddrLen {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, text)
	}
	a, err := netip.ParseAddr(text)
	if err != nil || !a.Is6() {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, text)
	}
	return a.String(), nil
}

// ParseIPv6 combines a literal IPv6 address and a port into a dialable address.
func ParseIPv6(text, port string) (netip.AddrPort, error) {
	p, err := ValidatePort(port)
	if err != nil {
		return netip.AddrPort{}, err
	}
	a, err := netip.ParseAddr(strings.Trim(text, "[]"))
	if err != nil || !a.Is6() {
		return netip.AddrPort{}, fmt.Errorf("%w: %q", ErrInvalidAddress, text)
	}
	return netip.AddrPortFrom(a, p), nil
}

// Resolver is the subset of *net.Resolver used for lookups.
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// ResolveHostname looks host up, preferring IPv6 answers. IPv4-only hosts are
// returned as IPv4-mapped IPv6 addresses. The lookup is bounded by ctx.
func ResolveHostname(ctx context.Context, r Resolver, host, port string) (netip.AddrPort, error) {
	p, err := ValidatePort(port)
	if err != nil {
		return netip.AddrPort{}, err
	}
	if r == nil {
		r = net.DefaultResolver
	}
	if ap, err := ParseIPv6(host, port); err == nil {
		return ap, nil
	}
	ascii, err := idna.Lookup.ToASCII(strings.TrimSuffix(host, "."))
	if err != nil || ascii == "" {
		return netip.AddrPort{}, fmt.Errorf("%w: %q: bad hostname", ErrResolution, host)
	}

	addrs, err := r.LookupNetIP(ctx, "ip", ascii)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("%w: %s: %v", ErrResolution, ascii, err)
	}
	var mapped netip.Addr
	for _, a := range addrs {
		if a.Is6() && !a.Is4In6() {
			return netip.AddrPortFrom(a, p), nil
		}
		if !mapped.IsValid() && a.Is4() {
			mapped = netip.AddrFrom16(a.As16())
		}
	}
	if mapped.IsValid() {
		return netip.AddrPortFrom(mapped, p), nil
	}
	return netip.AddrPort{}, fmt.Errorf("%w: %s: no usable address family", ErrResolution, ascii)
}
