package netaddr

import (
	"context"
	"errors"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	addrs []netip.Addr
	err   error
	host  string
}

func (f *fakeResolver) LookupNetIP(_ context.Context, _, host string) ([]netip.Addr, error) {
	f.host = host
	return f.addrs, f.err
}

func TestValidatePort(t *testing.T) {
	p, err := ValidatePort("7777")
	require.NoError(t, err)
	require.Equal(t, uint16(7777), p)

	for _, bad := range []string{"", "0", "65536", "-1", "http", "80a"} {
		_, err := ValidatePort(bad)
		require.ErrorIs(t, err, ErrInvalidPort, bad)
	}
}

func TestNormalizeIPv6(t *testing.T) {
	got, err := NormalizeIPv6("2001:0db8:0000:0000:0000:0000:0000:0001")
	require.NoError(t, err)
	require.Equal(t, "2001:db8::1", got)

	for _, bad := range []string{"", "127.0.0.1", "not-an-ip", "::1::2"} {
		_, err := NormalizeIPv6(bad)
		require.ErrorIs(t, err, ErrInvalidAddress, bad)
	}
}

func TestParseIPv6(t *testing.T) {
	ap, err := ParseIPv6("[::1]", "9000")
	require.NoError(t, err)
	require.Equal(t, "[::1]:9000", ap.String())

	_, err = ParseIPv6("10.0.0.1", "9000")
	require.ErrorIs(t, err, ErrInvalidAddress)

	_, err = ParseIPv6("::1", "99999")
	require.ErrorIs(t, err, ErrInvalidPort)
}

func TestResolveHostname_PrefersIPv6(t *testing.T) {
	r := &fakeResolver{addrs: []netip.Addr{
		netip.MustParseAddr("192.0.2.7"),
		netip.MustParseAddr("2001:db8::7"),
	}}
	ap, err := ResolveHostname(context.Background(), r, "Tracker.Example.", "7777")
	require.NoError(t, err)
	require.Equal(t, "2001:db8::7", ap.Addr().String())
	require.Equal(t, uint16(7777), ap.Port())
	require.Equal(t, "tracker.example", r.host)
}

func TestResolveHostname_MapsIPv4(t *testing.T) {
	r := &fakeResolver{addrs: []netip.Addr{netip.MustParseAddr("192.0.2.7")}}
	ap, err := ResolveHostname(context.Background(), r, "v4only.example", "7777")
	require.NoError(t, err)
	require.True(t, ap.Addr().Is4In6())
}

func TestResolveHostname_Failures(t *testing.T) {
	r := &fakeResolver{err: errors.New("no such host")}
	_, err := ResolveHostname(context.Background(), r, "missing.example", "7777")
	require.ErrorIs(t, err, ErrResolution)

	r = &fakeResolver{}
	_, err = ResolveHostname(context.Background(), r, "empty.example", "7777")
	require.ErrorIs(t, err, ErrResolution)

	ap, err := ResolveHostname(context.Background(), r, "::2", "7777")
	require.NoError(t, err)
	require.Equal(t, "::2", ap.Addr().String())
}
