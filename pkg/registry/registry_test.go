package registry

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegister_Full(t *testing.T) {
	r := New(0)
	for i := 1; i <= DefaultMaxServers; i++ {
		require.NoError(t, r.Register(fmt.Sprintf("2001:db8::%d", i)))
	}
	require.ErrorIs(t, r.Register("2001:db8::ff"), ErrFull)
	require.Equal(t, DefaultMaxServers, r.Len())
	require.False(t, r.Contains("2001:db8::ff"))
}

func TestRegister_AlreadyKnown(t *testing.T) {
	r := New(2)
	require.NoError(t, r.Register("::1"))
	require.ErrorIs(t, r.Register("::1"), ErrAlreadyKnown)
	require.Equal(t, 1, r.Len())
}

func TestDeregister(t *testing.T) {
	r := New(0)
	require.ErrorIs(t, r.Deregister("::1"), ErrUnknown)
	require.NoError(t, r.Register("::1"))
	require.NoError(t, r.Deregister("::1"))
	require.Zero(t, r.Len())
}

func TestDecoNewRoundTrip(t *testing.T) {
	r := New(0)
	require.NoError(t, r.Register("::1"))
	require.NoError(t, r.Deregister("::1"))
	require.NoError(t, r.Register("::1"))
	require.Equal(t, []string{"::1"}, r.List())
}

func TestEvict(t *testing.T) {
	r := New(0)
	for _, a := range []string{"::1", "::2", "::3"} {
		require.NoError(t, r.Register(a))
	}
	_, err := r.Evict(3)
	require.ErrorIs(t, err, ErrIndexOutOfRange)

	addr, err := r.Evict(1)
	require.NoError(t, err)
	require.Equal(t, "::2", addr)
	require.Equal(t, []string{"::1", "::3"}, r.List())

	// freed slot is reusable
	require.NoError(t, r.Register("::2"))
	require.Equal(t, 3, r.Len())
}
