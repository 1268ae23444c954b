//go:build linux || darwin

package sockaddr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestSockaddrBoundary(t *testing.T) {
	ap := AddrPort{Addr: 0x7f000001, Port: 4242}
	sa := ToWire(ap).Sockaddr()
	assert.Equal(t, 4242, sa.Port)
	assert.Equal(t, [4]byte{127, 0, 0, 1}, sa.Addr)

	w, err := WireFromSockaddr(sa)
	require.NoError(t, err)
	assert.Equal(t, ap, FromWire(w))

	_, err = WireFromSockaddr(&unix.SockaddrInet6{Port: 1})
	assert.Error(t, err)
}
