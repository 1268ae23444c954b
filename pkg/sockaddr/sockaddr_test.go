package sockaddr

import (
	"math/rand"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWireRoundTrip(t *testing.T) {
	cases := []AddrPort{
		{},
		{Addr: 0x7f000001, Port: 53},
		{Addr: 0xffffffff, Port: 0xffff},
		{Addr: 0x0a000001, Port: 1},
		{Addr: 0xc0a80101, Port: 33434},
	}
	for _, ap := range cases {
		assert.Equal(t, ap, FromWire(ToWire(ap)), "round trip of %s", ap)
	}

	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < 10000; i++ {
		ap := AddrPort{Addr: Addr(rnd.Uint32()), Port: uint16(rnd.Intn(1 << 16))}
		require.Equal(t, ap, FromWire(ToWire(ap)))
	}
}

func TestToWireIsNetworkOrder(t *testing.T) {
	w := ToWire(AddrPort{Addr: 0x7f000001, Port: 0x1234})
	assert.Equal(t, FamilyInet, w.Family)
	assert.Equal(t, [2]byte{0x12, 0x34}, w.Port)
	assert.Equal(t, [4]byte{127, 0, 0, 1}, w.Addr)
}

func TestUnspecified(t *testing.T) {
	w := ToWire(AddrPort{Addr: Unspecified()})
	assert.Equal(t, [4]byte{}, w.Addr)
	assert.True(t, Unspecified().IsUnspecified())
	assert.Equal(t, "0.0.0.0", Unspecified().String())
}

func TestParse(t *testing.T) {
	ap, err := ParseAddrPort("192.168.1.10:8080")
	require.NoError(t, err)
	assert.Equal(t, Addr(0xc0a8010a), ap.Addr)
	assert.Equal(t, uint16(8080), ap.Port)
	assert.Equal(t, "192.168.1.10:8080", ap.String())
	assert.Equal(t, netip.MustParseAddrPort("192.168.1.10:8080"), ap.Netip())

	addr, err := ParseAddr("::ffff:10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, Addr(0x0a000001), addr)

	_, err = ParseAddr("2001:db8::1")
	assert.Error(t, err)

	_, err = ParseAddrPort("[2001:db8::1]:53")
	assert.Error(t, err)

	_, err = ParseAddrPort("not-an-address")
	assert.Error(t, err)
}
