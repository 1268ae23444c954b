// Package sockaddr converts IPv4 addresses and ports between the host-order
// representation used throughout dgramsock and the network-order sockaddr_in
// layout the kernel expects.
package sockaddr

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"strconv"
)

// FamilyInet mirrors AF_INET.
const FamilyInet uint16 = 2

// Addr is an IPv4 address in host byte order, e.g. 127.0.0.1 is 0x7f000001.
type Addr uint32

// AddrPort pairs an Addr with a port, both in host byte order.
type AddrPort struct {
	Addr Addr
	Port uint16
}

// Wire is the portable sockaddr_in form. Port and Addr hold network-order bytes.
type Wire struct {
	Family uint16
	Port   [2]byte
	Addr   [4]byte
}

// Unspecified returns the wildcard address (INADDR_ANY).
func Unspecified() Addr {
	return 0
}

// ToWire packs ap into network byte order.
func ToWire(ap AddrPort) Wire {
	w := Wire{Family: FamilyInet}
	binary.BigEndian.PutUint16(w.Port[:], ap.Port)
	binary.BigEndian.PutUint32(w.Addr[:], uint32(ap.Addr))
	return w
}

// FromWire is the inverse of ToWire.
func FromWire(w Wire) AddrPort {
	return AddrPort{
		Addr: Addr(binary.BigEndian.Uint32(w.Addr[:])),
		Port: binary.BigEndian.Uint16(w.Port[:]),
	}
}

func AddrFrom4(b [4]byte) Addr {
	return Addr(binary.BigEndian.Uint32(b[:]))
}

func (a Addr) As4() [4]byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(a))
	return b
}

func (a Addr) IsUnspecified() bool {
	return a == Unspecified()
}

func (a Addr) Netip() netip.Addr {
	return netip.AddrFrom4(a.As4())
}

func (a Addr) String() string {
	return a.Netip().String()
}

// AddrFromNetip accepts IPv4 and IPv4-mapped IPv6 addresses.
func AddrFromNetip(ip netip.Addr) (Addr, error) {
	ip = ip.Unmap()
	if !ip.Is4() {
		return 0, fmt.Errorf("not an ipv4 address: %s", ip.String())
	}
	return AddrFrom4(ip.As4()), nil
}

func ParseAddr(s string) (Addr, error) {
	ip, err := netip.ParseAddr(s)
	if err != nil {
		return 0, fmt.Errorf("failed to parse address %q: %v", s, err)
	}
	return AddrFromNetip(ip)
}

func (ap AddrPort) Netip() netip.AddrPort {
	return netip.AddrPortFrom(ap.Addr.Netip(), ap.Port)
}

func (ap AddrPort) String() string {
	return ap.Addr.String() + ":" + strconv.Itoa(int(ap.Port))
}

// ParseAddrPort parses "a.b.c.d:port".
func ParseAddrPort(s string) (AddrPort, error) {
	nap, err := netip.ParseAddrPort(s)
	if err != nil {
		return AddrPort{}, fmt.Errorf("failed to parse address and port %q: %v", s, err)
	}
	addr, err := AddrFromNetip(nap.Addr())
	if err != nil {
		return AddrPort{}, err
	}
	return AddrPort{Addr: addr, Port: nap.Port()}, nil
}
