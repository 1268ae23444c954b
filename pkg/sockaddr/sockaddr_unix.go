//go:build linux || darwin

package sockaddr

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

// Sockaddr hands w to x/sys/unix, which wants the port as a host-order int.
func (w Wire) Sockaddr() *unix.SockaddrInet4 {
	return &unix.SockaddrInet4{
		Port: int(binary.BigEndian.Uint16(w.Port[:])),
		Addr: w.Addr,
	}
}

// WireFromSockaddr accepts only AF_INET addresses.
func WireFromSockaddr(sa unix.Sockaddr) (Wire, error) {
	sa4, ok := sa.(*unix.SockaddrInet4)
	if !ok || sa4 == nil {
		return Wire{}, fmt.Errorf("unexpected socket address type %T", sa)
	}
	w := Wire{Family: FamilyInet, Addr: sa4.Addr}
	binary.BigEndian.PutUint16(w.Port[:], uint16(sa4.Port))
	return w, nil
}
