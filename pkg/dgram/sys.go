package dgram

import "example.com/dgramsock/pkg/sockaddr"

type sockOpt int

const (
	optRcvBuf sockOpt = iota
	optSndBuf
)

// sysCalls is the slice of the POSIX socket API a Socket uses. Addresses cross
// it in wire form only.
type sysCalls interface {
	socket(proto int) (int, error)
	bind(fd int, local sockaddr.Wire) error
	connect(fd int, remote sockaddr.Wire) error
	getsockname(fd int) (sockaddr.Wire, error)
	close(fd int) error
	// send transmits to the connected peer when to is nil.
	send(fd int, p []byte, to *sockaddr.Wire) (int, error)
	recvfrom(fd int, p []byte) (n int, from sockaddr.Wire, truncated bool, err error)
	getsockoptInt(fd int, opt sockOpt) (int, error)
	setsockoptInt(fd int, opt sockOpt, value int) error
}
