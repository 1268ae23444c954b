//go:build !linux && !darwin

package dgram

import (
	"errors"

	"example.com/dgramsock/pkg/sockaddr"
)

var errUnsupported = errors.New("datagram sockets are not supported on this platform")

type unsupportedSys struct{}

func newSys() sysCalls {
	return unsupportedSys{}
}

func (unsupportedSys) socket(int) (int, error) { return invalidFD, errUnsupported }
func (unsupportedSys) bind(int, sockaddr.Wire) error { return errUnsupported }
func (unsupportedSys) connect(int, sockaddr.Wire) error { return errUnsupported }
func (unsupportedSys) getsockname(int) (sockaddr.Wire, error) { return sockaddr.Wire{}, errUnsupported }
func (unsupportedSys) close(int) error { return errUnsupported }
func (unsupportedSys) getsockoptInt(int, sockOpt) (int, error) { return 0, errUnsupported }
func (unsupportedSys) setsockoptInt(int, sockOpt, int) error { return errUnsupported }
func (unsupportedSys) send(int, []byte, *sockaddr.Wire) (int, error) {
	return 0, errUnsupported
}
func (unsupportedSys) recvfrom(int, []byte) (int, sockaddr.Wire, bool, error) {
	return 0, sockaddr.Wire{}, false, errUnsupported
}
