//go:build linux || darwin

package dgram

import (
	"example.com/dgramsock/pkg/sockaddr"
	"golang.org/x/sys/unix"
)

type unixSys struct{}

func newSys() sysCalls {
	return unixSys{}
}

func ignoringEINTR(fn func() error) error {
	for {
		err := fn()
		if err != unix.EINTR {
			return err
		}
	}
}

func (unixSys) socket(proto int) (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, proto)
	if err != nil {
		return invalidFD, err
	}
	unix.CloseOnExec(fd)
	return fd, nil
}

func (unixSys) bind(fd int, local sockaddr.Wire) error {
	return unix.Bind(fd, local.Sockaddr())
}

func (unixSys) connect(fd int, remote sockaddr.Wire) error {
	return ignoringEINTR(func() error {
		return unix.Connect(fd, remote.Sockaddr())
	})
}

func (unixSys) getsockname(fd int) (sockaddr.Wire, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return sockaddr.Wire{}, err
	}
	return sockaddr.WireFromSockaddr(sa)
}

func (unixSys) close(fd int) error {
	return unix.Close(fd)
}

func (unixSys) send(fd int, p []byte, to *sockaddr.Wire) (int, error) {
	var sa unix.Sockaddr
	if to != nil {
		sa = to.Sockaddr()
	}
	var n int
	err := ignoringEINTR(func() error {
		var err error
		n, err = unix.SendmsgN(fd, p, nil, sa, 0)
		return err
	})
	return n, err
}

func (unixSys) recvfrom(fd int, p []byte) (int, sockaddr.Wire, bool, error) {
	var (
		n         int
		recvflags int
		from      unix.Sockaddr
	)
	err := ignoringEINTR(func() error {
		var err error
		n, _, recvflags, from, err = unix.Recvmsg(fd, p, nil, 0)
		return err
	})
	if err != nil {
		return 0, sockaddr.Wire{}, false, err
	}
	truncated := recvflags&unix.MSG_TRUNC != 0
	if from == nil {
		return n, sockaddr.Wire{Family: sockaddr.FamilyInet}, truncated, nil
	}
	w, err := sockaddr.WireFromSockaddr(from)
	if err != nil {
		return 0, sockaddr.Wire{}, false, err
	}
	return n, w, truncated, nil
}

func sockOptName(opt sockOpt) int {
	if opt == optSndBuf {
		return unix.SO_SNDBUF
	}
	return unix.SO_RCVBUF
}

func (unixSys) getsockoptInt(fd int, opt sockOpt) (int, error) {
	return unix.GetsockoptInt(fd, unix.SOL_SOCKET, sockOptName(opt))
}

func (unixSys) setsockoptInt(fd int, opt sockOpt, value int) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, sockOptName(opt), value)
}
