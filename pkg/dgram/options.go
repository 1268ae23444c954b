package dgram

import (
	"example.com/dgramsock/pkg/bufmgr"
	"example.com/dgramsock/pkg/sockaddr"
	"github.com/sirupsen/logrus"
)

// Protocol selects the third argument of socket(AF_INET, SOCK_DGRAM, proto).
type Protocol int

const (
	// ProtocolUDP lets the kernel pick the default datagram protocol (UDP).
	ProtocolUDP Protocol = 0
	// ProtocolICMP opens an unprivileged ICMP echo socket. Needs
	// net.ipv4.ping_group_range to cover the caller on Linux.
	ProtocolICMP Protocol = 1
)

func (p Protocol) String() string {
	switch p {
	case ProtocolUDP:
		return "udp"
	case ProtocolICMP:
		return "icmp"
	default:
		return "unknown"
	}
}

// Hooks are invoked synchronously from the calling goroutine. Nil members are
// skipped.
type Hooks struct {
	OnSent     func(local, remote sockaddr.AddrPort, nBytes int)
	OnReceived func(local, from sockaddr.AddrPort, nBytes int, truncated bool)
	OnError    func(op string, err *Error)
}

type Option func(s *Socket)

func WithProtocol(p Protocol) Option {
	return func(s *Socket) {
		s.proto = p
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Socket) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithHooks(hooks Hooks) Option {
	return func(s *Socket) {
		s.hooks = hooks
	}
}

func WithBufferManager(m *bufmgr.Manager) Option {
	return func(s *Socket) {
		if m != nil {
			s.bufs = m
		}
	}
}

func withSys(sys sysCalls) Option {
	return func(s *Socket) {
		s.sys = sys
	}
}
