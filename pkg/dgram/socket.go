// Package dgram is a blocking IPv4 datagram socket that owns one native
// descriptor directly, without the net package's poller.
//
// A Socket is not safe for concurrent use, with one exception: a single
// sender may run alongside a single receiver. Everything else, Close
// included, must be serialized by the caller. Every call
// blocks for the duration of the underlying syscall and there is no timeout;
// a Receive with nothing to read waits until a datagram arrives.
package dgram

import (
	"fmt"

	"example.com/dgramsock/pkg/bufmgr"
	"example.com/dgramsock/pkg/sockaddr"
	"github.com/sirupsen/logrus"
)

const invalidFD = -1

type Socket struct {
	fd      int
	created bool

	localPort    uint16
	localAddress sockaddr.Addr

	remote    sockaddr.AddrPort
	connected bool

	proto  Protocol
	sys    sysCalls
	bufs   *bufmgr.Manager
	hooks  Hooks
	logger logrus.FieldLogger

	// Payloads up to bufmgr.ScratchSize are staged here instead of the heap.
	// Send and Receive each own one so a sender and a receiver can overlap.
	sendScratch bufmgr.Scratch
	recvScratch bufmgr.Scratch
}

// New returns a closed handle. Call Create before anything else.
func New(opts ...Option) *Socket {
	s := &Socket{
		fd:     invalidFD,
		proto:  ProtocolUDP,
		sys:    newSys(),
		bufs:   bufmgr.NewManager(),
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Socket) FD() int {
	return s.fd
}

func (s *Socket) IsOpen() bool {
	return s.fd != invalidFD
}

func (s *Socket) Protocol() Protocol {
	return s.proto
}

func (s *Socket) LocalPort() uint16 {
	return s.localPort
}

func (s *Socket) LocalAddress() sockaddr.Addr {
	return s.localAddress
}

func (s *Socket) LocalAddrPort() sockaddr.AddrPort {
	return sockaddr.AddrPort{Addr: s.localAddress, Port: s.localPort}
}

// RemoteAddrPort returns the peer fixed by Connect.
func (s *Socket) RemoteAddrPort() (sockaddr.AddrPort, bool) {
	return s.remote, s.connected
}

func (s *Socket) fields() logrus.Fields {
	fields := logrus.Fields{
		"fd":    s.fd,
		"proto": s.proto.String(),
		"local": s.LocalAddrPort().String(),
	}
	if s.connected {
		fields["remote"] = s.remote.String()
	}
	return fields
}

func (s *Socket) fail(op string, kind Kind, msg string, cause error) *Error {
	err := &Error{Kind: kind, Op: op, Msg: msg, Err: cause}
	if kind == KindSocketError {
		s.logger.WithFields(s.fields()).WithError(cause).Warnf("%s: %s", op, msg)
	}
	if s.hooks.OnError != nil {
		s.hooks.OnError(op, err)
	}
	return err
}

func (s *Socket) ensureOpen(op string) error {
	if s.fd == invalidFD {
		return s.fail(op, KindSocketClosed, msgSocketClosed, nil)
	}
	return nil
}

// abandon drops a half-configured descriptor. The close error is irrelevant
// because the caller is already reporting a failure.
func (s *Socket) abandon() {
	if s.fd == invalidFD {
		return
	}
	_ = s.sys.close(s.fd)
	s.fd = invalidFD
	s.connected = false
}

// refreshLocal re-reads the kernel-assigned local address. A failure leaves
// the socket in an unknown state, so the descriptor is dropped.
func (s *Socket) refreshLocal(op string) error {
	w, err := s.sys.getsockname(s.fd)
	if err != nil {
		s.abandon()
		return s.fail(op, KindSocketError, "failed to query local address", err)
	}
	local := sockaddr.FromWire(w)
	s.localAddress = local.Addr
	s.localPort = local.Port
	return nil
}

// Create opens the descriptor and records the local address the kernel
// reports for it. A handle can only be created once.
func (s *Socket) Create() error {
	const op = "create"
	if s.created {
		return s.fail(op, KindSocketError, "socket already created", nil)
	}

	fd, err := s.sys.socket(int(s.proto))
	if err != nil {
		return s.fail(op, KindSocketError, "failed to create socket", err)
	}
	s.created = true
	s.fd = fd

	if err := s.refreshLocal(op); err != nil {
		return err
	}
	s.logger.WithFields(s.fields()).Debug("socket created")
	return nil
}

// Bind binds to addr:port, or to the wildcard address when addr is nil. Port 0
// lets the kernel choose; LocalPort reports the result. If the kernel rejects
// the bind the descriptor is closed.
func (s *Socket) Bind(addr *sockaddr.Addr, port uint16) error {
	const op = "bind"
	if err := s.ensureOpen(op); err != nil {
		return err
	}

	local := sockaddr.AddrPort{Addr: sockaddr.Unspecified(), Port: port}
	if addr != nil {
		local.Addr = *addr
	}
	if err := s.sys.bind(s.fd, sockaddr.ToWire(local)); err != nil {
		s.abandon()
		return s.fail(op, KindSocketError, fmt.Sprintf("failed to bind to %s", local.String()), err)
	}

	if err := s.refreshLocal(op); err != nil {
		return err
	}
	s.logger.WithFields(s.fields()).Debug("socket bound")
	return nil
}

// Connect fixes the peer used by Send and filters what Receive accepts. A
// failed connect leaves the descriptor open and usable.
func (s *Socket) Connect(addr sockaddr.Addr, port uint16) error {
	const op = "connect"
	if err := s.ensureOpen(op); err != nil {
		return err
	}

	remote := sockaddr.AddrPort{Addr: addr, Port: port}
	if err := s.sys.connect(s.fd, sockaddr.ToWire(remote)); err != nil {
		return s.fail(op, KindSocketError, fmt.Sprintf("failed to connect to %s", remote.String()), err)
	}
	s.remote = remote
	s.connected = true

	if err := s.refreshLocal(op); err != nil {
		return err
	}
	s.logger.WithFields(s.fields()).Debug("socket connected")
	return nil
}

// Close releases the descriptor. The handle counts as closed even when the
// kernel reports an error, and a second Close fails with ErrSocketClosed.
func (s *Socket) Close() error {
	const op = "close"
	if err := s.ensureOpen(op); err != nil {
		return err
	}

	fields := s.fields()
	err := s.sys.close(s.fd)
	s.fd = invalidFD
	s.connected = false
	if err != nil {
		return s.fail(op, KindSocketError, "failed to close socket", err)
	}
	s.logger.WithFields(fields).Debug("socket closed")
	return nil
}

func (s *Socket) ReceiveBufferSize() (int, error) {
	return s.getBufferSize("get_receive_buffer_size", optRcvBuf,
		"Error while retrieving the datagram socket's receive buffer size")
}

// SetReceiveBufferSize sets SO_RCVBUF. The kernel may round the value up.
func (s *Socket) SetReceiveBufferSize(size int) error {
	return s.setBufferSize("set_receive_buffer_size", optRcvBuf, size,
		"Error while setting the datagram socket's receive buffer size")
}

func (s *Socket) SendBufferSize() (int, error) {
	return s.getBufferSize("get_send_buffer_size", optSndBuf,
		"Error while retrieving the datagram socket's send buffer size")
}

// SetSendBufferSize sets SO_SNDBUF. The kernel may round the value up.
func (s *Socket) SetSendBufferSize(size int) error {
	return s.setBufferSize("set_send_buffer_size", optSndBuf, size,
		"Error while setting the datagram socket's send buffer size")
}

func (s *Socket) getBufferSize(op string, opt sockOpt, msg string) (int, error) {
	if err := s.ensureOpen(op); err != nil {
		return 0, err
	}
	size, err := s.sys.getsockoptInt(s.fd, opt)
	if err != nil {
		return 0, s.fail(op, KindSocketError, msg, err)
	}
	return size, nil
}

func (s *Socket) setBufferSize(op string, opt sockOpt, size int, msg string) error {
	if err := s.ensureOpen(op); err != nil {
		return err
	}
	if err := s.sys.setsockoptInt(s.fd, opt, size); err != nil {
		return s.fail(op, KindSocketError, msg, err)
	}
	s.logger.WithFields(s.fields()).WithField("size", size).Debugf("%s done", op)
	return nil
}
