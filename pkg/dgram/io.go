package dgram

import (
	"errors"
	"fmt"

	"example.com/dgramsock/pkg/bufmgr"
	"example.com/dgramsock/pkg/sockaddr"
)

// Datagram is the payload window Buf[Offset:Offset+Length] plus the peer it
// came from or goes to.
type Datagram struct {
	Buf    []byte
	Offset int
	Length int

	// Remote is filled by Receive and read by SendTo.
	Remote sockaddr.AddrPort

	// Truncated is set by Receive when the kernel had more bytes than Length.
	Truncated bool
}

// Payload returns the current window of Buf.
func (dg *Datagram) Payload() []byte {
	return dg.Buf[dg.Offset : dg.Offset+dg.Length]
}

func (s *Socket) checkDatagram(op string, dg *Datagram) error {
	if err := s.ensureOpen(op); err != nil {
		return err
	}
	if dg == nil {
		return s.fail(op, KindNullPayload, "null packet", nil)
	}
	if dg.Buf == nil {
		return s.fail(op, KindNullPayload, "null buffer", nil)
	}
	if dg.Offset < 0 || dg.Length < 0 || dg.Offset > len(dg.Buf) || dg.Length > len(dg.Buf)-dg.Offset {
		msg := fmt.Sprintf("window [%d:+%d] exceeds buffer of %d bytes", dg.Offset, dg.Length, len(dg.Buf))
		return s.fail(op, KindInvalidArgument, msg, nil)
	}
	return nil
}

func (s *Socket) acquire(op string, scratch *bufmgr.Scratch, length int) (bufmgr.Buffer, error) {
	buf, err := s.bufs.Acquire(scratch, length)
	if err != nil {
		if errors.Is(err, bufmgr.ErrOutOfMemory) {
			return buf, s.fail(op, KindOutOfMemory, fmt.Sprintf("cannot allocate %d bytes", length), err)
		}
		return buf, s.fail(op, KindInvalidArgument, "bad buffer length", err)
	}
	return buf, nil
}

// Send transmits the datagram window to the connected peer. Sending on an
// unconnected socket is left to the kernel, which rejects it.
func (s *Socket) Send(dg *Datagram) error {
	return s.send("send", dg, nil)
}

// SendTo transmits the datagram window to dg.Remote, overriding any
// connected peer where the kernel allows it.
func (s *Socket) SendTo(dg *Datagram) error {
	if dg == nil {
		return s.send("send_to", dg, nil)
	}
	to := sockaddr.ToWire(dg.Remote)
	return s.send("send_to", dg, &to)
}

func (s *Socket) send(op string, dg *Datagram, to *sockaddr.Wire) error {
	if err := s.checkDatagram(op, dg); err != nil {
		return err
	}

	buf, err := s.acquire(op, &s.sendScratch, dg.Length)
	if err != nil {
		return err
	}
	defer buf.Release()
	copy(buf.Bytes(), dg.Payload())

	n, err := s.sys.send(s.fd, buf.Bytes(), to)
	if err != nil {
		return s.fail(op, KindSocketError, "Error while sending datagram packet", err)
	}

	remote := s.remote
	if to != nil {
		remote = sockaddr.FromWire(*to)
	}
	if s.hooks.OnSent != nil {
		s.hooks.OnSent(s.LocalAddrPort(), remote, n)
	}
	return nil
}

// Receive blocks until a datagram arrives and copies at most dg.Length bytes
// of it into Buf at Offset. On return Length holds the copied count, Remote
// the sender and Truncated whether bytes were dropped.
func (s *Socket) Receive(dg *Datagram) error {
	const op = "receive"
	if err := s.checkDatagram(op, dg); err != nil {
		return err
	}

	buf, err := s.acquire(op, &s.recvScratch, dg.Length)
	if err != nil {
		return err
	}
	defer buf.Release()

	n, from, truncated, err := s.sys.recvfrom(s.fd, buf.Bytes())
	if err != nil {
		return s.fail(op, KindSocketError, "Error while receiving datagram packet", err)
	}
	if n > dg.Length {
		n = dg.Length
		truncated = true
	}
	copy(dg.Buf[dg.Offset:dg.Offset+n], buf.Bytes()[:n])
	dg.Length = n
	dg.Remote = sockaddr.FromWire(from)
	dg.Truncated = truncated

	if s.hooks.OnReceived != nil {
		s.hooks.OnReceived(s.LocalAddrPort(), dg.Remote, n, truncated)
	}
	return nil
}
