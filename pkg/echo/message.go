// Package echo builds and decodes ICMPv4 echo messages carried over an
// unprivileged ICMP datagram socket, and keeps per-sequence bookkeeping for a
// ping run.
package echo

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/uuid"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

const headerSizeICMP = 8

// MinPayloadSize is the tag plus the send timestamp.
const MinPayloadSize = 16 + 8

var (
	ErrNotEchoReply  = errors.New("not an icmp echo reply")
	ErrShortPayload  = errors.New("echo payload too short")
	ErrForeignReply  = errors.New("echo reply belongs to another run")
	ErrPayloadTooBig = errors.New("echo payload too big")
)

// BuildRequest returns the wire bytes of an echo request whose payload is
// tag, sentAtNs and zero padding up to payloadSize bytes. On Linux ping
// sockets the kernel rewrites id with the socket's local port.
func BuildRequest(id, seq int, tag uuid.UUID, sentAtNs int64, payloadSize int) ([]byte, error) {
	if payloadSize < MinPayloadSize {
		payloadSize = MinPayloadSize
	}
	if payloadSize > 65507-headerSizeICMP {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooBig, payloadSize)
	}

	data := make([]byte, payloadSize)
	copy(data, tag[:])
	binary.BigEndian.PutUint64(data[16:24], uint64(sentAtNs))

	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{
			ID:   id & 0xffff,
			Seq:  seq & 0xffff,
			Data: data,
		},
	}
	wb, err := msg.Marshal(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal icmp echo request: %v", err)
	}
	return wb, nil
}

type Reply struct {
	ID       int
	Seq      int
	Tag      uuid.UUID
	SentAtNs int64
	// Size is the ICMP message length, header included.
	Size int
}

// ParseReply decodes an ICMP message as delivered by a ping socket, i.e.
// without the IP header.
func ParseReply(raw []byte) (*Reply, error) {
	thepacket := gopacket.NewPacket(raw, layers.LayerTypeICMPv4, gopacket.Default)
	if errLayer := thepacket.ErrorLayer(); errLayer != nil {
		return nil, fmt.Errorf("failed to decode icmp packet: %v", errLayer.Error())
	}

	icmpLayer := thepacket.Layer(layers.LayerTypeICMPv4)
	if icmpLayer == nil {
		return nil, fmt.Errorf("failed to extract icmp layer")
	}
	icmpPacket, ok := icmpLayer.(*layers.ICMPv4)
	if !ok {
		return nil, fmt.Errorf("failed to cast icmp layer to icmp packet")
	}

	if icmpPacket.TypeCode.Type() != layers.ICMPv4TypeEchoReply {
		return nil, fmt.Errorf("%w: type %d code %d", ErrNotEchoReply, icmpPacket.TypeCode.Type(), icmpPacket.TypeCode.Code())
	}

	payload := icmpPacket.Payload
	if len(payload) < MinPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrShortPayload, len(payload))
	}

	tag, err := uuid.FromBytes(payload[:16])
	if err != nil {
		return nil, fmt.Errorf("failed to read probe tag: %v", err)
	}

	return &Reply{
		ID:       int(icmpPacket.Id),
		Seq:      int(icmpPacket.Seq),
		Tag:      tag,
		SentAtNs: int64(binary.BigEndian.Uint64(payload[16:24])),
		Size:     len(raw),
	}, nil
}

// ParseReplyFor is ParseReply that also rejects replies carrying another tag.
func ParseReplyFor(raw []byte, tag uuid.UUID) (*Reply, error) {
	reply, err := ParseReply(raw)
	if err != nil {
		return nil, err
	}
	if reply.Tag != tag {
		return nil, fmt.Errorf("%w: %s", ErrForeignReply, reply.Tag)
	}
	return reply, nil
}
