package cli

import (
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"example.com/dgramsock/pkg/dgram"
	pkgmyprom "example.com/dgramsock/pkg/myprom"
	"example.com/dgramsock/pkg/sockaddr"
	pkgutils "example.com/dgramsock/pkg/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// maxUDPPayload is the largest payload of one IPv4 UDP datagram.
const maxUDPPayload = 65507

func resolveAddrPort(s string) (sockaddr.AddrPort, error) {
	udpAddr, err := net.ResolveUDPAddr("udp4", s)
	if err != nil {
		return sockaddr.AddrPort{}, fmt.Errorf("failed to resolve %s: %v", s, err)
	}
	ap := udpAddr.AddrPort()
	addr, err := sockaddr.AddrFromNetip(ap.Addr())
	if err != nil {
		return sockaddr.AddrPort{}, fmt.Errorf("failed to resolve %s: %v", s, err)
	}
	return sockaddr.AddrPort{Addr: addr, Port: ap.Port()}, nil
}

func resolveAddr(host string) (sockaddr.Addr, error) {
	ipAddr, err := net.ResolveIPAddr("ip4", host)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve %s: %v", host, err)
	}
	ip4 := ipAddr.IP.To4()
	if ip4 == nil {
		return 0, fmt.Errorf("%s has no ipv4 address", host)
	}
	return sockaddr.AddrFrom4([4]byte(ip4)), nil
}

type socketSpec struct {
	command string
	proto   dgram.Protocol
	bind    string
	rcvBuf  int
	sndBuf  int
}

// openSocket creates a socket wired to the shared logger and metrics, then
// applies the optional bind address and buffer sizes.
func openSocket(sharedCtx *pkgutils.GlobalSharedContext, spec socketSpec) (*dgram.Socket, error) {
	counterStore := pkgmyprom.NewCounterStore(sharedCtx.Registerer, prometheus.Labels{
		pkgmyprom.PromLabelCommand: spec.command,
		pkgmyprom.PromLabelProto:   spec.proto.String(),
	})
	logger := sharedCtx.Logger.WithField("command", spec.command)

	s := dgram.New(
		dgram.WithProtocol(spec.proto),
		dgram.WithLogger(logger),
		dgram.WithHooks(counterStore.Hooks()),
	)
	if err := s.Create(); err != nil {
		return nil, err
	}

	if spec.bind != "" {
		local, err := resolveAddrPort(spec.bind)
		if err != nil {
			s.Close()
			return nil, err
		}
		if err := s.Bind(&local.Addr, local.Port); err != nil {
			return nil, err
		}
	}

	if spec.rcvBuf > 0 {
		if err := s.SetReceiveBufferSize(spec.rcvBuf); err != nil {
			s.Close()
			return nil, err
		}
	}
	if spec.sndBuf > 0 {
		if err := s.SetSendBufferSize(spec.sndBuf); err != nil {
			s.Close()
			return nil, err
		}
	}

	logger.WithField("local", s.LocalAddrPort().String()).Info("Socket ready")
	return s, nil
}

func closeSocket(s *dgram.Socket, logger logrus.FieldLogger) {
	if !s.IsOpen() {
		return
	}
	if err := s.Close(); err != nil {
		logger.WithError(err).Warn("failed to close socket")
	}
}

func notifySignals() <-chan os.Signal {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	return sigs
}

func output(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}
