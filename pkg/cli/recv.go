package cli

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"example.com/dgramsock/pkg/dgram"
	pkgthrottle "example.com/dgramsock/pkg/throttle"
	pkgutils "example.com/dgramsock/pkg/utils"
)

type RecvCmd struct {
	Bind           string        `help:"Address to receive on" default:"0.0.0.0:9000" env:"DGRAMSOCK_RECV_BIND"`
	Capacity       int           `help:"Receive capacity per datagram, 0 derives it from the largest interface MTU" default:"0"`
	Count          int           `help:"Stop after this many datagrams, 0 for no limit" default:"0"`
	RcvBuf         int           `name:"rcvbuf" help:"SO_RCVBUF to request, 0 keeps the kernel default" default:"0"`
	ReportInterval time.Duration `help:"How often to log the receive rate" default:"5s"`
	Dump           bool          `help:"Print a hex dump of every payload"`

	out io.Writer
}

type received struct {
	dg  dgram.Datagram
	err error
}

// receiveLoop owns s until it returns. It stops after count datagrams, or
// never when count is 0.
func receiveLoop(s *dgram.Socket, capacity, count int) <-chan received {
	outC := make(chan received)
	go func() {
		defer close(outC)
		for i := 0; count == 0 || i < count; i++ {
			dg := dgram.Datagram{Buf: make([]byte, capacity), Length: capacity}
			err := s.Receive(&dg)
			outC <- received{dg: dg, err: err}
			if err != nil {
				return
			}
		}
	}()
	return outC
}

func defaultCapacity() int {
	capacity, err := pkgutils.MaxUDPPayload(pkgutils.GetMaximumMTU())
	if err != nil || capacity > maxUDPPayload {
		return maxUDPPayload
	}
	return capacity
}

func (recvCmd *RecvCmd) Run(sharedCtx *pkgutils.GlobalSharedContext) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logger := sharedCtx.Logger.WithField("command", "recv")
	out := output(recvCmd.out)

	capacity := recvCmd.Capacity
	if capacity <= 0 {
		capacity = defaultCapacity()
	}
	if recvCmd.ReportInterval <= 0 {
		return fmt.Errorf("report interval must be positive")
	}

	s, err := openSocket(sharedCtx, socketSpec{
		command: "recv",
		proto:   dgram.ProtocolUDP,
		bind:    recvCmd.Bind,
		rcvBuf:  recvCmd.RcvBuf,
	})
	if err != nil {
		return err
	}
	if rcvBuf, err := s.ReceiveBufferSize(); err == nil {
		logger.Infof("Receiving up to %d bytes per datagram, SO_RCVBUF is %d", capacity, rcvBuf)
	}

	sm := &pkgthrottle.SpeedMeasurer[received]{RefreshInterval: recvCmd.ReportInterval}
	recvC, speedC := sm.Run(ctx, receiveLoop(s, capacity, recvCmd.Count))

	sigs := notifySignals()
	total := 0
	for {
		select {
		case sig := <-sigs:
			// The receive goroutine may still be blocked in the kernel; the
			// descriptor is released when the process exits.
			logger.Infof("Received signal: %v, exiting...", sig.String())
			return nil
		case rec, ok := <-speedC:
			if !ok {
				speedC = nil
				continue
			}
			logger.WithField("total", rec.Counter).Infof("Receive rate: %s", rec.String())
		case item, ok := <-recvC:
			if !ok {
				logger.Infof("Received %d datagrams", total)
				closeSocket(s, logger)
				return nil
			}
			if item.err != nil {
				closeSocket(s, logger)
				return item.err
			}
			total++
			dg := item.dg
			fmt.Fprintf(out, "%s %d bytes truncated=%t\n", dg.Remote.String(), dg.Length, dg.Truncated)
			if recvCmd.Dump {
				fmt.Fprint(out, hex.Dump(dg.Payload()))
			}
		}
	}
}
