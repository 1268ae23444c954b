package cli

import (
	"fmt"

	"example.com/dgramsock/pkg/dgram"
	pkgutils "example.com/dgramsock/pkg/utils"
)

// EchoCmd answers every datagram with the same payload.
type EchoCmd struct {
	Bind     string `help:"Address to serve on" default:"0.0.0.0:7" env:"DGRAMSOCK_ECHO_BIND"`
	Capacity int    `help:"Largest payload echoed back, longer ones are truncated" default:"65507"`
	Count    int    `help:"Stop after this many datagrams, 0 for no limit" default:"0"`
}

func (echoCmd *EchoCmd) Run(sharedCtx *pkgutils.GlobalSharedContext) error {
	logger := sharedCtx.Logger.WithField("command", "echo")
	if echoCmd.Capacity <= 0 || echoCmd.Capacity > maxUDPPayload {
		return fmt.Errorf("capacity must be in (0, %d]", maxUDPPayload)
	}

	s, err := openSocket(sharedCtx, socketSpec{
		command: "echo",
		proto:   dgram.ProtocolUDP,
		bind:    echoCmd.Bind,
	})
	if err != nil {
		return err
	}

	doneC := make(chan error, 1)
	go func() {
		defer close(doneC)
		buf := make([]byte, echoCmd.Capacity)
		for n := 0; echoCmd.Count == 0 || n < echoCmd.Count; n++ {
			dg := &dgram.Datagram{Buf: buf, Length: len(buf)}
			if err := s.Receive(dg); err != nil {
				doneC <- err
				return
			}
			if dg.Truncated {
				logger.WithField("remote", dg.Remote.String()).Warnf("Echoing only the first %d bytes", dg.Length)
			}
			if err := s.SendTo(dg); err != nil {
				// One unreachable peer should not take the server down.
				logger.WithError(err).WithField("remote", dg.Remote.String()).Warn("failed to echo datagram")
				continue
			}
			logger.WithField("remote", dg.Remote.String()).Debugf("Echoed %d bytes", dg.Length)
		}
	}()

	sigs := notifySignals()
	select {
	case sig := <-sigs:
		logger.Infof("Received signal: %v, exiting...", sig.String())
		return nil
	case err := <-doneC:
		closeSocket(s, logger)
		return err
	}
}
