package cli

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"example.com/dgramsock/pkg/dgram"
	pkgthrottle "example.com/dgramsock/pkg/throttle"
	pkgutils "example.com/dgramsock/pkg/utils"
)

type SendCmd struct {
	To      string `help:"Destination, in host:port form" required:"" env:"DGRAMSOCK_SEND_TO"`
	Bind    string `help:"Local address to bind to before connecting, e.g. 0.0.0.0:5000"`
	Count   int    `help:"Number of datagrams to send" default:"1"`
	PPS     int    `name:"pps" help:"Packets per second, 0 for no pacing" default:"0"`
	Size    int    `help:"Payload size in bytes, ignored when --sizes or --message is given" default:"64"`
	Sizes   string `help:"Payload sizes cycled through, e.g. 64,1472 or range(64;9000;512)"`
	Message string `help:"Literal payload"`
	SndBuf  int    `name:"sndbuf" help:"SO_SNDBUF to request, 0 keeps the kernel default" default:"0"`
}

func (sendCmd *SendCmd) payloads() ([][]byte, error) {
	if sendCmd.Message != "" {
		return [][]byte{[]byte(sendCmd.Message)}, nil
	}
	sizes := []int{sendCmd.Size}
	if sendCmd.Sizes != "" {
		var err error
		sizes, err = pkgutils.ParseSizes(sendCmd.Sizes, maxUDPPayload)
		if err != nil {
			return nil, fmt.Errorf("failed to parse sizes: %v", err)
		}
	} else if sendCmd.Size < 0 || sendCmd.Size > maxUDPPayload {
		return nil, fmt.Errorf("size %d out of range [0, %d]", sendCmd.Size, maxUDPPayload)
	}

	payloads := make([][]byte, 0, len(sizes))
	for _, size := range sizes {
		payloads = append(payloads, bytes.Repeat([]byte{'x'}, size))
	}
	return payloads, nil
}

func (sendCmd *SendCmd) Run(sharedCtx *pkgutils.GlobalSharedContext) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logger := sharedCtx.Logger.WithField("command", "send")

	if sendCmd.Count < 1 {
		return fmt.Errorf("count must be greater than 0")
	}
	remote, err := resolveAddrPort(sendCmd.To)
	if err != nil {
		return err
	}
	payloads, err := sendCmd.payloads()
	if err != nil {
		return err
	}

	s, err := openSocket(sharedCtx, socketSpec{
		command: "send",
		proto:   dgram.ProtocolUDP,
		bind:    sendCmd.Bind,
		sndBuf:  sendCmd.SndBuf,
	})
	if err != nil {
		return err
	}
	defer closeSocket(s, logger)

	if err := s.Connect(remote.Addr, remote.Port); err != nil {
		return err
	}

	queue := make([][]byte, 0, sendCmd.Count)
	for i := 0; i < sendCmd.Count; i++ {
		queue = append(queue, payloads[i%len(payloads)])
	}
	items := pkgthrottle.FromSlice(ctx, queue)
	if sendCmd.PPS > 0 {
		thr := pkgthrottle.NewTokenBasedThrottle[[]byte](pkgthrottle.TokenBasedThrottleConfig{
			RefreshInterval:       time.Second,
			TokenQuotaPerInterval: sendCmd.PPS,
		})
		items = thr.Run(ctx, items)
		logger.Infof("Pacing at %d packets per second", sendCmd.PPS)
	}

	sigs := notifySignals()
	sent, bytesSent := 0, 0
	for {
		select {
		case sig := <-sigs:
			logger.Infof("Received signal: %v, exiting...", sig.String())
			return nil
		case payload, ok := <-items:
			if !ok {
				logger.WithField("remote", remote.String()).Infof("Sent %d datagrams, %d bytes", sent, bytesSent)
				return nil
			}
			dg := &dgram.Datagram{Buf: payload, Length: len(payload)}
			if err := s.Send(dg); err != nil {
				return err
			}
			sent++
			bytesSent += len(payload)
			logger.WithField("seq", sent).Debugf("Sent %d bytes to %s", len(payload), remote.String())
		}
	}
}
