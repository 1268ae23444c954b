package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"example.com/dgramsock/pkg/dgram"
	pkgecho "example.com/dgramsock/pkg/echo"
	"example.com/dgramsock/pkg/hrtime"
	"example.com/dgramsock/pkg/sockaddr"
	pkgutils "example.com/dgramsock/pkg/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// PingCmd sends ICMP echo requests over an unprivileged ping socket. On Linux
// the caller's group must be inside net.ipv4.ping_group_range.
type PingCmd struct {
	Host     string        `arg:"" help:"Host to ping"`
	Count    int           `help:"Number of echo requests to send" default:"4"`
	Interval time.Duration `help:"Gap between requests" default:"1s"`
	Timeout  time.Duration `help:"How long to wait for each reply" default:"2s"`
	Size     int           `help:"ICMP payload size in bytes" default:"56"`

	out io.Writer
}

type echoReply struct {
	reply        *pkgecho.Reply
	receivedAtNs int64
	err          error
}

func replyLoop(s *dgram.Socket, capacity int, tag uuid.UUID, logger logrus.FieldLogger) <-chan echoReply {
	outC := make(chan echoReply)
	go func() {
		defer close(outC)
		buf := make([]byte, capacity)
		for {
			dg := &dgram.Datagram{Buf: buf, Length: len(buf)}
			if err := s.Receive(dg); err != nil {
				outC <- echoReply{err: err}
				return
			}
			receivedAt := hrtime.NowNs()
			reply, err := pkgecho.ParseReplyFor(dg.Payload(), tag)
			if err != nil {
				logger.WithError(err).WithField("remote", dg.Remote.String()).Debug("ignoring icmp message")
				continue
			}
			outC <- echoReply{reply: reply, receivedAtNs: receivedAt}
		}
	}()
	return outC
}

func (pingCmd *PingCmd) validate() error {
	if pingCmd.Count < 1 || pingCmd.Count > 0xffff {
		return fmt.Errorf("count must be in [1, %d]", 0xffff)
	}
	if pingCmd.Size < 0 || pingCmd.Size > maxUDPPayload {
		return fmt.Errorf("size %d out of range [0, %d]", pingCmd.Size, maxUDPPayload)
	}
	return nil
}

func (pingCmd *PingCmd) Run(sharedCtx *pkgutils.GlobalSharedContext) error {
	logger := sharedCtx.Logger.WithField("command", "ping")
	out := output(pingCmd.out)

	if err := pingCmd.validate(); err != nil {
		return err
	}
	if hrtime.NowNs() == hrtime.Unsupported {
		return errors.New("no monotonic clock on this platform")
	}
	addr, err := resolveAddr(pingCmd.Host)
	if err != nil {
		return err
	}

	maxCount := pingCmd.Count
	tracker, err := pkgecho.NewTracker(&pkgecho.TrackerConfig{
		MaxCount:      &maxCount,
		PacketTimeout: pingCmd.Timeout,
		Interval:      pingCmd.Interval,
	})
	if err != nil {
		return err
	}

	s, err := openSocket(sharedCtx, socketSpec{command: "ping", proto: dgram.ProtocolICMP})
	if err != nil {
		return fmt.Errorf("failed to open ping socket: %w", err)
	}
	if err := s.Connect(addr, 0); err != nil {
		closeSocket(s, logger)
		return err
	}
	return pingCmd.exchange(s, addr, tracker, logger, out)
}

// exchange owns s from here on and closes it on every return path. The reply
// reader starts only once a request is on the wire.
func (pingCmd *PingCmd) exchange(s *dgram.Socket, addr sockaddr.Addr, tracker *pkgecho.Tracker, logger logrus.FieldLogger, out io.Writer) error {
	defer closeSocket(s, logger)

	tag := uuid.New()
	logger.WithField("tag", tag.String()).Debug("echo tag")
	fmt.Fprintf(out, "PING %s (%s) %d bytes of data.\n", pingCmd.Host, addr.String(), pingCmd.Size)

	var replyC <-chan echoReply
	sendTimer := time.NewTimer(0)
	defer sendTimer.Stop()
	expireTicker := time.NewTicker(pingCmd.Interval / 2)
	defer expireTicker.Stop()
	sigs := notifySignals()
	doneSending := false

	for {
		select {
		case sig := <-sigs:
			logger.Infof("Received signal: %v, exiting...", sig.String())
			pingCmd.printSummary(out, tracker.Summarize())
			return nil

		case <-sendTimer.C:
			seq := tracker.IterateSeq()
			sentAt := hrtime.NowNs()
			wb, err := pkgecho.BuildRequest(0, seq, tag, sentAt, pingCmd.Size)
			if err != nil {
				return err
			}
			if err := s.Send(&dgram.Datagram{Buf: wb, Length: len(wb)}); err != nil {
				return err
			}
			tracker.MarkSent(seq, sentAt)
			if replyC == nil {
				replyC = replyLoop(s, pingCmd.Size+pkgecho.MinPayloadSize+64, tag, logger)
			}
			if wait := tracker.WaitForNext(); wait > 0 {
				sendTimer.Reset(wait)
			} else {
				doneSending = true
			}

		case r, ok := <-replyC:
			if !ok {
				return nil
			}
			if r.err != nil {
				return r.err
			}
			rtt, dup, ok := tracker.MarkReceived(r.reply.Seq, r.receivedAtNs)
			if !ok {
				continue
			}
			suffix := ""
			if dup {
				suffix = " (DUP!)"
			}
			fmt.Fprintf(out, "%d bytes from %s: icmp_seq=%d time=%s%s\n", r.reply.Size, addr.String(), r.reply.Seq, rtt.Round(time.Microsecond), suffix)

		case <-expireTicker.C:
			for _, seq := range tracker.Expire(hrtime.NowNs()) {
				fmt.Fprintf(out, "Request timeout for icmp_seq %d\n", seq)
			}
		}

		if doneSending && tracker.NrUnAck() == 0 {
			pingCmd.printSummary(out, tracker.Summarize())
			return nil
		}
	}
}

func (pingCmd *PingCmd) printSummary(out io.Writer, sum pkgecho.Summary) {
	fmt.Fprintf(out, "--- %s ping statistics ---\n", pingCmd.Host)
	fmt.Fprintf(out, "%d packets transmitted, %d received, %.1f%% packet loss\n", sum.Sent, sum.Received, sum.LossRatio()*100)
	if sum.Received > 0 {
		fmt.Fprintf(out, "rtt min/avg/max = %s/%s/%s\n", sum.MinRTT, sum.AvgRTT, sum.MaxRTT)
	}
}
