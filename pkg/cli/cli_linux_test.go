//go:build linux

package cli

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"example.com/dgramsock/pkg/dgram"
	pkgecho "example.com/dgramsock/pkg/echo"
	"example.com/dgramsock/pkg/sockaddr"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freeLoopbackPort(t *testing.T) uint16 {
	t.Helper()
	s := dgram.New()
	require.NoError(t, s.Create())
	require.NoError(t, s.Bind(nil, 0))
	port := s.LocalPort()
	require.NoError(t, s.Close())
	return port
}

func TestBufsizeCmd(t *testing.T) {
	var out bytes.Buffer
	cmd := &BufsizeCmd{RcvBuf: 65536, SndBuf: 65536, out: &out}
	require.NoError(t, cmd.Run(newSharedCtx(t)))

	var rcv, snd int
	_, err := fmt.Sscanf(out.String(), "SO_RCVBUF=%d SO_SNDBUF=%d", &rcv, &snd)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, rcv, 65536)
	assert.GreaterOrEqual(t, snd, 65536)
}

func TestSendToRecv(t *testing.T) {
	port := freeLoopbackPort(t)
	addr := fmt.Sprintf("127.0.0.1:%d", port)

	var out bytes.Buffer
	recvCmd := &RecvCmd{Bind: addr, Capacity: 4, Count: 2, ReportInterval: time.Second, out: &out}
	recvCtx := newSharedCtx(t)
	doneC := make(chan error, 1)
	go func() { doneC <- recvCmd.Run(recvCtx) }()

	sendCmd := &SendCmd{To: addr, Count: 1, Message: "hello"}
	sendCtx := newSharedCtx(t)
	deadline := time.After(5 * time.Second)
	for {
		require.NoError(t, sendCmd.Run(sendCtx))
		select {
		case err := <-doneC:
			require.NoError(t, err)
			lines := strings.Split(strings.TrimSpace(out.String()), "\n")
			require.Len(t, lines, 2)
			assert.Contains(t, lines[0], "4 bytes truncated=true")
			return
		case <-deadline:
			t.Fatal("recv did not finish")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestPingExchangeClosesSocketOnError(t *testing.T) {
	loopback := sockaddr.AddrFrom4([4]byte{127, 0, 0, 1})
	testCases := []struct {
		name string
		size int
		want error
	}{
		{name: "send fails on unconnected socket", size: 56, want: dgram.ErrSocketError},
		{name: "request too big", size: 65500, want: pkgecho.ErrPayloadTooBig},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sharedCtx := newSharedCtx(t)
			s, err := openSocket(sharedCtx, socketSpec{command: "ping", proto: dgram.ProtocolUDP, bind: "127.0.0.1:0"})
			require.NoError(t, err)

			maxCount := 1
			tracker, err := pkgecho.NewTracker(&pkgecho.TrackerConfig{
				MaxCount:      &maxCount,
				PacketTimeout: time.Second,
				Interval:      100 * time.Millisecond,
			})
			require.NoError(t, err)

			var out bytes.Buffer
			cmd := &PingCmd{Host: "127.0.0.1", Count: 1, Interval: 100 * time.Millisecond, Timeout: time.Second, Size: tc.size}
			err = cmd.exchange(s, loopback, tracker, logrus.NewEntry(sharedCtx.Logger), &out)
			assert.ErrorIs(t, err, tc.want)
			assert.False(t, s.IsOpen())
			assert.Contains(t, out.String(), "PING 127.0.0.1")
		})
	}
}
