package cli

import (
	"fmt"
	"io"

	"example.com/dgramsock/pkg/dgram"
	pkgutils "example.com/dgramsock/pkg/utils"
)

type BufsizeCmd struct {
	RcvBuf int `name:"rcvbuf" help:"SO_RCVBUF to request before reading it back" default:"0"`
	SndBuf int `name:"sndbuf" help:"SO_SNDBUF to request before reading it back" default:"0"`

	out io.Writer
}

func (bufsizeCmd *BufsizeCmd) Run(sharedCtx *pkgutils.GlobalSharedContext) error {
	logger := sharedCtx.Logger.WithField("command", "bufsize")
	s, err := openSocket(sharedCtx, socketSpec{
		command: "bufsize",
		proto:   dgram.ProtocolUDP,
		rcvBuf:  bufsizeCmd.RcvBuf,
		sndBuf:  bufsizeCmd.SndBuf,
	})
	if err != nil {
		return err
	}
	defer closeSocket(s, logger)

	rcvBuf, err := s.ReceiveBufferSize()
	if err != nil {
		return err
	}
	sndBuf, err := s.SendBufferSize()
	if err != nil {
		return err
	}
	fmt.Fprintf(output(bufsizeCmd.out), "SO_RCVBUF=%d SO_SNDBUF=%d\n", rcvBuf, sndBuf)
	return nil
}
