package main

import (
	_ "embed"
	"os"

	pkgcli "example.com/dgramsock/pkg/cli"
	pkgutils "example.com/dgramsock/pkg/utils"
	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

//go:embed version.txt
var versionText []byte

var CLI struct {
	pkgcli.Globals

	Send    pkgcli.SendCmd    `cmd:"" help:"Send datagrams to a peer"`
	Recv    pkgcli.RecvCmd    `cmd:"" help:"Receive datagrams and report the rate"`
	Echo    pkgcli.EchoCmd    `cmd:"" help:"Run a UDP echo server"`
	Ping    pkgcli.PingCmd    `cmd:"" help:"Ping a host over an unprivileged ICMP socket"`
	Bufsize pkgcli.BufsizeCmd `cmd:"" help:"Show, and optionally set, socket buffer sizes"`
	Version pkgcli.VersionCmd `cmd:"" help:"Print the build version"`
}

func main() {
	logger := logrus.StandardLogger()

	if files := pkgcli.EnvFilesFromArgs(os.Args[1:]); len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			logger.WithError(err).Fatal("failed to load env files")
		}
	}

	buildVersion, err := pkgutils.NewBuildVersion(versionText)
	if err != nil {
		logger.WithError(err).Warn("failed to parse build version")
	}

	sharedCtx := &pkgutils.GlobalSharedContext{
		BuildVersion: buildVersion,
		Logger:       logger,
		Registerer:   prometheus.DefaultRegisterer,
	}

	ctx := kong.Parse(&CLI,
		kong.Name("dgramsock"),
		kong.Description("Blocking IPv4 datagram sockets from the command line."),
		kong.UsageOnError(),
		kong.Bind(sharedCtx),
	)
	ctx.FatalIfErrorf(CLI.Globals.Apply(sharedCtx))
	err = ctx.Run()
	ctx.FatalIfErrorf(err)
}
