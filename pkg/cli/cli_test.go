package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"example.com/dgramsock/pkg/sockaddr"
	pkgutils "example.com/dgramsock/pkg/utils"
	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSharedCtx(t *testing.T) *pkgutils.GlobalSharedContext {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	bv, err := pkgutils.NewBuildVersion([]byte("HEAD: abc123\nbranch: main\n"))
	require.NoError(t, err)
	return &pkgutils.GlobalSharedContext{
		BuildVersion: bv,
		Logger:       logger,
		Registerer:   prometheus.NewRegistry(),
	}
}

func TestEnvFilesFromArgs(t *testing.T) {
	assert.Equal(t, []string{"a.env", "b.env"},
		EnvFilesFromArgs([]string{"--env-file=a.env", "send", "--env-file", "b.env", "--to", "x"}))
	assert.Equal(t, []string{"x.env"},
		EnvFilesFromArgs([]string{"--env-file=x.env", "--", "--env-file=y.env"}))

	dir := t.TempDir()
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(oldWd) })

	assert.Empty(t, EnvFilesFromArgs(nil))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DGRAMSOCK_LOG_LEVEL=debug\n"), 0o600))
	assert.Equal(t, []string{".env"}, EnvFilesFromArgs(nil))
}

func TestResolveAddrPort(t *testing.T) {
	ap, err := resolveAddrPort("127.0.0.1:5353")
	require.NoError(t, err)
	assert.Equal(t, sockaddr.AddrPort{Addr: sockaddr.AddrFrom4([4]byte{127, 0, 0, 1}), Port: 5353}, ap)

	_, err = resolveAddrPort("[::1]:53")
	assert.Error(t, err)

	addr, err := resolveAddr("127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", addr.String())
}

func TestSendPayloads(t *testing.T) {
	cmd := &SendCmd{Size: 10}
	payloads, err := cmd.payloads()
	require.NoError(t, err)
	require.Len(t, payloads, 1)
	assert.Len(t, payloads[0], 10)

	cmd = &SendCmd{Sizes: "range(100;300;100)"}
	payloads, err = cmd.payloads()
	require.NoError(t, err)
	require.Len(t, payloads, 3)
	assert.Len(t, payloads[2], 300)

	cmd = &SendCmd{Message: "hello", Size: 999}
	payloads, err = cmd.payloads()
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("hello")}, payloads)

	_, err = (&SendCmd{Size: 70000}).payloads()
	assert.Error(t, err)
	_, err = (&SendCmd{Sizes: "1,70000"}).payloads()
	assert.Error(t, err)
}

func TestPingValidate(t *testing.T) {
	assert.NoError(t, (&PingCmd{Count: 4, Size: 56}).validate())
	assert.Error(t, (&PingCmd{Count: 0, Size: 56}).validate())
	assert.Error(t, (&PingCmd{Count: 70000, Size: 56}).validate())
	assert.Error(t, (&PingCmd{Count: 1, Size: -1}).validate())
}

func TestVersionCmd(t *testing.T) {
	sharedCtx := newSharedCtx(t)

	var out bytes.Buffer
	require.NoError(t, (&VersionCmd{out: &out}).Run(sharedCtx))
	assert.Equal(t, "abc123 (main)\n", out.String())

	out.Reset()
	require.NoError(t, (&VersionCmd{JSON: true, out: &out}).Run(sharedCtx))
	assert.JSONEq(t, `{"HEAD":"abc123","branch":"main"}`, out.String())
}

func TestGlobalsApply(t *testing.T) {
	sharedCtx := newSharedCtx(t)
	g := &Globals{LogLevel: "debug", LogJSON: true}
	require.NoError(t, g.Apply(sharedCtx))
	assert.Equal(t, logrus.DebugLevel, sharedCtx.Logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, sharedCtx.Logger.Formatter)

	assert.Error(t, (&Globals{LogLevel: "loud"}).Apply(sharedCtx))
}

func TestKongParse(t *testing.T) {
	var cli struct {
		Globals
		Send SendCmd `cmd:""`
		Ping PingCmd `cmd:""`
	}
	t.Setenv("DGRAMSOCK_SEND_TO", "127.0.0.1:9")

	parser, err := kong.New(&cli, kong.Exit(func(int) { t.Fatal("unexpected exit") }))
	require.NoError(t, err)

	kctx, err := parser.Parse([]string{"--log-level=warn", "send", "--count=3", "--pps=10"})
	require.NoError(t, err)
	assert.Equal(t, "send", kctx.Command())
	assert.Equal(t, "warn", cli.LogLevel)
	assert.Equal(t, "127.0.0.1:9", cli.Send.To)
	assert.Equal(t, 3, cli.Send.Count)
	assert.Equal(t, 10, cli.Send.PPS)
	assert.Equal(t, 64, cli.Send.Size)

	kctx, err = parser.Parse([]string{"ping", "example.org", "--count=2"})
	require.NoError(t, err)
	assert.Equal(t, "ping <host>", kctx.Command())
	assert.Equal(t, "example.org", cli.Ping.Host)
	assert.Equal(t, 2, cli.Ping.Count)
}
