package cli

import (
	"net/http"
	"os"
	"strings"

	pkgutils "example.com/dgramsock/pkg/utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type Globals struct {
	LogLevel string `help:"Log level" default:"info" enum:"trace,debug,info,warn,error" env:"DGRAMSOCK_LOG_LEVEL"`
	LogJSON  bool   `name:"log-json" help:"Emit logs as JSON" default:"false" env:"DGRAMSOCK_LOG_JSON"`

	// Prometheus stuffs
	MetricsListenAddress string `help:"Endpoint to expose prometheus metrics, leave it empty to disable" default:"" env:"DGRAMSOCK_METRICS_LISTEN_ADDRESS"`
	MetricsPath          string `help:"Path to expose prometheus metrics" default:"/metrics" env:"DGRAMSOCK_METRICS_PATH"`

	// Consumed before flag parsing, see EnvFilesFromArgs.
	EnvFile []string `help:"Dotenv files to load before parsing, .env is tried when none is given"`
}

// Apply configures the shared logger and starts the metrics endpoint.
func (g *Globals) Apply(sharedCtx *pkgutils.GlobalSharedContext) error {
	logger := sharedCtx.Logger
	level, err := logrus.ParseLevel(g.LogLevel)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	if g.LogJSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if g.MetricsListenAddress != "" {
		mux := http.NewServeMux()
		mux.Handle(g.MetricsPath, promhttp.Handler())
		go func() {
			logger.Infof("Serving metrics on %s%s", g.MetricsListenAddress, g.MetricsPath)
			if err := http.ListenAndServe(g.MetricsListenAddress, mux); err != nil {
				logger.WithError(err).Error("metrics server exited")
			}
		}()
	}
	return nil
}

// EnvFilesFromArgs picks the --env-file values out of args so they can be
// loaded before kong reads the environment.
func EnvFilesFromArgs(args []string) []string {
	files := make([]string, 0)
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		if v, ok := strings.CutPrefix(arg, "--env-file="); ok {
			files = append(files, v)
			continue
		}
		if arg == "--env-file" && i+1 < len(args) {
			files = append(files, args[i+1])
			i++
		}
	}
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err == nil {
			files = append(files, ".env")
		}
	}
	return files
}
