package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// GlobalSharedContext is bound into every kong command.
type GlobalSharedContext struct {
	BuildVersion *BuildVersion
	Logger       *logrus.Logger
	Registerer   prometheus.Registerer
}
