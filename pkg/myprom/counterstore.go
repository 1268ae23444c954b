package myprom

import (
	"errors"
	"time"

	"example.com/dgramsock/pkg/dgram"
	"example.com/dgramsock/pkg/sockaddr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

type CounterStore struct {
	StartedTime      prometheus.Gauge
	NumPktsSent      *prometheus.CounterVec
	NumPktsReceived  *prometheus.CounterVec
	NumBytesSent     *prometheus.CounterVec
	NumBytesReceived *prometheus.CounterVec
	NumTruncated     *prometheus.CounterVec
	NumErrors        *prometheus.CounterVec

	commonLabels prometheus.Labels
}

const (
	PromLabelCommand = "command"
	PromLabelProto   = "proto"
	PromLabelOp      = "op"
	PromLabelKind    = "kind"
)

// register adds c to reg, reusing an already registered collector of the same
// shape so that several stores can share one registry.
func register[C prometheus.Collector](reg prometheus.Registerer, c C, name string) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		logrus.WithError(err).Warnf("%s might have been already registered", name)
	}
	return c
}

// NewCounterStore registers the dgramsock metrics with reg, or with the
// default registry when reg is nil. commonLabels must carry the command and
// proto labels.
func NewCounterStore(reg prometheus.Registerer, commonLabels prometheus.Labels) *CounterStore {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	cs := &CounterStore{commonLabels: commonLabels}

	var labelNames []string = []string{
		PromLabelCommand, PromLabelProto,
	}

	cs.StartedTime = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dgramsock_started_at",
		Help: "The unix time when the dgramsock process started",
	}), "StartedTime")
	cs.StartedTime.Set(float64(time.Now().Unix()))

	cs.NumPktsSent = register(reg, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dgramsock_num_pkts_sent",
			Help: "The number of datagrams sent",
		},
		labelNames,
	), "NumPktsSent")

	cs.NumPktsReceived = register(reg, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dgramsock_num_pkts_received",
			Help: "The number of datagrams received",
		},
		labelNames,
	), "NumPktsReceived")

	cs.NumBytesSent = register(reg, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dgramsock_num_bytes_sent",
			Help: "The number of payload bytes sent",
		},
		labelNames,
	), "NumBytesSent")

	cs.NumBytesReceived = register(reg, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dgramsock_num_bytes_received",
			Help: "The number of payload bytes copied to callers",
		},
		labelNames,
	), "NumBytesReceived")

	cs.NumTruncated = register(reg, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dgramsock_num_truncated",
			Help: "The number of received datagrams that did not fit the caller's buffer",
		},
		labelNames,
	), "NumTruncated")

	cs.NumErrors = register(reg, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dgramsock_num_errors",
			Help: "The number of failed socket operations",
		},
		append(labelNames, PromLabelOp, PromLabelKind),
	), "NumErrors")

	return cs
}

func (cs *CounterStore) errorLabels(op string, kind dgram.Kind) prometheus.Labels {
	labels := make(prometheus.Labels, len(cs.commonLabels)+2)
	for k, v := range cs.commonLabels {
		labels[k] = v
	}
	labels[PromLabelOp] = op
	labels[PromLabelKind] = kind.String()
	return labels
}

// Hooks returns socket hooks that feed this store.
func (cs *CounterStore) Hooks() dgram.Hooks {
	return dgram.Hooks{
		OnSent: func(_, _ sockaddr.AddrPort, nBytes int) {
			cs.NumPktsSent.With(cs.commonLabels).Inc()
			cs.NumBytesSent.With(cs.commonLabels).Add(float64(nBytes))
		},
		OnReceived: func(_, _ sockaddr.AddrPort, nBytes int, truncated bool) {
			cs.NumPktsReceived.With(cs.commonLabels).Inc()
			cs.NumBytesReceived.With(cs.commonLabels).Add(float64(nBytes))
			if truncated {
				cs.NumTruncated.With(cs.commonLabels).Inc()
			}
		},
		OnError: func(op string, err *dgram.Error) {
			cs.NumErrors.With(cs.errorLabels(op, err.Kind)).Inc()
		},
	}
}
