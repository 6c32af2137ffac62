package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "pbreflect"

// Outcomes of a lookup request.
const (
	outcomeOK       = "ok"
	outcomeNotFound = "not_found"
	outcomeMismatch = "kind_mismatch"
)

// Metrics holds the server collectors.
type Metrics struct {
	Lookups      *prometheus.CounterVec
	Reloads      *prometheus.CounterVec
	RegistrySize prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "lookups_total",
				Help:      "Reflection lookups by entity kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		Reloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "registry_reloads_total",
				Help:      "Registry reloads by result",
			},
			[]string{"result"},
		),
		RegistrySize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "registry_types",
				Help:      "Message and service types in the loaded registry",
			},
		),
	}

	reg.MustRegister(m.Lookups, m.Reloads, m.RegistrySize)

	return m
}
