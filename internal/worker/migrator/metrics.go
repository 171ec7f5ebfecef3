// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package migrator

import (
	"github.com/prometheus/client_golang/prometheus"

	coremigration "github.com/juju/vmmigrate/core/migration"
)

const metricsNamespace = "vmmigrate"

// Collector is a prometheus.Collector that collects metrics about
// migration workers.
type Collector struct {
	invocations *prometheus.CounterVec
	phase       *prometheus.GaugeVec
}

// NewMetricsCollector returns a new Collector.
func NewMetricsCollector() *Collector {
	return &Collector{
		invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "invocations_total",
				Help:      "The number of migration invocations by outcome.",
			}, []string{"vm", "status"},
		),
		phase: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "phase",
				Help:      "The current phase of a migration, as the ordinal of its phase.",
			}, []string{"vm"},
		),
	}
}

// Observe records the outcome of one invocation.
func (c *Collector) Observe(vmName string, outcome coremigration.Outcome, phase coremigration.Phase) {
	c.invocations.WithLabelValues(vmName, string(outcome.Status)).Inc()
	c.phase.WithLabelValues(vmName).Set(float64(phase))
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.invocations.Describe(ch)
	c.phase.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.invocations.Collect(ch)
	c.phase.Collect(ch)
}
