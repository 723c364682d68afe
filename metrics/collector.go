// Package metrics exposes exit coordinator metrics in Prometheus format.
//
// The collector reads a snapshot on every scrape, so registering it costs
// nothing until something asks for metrics:
//
//	registry := prometheus.NewRegistry()
//	registry.MustRegister(metrics.NewCollector(exitz.Default()))
//	http.Handle("/metrics", metrics.Handler(registry))
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zoobzio/exitz"
)

const namespace = "exitz"

// Source is anything that reports exit coordinator metrics.
// *exitz.Coordinator satisfies it.
type Source interface {
	Metrics() exitz.Metrics
}

// Collector implements prometheus.Collector over a Source.
type Collector struct {
	source Source

	registered     *prometheus.Desc
	terminating    *prometheus.Desc
	hooksRun       *prometheus.Desc
	hooksFailed    *prometheus.Desc
	hooksAbandoned *prometheus.Desc
	ignored        *prometheus.Desc
	forcedExits    *prometheus.Desc
	flushTimeouts  *prometheus.Desc
}

// NewCollector creates a collector reading from source.
func NewCollector(source Source) *Collector {
	return &Collector{
		source: source,
		registered: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "hooks_registered"),
			"Exit hooks currently registered.",
			[]string{"kind"}, nil),
		terminating: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "terminating"),
			"Whether the termination sequence has started.",
			nil, nil),
		hooksRun: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "hooks", "run_total"),
			"Exit hooks that completed without error.",
			nil, nil),
		hooksFailed: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "hooks", "failed_total"),
			"Asynchronous exit hooks that returned an error or panicked.",
			nil, nil),
		hooksAbandoned: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "hooks", "abandoned_total"),
			"Asynchronous exit hooks still running when the wait ceiling elapsed.",
			nil, nil),
		ignored: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "triggers", "ignored_total"),
			"Termination causes that fired after the sequence had started.",
			nil, nil),
		forcedExits: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "forced_exits_total"),
			"Times the wait ceiling elapsed before every asynchronous hook settled.",
			nil, nil),
		flushTimeouts: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "flush_timeouts_total"),
			"Times output flushing exceeded its grace period.",
			nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.registered
	ch <- c.terminating
	ch <- c.hooksRun
	ch <- c.hooksFailed
	ch <- c.hooksAbandoned
	ch <- c.ignored
	ch <- c.forcedExits
	ch <- c.flushTimeouts
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	m := c.source.Metrics()

	ch <- prometheus.MustNewConstMetric(c.registered, prometheus.GaugeValue, float64(m.SyncHooks), "sync")
	ch <- prometheus.MustNewConstMetric(c.registered, prometheus.GaugeValue, float64(m.AsyncHooks), "async")

	var terminating float64
	if m.Terminating {
		terminating = 1
	}
	ch <- prometheus.MustNewConstMetric(c.terminating, prometheus.GaugeValue, terminating)

	ch <- prometheus.MustNewConstMetric(c.hooksRun, prometheus.CounterValue, float64(m.HooksRun))
	ch <- prometheus.MustNewConstMetric(c.hooksFailed, prometheus.CounterValue, float64(m.HooksFailed))
	ch <- prometheus.MustNewConstMetric(c.hooksAbandoned, prometheus.CounterValue, float64(m.HooksAbandoned))
	ch <- prometheus.MustNewConstMetric(c.ignored, prometheus.CounterValue, float64(m.IgnoredTriggers))
	ch <- prometheus.MustNewConstMetric(c.forcedExits, prometheus.CounterValue, float64(m.ForcedExits))
	ch <- prometheus.MustNewConstMetric(c.flushTimeouts, prometheus.CounterValue, float64(m.FlushTimeouts))
}

// Handler returns an HTTP handler serving the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
