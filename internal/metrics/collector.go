package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"config-conflict-detector/internal/model"
)

// Collector bundles the Prometheus metrics recorded during one validation run.
type Collector struct {
	gatherer prometheus.Gatherer

	Findings       *prometheus.CounterVec
	CategoryHosts  *prometheus.GaugeVec
	Fetches        *prometheus.CounterVec
	FetchDurations prometheus.Histogram
	FlowsEvaluated prometheus.Counter
	Conflict       prometheus.Gauge
	LastRun        prometheus.Gauge
}

// NewCollector registers the run metrics against reg, defaulting to the
// global registry when reg is nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{
		gatherer: gatherer,
		Findings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "config_validator_findings_total",
			Help: "Impacted flow/application pairs found, by category.",
		}, []string{"category"}),
		CategoryHosts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "config_validator_category_conflict_hosts",
			Help: "Hosts with at least one finding in the last run, by category.",
		}, []string{"category"}),
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "config_validator_telemetry_fetches_total",
			Help: "Connection stats fetches, by result.",
		}, []string{"result"}),
		FetchDurations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "config_validator_telemetry_fetch_duration_seconds",
			Help:    "Connection stats fetch latency in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		FlowsEvaluated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "config_validator_flows_fetched_total",
			Help: "Flow records fetched across all hosts.",
		}),
		Conflict: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "config_validator_conflict",
			Help: "1 when the last run found a conflict, 0 otherwise.",
		}),
		LastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "config_validator_last_run_timestamp_seconds",
			Help: "Unix time the last run completed.",
		}),
	}

	for _, col := range []prometheus.Collector{
		c.Findings, c.CategoryHosts, c.Fetches, c.FetchDurations, c.FlowsEvaluated, c.Conflict, c.LastRun,
	} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}
	return c, nil
}

// ObserveFetch records one telemetry fetch.
func (c *Collector) ObserveFetch(d time.Duration, flows int, err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.Fetches.WithLabelValues(result).Inc()
	c.FetchDurations.Observe(d.Seconds())
	c.FlowsEvaluated.Add(float64(flows))
}

// ObserveReport records the outcome of a finished report.
func (c *Collector) ObserveReport(r *model.ConflictReport) {
	if c == nil {
		return
	}
	for _, s := range r.Sections {
		hosts := 0
		for _, h := range s.Hosts {
			if len(h.Findings) > 0 {
				hosts++
			}
			c.Findings.WithLabelValues(string(s.Category)).Add(float64(len(h.Findings)))
		}
		c.CategoryHosts.WithLabelValues(string(s.Category)).Set(float64(hosts))
	}
	if r.Verdict == model.VerdictConflict {
		c.Conflict.Set(1)
	} else {
		c.Conflict.Set(0)
	}
	c.LastRun.Set(float64(r.GeneratedAt.Unix()))
}

// WriteTextfile writes the gathered metrics in the node_exporter textfile
// format.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.gatherer)
}
