// Package metrics exposes Prometheus instrumentation for tool calls and
// document mutations. All methods are nil-safe so components can run
// without metrics in tests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector, registered on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	ToolCallsTotal  *prometheus.CounterVec
	ToolDuration    *prometheus.HistogramVec
	BackupsTotal    *prometheus.CounterVec
	VersionBumps    *prometheus.CounterVec
	CascadeRecorded prometheus.Counter
	ServerStartTime time.Time
}

// New creates and registers all collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		ToolCallsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "planmcp_tool_calls_total",
			Help: "Total number of MCP tool calls",
		}, []string{"tool", "status"}),
		ToolDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "planmcp_tool_duration_seconds",
			Help:    "Duration of MCP tool calls in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"tool"}),
		BackupsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "planmcp_backups_total",
			Help: "Document backups by outcome (created, cleaned, restored, failed)",
		}, []string{"outcome"}),
		VersionBumps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "planmcp_version_bumps_total",
			Help: "Document version bumps by change type",
		}, []string{"change_type"}),
		CascadeRecorded: f.NewCounter(prometheus.CounterOpts{
			Name: "planmcp_cascade_updates_recorded_total",
			Help: "Advisory cascade updates recorded for dependent goals",
		}),
		ServerStartTime: time.Now(),
	}
}

// RecordToolCall records one tool invocation.
func (m *Metrics) RecordToolCall(tool, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.ToolCallsTotal.WithLabelValues(tool, status).Inc()
	m.ToolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// RecordBackup counts a backup lifecycle event.
func (m *Metrics) RecordBackup(outcome string) {
	if m == nil {
		return
	}
	m.BackupsTotal.WithLabelValues(outcome).Inc()
}

// RecordVersionBump counts a written version change.
func (m *Metrics) RecordVersionBump(changeType string) {
	if m == nil {
		return
	}
	m.VersionBumps.WithLabelValues(changeType).Inc()
}

// RecordCascade counts advisory cascade entries.
func (m *Metrics) RecordCascade(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CascadeRecorded.Add(float64(n))
}
