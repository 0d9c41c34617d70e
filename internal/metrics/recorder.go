// Package metrics records controller measurements in Prometheus.
package metrics

import (
	"net/http"
	"strconv"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/shipctl/internal/domain"
	"github.com/bft-labs/shipctl/internal/ports"
)

const namespace = "shipctl"

// PrometheusRecorder implements ports.Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	ticks        prom.Counter
	serialQueue  prom.Gauge
	parallelSet  prom.Gauge
	moduleState  *prom.GaugeVec
	commands     *prom.CounterVec
	checks       *prom.CounterVec
	configFaults prom.Gauge
	dropped      *prom.CounterVec
}

var _ ports.Recorder = (*PrometheusRecorder)(nil)

// NewPrometheusRecorder constructs and registers the controller metrics.
// A nil registry gets a fresh one.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		ticks: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_ticks_total",
			Help:      "Scheduler ticks run",
		}),
		serialQueue: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_serial_tasks",
			Help:      "Tasks waiting in the serial queue after the last tick",
		}),
		parallelSet: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_parallel_tasks",
			Help:      "Tasks in the parallel set after the last tick",
		}),
		moduleState: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "module_state",
			Help:      "Current module state (-1 error, 0 disabled, 1 enabled, 2 shutting down, 3 starting up)",
		}, []string{"module"}),
		commands: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "command_results_total",
			Help:      "Command outcomes by operation and result code",
		}, []string{"op", "code"}),
		checks: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "check_results_total",
			Help:      "Periodic check outcomes by module",
		}, []string{"module", "result"}),
		configFaults: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "config_faults",
			Help:      "Configuration faults found by the last module initialization",
		}),
		dropped: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_dropped_total",
			Help:      "Notifications dropped by a sink",
		}, []string{"sink"}),
	}
	reg.MustRegister(pr.ticks, pr.serialQueue, pr.parallelSet, pr.moduleState, pr.commands, pr.checks, pr.configFaults, pr.dropped)
	return pr
}

// Tick implements ports.Recorder.
func (p *PrometheusRecorder) Tick(serial, parallel int) {
	p.ticks.Inc()
	p.serialQueue.Set(float64(serial))
	p.parallelSet.Set(float64(parallel))
}

// ModuleState implements ports.Recorder.
func (p *PrometheusRecorder) ModuleState(module string, state domain.ModuleState) {
	p.moduleState.WithLabelValues(module).Set(float64(state))
}

// CommandResult implements ports.Recorder.
func (p *PrometheusRecorder) CommandResult(op string, code domain.Result) {
	p.commands.WithLabelValues(op, strconv.Itoa(int(code))).Inc()
}

// CheckResult implements ports.Recorder.
func (p *PrometheusRecorder) CheckResult(module string, result domain.CheckResult) {
	p.checks.WithLabelValues(module, result.String()).Inc()
}

// ConfigFaults implements ports.Recorder.
func (p *PrometheusRecorder) ConfigFaults(n int) {
	p.configFaults.Set(float64(n))
}

// NotificationDropped implements ports.Recorder.
func (p *PrometheusRecorder) NotificationDropped(sink string) {
	p.dropped.WithLabelValues(sink).Inc()
}

// HTTPHandler returns an http.Handler that serves the metrics of reg.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
