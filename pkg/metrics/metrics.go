package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultSucceeded = "succeeded"
	ResultFailed    = "failed"
	ResultInvalid   = "invalid"

	PhaseStart  = "start"
	PhaseFinish = "finish"
)

var (
	// Registry holds every pipetrigger collector.  It is served by Handler.
	Registry = prometheus.NewRegistry()

	actionRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipetrigger_action_runs_total",
			Help: "Number of action invocations by outcome",
		},
		[]string{"action", "result"},
	)

	actionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipetrigger_action_duration_seconds",
			Help:    "Duration of action invocations",
			Buckets: []float64{0.1, 0.5, 1, 5, 30, 60, 300, 600, 1200},
		},
		[]string{"action"},
	)

	pipelineRunWait = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipetrigger_pipelinerun_wait_seconds",
			Help:    "Time spent waiting for a PipelineRun to be created (start) or to complete (finish)",
			Buckets: []float64{1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"phase"},
	)
)

func init() {
	Registry.MustRegister(actionRuns, actionDuration, pipelineRunWait,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// ObserveActionRun records the outcome and duration of an action invocation.
func ObserveActionRun(action, result string, d time.Duration) {
	actionRuns.WithLabelValues(action, result).Inc()
	actionDuration.WithLabelValues(action).Observe(d.Seconds())
}

// ObservePipelineRunWait records how long a wait phase took.
func ObservePipelineRunWait(phase string, d time.Duration) {
	pipelineRunWait.WithLabelValues(phase).Observe(d.Seconds())
}

// Handler serves Registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
