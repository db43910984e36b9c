package metrics

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"icalagenda/internal/agenda"
)

// Recorder exports conversion counters in Prometheus format.
type Recorder struct {
	registry *prometheus.Registry

	runs          *prometheus.CounterVec
	documents     prometheus.Counter
	events        prometheus.Counter
	declined      prometheus.Counter
	entries       prometheus.Counter
	skipped       prometheus.Counter
	runDuration   prometheus.Summary
	lastSuccessTS prometheus.Gauge
}

func NewRecorder() *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.runs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "icalagenda",
		Name:      "runs_total",
		Help:      "Conversion runs by status",
	}, []string{"status"})
	r.documents = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "icalagenda",
		Name:      "documents_total",
		Help:      "Calendar documents converted",
	})
	r.events = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "icalagenda",
		Name:      "events_total",
		Help:      "Calendar events examined",
	})
	r.declined = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "icalagenda",
		Name:      "declined_events_total",
		Help:      "Events dropped because the user declined them",
	})
	r.entries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "icalagenda",
		Name:      "entries_total",
		Help:      "Agenda entries written",
	})
	r.skipped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "icalagenda",
		Name:      "skipped_units_total",
		Help:      "Documents, events or instances skipped because of errors",
	})
	r.runDuration = prometheus.NewSummary(prometheus.SummaryOpts{
		Namespace: "icalagenda",
		Name:      "run_duration_seconds",
		Help:      "Time spent in one conversion run",
	})
	r.lastSuccessTS = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "icalagenda",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the last successful run",
	})

	r.registry.MustRegister(r.runs, r.documents, r.events, r.declined,
		r.entries, r.skipped, r.runDuration, r.lastSuccessTS)
	return r
}

// Observe records one finished run.
func (r *Recorder) Observe(res agenda.Result, err error, took time.Duration) {
	r.documents.Add(float64(res.Documents))
	r.events.Add(float64(res.Events))
	r.declined.Add(float64(res.Declined))
	r.entries.Add(float64(res.Entries))
	r.skipped.Add(float64(countErrors(res.Skipped)))
	r.runDuration.Observe(took.Seconds())

	if err != nil {
		r.runs.WithLabelValues("error").Inc()
		return
	}
	r.runs.WithLabelValues("ok").Inc()
	r.lastSuccessTS.SetToCurrentTime()
}

// Handler serves the metrics endpoint.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func countErrors(err error) int {
	if err == nil {
		return 0
	}
	if me, ok := err.(*multierror.Error); ok {
		return len(me.Errors)
	}
	return 1
}
