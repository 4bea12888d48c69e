package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "rewardsreceipts"

// Item outcomes
const (
	OutcomeDownloaded       = "downloaded"
	OutcomeSkippedExisting  = "skipped_existing"
	OutcomeSkippedNoReceipt = "skipped_no_receipt"
	OutcomeFailed           = "failed"
)

// Group outcomes
const (
	GroupSynced = "synced"
	GroupFailed = "failed"
)

// Recorder collects the metrics of sync runs in its own registry
type Recorder struct {
	registry *prometheus.Registry

	pagesFetched    prometheus.Counter
	items           *prometheus.CounterVec
	groups          *prometheus.CounterVec
	downloadedBytes prometheus.Counter
	lastRunTime     prometheus.Gauge
	lastRunSuccess  prometheus.Gauge
}

// NewRecorder creates a Recorder with every metric registered
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		pagesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Number of activity feed pages fetched.",
		}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "Number of feed items processed, by outcome.",
		}, []string{"outcome"}),
		groups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "groups_total",
			Help:      "Number of feed groups processed, by outcome.",
		}, []string{"outcome"}),
		downloadedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloaded_bytes_total",
			Help:      "Bytes of receipt binaries written to disk.",
		}),
		lastRunTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix timestamp of the end of the most recent run.",
		}),
		lastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 if the most recent run reached the end of the feed, 0 otherwise.",
		}),
	}

	r.registry.MustRegister(
		r.pagesFetched,
		r.items,
		r.groups,
		r.downloadedBytes,
		r.lastRunTime,
		r.lastRunSuccess,
	)

	// Pre-create label values so every series is exported from the first run
	for _, outcome := range []string{OutcomeDownloaded, OutcomeSkippedExisting, OutcomeSkippedNoReceipt, OutcomeFailed} {
		r.items.WithLabelValues(outcome)
	}
	for _, outcome := range []string{GroupSynced, GroupFailed} {
		r.groups.WithLabelValues(outcome)
	}
	return r
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// PageFetched counts one fetched feed page
func (r *Recorder) PageFetched() {
	r.pagesFetched.Inc()
}

// Item counts one processed item with its outcome
func (r *Recorder) Item(outcome string) {
	r.items.WithLabelValues(outcome).Inc()
}

// Group counts one processed group with its outcome
func (r *Recorder) Group(outcome string) {
	r.groups.WithLabelValues(outcome).Inc()
}

// Downloaded adds n written bytes
func (r *Recorder) Downloaded(n int64) {
	if n > 0 {
		r.downloadedBytes.Add(float64(n))
	}
}

// RunFinished records when a run ended and whether it succeeded
func (r *Recorder) RunFinished(at time.Time, success bool) {
	r.lastRunTime.Set(float64(at.Unix()))
	if success {
		r.lastRunSuccess.Set(1)
	} else {
		r.lastRunSuccess.Set(0)
	}
}

// WriteTextfile writes the registry in the text exposition format for the
// node_exporter textfile collector
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
