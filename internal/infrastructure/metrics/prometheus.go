package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the recorder.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Checkpoint metrics
	CheckpointsWritten prometheus.Counter
	CheckpointFailures prometheus.Counter
	CheckpointDuration prometheus.Histogram
	BufferedSamples    prometheus.Gauge

	// Merge metrics
	Merges        *prometheus.CounterVec
	MergeDuration prometheus.Histogram

	// Ingestion metrics
	ChunksIngested prometheus.Counter
	ChunksDropped  prometheus.Counter

	// Session metrics
	SessionState      *prometheus.GaugeVec
	SessionErrors     *prometheus.CounterVec
	ReconnectAttempts *prometheus.CounterVec
	DeviceEvents      *prometheus.CounterVec

	// Persistence metrics
	TranscriptSegments prometheus.Gauge
	TranscriptWrites   *prometheus.CounterVec
	SavesCompleted     *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CheckpointsWritten: factory.NewCounter(prometheus.CounterOpts{
			Name: "meetrec_checkpoints_written_total",
			Help: "Total number of audio checkpoints written to disk",
		}),
		CheckpointFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "meetrec_checkpoint_failures_total",
			Help: "Total number of checkpoint encode or write failures",
		}),
		CheckpointDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "meetrec_checkpoint_encode_seconds",
			Help:    "Time spent encoding and writing one checkpoint",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		}),
		BufferedSamples: factory.NewGauge(prometheus.GaugeOpts{
			Name: "meetrec_buffered_samples",
			Help: "Samples held in memory awaiting the next checkpoint",
		}),
		Merges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "meetrec_merges_total",
			Help: "Checkpoint merges by result",
		}, []string{"result"}),
		MergeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "meetrec_merge_seconds",
			Help:    "Time spent merging checkpoints into the final artifact",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		ChunksIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "meetrec_chunks_ingested_total",
			Help: "Audio chunks forwarded into the saver",
		}),
		ChunksDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "meetrec_chunks_dropped_total",
			Help: "Audio chunks sent after the session stopped consuming",
		}),
		SessionState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "meetrec_session_state",
			Help: "1 for the current session state, 0 otherwise",
		}, []string{"state"}),
		SessionErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "meetrec_session_errors_total",
			Help: "Errors reported to the session by kind",
		}, []string{"kind"}),
		ReconnectAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "meetrec_reconnect_attempts_total",
			Help: "Device reconnect attempts by device type and result",
		}, []string{"device_type", "result"}),
		DeviceEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "meetrec_device_events_total",
			Help: "Device monitor events by kind",
		}, []string{"kind", "device_type"}),
		TranscriptSegments: factory.NewGauge(prometheus.GaugeOpts{
			Name: "meetrec_transcript_segments",
			Help: "Transcript segments held for the current session",
		}),
		TranscriptWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "meetrec_transcript_writes_total",
			Help: "Atomic transcript file writes by result",
		}, []string{"result"}),
		SavesCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "meetrec_saves_total",
			Help: "stop-and-save outcomes",
		}, []string{"result"}),
	}
}

// ObserveCheckpoint records one checkpoint attempt
func (m *Metrics) ObserveCheckpoint(elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.CheckpointFailures.Inc()
		return
	}
	m.CheckpointsWritten.Inc()
	m.CheckpointDuration.Observe(elapsed.Seconds())
}

// SetBuffered records the in-memory sample count
func (m *Metrics) SetBuffered(samples int) {
	if m == nil {
		return
	}
	m.BufferedSamples.Set(float64(samples))
}

// ObserveMerge records one merge attempt
func (m *Metrics) ObserveMerge(elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.Merges.WithLabelValues(result(err)).Inc()
	if err == nil {
		m.MergeDuration.Observe(elapsed.Seconds())
	}
}

// ChunkIngested counts a chunk handed to the saver
func (m *Metrics) ChunkIngested() {
	if m == nil {
		return
	}
	m.ChunksIngested.Inc()
}

// ChunkDropped counts a chunk that arrived after the session stopped consuming
func (m *Metrics) ChunkDropped() {
	if m == nil {
		return
	}
	m.ChunksDropped.Inc()
}

// SetState marks state as the only active session state
func (m *Metrics) SetState(state string, all []string) {
	if m == nil {
		return
	}
	for _, s := range all {
		v := 0.0
		if s == state {
			v = 1
		}
		m.SessionState.WithLabelValues(s).Set(v)
	}
}

// SessionError counts an error reported to the session
func (m *Metrics) SessionError(kind string) {
	if m == nil {
		return
	}
	m.SessionErrors.WithLabelValues(kind).Inc()
}

// ReconnectAttempt records the result of a reconnect attempt
func (m *Metrics) ReconnectAttempt(deviceType string, ok bool) {
	if m == nil {
		return
	}
	res := "not_found"
	if ok {
		res = "success"
	}
	m.ReconnectAttempts.WithLabelValues(deviceType, res).Inc()
}

// DeviceEvent counts a monitor event
func (m *Metrics) DeviceEvent(kind, deviceType string) {
	if m == nil {
		return
	}
	m.DeviceEvents.WithLabelValues(kind, deviceType).Inc()
}

// TranscriptWrite records one transcript persistence attempt
func (m *Metrics) TranscriptWrite(segments int, err error) {
	if m == nil {
		return
	}
	m.TranscriptWrites.WithLabelValues(result(err)).Inc()
	if err == nil {
		m.TranscriptSegments.Set(float64(segments))
	}
}

// SaveCompleted records a stop-and-save outcome ("saved", "skipped", "failed")
func (m *Metrics) SaveCompleted(outcome string) {
	if m == nil {
		return
	}
	m.SavesCompleted.WithLabelValues(outcome).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
