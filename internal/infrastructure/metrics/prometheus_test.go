package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveCheckpoint(time.Second, nil)
	m.ObserveMerge(time.Second, errors.New("boom"))
	m.SetState("recording", []string{"recording"})
	m.ReconnectAttempt("microphone", true)
}

func TestCheckpointAndMergeCounters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveCheckpoint(10*time.Millisecond, nil)
	m.ObserveCheckpoint(10*time.Millisecond, nil)
	m.ObserveCheckpoint(0, errors.New("disk full"))
	m.ObserveMerge(time.Second, nil)
	m.ObserveMerge(time.Second, errors.New("ffmpeg"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CheckpointsWritten))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CheckpointFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Merges.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Merges.WithLabelValues("error")))
}

func TestSetStateIsExclusive(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	all := []string{"idle", "recording", "paused"}

	m.SetState("recording", all)
	m.SetState("paused", all)

	assert.Equal(t, 0.0, testutil.ToFloat64(m.SessionState.WithLabelValues("recording")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionState.WithLabelValues("paused")))
}
