package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freeswim-tracker/internal/opencv/memory"
	"freeswim-tracker/internal/pipeline"
)

func TestMetrics_FrameOutcomes(t *testing.T) {
	m := New()

	m.FrameProcessed(&pipeline.FrameResult{Sequence: 4, RawCount: 7, FilteredCount: 3}, 2*time.Millisecond)
	m.FrameSkipped("no_frame")
	m.FrameSkipped("no_frame")
	m.FrameSkipped("bad_frame")

	assert.EqualValues(t, 1, m.FramesProcessed.Load())
	assert.EqualValues(t, 3, m.FramesSkipped.Load())
	assert.EqualValues(t, 7, m.ParticlesTotal.Load())
	assert.EqualValues(t, 3, m.ParticlesKept.Load())
	assert.EqualValues(t, 4, m.LastSequence.Load())

	assert.Equal(t, 2.0, testutil.ToFloat64(m.skipped.WithLabelValues("no_frame")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.skipped.WithLabelValues("bad_frame")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.frameSeconds))
}

func TestMetrics_Setters(t *testing.T) {
	m := New()

	m.SetterApplied("set_min_area")
	m.SetterApplied("set_min_area")
	m.SetterRejected("set_binary_threshold")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.setters.WithLabelValues("set_min_area", "applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.setters.WithLabelValues("set_binary_threshold", "rejected")))
}

func TestMetrics_HandlerExposesEverything(t *testing.T) {
	m := New()
	m.WatchMemory(memory.NewManager(nil))
	m.WatchCapture(func() (uint64, uint64, uint64) { return 10, 2, 1 })
	m.RecordDropped()
	m.FrameSkipped("no_frame")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)

	for _, name := range []string{
		"freeswim_frames_processed_total 0",
		"freeswim_recorder_dropped_total 1",
		"freeswim_camera_frames_read_total 10",
		"freeswim_camera_frames_overwritten_total 2",
		"freeswim_mat_allocated_total 0",
		`freeswim_frames_skipped_by_reason_total{reason="no_frame"} 1`,
		"# TYPE freeswim_frames_processed_total counter",
		"# TYPE freeswim_frames_skipped_total counter",
		"# TYPE freeswim_recorder_dropped_total counter",
		"# TYPE freeswim_camera_frames_read_total counter",
		"# TYPE freeswim_mat_allocated_total counter",
		"# TYPE freeswim_particle_count_raw gauge",
	} {
		assert.Contains(t, text, name)
	}
}
