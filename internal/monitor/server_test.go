package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/spatial/r2"

	"freeswim-tracker/internal/attribute"
	"freeswim-tracker/internal/config"
	"freeswim-tracker/internal/control"
	"freeswim-tracker/internal/opencv/safe"
	"freeswim-tracker/internal/pipeline"
)

type fixture struct {
	server  *Server
	handler http.Handler
	outputs *attribute.Store
	params  *config.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	params, err := config.NewStore(config.Defaults())
	require.NoError(t, err)
	ctrl := control.NewChannel(params, 4, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go ctrl.Run(ctx)
	t.Cleanup(cancel)

	outputs := attribute.NewStore(10)
	t.Cleanup(outputs.Shutdown)

	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("freeswim_frames_processed_total 0\n"))
	})

	s := NewServer(DefaultConfig(), outputs, params, ctrl, metricsHandler, nil)
	return &fixture{server: s, handler: s.Handler(), outputs: outputs, params: params}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) publish(t *testing.T, seq uint64) {
	t.Helper()

	mat := func(mt gocv.MatType) *safe.Mat {
		m, err := safe.NewMat(32, 48, mt)
		require.NoError(t, err)
		return m
	}
	f.outputs.Publish(&pipeline.FrameResult{
		Sequence:      seq,
		Filtered:      mat(gocv.MatTypeCV8UC1),
		Binary:        mat(gocv.MatTypeCV8UC1),
		Display:       mat(gocv.MatTypeCV8UC3),
		RawCount:      2,
		FilteredCount: 1,
		Thumbnails:    []*image.Gray{image.NewGray(image.Rect(0, 0, 6, 6)), image.NewGray(image.Rect(0, 0, 6, 6))},
		Positions:     []r2.Vec{{X: 12, Y: 34}, pipeline.Padding},
		Areas:         []float64{50, 0},
	})
}

func TestServer_GetParams(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, "GET", "/api/params", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.EqualValues(t, config.DefaultBinaryThreshold, got["binary_threshold"])
	assert.EqualValues(t, config.DefaultFilterSize, got["filter_size"])
	assert.Equal(t, []interface{}{60.0, 60.0}, got["rect_size"])
}

func TestServer_SetterRoutes(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"applied", "/api/params/set_binary_threshold", "40", http.StatusOK},
		{"coerced", "/api/params/set_filter_size", "10", http.StatusOK},
		{"out of range", "/api/params/set_binary_threshold", "300", http.StatusBadRequest},
		{"malformed", "/api/params/set_calibration_rect_pos", `"left"`, http.StatusBadRequest},
		{"unknown", "/api/params/set_colour", "1", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rec := f.do(t, "POST", tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	f := newFixture(t)
	f.do(t, "POST", "/api/params/set_filter_size", "10")
	assert.Equal(t, 11, f.params.Snapshot().FilterSize)
}

func TestServer_SetterRequiresPost(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, "GET", "/api/params/set_binary_threshold", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_ParticlesBeforeAndAfterFirstFrame(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, "GET", "/api/particles", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	f.publish(t, 5)
	rec = f.do(t, "GET", "/api/particles", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var report attribute.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.EqualValues(t, 5, report.Sequence)
	assert.EqualValues(t, 2, report.Total)
	assert.EqualValues(t, 1, report.Filtered)
	assert.Equal(t, [][2]float64{{12, 34}, {-1, -1}}, report.Positions)
}

func TestServer_Frames(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, "GET", "/frames/freeswim_tracked_zf_frame.jpg", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	f.publish(t, 1)

	for _, name := range attribute.FrameNames {
		rec = f.do(t, "GET", "/frames/"+name+".jpg", "")
		require.Equal(t, http.StatusOK, rec.Code, name)
		assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte{0xFF, 0xD8}), "JPEG magic for %s", name)
	}

	rec = f.do(t, "GET", "/frames/particle_rois.png", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = f.do(t, "GET", "/frames/secret.jpg", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_CountsPlotAndMetrics(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, "GET", "/plots/counts.png", "")
	require.Equal(t, http.StatusOK, rec.Code, "an empty plot still renders")

	for i := uint64(1); i <= 4; i++ {
		f.publish(t, i)
	}
	rec = f.do(t, "GET", "/plots/counts.png", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = f.do(t, "GET", "/api/counts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var counts []attribute.Counts
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &counts))
	assert.Len(t, counts, 4)

	rec = f.do(t, "GET", "/metrics", "")
	assert.Contains(t, rec.Body.String(), "freeswim_frames_processed_total")
}
