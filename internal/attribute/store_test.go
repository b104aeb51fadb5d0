package attribute

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/spatial/r2"

	"freeswim-tracker/internal/opencv/safe"
	"freeswim-tracker/internal/pipeline"
	"freeswim-tracker/internal/processing/selection"
)

func newResult(t *testing.T, seq uint64, raw, filtered uint64) *pipeline.FrameResult {
	t.Helper()

	mat := func(mt gocv.MatType) *safe.Mat {
		m, err := safe.NewMat(4, 4, mt)
		require.NoError(t, err)
		return m
	}
	return &pipeline.FrameResult{
		Sequence:      seq,
		Filtered:      mat(gocv.MatTypeCV8UC1),
		Binary:        mat(gocv.MatTypeCV8UC1),
		Display:       mat(gocv.MatTypeCV8UC3),
		RawCount:      raw,
		FilteredCount: filtered,
		Thumbnails:    []*image.Gray{image.NewGray(image.Rect(0, 0, 2, 2)), image.NewGray(image.Rect(0, 0, 2, 2))},
		Positions:     []r2.Vec{{X: 1.5, Y: 2.5}, pipeline.Padding},
		Areas:         []float64{30, 0},
	}
}

func TestStore_PublishReleasesPrevious(t *testing.T) {
	s := NewStore(10)
	first := newResult(t, 1, 2, 1)
	second := newResult(t, 2, 0, 0)

	s.Publish(first)
	assert.EqualValues(t, 1, first.Display.RefCount())

	s.Publish(second)
	assert.False(t, first.Display.IsValid(), "dropped result is closed")
	assert.True(t, second.Display.IsValid())

	s.Shutdown()
	assert.False(t, second.Display.IsValid())
}

func TestStore_AcquireKeepsResultAlive(t *testing.T) {
	s := NewStore(10)
	defer s.Shutdown()

	_, ok := s.Acquire()
	assert.False(t, ok)

	first := newResult(t, 1, 1, 1)
	s.Publish(first)

	got, ok := s.Acquire()
	require.True(t, ok)
	assert.Same(t, first, got)

	s.Publish(newResult(t, 2, 0, 0))
	assert.True(t, got.Binary.IsValid(), "reader still holds a reference")

	got.Release()
	assert.False(t, got.Binary.IsValid())
}

func TestStore_FrameByName(t *testing.T) {
	s := NewStore(10)
	defer s.Shutdown()

	res := newResult(t, 1, 0, 0)
	s.Publish(res)

	m, ok := s.Frame(TrackedFrame)
	require.True(t, ok)
	assert.Same(t, res.Display, m)
	assert.EqualValues(t, 2, m.RefCount())
	m.Release()

	m, ok = s.Frame(TrackedBinary)
	require.True(t, ok)
	assert.Same(t, res.Binary, m)
	m.Release()

	_, ok = s.Frame("nonsense")
	assert.False(t, ok)
}

func TestStore_Report(t *testing.T) {
	s := NewStore(10)
	defer s.Shutdown()

	_, ok := s.Report()
	assert.False(t, ok)

	res := newResult(t, 7, 3, 1)
	res.Particles = make([]selection.Particle, 1)
	s.Publish(res)

	r, ok := s.Report()
	require.True(t, ok)
	assert.EqualValues(t, 7, r.Sequence)
	assert.EqualValues(t, 3, r.Total)
	assert.EqualValues(t, 1, r.Filtered)
	assert.Equal(t, 1, r.Selected)
	assert.Equal(t, [][2]float64{{1.5, 2.5}, {-1, -1}}, r.Positions)
	assert.Equal(t, []float64{30, 0}, r.Areas)

	thumbs, ok := s.Thumbnails()
	require.True(t, ok)
	require.Len(t, thumbs, 2)
	assert.True(t, thumbs[0].Filled)
	assert.False(t, thumbs[1].Filled)
}

func TestStore_HistoryIsBoundedOldestFirst(t *testing.T) {
	s := NewStore(3)
	defer s.Shutdown()

	for i := uint64(1); i <= 5; i++ {
		s.Publish(newResult(t, i, i*2, i))
	}

	h := s.History()
	require.Len(t, h, 3)
	assert.EqualValues(t, 3, h[0].Sequence)
	assert.EqualValues(t, 5, h[2].Sequence)
	assert.EqualValues(t, 10, h[2].Total)
}

type holdingSink struct {
	got []*pipeline.FrameResult
}

func (h *holdingSink) Publish(r *pipeline.FrameResult) {
	h.got = append(h.got, r)
}

func TestMulti_GivesEachSinkAReference(t *testing.T) {
	a, b := &holdingSink{}, &holdingSink{}
	res := newResult(t, 1, 0, 0)

	Multi{a, b}.Publish(res)

	require.Len(t, a.got, 1)
	require.Len(t, b.got, 1)
	assert.EqualValues(t, 2, res.Filtered.RefCount())

	a.got[0].Release()
	b.got[0].Release()
	assert.False(t, res.Filtered.IsValid())
}

func TestMulti_NoSinksReleases(t *testing.T) {
	res := newResult(t, 1, 0, 0)
	Multi{}.Publish(res)
	assert.False(t, res.Display.IsValid())
}
