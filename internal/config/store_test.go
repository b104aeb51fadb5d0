package config

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(Defaults())
	require.NoError(t, err)
	return s
}

func TestNewStore_RejectsInvalidInitial(t *testing.T) {
	p := Defaults()
	p.BinaryThreshold = 0
	_, err := NewStore(p)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestCoerceFilterSize(t *testing.T) {
	for n := -10; n <= 300; n++ {
		got := CoerceFilterSize(n)
		require.Equal(t, 1, got%2, "n=%d", n)
		require.GreaterOrEqual(t, got, 1, "n=%d", n)
		if n >= 1 {
			if n%2 == 1 {
				require.Equal(t, n, got, "odd n=%d", n)
			} else {
				require.Equal(t, n+1, got, "even n=%d", n)
			}
		}
	}
}

func TestStore_SetFilterSize(t *testing.T) {
	s := newTestStore(t)

	assert.Equal(t, 33, s.SetFilterSize(32))
	assert.Equal(t, 33, s.Snapshot().FilterSize)

	assert.Equal(t, 5, s.SetFilterSize(5))
	assert.Equal(t, 1, s.SetFilterSize(0))
	assert.Equal(t, 1, s.SetFilterSize(-7))
	assert.Equal(t, 1, s.Snapshot().FilterSize)
}

func TestStore_SetBinaryThreshold(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SetBinaryThreshold(1))
	require.NoError(t, s.SetBinaryThreshold(254))
	assert.Equal(t, 254, s.Snapshot().BinaryThreshold)

	for _, bad := range []int{0, -1, 255, 1000} {
		before := s.Snapshot()
		err := s.SetBinaryThreshold(bad)
		assert.ErrorIs(t, err, ErrInvalidParameter, "threshold %d", bad)
		assert.Equal(t, before, s.Snapshot(), "rejected setter must not mutate")
	}
}

func TestStore_RejectsNonPositiveRectSize(t *testing.T) {
	s := newTestStore(t)
	before := s.Snapshot()

	assert.ErrorIs(t, s.SetCalibrationRectSize(r2.Vec{X: 0, Y: 10}), ErrInvalidParameter)
	assert.ErrorIs(t, s.SetCalibrationRectSize(r2.Vec{X: 10, Y: -1}), ErrInvalidParameter)
	assert.ErrorIs(t, s.SetCalibrationRect(r2.Vec{X: 5, Y: 5}, r2.Vec{}), ErrInvalidParameter)

	assert.Equal(t, before, s.Snapshot())
}

func TestStore_SettersPublishNewVersion(t *testing.T) {
	s := newTestStore(t)
	v := s.Version()

	require.NoError(t, s.SetCalibrationRectPos(r2.Vec{X: 10, Y: 20}))
	require.NoError(t, s.SetCalibrationRectSize(r2.Vec{X: 300, Y: 200}))
	require.NoError(t, s.SetXDimensionSize(120))
	require.NoError(t, s.SetYDimensionSize(90))
	require.NoError(t, s.SetMinArea(25))

	got := s.Snapshot()
	assert.Equal(t, v+5, got.Version)

	want := Defaults()
	want.Version = got.Version
	want.CalibrationRectPos = r2.Vec{X: 10, Y: 20}
	want.CalibrationRectSize = r2.Vec{X: 300, Y: 200}
	want.DimensionSize = r2.Vec{X: 120, Y: 90}
	want.MinArea = 25
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	s := newTestStore(t)
	snap := s.Snapshot()
	snap.BinaryThreshold = 200

	assert.Equal(t, DefaultBinaryThreshold, s.Snapshot().BinaryThreshold)
}

func TestStore_CalibrationRectPairIsNeverTorn(t *testing.T) {
	s := newTestStore(t)

	// Writers always keep size == pos + 100; readers must never see a
	// position from one write paired with the size of another.
	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 2000; i++ {
			f := float64(i)
			_ = s.SetCalibrationRect(r2.Vec{X: f, Y: f}, r2.Vec{X: f + 100, Y: f + 100})
		}
		close(stop)
	}()

	torn := 0
	for {
		select {
		case <-stop:
			wg.Wait()
			assert.Zero(t, torn)
			return
		default:
		}
		p := s.Snapshot()
		if p.Version > 1 && p.CalibrationRectSize.X != p.CalibrationRectPos.X+100 {
			torn++
		}
	}
}

func TestParameters_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Parameters)
	}{
		{"even filter", func(p *Parameters) { p.FilterSize = 30 }},
		{"zero filter", func(p *Parameters) { p.FilterSize = 0 }},
		{"zero min area", func(p *Parameters) { p.MinArea = 0 }},
		{"zero dimension", func(p *Parameters) { p.DimensionSize.Y = 0 }},
		{"zero capacity", func(p *Parameters) { p.MaxParticles = 0 }},
		{"empty thumbnail", func(p *Parameters) { p.ThumbnailSize.X = 0 }},
		{"no history", func(p *Parameters) { p.History = 0 }},
		{"bad rotation", func(p *Parameters) { p.Orientation.Rotation = "sideways" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Defaults()
			tt.mutate(&p)
			err := p.Validate()
			assert.True(t, errors.Is(err, ErrInvalidParameter), "got %v", err)
		})
	}

	assert.NoError(t, Defaults().Validate())
}
