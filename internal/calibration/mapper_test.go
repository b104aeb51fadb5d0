package calibration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"freeswim-tracker/internal/config"
)

func TestToPhysical_Corners(t *testing.T) {
	c := Calibration{
		RectPos:   r2.Vec{X: 20, Y: 10},
		RectSize:  r2.Vec{X: 400, Y: 300},
		Dimension: r2.Vec{X: 100, Y: 80},
	}

	topLeft := ToPhysical(c.RectPos, c)
	assert.InDelta(t, 0, topLeft.X, 1e-9)
	assert.InDelta(t, 80, topLeft.Y, 1e-9)

	bottomRight := ToPhysical(r2.Add(c.RectPos, c.RectSize), c)
	assert.InDelta(t, 100, bottomRight.X, 1e-9)
	assert.InDelta(t, 0, bottomRight.Y, 1e-9)

	center := ToPhysical(r2.Vec{X: 220, Y: 160}, c)
	assert.InDelta(t, 50, center.X, 1e-9)
	assert.InDelta(t, 40, center.Y, 1e-9)
}

func TestToPhysical_OutsideRectExtrapolates(t *testing.T) {
	c := Calibration{RectSize: r2.Vec{X: 10, Y: 10}, Dimension: r2.Vec{X: 10, Y: 10}}
	got := ToPhysical(r2.Vec{X: -5, Y: 15}, c)
	assert.InDelta(t, -5, got.X, 1e-9)
	assert.InDelta(t, -5, got.Y, 1e-9)
}

func TestNewMapper_RejectsDegenerateRect(t *testing.T) {
	for _, size := range []r2.Vec{{X: 0, Y: 1}, {X: 1, Y: 0}, {X: -3, Y: 4}} {
		_, err := NewMapper(Calibration{RectSize: size, Dimension: r2.Vec{X: 1, Y: 1}})
		assert.ErrorIs(t, err, ErrInvalidRect, "size %v", size)
	}
}

func TestMapper_FromDefaults(t *testing.T) {
	p := config.Defaults()
	p.CalibrationRectSize = r2.Vec{X: 128, Y: 128}

	m, err := NewMapper(FromParameters(p))
	require.NoError(t, err)

	got := m.ToPhysical(r2.Vec{X: 64, Y: 64})
	assert.InDelta(t, 50, got.X, 1e-9)
	assert.InDelta(t, 40, got.Y, 1e-9)
}
