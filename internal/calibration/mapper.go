// Package calibration maps camera pixel coordinates into arena coordinates
// using an operator-placed rectangle of known physical size.
package calibration

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"

	"freeswim-tracker/internal/config"
)

var ErrInvalidRect = errors.New("invalid calibration rectangle")

// Calibration is the pixel rectangle and the physical extent it covers.
type Calibration struct {
	RectPos   r2.Vec
	RectSize  r2.Vec
	Dimension r2.Vec
}

// FromParameters takes the calibration part of a parameter snapshot.
func FromParameters(p config.Parameters) Calibration {
	return Calibration{
		RectPos:   p.CalibrationRectPos,
		RectSize:  p.CalibrationRectSize,
		Dimension: p.DimensionSize,
	}
}

func (c Calibration) Validate() error {
	if !(c.RectSize.X > 0) || !(c.RectSize.Y > 0) {
		return fmt.Errorf("%w: size (%v, %v)", ErrInvalidRect, c.RectSize.X, c.RectSize.Y)
	}
	return nil
}

// ToPhysical maps a pixel point. Pixel rows grow downwards while the
// physical y axis grows upwards, so the second axis is inverted.
func ToPhysical(p r2.Vec, c Calibration) r2.Vec {
	n := r2.Sub(p, c.RectPos)
	n.X /= c.RectSize.X
	n.Y /= c.RectSize.Y
	return r2.Vec{
		X: n.X * c.Dimension.X,
		Y: c.Dimension.Y - n.Y*c.Dimension.Y,
	}
}

// Mapper binds a validated calibration so callers can map many points.
type Mapper struct {
	cal Calibration
}

func NewMapper(c Calibration) (*Mapper, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &Mapper{cal: c}, nil
}

func (m *Mapper) ToPhysical(p r2.Vec) r2.Vec {
	return ToPhysical(p, m.cal)
}
