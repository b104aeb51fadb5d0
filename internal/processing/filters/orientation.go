package filters

import (
	"fmt"

	"gocv.io/x/gocv"

	"freeswim-tracker/internal/config"
)

// OrientationFilter undoes the physical mounting of the camera.
type OrientationFilter struct {
	orientation config.Orientation
}

func NewOrientationFilter(o config.Orientation) *OrientationFilter {
	return &OrientationFilter{orientation: o}
}

func (o *OrientationFilter) Name() string {
	return "orientation_filter"
}

// OutputSize is the frame size after correction for an input of w×h.
func (o *OrientationFilter) OutputSize(w, h int) (int, int) {
	switch o.orientation.Rotation {
	case config.Rotate90CW, config.Rotate90CCW:
		return h, w
	default:
		return w, h
	}
}

// Apply rotates then flips src into dst. With an identity orientation it is
// a plain copy.
func (o *OrientationFilter) Apply(src gocv.Mat, dst *gocv.Mat) error {
	if o.orientation.IsIdentity() {
		src.CopyTo(dst)
		return nil
	}

	rotated := src
	switch o.orientation.Rotation {
	case "", config.RotateNone:
	case config.Rotate90CW, config.Rotate180, config.Rotate90CCW:
		rotated = gocv.NewMat()
		defer rotated.Close()
		gocv.Rotate(src, &rotated, rotateFlag(o.orientation.Rotation))
	default:
		return fmt.Errorf("%s: unknown rotation %q", o.Name(), o.orientation.Rotation)
	}

	switch {
	case o.orientation.FlipVertical && o.orientation.FlipHorizontal:
		gocv.Flip(rotated, dst, -1)
	case o.orientation.FlipVertical:
		gocv.Flip(rotated, dst, 0)
	case o.orientation.FlipHorizontal:
		gocv.Flip(rotated, dst, 1)
	default:
		rotated.CopyTo(dst)
	}
	return nil
}

func rotateFlag(r config.Rotation) gocv.RotateFlag {
	switch r {
	case config.Rotate90CW:
		return gocv.Rotate90Clockwise
	case config.Rotate180:
		return gocv.Rotate180Clockwise
	default:
		return gocv.Rotate90CounterClockwise
	}
}
