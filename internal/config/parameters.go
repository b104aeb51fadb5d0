package config

import (
	"errors"
	"fmt"
	"image"

	"gonum.org/v1/gonum/spatial/r2"
)

// ErrInvalidParameter is wrapped by every rejected setter or config value.
var ErrInvalidParameter = errors.New("invalid parameter")

const (
	DefaultBinaryThreshold = 25
	DefaultFilterSize      = 31
	DefaultMinArea         = 10.0
	DefaultMaxParticles    = 10
	DefaultHistory         = 400

	MinBinaryThreshold = 1
	MaxBinaryThreshold = 254
)

var (
	DefaultThumbnailSize = image.Pt(60, 60)
	DefaultDimensionSize = r2.Vec{X: 100, Y: 80}
)

// Rotation describes how the camera is mounted relative to the arena.
type Rotation string

const (
	RotateNone  Rotation = "none"
	Rotate90CW  Rotation = "cw90"
	Rotate180   Rotation = "180"
	Rotate90CCW Rotation = "ccw90"
)

// Orientation is applied to every raw frame before any processing, so all
// outputs share it.
type Orientation struct {
	Rotation       Rotation `json:"rotation"`
	FlipVertical   bool     `json:"flip_vertical"`
	FlipHorizontal bool     `json:"flip_horizontal"`
}

func (o Orientation) IsIdentity() bool {
	return (o.Rotation == "" || o.Rotation == RotateNone) && !o.FlipVertical && !o.FlipHorizontal
}

// Parameters is one immutable configuration snapshot. The pipeline reads a
// single snapshot per frame; setters publish a fresh copy.
type Parameters struct {
	Version uint64

	BinaryThreshold int
	FilterSize      int
	MinArea         float64

	CalibrationRectPos  r2.Vec
	CalibrationRectSize r2.Vec
	DimensionSize       r2.Vec

	// Fixed for the lifetime of a pipeline.
	MaxParticles  int
	ThumbnailSize image.Point
	History       int
	Orientation   Orientation
}

// Defaults returns the values the tracking routine starts with.
func Defaults() Parameters {
	return Parameters{
		BinaryThreshold:     DefaultBinaryThreshold,
		FilterSize:          DefaultFilterSize,
		MinArea:             DefaultMinArea,
		CalibrationRectPos:  r2.Vec{X: 0, Y: 0},
		CalibrationRectSize: r2.Vec{X: 1, Y: 1},
		DimensionSize:       DefaultDimensionSize,
		MaxParticles:        DefaultMaxParticles,
		ThumbnailSize:       DefaultThumbnailSize,
		History:             DefaultHistory,
		Orientation:         Orientation{Rotation: RotateNone},
	}
}

// Validate checks every field against the same rules the setters apply.
func (p Parameters) Validate() error {
	if err := validateThreshold(p.BinaryThreshold); err != nil {
		return err
	}
	if p.FilterSize < 1 || p.FilterSize%2 == 0 {
		return fmt.Errorf("%w: filter size %d must be odd and >= 1", ErrInvalidParameter, p.FilterSize)
	}
	if err := validateMinArea(p.MinArea); err != nil {
		return err
	}
	if err := validateRectSize(p.CalibrationRectSize); err != nil {
		return err
	}
	if err := validateDimension("x", p.DimensionSize.X); err != nil {
		return err
	}
	if err := validateDimension("y", p.DimensionSize.Y); err != nil {
		return err
	}
	if p.MaxParticles < 1 {
		return fmt.Errorf("%w: max particles %d must be >= 1", ErrInvalidParameter, p.MaxParticles)
	}
	if p.ThumbnailSize.X < 1 || p.ThumbnailSize.Y < 1 {
		return fmt.Errorf("%w: thumbnail size %v must be positive", ErrInvalidParameter, p.ThumbnailSize)
	}
	if p.History < 1 {
		return fmt.Errorf("%w: history %d must be >= 1", ErrInvalidParameter, p.History)
	}
	switch p.Orientation.Rotation {
	case "", RotateNone, Rotate90CW, Rotate180, Rotate90CCW:
	default:
		return fmt.Errorf("%w: unknown rotation %q", ErrInvalidParameter, p.Orientation.Rotation)
	}
	return nil
}

// CoerceFilterSize forces any requested kernel size to an odd value >= 1:
// odd values are kept, even values move up by one, non-positive values
// become 1.
func CoerceFilterSize(n int) int {
	if n < 1 {
		return 1
	}
	return n/2*2 + 1
}

func validateThreshold(v int) error {
	if v < MinBinaryThreshold || v > MaxBinaryThreshold {
		return fmt.Errorf("%w: binary threshold %d outside [%d,%d]",
			ErrInvalidParameter, v, MinBinaryThreshold, MaxBinaryThreshold)
	}
	return nil
}

func validateMinArea(v float64) error {
	if !(v > 0) {
		return fmt.Errorf("%w: min area %v must be positive", ErrInvalidParameter, v)
	}
	return nil
}

func validateRectSize(size r2.Vec) error {
	if !(size.X > 0) || !(size.Y > 0) {
		return fmt.Errorf("%w: calibration rect size (%v, %v) must be positive",
			ErrInvalidParameter, size.X, size.Y)
	}
	return nil
}

func validateDimension(axis string, v float64) error {
	if !(v > 0) {
		return fmt.Errorf("%w: %s dimension %v must be positive", ErrInvalidParameter, axis, v)
	}
	return nil
}
