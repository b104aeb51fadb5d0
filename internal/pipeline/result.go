package pipeline

import (
	"image"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"freeswim-tracker/internal/opencv/safe"
	"freeswim-tracker/internal/processing/selection"
)

// Padding marks an empty position slot.
var Padding = r2.Vec{X: -1, Y: -1}

// FrameResult is everything one frame produces. Thumbnails, Positions and
// Areas always hold exactly the configured particle capacity; slots past
// the selected particles are zero images, Padding and 0.
type FrameResult struct {
	Sequence  uint64
	Timestamp time.Time

	Filtered *safe.Mat
	Binary   *safe.Mat
	Display  *safe.Mat

	// RawCount is every contour found; FilteredCount is every detection
	// that passed the area and bounds checks, before capacity truncation.
	RawCount      uint64
	FilteredCount uint64

	Particles  []selection.Particle
	Thumbnails []*image.Gray
	Positions  []r2.Vec
	Areas      []float64

	// Version of the parameter snapshot the frame was processed with.
	ParamsVersion uint64
}

// Selected is the number of filled slots.
func (r *FrameResult) Selected() int {
	return len(r.Particles)
}

// Retain adds a reference to every output Mat, for handing the same result
// to another owner.
func (r *FrameResult) Retain() *FrameResult {
	for _, m := range r.mats() {
		m.AddRef()
	}
	return r
}

// Release drops one reference from every output Mat.
func (r *FrameResult) Release() {
	for _, m := range r.mats() {
		m.Release()
	}
}

func (r *FrameResult) mats() []*safe.Mat {
	out := make([]*safe.Mat, 0, 3)
	for _, m := range []*safe.Mat{r.Filtered, r.Binary, r.Display} {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

func newPaddedResult(capacity int, thumb image.Point) *FrameResult {
	r := &FrameResult{
		Thumbnails: make([]*image.Gray, capacity),
		Positions:  make([]r2.Vec, capacity),
		Areas:      make([]float64, capacity),
	}
	for i := range r.Thumbnails {
		r.Thumbnails[i] = image.NewGray(image.Rect(0, 0, thumb.X, thumb.Y))
		r.Positions[i] = Padding
	}
	return r
}

func (r *FrameResult) fill(particles []selection.Particle) {
	if len(particles) > len(r.Positions) {
		particles = particles[:len(r.Positions)]
	}
	r.Particles = particles
	for i, p := range particles {
		r.Thumbnails[i] = p.Thumbnail
		r.Positions[i] = p.Position
		r.Areas[i] = p.Area
	}
}
