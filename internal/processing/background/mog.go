// Package background keeps the adaptive per-pixel model of the empty arena.
package background

import (
	"fmt"

	"gocv.io/x/gocv"
)

const (
	DefaultHistory      = 400
	DefaultVarThreshold = 16.0
)

// Model is a mixture-of-Gaussians background estimator without shadow
// detection. Update must be called exactly once per frame in arrival order;
// the learned statistics live only as long as the Model.
type Model struct {
	history      int
	varThreshold float64
	mog          gocv.BackgroundSubtractorMOG2
	frames       uint64
}

func New(history int) *Model {
	if history <= 0 {
		history = DefaultHistory
	}
	return &Model{
		history:      history,
		varThreshold: DefaultVarThreshold,
		mog:          gocv.NewBackgroundSubtractorMOG2WithParams(history, DefaultVarThreshold, false),
	}
}

// Update learns from frame and writes the foreground mask (0 or 255) to mask.
func (m *Model) Update(frame gocv.Mat, mask *gocv.Mat) error {
	if frame.Empty() {
		return fmt.Errorf("background update: empty frame")
	}
	if err := m.mog.Apply(frame, mask); err != nil {
		return fmt.Errorf("background update: %w", err)
	}
	m.frames++
	return nil
}

// Frames is the number of frames learned since creation or Reset.
func (m *Model) Frames() uint64 {
	return m.frames
}

func (m *Model) History() int {
	return m.history
}

// Reset forgets everything learned so far.
func (m *Model) Reset() {
	m.mog.Close()
	m.mog = gocv.NewBackgroundSubtractorMOG2WithParams(m.history, m.varThreshold, false)
	m.frames = 0
}

func (m *Model) Close() error {
	return m.mog.Close()
}
