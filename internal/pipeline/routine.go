package pipeline

import (
	"time"

	"gocv.io/x/gocv"
)

// Routine is a per-frame processing unit with a three step lifecycle:
// allocate resources, initialize once, then process every frame tick.
type Routine interface {
	Setup() error
	Initialize() error
	// Process handles one tick. It returns false when no frame was
	// available; nothing is produced for that tick.
	Process(frames FrameProvider) (*FrameResult, bool)
}

// FrameProvider hands out the newest frame for a device without blocking.
// The Mat is borrowed until the next call.
type FrameProvider interface {
	Frame(deviceID string) (gocv.Mat, bool)
}

// FrameNotifier is implemented by providers that signal frame arrival, such
// as a live camera. The runner then processes one tick per signal instead of
// polling on a timer.
type FrameNotifier interface {
	Ready() <-chan struct{}
}

// Sink receives every produced result and owns one reference to it.
type Sink interface {
	Publish(result *FrameResult)
}

// Observer is notified about the outcome of every tick.
type Observer interface {
	FrameProcessed(result *FrameResult, elapsed time.Duration)
	FrameSkipped(reason string)
}

type nopObserver struct{}

func (nopObserver) FrameProcessed(*FrameResult, time.Duration) {}
func (nopObserver) FrameSkipped(string)                        {}
