package camera

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Sequence replays a fixed list of frames, one per call to Frame. A gap
// entry makes that tick report no frame.
type Sequence struct {
	deviceID string

	mu      sync.Mutex
	frames  []*gocv.Mat
	current *gocv.Mat
}

func NewSequence(deviceID string) *Sequence {
	return &Sequence{deviceID: deviceID}
}

// Push queues a copy of frame.
func (s *Sequence) Push(frame gocv.Mat) {
	clone := frame.Clone()
	s.mu.Lock()
	s.frames = append(s.frames, &clone)
	s.mu.Unlock()
}

// PushGap queues a tick without a frame.
func (s *Sequence) PushGap() {
	s.mu.Lock()
	s.frames = append(s.frames, nil)
	s.mu.Unlock()
}

// LoadImages queues every image file in order, read as grayscale.
func (s *Sequence) LoadImages(paths ...string) error {
	for _, p := range paths {
		img := gocv.IMRead(p, gocv.IMReadGrayScale)
		if img.Empty() {
			img.Close()
			return fmt.Errorf("read frame %s: not an image", p)
		}
		s.mu.Lock()
		s.frames = append(s.frames, &img)
		s.mu.Unlock()
	}
	return nil
}

func (s *Sequence) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

// Frame implements pipeline.FrameProvider. The returned Mat stays valid
// until the next call.
func (s *Sequence) Frame(deviceID string) (gocv.Mat, bool) {
	if deviceID != s.deviceID {
		return gocv.Mat{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeCurrent()
	if len(s.frames) == 0 {
		return gocv.Mat{}, false
	}
	next := s.frames[0]
	s.frames = s.frames[1:]
	if next == nil {
		return gocv.Mat{}, false
	}
	s.current = next
	return *next, true
}

func (s *Sequence) closeCurrent() {
	if s.current != nil {
		s.current.Close()
		s.current = nil
	}
}

// Shutdown frees every queued frame.
func (s *Sequence) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeCurrent()
	for _, f := range s.frames {
		if f != nil {
			f.Close()
		}
	}
	s.frames = nil
}
