// Package attribute keeps the latest tracking outputs under their published
// names and hands them to concurrent readers.
package attribute

import (
	"image"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"freeswim-tracker/internal/opencv/safe"
	"freeswim-tracker/internal/pipeline"
)

// Published attribute names.
const (
	TrackedFrame    = "freeswim_tracked_zf_frame"
	TrackedFiltered = "freeswim_tracked_zf_filtered"
	TrackedBinary   = "freeswim_tracked_zf_binary"
	ParticleROIs    = "particle_rois"
	CountTotal      = "particle_count_total"
	CountFiltered   = "particle_count_filtered"
	MappedPositions = "particle_mapped_position"
)

// DefaultHistory is how many frames of counts are kept for plotting.
const DefaultHistory = 600

// FrameNames are the attributes that hold a frame-sized image.
var FrameNames = []string{TrackedFrame, TrackedFiltered, TrackedBinary}

// Counts is one frame's pair of particle counters.
type Counts struct {
	Sequence  uint64    `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`
	Total     uint64    `json:"total"`
	Filtered  uint64    `json:"filtered"`
}

// Report is the numeric part of the latest result.
type Report struct {
	Counts
	Positions [][2]float64 `json:"positions"`
	Areas     []float64    `json:"areas"`
	Selected  int          `json:"selected"`
}

// Store implements pipeline.Sink. It owns one reference to the latest
// result and drops it when the next one arrives.
type Store struct {
	mu      sync.RWMutex
	latest  *pipeline.FrameResult
	history []Counts
	next    int
	full    bool
}

func NewStore(historyLen int) *Store {
	if historyLen < 1 {
		historyLen = DefaultHistory
	}
	return &Store{history: make([]Counts, historyLen)}
}

func (s *Store) Publish(result *pipeline.FrameResult) {
	s.mu.Lock()
	prev := s.latest
	s.latest = result
	s.history[s.next] = countsOf(result)
	s.next = (s.next + 1) % len(s.history)
	if s.next == 0 {
		s.full = true
	}
	s.mu.Unlock()

	if prev != nil {
		prev.Release()
	}
}

// Acquire returns the latest result with an extra reference the caller
// must Release.
func (s *Store) Acquire() (*pipeline.FrameResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.latest == nil {
		return nil, false
	}
	return s.latest.Retain(), true
}

// Frame returns one of the FrameNames images with a reference the caller
// must Release.
func (s *Store) Frame(name string) (*safe.Mat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.latest == nil {
		return nil, false
	}

	var m *safe.Mat
	switch name {
	case TrackedFrame:
		m = s.latest.Display
	case TrackedFiltered:
		m = s.latest.Filtered
	case TrackedBinary:
		m = s.latest.Binary
	}
	if m == nil {
		return nil, false
	}
	m.AddRef()
	return m, true
}

// Report summarizes the latest result. The second value is false before
// the first publish.
func (s *Store) Report() (Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.latest == nil {
		return Report{}, false
	}
	r := Report{
		Counts:    countsOf(s.latest),
		Positions: make([][2]float64, len(s.latest.Positions)),
		Areas:     append([]float64(nil), s.latest.Areas...),
		Selected:  s.latest.Selected(),
	}
	for i, p := range s.latest.Positions {
		r.Positions[i] = [2]float64{p.X, p.Y}
	}
	return r, true
}

// Thumbnails returns the particle_rois slots of the latest result.
func (s *Store) Thumbnails() ([]Thumbnail, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.latest == nil {
		return nil, false
	}
	out := make([]Thumbnail, len(s.latest.Thumbnails))
	for i, img := range s.latest.Thumbnails {
		out[i] = Thumbnail{Image: img, Position: s.latest.Positions[i], Filled: i < s.latest.Selected()}
	}
	return out, true
}

// Thumbnail is one particle_rois slot. Images are never written after
// publish, so sharing them is safe.
type Thumbnail struct {
	Image    *image.Gray
	Position r2.Vec
	Filled   bool
}

// History returns the recorded counts, oldest first.
func (s *Store) History() []Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.full {
		return append([]Counts(nil), s.history[:s.next]...)
	}
	out := make([]Counts, 0, len(s.history))
	out = append(out, s.history[s.next:]...)
	return append(out, s.history[:s.next]...)
}

// Shutdown drops the store's reference to the latest result.
func (s *Store) Shutdown() {
	s.mu.Lock()
	prev := s.latest
	s.latest = nil
	s.mu.Unlock()

	if prev != nil {
		prev.Release()
	}
}

func countsOf(r *pipeline.FrameResult) Counts {
	return Counts{
		Sequence:  r.Sequence,
		Timestamp: r.Timestamp,
		Total:     r.RawCount,
		Filtered:  r.FilteredCount,
	}
}
