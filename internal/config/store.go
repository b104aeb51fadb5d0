package config

import (
	"fmt"
	"sync"
	"sync/atomic"

	"gonum.org/v1/gonum/spatial/r2"
)

// Store owns the live parameter snapshot of one pipeline. Reads are a single
// atomic load; writes are serialized and publish a complete new snapshot, so
// a reader never sees half of an update.
type Store struct {
	mu      sync.Mutex
	current atomic.Pointer[Parameters]
}

// NewStore validates initial and makes it the first snapshot.
func NewStore(initial Parameters) (*Store, error) {
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	initial.Version = 1
	s := &Store{}
	s.current.Store(&initial)
	return s, nil
}

// Snapshot returns the current parameters by value.
func (s *Store) Snapshot() Parameters {
	return *s.current.Load()
}

// Version is the number of snapshots published so far.
func (s *Store) Version() uint64 {
	return s.current.Load().Version
}

// update copies the current snapshot, lets mutate change the copy and
// publishes it. Nothing is published when mutate fails.
func (s *Store) update(mutate func(p *Parameters) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := *s.current.Load()
	if err := mutate(&next); err != nil {
		return err
	}
	next.Version++
	s.current.Store(&next)
	return nil
}

func (s *Store) SetCalibrationRectPos(pos r2.Vec) error {
	return s.update(func(p *Parameters) error {
		p.CalibrationRectPos = pos
		return nil
	})
}

func (s *Store) SetCalibrationRectSize(size r2.Vec) error {
	if err := validateRectSize(size); err != nil {
		return err
	}
	return s.update(func(p *Parameters) error {
		p.CalibrationRectSize = size
		return nil
	})
}

// SetCalibrationRect applies position and size as one snapshot.
func (s *Store) SetCalibrationRect(pos, size r2.Vec) error {
	if err := validateRectSize(size); err != nil {
		return err
	}
	return s.update(func(p *Parameters) error {
		p.CalibrationRectPos = pos
		p.CalibrationRectSize = size
		return nil
	})
}

func (s *Store) SetXDimensionSize(v float64) error {
	if err := validateDimension("x", v); err != nil {
		return err
	}
	return s.update(func(p *Parameters) error {
		p.DimensionSize.X = v
		return nil
	})
}

func (s *Store) SetYDimensionSize(v float64) error {
	if err := validateDimension("y", v); err != nil {
		return err
	}
	return s.update(func(p *Parameters) error {
		p.DimensionSize.Y = v
		return nil
	})
}

func (s *Store) SetMinArea(v float64) error {
	if err := validateMinArea(v); err != nil {
		return err
	}
	return s.update(func(p *Parameters) error {
		p.MinArea = v
		return nil
	})
}

func (s *Store) SetBinaryThreshold(v int) error {
	if err := validateThreshold(v); err != nil {
		return err
	}
	return s.update(func(p *Parameters) error {
		p.BinaryThreshold = v
		return nil
	})
}

// SetFilterSize never fails: the value is coerced to the nearest odd size.
// It returns the size actually applied.
func (s *Store) SetFilterSize(v int) int {
	size := CoerceFilterSize(v)
	_ = s.update(func(p *Parameters) error {
		p.FilterSize = size
		return nil
	})
	return size
}

func (p Parameters) String() string {
	return fmt.Sprintf("v%d thr=%d filter=%d min_area=%.1f rect=(%.1f,%.1f %.1fx%.1f) dim=(%.1f,%.1f)",
		p.Version, p.BinaryThreshold, p.FilterSize, p.MinArea,
		p.CalibrationRectPos.X, p.CalibrationRectPos.Y,
		p.CalibrationRectSize.X, p.CalibrationRectSize.Y,
		p.DimensionSize.X, p.DimensionSize.Y)
}
