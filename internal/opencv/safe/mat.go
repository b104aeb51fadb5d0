package safe

import (
	"fmt"
	"image"
	"runtime"
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"
)

// Recycler takes back a Mat whose last reference was released. Returning
// false lets the Mat close itself.
type Recycler interface {
	Recycle(mat *Mat) bool
}

// Mat is a reference counted gocv.Mat that may be shared between the frame
// loop and concurrent readers (HTTP monitor, operator panel).
type Mat struct {
	mat      gocv.Mat
	isValid  int32
	refCount int32
	mu       sync.RWMutex
	id       uint64
	recycler Recycler
	tag      string
}

var nextMatID uint64

func NewMat(rows, cols int, matType gocv.MatType) (*Mat, error) {
	return NewMatWithTag(rows, cols, matType, "")
}

func NewMatWithTag(rows, cols int, matType gocv.MatType, tag string) (*Mat, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("invalid dimensions: %dx%d", cols, rows)
	}

	mat := gocv.NewMatWithSize(rows, cols, matType)
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("failed to create Mat with size %dx%d", cols, rows)
	}

	return wrap(mat, tag), nil
}

// NewMatFromMat clones srcMat; the caller keeps ownership of srcMat.
func NewMatFromMat(srcMat gocv.Mat) (*Mat, error) {
	if srcMat.Empty() {
		return nil, fmt.Errorf("source Mat is empty")
	}

	clonedMat := srcMat.Clone()
	if clonedMat.Empty() {
		clonedMat.Close()
		return nil, fmt.Errorf("failed to clone Mat")
	}

	return wrap(clonedMat, ""), nil
}

func wrap(mat gocv.Mat, tag string) *Mat {
	safeMat := &Mat{
		mat:      mat,
		isValid:  1,
		refCount: 1,
		id:       atomic.AddUint64(&nextMatID, 1),
		tag:      tag,
	}

	// Set finalizer for cleanup if Close() is not called
	runtime.SetFinalizer(safeMat, (*Mat).finalize)

	return safeMat
}

func (sm *Mat) IsValid() bool {
	return atomic.LoadInt32(&sm.isValid) == 1
}

func (sm *Mat) Empty() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.IsValid() {
		return true
	}

	return sm.mat.Empty()
}

func (sm *Mat) Rows() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.IsValid() {
		return 0
	}

	return sm.mat.Rows()
}

func (sm *Mat) Cols() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.IsValid() {
		return 0
	}

	return sm.mat.Cols()
}

func (sm *Mat) Channels() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.IsValid() {
		return 0
	}

	return sm.mat.Channels()
}

func (sm *Mat) Type() gocv.MatType {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.IsValid() {
		return gocv.MatTypeCV8UC1
	}

	return sm.mat.Type()
}

func (sm *Mat) Tag() string {
	return sm.tag
}

// CopyFrom overwrites the pixels with src, which must have the same size
// and type.
func (sm *Mat) CopyFrom(src gocv.Mat) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.IsValid() {
		return fmt.Errorf("destination Mat is invalid")
	}
	if src.Empty() {
		return fmt.Errorf("source Mat is empty")
	}
	if src.Rows() != sm.mat.Rows() || src.Cols() != sm.mat.Cols() || src.Type() != sm.mat.Type() {
		return fmt.Errorf("shape mismatch: %dx%d type %v into %dx%d type %v",
			src.Cols(), src.Rows(), src.Type(), sm.mat.Cols(), sm.mat.Rows(), sm.mat.Type())
	}

	src.CopyTo(&sm.mat)
	return nil
}

// View runs fn with read access to the underlying Mat. fn must not keep the
// Mat after returning.
func (sm *Mat) View(fn func(m gocv.Mat) error) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.IsValid() {
		return fmt.Errorf("Mat is invalid")
	}

	return fn(sm.mat)
}

// ToImage converts to a Go image (Gray for one channel, RGBA otherwise).
func (sm *Mat) ToImage() (image.Image, error) {
	var img image.Image
	err := sm.View(func(m gocv.Mat) error {
		if m.Empty() {
			return fmt.Errorf("Mat is empty")
		}
		var convErr error
		img, convErr = m.ToImage()
		return convErr
	})
	return img, err
}

func (sm *Mat) GetUCharAt(row, col int) (uint8, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.IsValid() {
		return 0, fmt.Errorf("Mat is invalid")
	}

	if row < 0 || row >= sm.mat.Rows() || col < 0 || col >= sm.mat.Cols() {
		return 0, fmt.Errorf("coordinates out of bounds: (%d,%d) for size %dx%d",
			col, row, sm.mat.Cols(), sm.mat.Rows())
	}

	return sm.mat.GetUCharAt(row, col), nil
}

func (sm *Mat) ID() uint64 {
	return sm.id
}

// SetRecycler makes Release hand the Mat back to r instead of closing it.
func (sm *Mat) SetRecycler(r Recycler) {
	sm.recycler = r
}

// Reuse marks a recycled Mat as freshly owned by a single holder.
func (sm *Mat) Reuse() {
	atomic.StoreInt32(&sm.refCount, 1)
}

func (sm *Mat) RefCount() int32 {
	return atomic.LoadInt32(&sm.refCount)
}

func (sm *Mat) AddRef() {
	atomic.AddInt32(&sm.refCount, 1)
}

func (sm *Mat) Release() {
	if atomic.AddInt32(&sm.refCount, -1) == 0 {
		if sm.recycler != nil && sm.IsValid() && sm.recycler.Recycle(sm) {
			return
		}
		sm.Close()
	}
}

func (sm *Mat) Close() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if atomic.CompareAndSwapInt32(&sm.isValid, 1, 0) {
		if !sm.mat.Empty() {
			sm.mat.Close()
		}

		// Clear finalizer since we're cleaning up manually
		runtime.SetFinalizer(sm, nil)
	}
}

// finalize is called by Go's garbage collector as last resort cleanup
func (sm *Mat) finalize() {
	if atomic.LoadInt32(&sm.isValid) == 1 {
		sm.Close()
	}
}
