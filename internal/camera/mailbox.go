package camera

import (
	"sync"

	"gocv.io/x/gocv"
)

// mailbox is a single slot handoff between a producer that overwrites and a
// consumer that only ever sees the newest value. It owns three Mats and
// rotates them, so neither side allocates per frame.
type mailbox struct {
	mu      sync.Mutex
	latest  gocv.Mat
	current gocv.Mat
	fresh   bool
	dropped uint64
	ready   chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{
		latest:  gocv.NewMat(),
		current: gocv.NewMat(),
		ready:   make(chan struct{}, 1),
	}
}

// put swaps buf into the slot and returns the Mat the producer should fill
// next. An unread frame in the slot is dropped.
func (mb *mailbox) put(buf gocv.Mat) gocv.Mat {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if mb.fresh {
		mb.dropped++
	}
	mb.latest, buf = buf, mb.latest
	mb.fresh = true

	select {
	case mb.ready <- struct{}{}:
	default:
	}
	return buf
}

// take returns the newest frame if one arrived since the previous take. The
// Mat stays valid until the next successful take.
func (mb *mailbox) take() (gocv.Mat, bool) {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if !mb.fresh {
		return gocv.Mat{}, false
	}
	mb.latest, mb.current = mb.current, mb.latest
	mb.fresh = false
	return mb.current, true
}

func (mb *mailbox) droppedFrames() uint64 {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return mb.dropped
}

func (mb *mailbox) close() {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.latest.Close()
	mb.current.Close()
	mb.fresh = false
}
