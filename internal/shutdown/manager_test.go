package shutdown

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"freeswim-tracker/internal/logger"
)

func TestManager_StopsInReverseOrder(t *testing.T) {
	m := NewManager(logger.NoOpLogger{}, time.Second)

	var mu sync.Mutex
	var order []string
	record := func(name string) Func {
		return func() {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		}
	}
	m.Register("camera", record("camera"))
	m.Register("runner", record("runner"))
	m.Register("recorder", record("recorder"))

	m.Shutdown()

	assert.Equal(t, []string{"recorder", "runner", "camera"}, order)
	assert.Error(t, m.Context().Err())
	select {
	case <-m.Done():
	default:
		t.Fatal("done not closed")
	}
}

func TestManager_ShutdownOnce(t *testing.T) {
	m := NewManager(logger.NoOpLogger{}, time.Second)

	calls := 0
	m.Register("counter", Func(func() { calls++ }))

	m.Shutdown()
	m.Shutdown()

	assert.Equal(t, 1, calls)
}

func TestManager_SlowComponentDoesNotBlock(t *testing.T) {
	m := NewManager(logger.NoOpLogger{}, 20*time.Millisecond)

	release := make(chan struct{})
	defer close(release)
	m.Register("stuck", Func(func() { <-release }))

	stopped := false
	m.Register("after", Func(func() {}))
	m.Register("first", Func(func() { stopped = true }))

	start := time.Now()
	m.Shutdown()

	assert.True(t, stopped)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNewManager_DefaultTimeout(t *testing.T) {
	m := NewManager(logger.NoOpLogger{}, 0)
	assert.Equal(t, DefaultTimeout, m.timeout)
}

func TestManager_WaitReturnsAfterComponentsStop(t *testing.T) {
	m := NewManager(logger.NoOpLogger{}, time.Second)

	stopped := make(chan struct{})
	m.Register("slow", Func(func() {
		time.Sleep(10 * time.Millisecond)
		close(stopped)
	}))

	go m.Shutdown()
	m.Wait()

	select {
	case <-stopped:
	default:
		t.Fatal("Wait returned before the component stopped")
	}
}
