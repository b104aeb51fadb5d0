package memory

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"freeswim-tracker/internal/logger"
	"freeswim-tracker/internal/opencv/safe"
)

const defaultPoolDepth = 8

// Manager hands out frame-sized output Mats and takes them back when their
// last reader releases them, so steady-state tracking allocates nothing.
type Manager struct {
	pools     map[PoolKey]*Pool
	mu        sync.Mutex
	stats     Stats
	poolDepth int
	closed    bool
	logger    logger.Logger
}

type PoolKey struct {
	Rows    int
	Cols    int
	MatType gocv.MatType
}

type Stats struct {
	Allocated  int64
	Recycled   int64
	Discarded  int64
	PoolHits   int64
	PoolMisses int64
}

func NewManager(log logger.Logger) *Manager {
	if log == nil {
		log = logger.NoOpLogger{}
	}
	return &Manager{
		pools:     make(map[PoolKey]*Pool),
		poolDepth: defaultPoolDepth,
		logger:    log,
	}
}

// GetMat returns a Mat with a single reference. Its contents are whatever
// the previous user left behind.
func (m *Manager) GetMat(rows, cols int, matType gocv.MatType, tag string) (*safe.Mat, error) {
	key := PoolKey{Rows: rows, Cols: cols, MatType: matType}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, fmt.Errorf("memory manager is shut down")
	}
	pool := m.poolFor(key)
	m.mu.Unlock()

	if mat := pool.Get(); mat != nil {
		mat.Reuse()
		m.mu.Lock()
		m.stats.PoolHits++
		m.mu.Unlock()
		return mat, nil
	}

	mat, err := safe.NewMatWithTag(rows, cols, matType, tag)
	if err != nil {
		return nil, err
	}
	mat.SetRecycler(m)

	m.mu.Lock()
	m.stats.PoolMisses++
	m.stats.Allocated++
	m.mu.Unlock()

	m.logger.Debug("MemoryManager", "allocated Mat", map[string]interface{}{
		"tag":  tag,
		"size": fmt.Sprintf("%dx%d", cols, rows),
	})
	return mat, nil
}

// Recycle implements safe.Recycler.
func (m *Manager) Recycle(mat *safe.Mat) bool {
	key := PoolKey{Rows: mat.Rows(), Cols: mat.Cols(), MatType: mat.Type()}

	m.mu.Lock()
	if m.closed {
		m.stats.Discarded++
		m.mu.Unlock()
		return false
	}
	pool := m.poolFor(key)
	m.mu.Unlock()

	ok := pool.Put(mat)

	m.mu.Lock()
	if ok {
		m.stats.Recycled++
	} else {
		m.stats.Discarded++
	}
	m.mu.Unlock()
	return ok
}

func (m *Manager) poolFor(key PoolKey) *Pool {
	pool, exists := m.pools[key]
	if !exists {
		pool = NewPool(m.poolDepth)
		m.pools[key] = pool
	}
	return pool
}

func (m *Manager) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// Shutdown closes every pooled Mat. Mats still referenced elsewhere close
// when their holders release them.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.closed = true
	pools := m.pools
	m.pools = make(map[PoolKey]*Pool)
	m.mu.Unlock()

	matCount := 0
	for _, pool := range pools {
		matCount += pool.Cleanup()
	}

	m.logger.Info("MemoryManager", "pools released", map[string]interface{}{
		"mats": matCount,
	})
}
