// Package shutdown stops registered components in reverse order when the
// process is asked to exit.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"freeswim-tracker/internal/logger"
)

// DefaultTimeout bounds how long one component may take to stop.
const DefaultTimeout = 10 * time.Second

type Shutdownable interface {
	Shutdown()
}

// Func adapts a plain function to Shutdownable.
type Func func()

func (f Func) Shutdown() { f() }

type component struct {
	name string
	c    Shutdownable
}

type Manager struct {
	components []component
	logger     logger.Logger
	timeout    time.Duration
	mu         sync.Mutex
	done       chan struct{}
	finished   chan struct{}
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewManager(log logger.Logger, timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		logger:   log,
		timeout:  timeout,
		done:     make(chan struct{}),
		finished: make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Register adds a component. Components stop in the reverse of the order
// they were registered, so register producers before their consumers' sinks.
func (m *Manager) Register(name string, c Shutdownable) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.components = append(m.components, component{name: name, c: c})
}

// Listen starts shutdown on SIGINT or SIGTERM.
func (m *Manager) Listen() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			m.logger.Info("ShutdownManager", "shutdown signal received", map[string]interface{}{
				"signal": sig.String(),
			})
			m.Shutdown()
		case <-m.done:
		}
	}()
}

// Shutdown cancels Context and stops every component. Later calls return
// immediately.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	select {
	case <-m.done:
		m.mu.Unlock()
		return
	default:
		close(m.done)
	}
	components := append([]component(nil), m.components...)
	m.mu.Unlock()

	m.logger.Info("ShutdownManager", "shutdown sequence initiated", map[string]interface{}{
		"components": len(components),
	})

	m.cancel()

	for i := len(components) - 1; i >= 0; i-- {
		comp := components[i]

		finished := make(chan struct{})
		go func() {
			defer close(finished)
			comp.c.Shutdown()
		}()

		timer := time.NewTimer(m.timeout)
		select {
		case <-finished:
			m.logger.Debug("ShutdownManager", "component stopped", map[string]interface{}{
				"component": comp.name,
			})
		case <-timer.C:
			m.logger.Warning("ShutdownManager", "component shutdown timeout", map[string]interface{}{
				"component": comp.name,
				"timeout":   m.timeout.String(),
			})
		}
		timer.Stop()
	}

	m.logger.Info("ShutdownManager", "shutdown sequence completed", nil)
	close(m.finished)
}

// Context is cancelled when shutdown starts.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Done is closed when shutdown starts.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Wait blocks until every component has been stopped.
func (m *Manager) Wait() {
	<-m.finished
}
