package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SinkFactory builds the delivery sinks for one visitor session.
type SinkFactory func(studentID string) []Sink

// Manager keeps one poller per logged-in visitor. Starting an already
// polling session is a no-op; pollers exit on logout, shutdown, or after the
// idle limit, and may simply be started again.
type Manager struct {
	baseCtx   context.Context
	source    SnapshotSource
	sinks     SinkFactory
	interval  time.Duration
	idleLimit int
	logger    *slog.Logger

	mu       sync.Mutex
	sessions map[string]context.CancelFunc
	wg       sync.WaitGroup
}

// NewManager binds pollers to baseCtx: cancelling it stops every session.
func NewManager(baseCtx context.Context, source SnapshotSource, sinks SinkFactory, interval time.Duration, idleLimit int, logger *slog.Logger) *Manager {
	return &Manager{
		baseCtx:   baseCtx,
		source:    source,
		sinks:     sinks,
		interval:  interval,
		idleLimit: idleLimit,
		logger:    logger,
		sessions:  make(map[string]context.CancelFunc),
	}
}

// Start launches a poller for the visitor unless one is already running.
func (m *Manager) Start(studentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, running := m.sessions[studentID]; running {
		return
	}

	sessionCtx, cancel := context.WithCancel(m.baseCtx)
	m.sessions[studentID] = cancel

	poller := NewPoller(studentID, m.source, m.sinks(studentID), m.interval, m.idleLimit, m.logger)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.remove(studentID)
		poller.Run(sessionCtx)
	}()

	m.logger.Info("status poller started", "student_id", studentID)
}

// Stop cancels the visitor's poller if one is running.
func (m *Manager) Stop(studentID string) {
	m.mu.Lock()
	cancel, ok := m.sessions[studentID]
	m.mu.Unlock()
	if ok {
		cancel()
	}
}

// Shutdown cancels every poller and waits for them to drain.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	for _, cancel := range m.sessions {
		cancel()
	}
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *Manager) remove(studentID string) {
	m.mu.Lock()
	if cancel, ok := m.sessions[studentID]; ok {
		cancel()
		delete(m.sessions, studentID)
	}
	m.mu.Unlock()
}
