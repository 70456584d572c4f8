package connection

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/lexflow-notify/internal/metrics"
)

// Manager owns one logical connection to the notification endpoint.
//
// All state transitions happen under mu. Callbacks carry the generation of
// the transport that produced them, and retry timers carry their own
// pendingRetry, so events from a superseded transport or a cancelled timer
// are ignored.
type Manager struct {
	cfg          ManagerConfig
	newTransport TransportFactory
	handler      FrameHandler
	sched        Scheduler
	metrics      *metrics.Metrics
	logger       *slog.Logger

	mu        sync.Mutex
	state     State
	transport Transport
	gen       uint64
	session   string
	attempts  int
	pending   *pendingRetry

	// Stats
	dials       int64
	opens       int64
	lastOpenAt  time.Time
	lastCloseAt time.Time
}

// pendingRetry is the single armed reconnect timer.
type pendingRetry struct {
	timer Timer
	delay time.Duration
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithScheduler replaces the timer source used for retries.
func WithScheduler(s Scheduler) ManagerOption {
	return func(m *Manager) { m.sched = s }
}

// WithMetrics records connection lifecycle metrics.
func WithMetrics(mt *metrics.Metrics) ManagerOption {
	return func(m *Manager) { m.metrics = mt }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

// NewManager creates a Connection Manager in the idle state.
func NewManager(cfg ManagerConfig, factory TransportFactory, handler FrameHandler, opts ...ManagerOption) *Manager {
	m := &Manager{
		cfg:          cfg,
		newTransport: factory,
		handler:      handler,
		sched:        realScheduler{},
		state:        StateIdle,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// Run connects and blocks until ctx is done, then disconnects.
func (m *Manager) Run(ctx context.Context) error {
	m.Connect()
	<-ctx.Done()
	m.Disconnect()
	return nil
}

// Connect opens a transport unless one is already open or opening.
//
// From idle or terminal the attempt count starts over. From pending_retry
// the armed timer is cancelled and the attempt count is kept, so the retry
// ceiling still applies.
func (m *Manager) Connect() {
	m.mu.Lock()
	switch m.state {
	case StateConnecting, StateOpen:
		m.mu.Unlock()
		return
	case StatePendingRetry:
		m.cancelRetryLocked()
	default:
		m.attempts = 0
	}
	t := m.dialLocked()
	m.mu.Unlock()

	t.Open(context.Background())
}

// Disconnect tears down the connection and suppresses any reconnect.
// Safe to call repeatedly.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.cancelRetryLocked()

	t := m.transport
	if t != nil {
		// Detach before closing so the close cannot schedule a retry
		t.OnClose(nil)
		t.OnError(nil)
	}

	prev := m.state
	m.transport = nil
	m.gen++
	m.session = ""
	m.attempts = 0
	m.setStateLocked(StateIdle)
	m.mu.Unlock()

	if t != nil {
		if err := t.Close(); err != nil {
			m.logger.Debug("transport close failed", "error", err)
		}
	}

	if prev != StateIdle {
		m.logger.Info("disconnected", "previous_state", prev.String())
	}
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Attempts returns the number of retries scheduled since the last open.
func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// Stats returns current connection statistics.
func (m *Manager) Stats() ManagerStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	return ManagerStats{
		State:       m.state.String(),
		Attempts:    m.attempts,
		Session:     m.session,
		Dials:       m.dials,
		Opens:       m.opens,
		LastOpenAt:  m.lastOpenAt,
		LastCloseAt: m.lastCloseAt,
	}
}

// dialLocked creates and wires a new transport. The caller opens it after unlocking.
func (m *Manager) dialLocked() Transport {
	t := m.newTransport()

	m.gen++
	gen := m.gen
	m.transport = t
	m.session = uuid.NewString()
	m.dials++

	t.OnOpen(func() { m.handleOpen(gen) })
	t.OnMessage(func(data []byte) { m.handleMessage(gen, data) })
	t.OnClose(func(err error) { m.handleClose(gen, err) })
	t.OnError(func(err error) { m.handleError(gen, err) })

	m.setStateLocked(StateConnecting)
	m.metrics.ConnectAttempt()

	m.logger.Info("connecting",
		"session", m.session,
		"attempt", m.attempts,
	)

	return t
}

// handleOpen resets retry state on a successful open.
func (m *Manager) handleOpen(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.currentLocked(gen) {
		return
	}

	m.attempts = 0
	m.cancelRetryLocked()
	m.opens++
	m.lastOpenAt = time.Now()
	m.setStateLocked(StateOpen)
	m.metrics.ConnectionOpened()

	m.logger.Info("connected", "session", m.session)
}

// handleMessage passes a frame to the handler outside the lock.
func (m *Manager) handleMessage(gen uint64, data []byte) {
	m.mu.Lock()
	current := m.currentLocked(gen)
	m.mu.Unlock()

	if !current || m.handler == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			m.logger.Warn("frame handler panicked", "panic", r)
		}
	}()
	m.handler.HandleFrame(data)
}

// handleClose schedules a reconnect or goes terminal.
func (m *Manager) handleClose(gen uint64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.currentLocked(gen) {
		return
	}

	session := m.session
	m.transport = nil
	m.lastCloseAt = time.Now()
	m.metrics.ConnectionClosed()

	m.logger.Info("connection closed", "session", session, "error", err)

	m.scheduleRetryLocked()
}

// handleError only logs; the close that follows drives reconnection.
func (m *Manager) handleError(gen uint64, err error) {
	m.mu.Lock()
	current := m.currentLocked(gen)
	session := m.session
	m.mu.Unlock()

	if current {
		m.logger.Debug("transport error", "session", session, "error", err)
	}
}

// scheduleRetryLocked arms one retry timer, or enters terminal at the ceiling.
func (m *Manager) scheduleRetryLocked() {
	m.cancelRetryLocked()

	if !m.cfg.Backoff.Allows(m.attempts) {
		m.setStateLocked(StateTerminal)
		m.metrics.RetryExhausted()
		m.logger.Warn("reconnect attempts exhausted",
			"attempts", m.attempts,
			"max_attempts", m.cfg.Backoff.MaxAttempts,
		)
		return
	}

	delay := m.cfg.Backoff.Delay(m.attempts)
	m.attempts++

	p := &pendingRetry{delay: delay}
	p.timer = m.sched.AfterFunc(delay, func() { m.retry(p) })
	m.pending = p

	m.setStateLocked(StatePendingRetry)
	m.metrics.RetryScheduled(delay)

	m.logger.Info("reconnect scheduled",
		"delay", delay,
		"attempt", m.attempts,
		"max_attempts", m.cfg.Backoff.MaxAttempts,
	)
}

// retry fires when p's delay elapses.
func (m *Manager) retry(p *pendingRetry) {
	m.mu.Lock()
	if m.pending != p || m.state != StatePendingRetry {
		m.mu.Unlock()
		return
	}
	m.pending = nil
	t := m.dialLocked()
	m.mu.Unlock()

	t.Open(context.Background())
}

func (m *Manager) cancelRetryLocked() {
	if m.pending == nil {
		return
	}
	m.pending.timer.Stop()
	m.pending = nil
}

func (m *Manager) currentLocked(gen uint64) bool {
	return gen == m.gen && m.transport != nil
}

func (m *Manager) setStateLocked(s State) {
	m.state = s
	m.metrics.SetState(s.String())
}
