package live

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/wlanmon/internal/clock"
	"github.com/HerbHall/wlanmon/pkg/models"
)

// DefaultConnectTimeout bounds a single connection attempt.
const DefaultConnectTimeout = 10 * time.Second

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("live: manager closed")

// Options configures a Manager. Zero values fall back to defaults.
type Options struct {
	Endpoint       string
	ConnectTimeout time.Duration
	Backoff        Backoff
	Clock          clock.Clock
	Logger         *zap.Logger

	// OnStatus is called on every status change. OnMessage is called for
	// every inbound frame and for locally generated connect_error messages.
	// Both are invoked in order, outside the manager's state lock, and must
	// not call Start.
	OnStatus  func(models.ConnectionState)
	OnMessage func(Message)
}

// Manager keeps one live connection open, reconnecting with backoff until
// Close. All transitions are tagged with a generation number so results from
// abandoned attempts are discarded.
type Manager struct {
	transport Transport
	opts      Options
	logger    *zap.Logger
	clock     clock.Clock

	emitMu sync.Mutex // orders hook delivery

	mu         sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
	started    bool
	closed     bool
	gen        uint64
	status     models.ConnectionStatus
	attempt    int
	conn       Conn
	cancelDial context.CancelFunc
	timeout    clock.Timer
	retry      clock.Timer
}

// NewManager creates a Manager in the connecting state. Call Start to begin
// the first attempt.
func NewManager(transport Transport, opts Options) *Manager {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.Backoff.Base <= 0 {
		opts.Backoff = DefaultBackoff
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Manager{
		transport: transport,
		opts:      opts,
		logger:    opts.Logger,
		clock:     opts.Clock,
		status:    models.ConnectionConnecting,
	}
}

// Start begins connecting. It returns immediately; progress is reported
// through the hooks.
func (m *Manager) Start(ctx context.Context) error {
	var err error
	m.do(func() []func() {
		if m.closed {
			err = ErrClosed
			return nil
		}
		if m.started {
			err = fmt.Errorf("live: manager already started")
			return nil
		}
		m.started = true
		m.ctx, m.cancel = context.WithCancel(ctx)
		return m.connectLocked()
	})
	return err
}

// Send transmits payload if the connection is up. It reports whether the
// payload was handed to the transport; otherwise it is discarded.
func (m *Manager) Send(ctx context.Context, payload []byte) bool {
	m.mu.Lock()
	if m.closed || m.status != models.ConnectionConnected || m.conn == nil {
		m.mu.Unlock()
		m.logger.Debug("send discarded, not connected")
		return false
	}
	conn := m.conn
	m.mu.Unlock()

	if err := conn.Send(ctx, payload); err != nil {
		m.logger.Warn("send failed", zap.Error(err))
		return false
	}
	return true
}

// State returns the current status and reconnect attempt.
func (m *Manager) State() models.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return models.ConnectionState{Status: m.status, ReconnectAttempt: m.attempt}
}

// Close stops all timers and closes the connection. It is safe to call from
// any state and more than once.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.gen++
	m.stopTimersLocked()
	if m.cancelDial != nil {
		m.cancelDial()
		m.cancelDial = nil
	}
	if m.cancel != nil {
		m.cancel()
	}
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

// do runs fn under the state lock and then delivers the hooks it returned,
// in order, before any later transition can deliver its own.
func (m *Manager) do(fn func() []func()) {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()

	m.mu.Lock()
	notes := fn()
	m.mu.Unlock()

	for _, n := range notes {
		n()
	}
}

func (m *Manager) connectLocked() []func() {
	m.gen++
	gen := m.gen
	m.status = models.ConnectionConnecting

	dctx, cancel := context.WithCancel(m.ctx)
	m.cancelDial = cancel
	m.timeout = m.clock.AfterFunc(m.opts.ConnectTimeout, func() { m.onTimeout(gen) })

	m.logger.Debug("connecting",
		zap.String("endpoint", m.opts.Endpoint),
		zap.Int("attempt", m.attempt),
	)
	go m.dial(dctx, gen)

	return []func(){m.statusNote()}
}

func (m *Manager) dial(ctx context.Context, gen uint64) {
	conn, err := m.transport.Dial(ctx, m.opts.Endpoint)

	m.do(func() []func() {
		if m.closed || gen != m.gen {
			if conn != nil {
				_ = conn.Close()
			}
			return nil
		}
		m.stopTimersLocked()
		if err != nil {
			return m.failLocked(models.ConnectionError, fmt.Sprintf("connect failed: %v", err))
		}

		m.conn = conn
		m.status = models.ConnectionConnected
		m.attempt = 0
		m.logger.Info("live connection established", zap.String("endpoint", m.opts.Endpoint))
		go m.read(conn, gen)
		return []func(){m.statusNote()}
	})
}

func (m *Manager) onTimeout(gen uint64) {
	m.do(func() []func() {
		if m.closed || gen != m.gen || m.status != models.ConnectionConnecting {
			return nil
		}
		m.timeout = nil
		return m.failLocked(models.ConnectionError,
			fmt.Sprintf("connection timed out after %s", m.opts.ConnectTimeout))
	})
}

func (m *Manager) read(conn Conn, gen uint64) {
	ctx := m.readContext()
	for {
		frame, err := conn.Receive(ctx)
		if err != nil {
			m.do(func() []func() {
				if m.closed || gen != m.gen {
					return nil
				}
				m.conn = nil
				_ = conn.Close()
				return m.failLocked(models.ConnectionDisconnected, fmt.Sprintf("connection lost: %v", err))
			})
			return
		}

		msg := Normalize(frame)
		stale := false
		m.do(func() []func() {
			if m.closed || gen != m.gen {
				stale = true
				return nil
			}
			if m.opts.OnMessage == nil {
				return nil
			}
			return []func(){func() { m.opts.OnMessage(msg) }}
		})
		if stale {
			return
		}
	}
}

func (m *Manager) readContext() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ctx
}

// failLocked ends the current attempt with status and schedules the next
// one after the backoff delay.
func (m *Manager) failLocked(status models.ConnectionStatus, reason string) []func() {
	m.gen++
	gen := m.gen
	if m.cancelDial != nil {
		m.cancelDial()
		m.cancelDial = nil
	}
	m.status = status
	m.attempt = m.opts.Backoff.Next(m.attempt)
	delay := m.opts.Backoff.Delay(m.attempt)
	m.retry = m.clock.AfterFunc(delay, func() { m.onRetry(gen) })

	m.logger.Warn("live connection failed",
		zap.String("status", string(status)),
		zap.String("reason", reason),
		zap.Int("attempt", m.attempt),
		zap.Duration("retry_in", delay),
	)

	notes := []func(){m.statusNote()}
	if m.opts.OnMessage != nil {
		msg := ConnectError(reason)
		notes = append(notes, func() { m.opts.OnMessage(msg) })
	}
	return notes
}

func (m *Manager) onRetry(gen uint64) {
	m.do(func() []func() {
		if m.closed || gen != m.gen {
			return nil
		}
		m.retry = nil
		return m.connectLocked()
	})
}

func (m *Manager) stopTimersLocked() {
	if m.timeout != nil {
		m.timeout.Stop()
		m.timeout = nil
	}
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
}

func (m *Manager) statusNote() func() {
	st := models.ConnectionState{Status: m.status, ReconnectAttempt: m.attempt}
	return func() {
		if m.opts.OnStatus != nil {
			m.opts.OnStatus(st)
		}
	}
}
