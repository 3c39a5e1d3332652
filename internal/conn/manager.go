// Package conn maintains one logical sync connection: it dials the
// transport, reconnects with exponential backoff, decodes inbound envelopes,
// and hands them to a router. Transport health is published on the
// connected, disconnected, and error lifecycle topics.
package conn

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"posync/internal/domain"
	"posync/internal/router"
	"posync/internal/util"
)

// Defaults applied by New for zero-valued Options fields.
const (
	DefaultBaseDelay    = time.Second
	DefaultMaxAttempts  = 5
	DefaultDialTimeout  = 10 * time.Second
	DefaultWriteTimeout = 5 * time.Second
	DefaultSendBuffer   = 64
)

// Timer is a pending backoff timer.
type Timer interface {
	Stop() bool
}

// Options configures a Manager.
type Options struct {
	BaseDelay    time.Duration
	MaxAttempts  int
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	SendBuffer   int

	Dialer Dialer
	// AfterFunc schedules backoff timers; defaults to time.AfterFunc.
	AfterFunc func(d time.Duration, f func()) Timer
	// Now stamps outbound envelopes; defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

// Status is a point-in-time view of the manager.
type Status struct {
	Connected         bool                   `json:"connected"`
	ReconnectAttempts int                    `json:"reconnectAttempts"`
	State             domain.ConnectionState `json:"state"`
}

// LifecycleEvent is the payload of the lifecycle topics.
type LifecycleEvent struct {
	Status
	Code      int    `json:"code,omitempty"`
	Error     string `json:"error,omitempty"`
	Exhausted bool   `json:"exhausted,omitempty"`
}

// Manager owns a single logical connection and its reconnect state machine.
// Create one with New; the zero value is not usable.
type Manager struct {
	opts   Options
	router *router.Router
	log    *slog.Logger

	mu        sync.Mutex
	state     domain.ConnectionState
	attempts  int
	url       string
	gen       uint64 // bumped whenever in-flight goroutines become stale
	cancel    context.CancelFunc
	transport Transport
	outbox    chan []byte
	timer     Timer
}

// New creates a Manager that dispatches decoded envelopes to r.
func New(r *router.Router, opts Options) *Manager {
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultBaseDelay
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = DefaultDialTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = DefaultSendBuffer
	}
	if opts.Dialer == nil {
		opts.Dialer = WebSocketDialer{}
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		opts:   opts,
		router: r,
		log:    log.With("component", "conn"),
		state:  domain.StateDisconnected,
	}
}

// Connect starts connecting to url. It is a no-op while already connecting
// or connected. From Reconnecting it cancels the pending backoff and dials
// immediately; from Closed it starts over with a fresh attempt counter.
// Connect never blocks on I/O.
func (m *Manager) Connect(url string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case domain.StateConnecting, domain.StateConnected:
		return
	case domain.StateClosed:
		m.attempts = 0
	}
	m.stopTimerLocked()
	m.url = url
	m.startLocked()
}

// ErrNoURL is returned by Reconnect when Connect has never been called.
var ErrNoURL = errors.New("no sync url to reconnect to")

// Reconnect calls Connect with the most recent url. It is the manual
// recovery path after reconnect attempts are exhausted.
func (m *Manager) Reconnect() error {
	m.mu.Lock()
	url := m.url
	m.mu.Unlock()
	if url == "" {
		return ErrNoURL
	}
	m.Connect(url)
	return nil
}

// Send encodes payload in an envelope of msgType and queues it on the open
// connection. When not connected the message is dropped with a warning.
// There is no retry and nothing is kept for a later connection.
func (m *Manager) Send(msgType string, payload any) {
	m.mu.Lock()
	state, out := m.state, m.outbox
	m.mu.Unlock()

	if state != domain.StateConnected || out == nil {
		m.log.Warn("send while not connected, dropping message", "type", msgType, "state", state.String())
		return
	}

	env, err := domain.NewEnvelope(msgType, payload, m.opts.Now())
	if err != nil {
		m.log.Warn("encoding outbound payload", "type", msgType, "error", err)
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		m.log.Warn("encoding outbound envelope", "type", msgType, "error", err)
		return
	}

	select {
	case out <- data:
	default:
		m.log.Warn("send buffer full, dropping message", "type", msgType)
	}
}

// Disconnect cancels any pending reconnect, closes the transport with code
// 1000, and moves to Closed. Calling it again is a no-op.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if m.state == domain.StateClosed {
		m.mu.Unlock()
		return
	}
	m.stopTimerLocked()
	t, cancel := m.transport, m.cancel
	m.transport, m.outbox, m.cancel = nil, nil, nil
	m.gen++
	m.state = domain.StateClosed
	ev := LifecycleEvent{Status: m.statusLocked()}
	m.mu.Unlock()

	if t != nil {
		if err := t.Close(CloseNormal, "client disconnect"); err != nil {
			m.log.Debug("closing transport", "error", err)
		}
	}
	if cancel != nil {
		cancel()
	}
	m.log.Info("disconnected by client")
	m.publish(domain.TopicDisconnected, ev)
}

// Status returns the current connection status.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusLocked()
}

func (m *Manager) statusLocked() Status {
	return Status{
		Connected:         m.state == domain.StateConnected,
		ReconnectAttempts: m.attempts,
		State:             m.state,
	}
}

func (m *Manager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// startLocked begins one connection attempt on a new generation.
func (m *Manager) startLocked() {
	if m.cancel != nil {
		m.cancel()
	}
	m.gen++
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.state = domain.StateConnecting
	go m.run(ctx, m.gen, m.url)
}

// run dials and, once open, pumps inbound frames until the transport ends.
func (m *Manager) run(ctx context.Context, gen uint64, url string) {
	dctx, dcancel := context.WithTimeout(ctx, m.opts.DialTimeout)
	t, err := m.opts.Dialer.Dial(dctx, url)
	dcancel()
	if err != nil {
		m.fail(gen, err, false)
		return
	}

	out := make(chan []byte, m.opts.SendBuffer)
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		_ = t.Close(CloseNormal, "superseded")
		return
	}
	m.transport = t
	m.outbox = out
	m.attempts = 0
	m.state = domain.StateConnected
	ev := LifecycleEvent{Status: m.statusLocked()}
	m.mu.Unlock()

	m.log.Info("connected", "url", url)
	m.publish(domain.TopicConnected, ev)

	go m.writeLoop(ctx, t, out)

	for {
		data, err := t.Read(ctx)
		if err != nil {
			m.closed(gen, err)
			return
		}
		m.handleFrame(data)
	}
}

func (m *Manager) writeLoop(ctx context.Context, t Transport, out <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-out:
			wctx, cancel := context.WithTimeout(ctx, m.opts.WriteTimeout)
			err := t.Write(wctx, data)
			cancel()
			if err != nil {
				m.log.Warn("write failed", "error", err)
			}
		}
	}
}

// handleFrame decodes one inbound frame and dispatches it. Malformed frames
// and unrecognized types are logged and dropped; neither affects state.
func (m *Manager) handleFrame(data []byte) {
	var env domain.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		m.log.Warn("dropping malformed envelope", "error", err, "bytes", len(data))
		return
	}
	if env.Type == "" {
		m.log.Warn("dropping envelope without type", "bytes", len(data))
		return
	}
	if !domain.KnownMessageType(env.Type) {
		m.log.Info("ignoring unrecognized message type", "type", env.Type)
		return
	}
	m.router.Dispatch(env)
}

// closed handles the end of an open connection.
func (m *Manager) closed(gen uint64, err error) {
	code, clean := closeInfo(err)
	if code != CloseNormal || !clean {
		m.fail(gen, err, true)
		return
	}

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.releaseLocked()
	m.state = domain.StateDisconnected
	ev := LifecycleEvent{Status: m.statusLocked(), Code: code}
	m.mu.Unlock()

	m.log.Info("server closed connection", "code", code)
	m.publish(domain.TopicDisconnected, ev)
}

// fail moves a failed attempt or dropped connection to Reconnecting, or to
// Closed once attempts are exhausted.
func (m *Manager) fail(gen uint64, cause error, wasConnected bool) {
	code, _ := closeInfo(cause)

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.releaseLocked()
	if wasConnected {
		m.log.Warn("connection lost", "code", code, "error", cause)
	} else {
		m.log.Warn("connect failed", "url", m.url, "error", cause)
	}

	if m.attempts >= m.opts.MaxAttempts {
		m.gen++
		m.state = domain.StateClosed
		st := m.statusLocked()
		m.mu.Unlock()

		m.log.Error("reconnect attempts exhausted", "attempts", st.ReconnectAttempts)
		m.publish(domain.TopicError, LifecycleEvent{Status: st, Code: code, Error: cause.Error(), Exhausted: true})
		m.publish(domain.TopicDisconnected, LifecycleEvent{Status: st, Code: code})
		return
	}

	m.attempts++
	delay := util.Backoff(m.opts.BaseDelay, m.attempts)
	m.state = domain.StateReconnecting
	m.timer = m.opts.AfterFunc(delay, func() { m.retry(gen) })
	st := m.statusLocked()
	m.mu.Unlock()

	m.log.Info("reconnect scheduled", "attempt", st.ReconnectAttempts, "delay", delay)
	if wasConnected {
		m.publish(domain.TopicDisconnected, LifecycleEvent{Status: st, Code: code})
	}
	m.publish(domain.TopicError, LifecycleEvent{Status: st, Code: code, Error: cause.Error()})
}

// retry fires when a backoff timer expires.
func (m *Manager) retry(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen || m.state != domain.StateReconnecting {
		return
	}
	m.timer = nil
	m.startLocked()
}

func (m *Manager) releaseLocked() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.transport = nil
	m.outbox = nil
}

func (m *Manager) publish(topic string, ev LifecycleEvent) {
	env, err := domain.NewEnvelope(topic, ev, m.opts.Now())
	if err != nil {
		m.log.Error("encoding lifecycle event", "topic", topic, "error", err)
		return
	}
	m.router.Dispatch(env)
}
