// Package hooks is the engagement lifecycle event bus.
package hooks

import (
	"context"
	"sync"
	"time"

	"github.com/soyeahso/honeypot/internal/logging"
)

// Event names.
const (
	EventSessionCreated     = "session_created"
	EventMessageReceived    = "message_received"
	EventIntelligenceMerged = "intelligence_merged"
	EventScamDetected       = "scam_detected"
	EventVerdictReached     = "verdict_reached"
	EventReplyGenerated     = "reply_generated"
	EventReplyFallback      = "reply_fallback"
	EventRateLimitWait      = "rate_limit_wait"
	EventEngagementEnded    = "engagement_ended"
	EventReportDispatched   = "report_dispatched"
	EventServerStart        = "server_start"
	EventServerStop         = "server_stop"
)

// AllEvents lists all known event names.
var AllEvents = []string{
	EventSessionCreated,
	EventMessageReceived,
	EventIntelligenceMerged,
	EventScamDetected,
	EventVerdictReached,
	EventReplyGenerated,
	EventReplyFallback,
	EventRateLimitWait,
	EventEngagementEnded,
	EventReportDispatched,
	EventServerStart,
	EventServerStop,
}

// Wildcard subscribes a handler to every event.
const Wildcard = "*"

// Payload carries event data to handlers.
type Payload struct {
	Event     string         `json:"event"`
	SessionID string         `json:"sessionId,omitempty"`
	Time      time.Time      `json:"time"`
	Data      map[string]any `json:"data,omitempty"`
}

// Handler handles one event. A returned error is logged and does not stop
// other handlers.
type Handler func(ctx context.Context, p Payload) error

// Manager manages registrations and dispatches events.
type Manager struct {
	mu       sync.RWMutex
	handlers map[string][]namedHandler
	inflight sync.WaitGroup
	log      *logging.Logger
}

type namedHandler struct {
	name    string
	handler Handler
}

// NewManager creates a hook manager.
func NewManager(log *logging.Logger) *Manager {
	return &Manager{
		handlers: make(map[string][]namedHandler),
		log:      log.Sub("hooks"),
	}
}

// On registers a handler for event, or for every event when event is
// Wildcard.
func (m *Manager) On(event, name string, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[event] = append(m.handlers[event], namedHandler{name: name, handler: handler})
	m.log.Debug().Str("event", event).Str("handler", name).Msg("hook registered")
}

// Off removes all handlers with the given name from the event.
func (m *Manager) Off(event, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	filtered := m.handlers[event][:0:0]
	for _, h := range m.handlers[event] {
		if h.name != name {
			filtered = append(filtered, h)
		}
	}
	m.handlers[event] = filtered
}

func (m *Manager) snapshot(event string) []namedHandler {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]namedHandler, 0, len(m.handlers[event])+len(m.handlers[Wildcard]))
	out = append(out, m.handlers[event]...)
	return append(out, m.handlers[Wildcard]...)
}

// Emit dispatches synchronously, in registration order, event-specific
// handlers before wildcard ones.
func (m *Manager) Emit(ctx context.Context, event, sessionID string, data map[string]any) {
	handlers := m.snapshot(event)
	if len(handlers) == 0 {
		return
	}
	p := Payload{Event: event, SessionID: sessionID, Time: time.Now(), Data: data}
	for _, h := range handlers {
		m.call(ctx, h, p)
	}
}

// EmitAsync dispatches each handler on its own goroutine and returns
// immediately. Use Drain to wait for outstanding handlers.
func (m *Manager) EmitAsync(ctx context.Context, event, sessionID string, data map[string]any) {
	handlers := m.snapshot(event)
	if len(handlers) == 0 {
		return
	}
	p := Payload{Event: event, SessionID: sessionID, Time: time.Now(), Data: data}
	for _, h := range handlers {
		m.inflight.Add(1)
		go func() {
			defer m.inflight.Done()
			m.call(ctx, h, p)
		}()
	}
}

func (m *Manager) call(ctx context.Context, h namedHandler, p Payload) {
	if err := h.handler(ctx, p); err != nil {
		m.log.Warn().
			Err(err).
			Str("event", p.Event).
			Str("handler", h.name).
			Str("session", p.SessionID).
			Msg("hook handler error")
	}
}

// Drain waits for async handlers to finish or ctx to expire.
func (m *Manager) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Count returns the number of handlers registered for an event.
func (m *Manager) Count(event string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handlers[event])
}
