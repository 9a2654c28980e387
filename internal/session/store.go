// Package session owns per-conversation engagement state.
package session

import (
	"slices"
	"sync"
	"time"

	"github.com/soyeahso/honeypot/internal/domain"
	"github.com/soyeahso/honeypot/internal/logging"
)

// Store is the single source of truth for conversation state. Operations on
// different sessions never contend on the same lock; operations on one
// session are serialized.
//
// Write paths create unknown sessions. Read paths never do.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry

	now      func() time.Time
	onCreate func(id string)
	log      *logging.Logger
}

type entry struct {
	mu sync.Mutex

	id             string
	history        []domain.Message
	turnCount      int
	detected       bool
	confidence     domain.Confidence
	scamType       string
	intel          domain.Intelligence
	notes          []string
	startedAt      time.Time
	lastActivityAt time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithCreateHook registers fn to run after a session is created. It is
// called without any store lock held.
func WithCreateHook(fn func(id string)) Option {
	return func(s *Store) { s.onCreate = fn }
}

// NewStore creates an empty store.
func NewStore(log *logging.Logger, opts ...Option) *Store {
	s := &Store{
		sessions: make(map[string]*entry),
		now:      time.Now,
		log:      log.Sub("session"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// lookup returns the entry for id without creating it.
func (s *Store) lookup(id string) (*entry, bool) {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	return e, ok
}

// ensure returns the entry for id, creating it when absent.
func (s *Store) ensure(id string) (*entry, bool) {
	if e, ok := s.lookup(id); ok {
		return e, false
	}

	s.mu.Lock()
	if e, ok := s.sessions[id]; ok {
		s.mu.Unlock()
		return e, false
	}
	now := s.now()
	e := &entry{
		id:             id,
		intel:          domain.NewIntelligence(),
		startedAt:      now,
		lastActivityAt: now,
	}
	s.sessions[id] = e
	s.mu.Unlock()

	s.log.Info().Str("session", id).Msg("session created")
	if s.onCreate != nil {
		s.onCreate(id)
	}
	return e, true
}

// Ensure creates the session if it does not exist. It reports whether a new
// session was created.
func (s *Store) Ensure(id string) bool {
	_, created := s.ensure(id)
	return created
}

// AppendMessage appends a message and returns the session's turn count
// after the append. Only counterpart messages count as turns.
func (s *Store) AppendMessage(id string, sender domain.Sender, text string, ts time.Time) int {
	e, _ := s.ensure(id)
	if ts.IsZero() {
		ts = s.now()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.history = append(e.history, domain.Message{Sender: sender, Text: text, Timestamp: ts})
	if sender.IsCounterpart() {
		e.turnCount++
	}
	e.lastActivityAt = s.now()

	s.log.Debug().
		Str("session", id).
		Str("sender", string(sender)).
		Int("turn", e.turnCount).
		Int("messages", len(e.history)).
		Msg("message appended")
	return e.turnCount
}

// BulkLoadOnce seeds history from an upstream transcript. It only takes
// effect while the session history is empty and reports whether it did.
// Call it before appending the current message.
func (s *Store) BulkLoadOnce(id string, msgs []domain.Message) bool {
	e, _ := s.ensure(id)

	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.history) > 0 || len(msgs) == 0 {
		return false
	}
	e.history = slices.Clone(msgs)
	e.turnCount = 0
	for i := range e.history {
		if e.history[i].Timestamp.IsZero() {
			e.history[i].Timestamp = s.now()
		}
		if e.history[i].Sender.IsCounterpart() {
			e.turnCount++
		}
	}
	e.lastActivityAt = s.now()

	s.log.Info().
		Str("session", id).
		Int("messages", len(e.history)).
		Int("turn", e.turnCount).
		Msg("history loaded")
	return true
}

// MarkDetected records a detection. The detected flag is sticky, confidence
// only ever rises, the scam type is fixed by the first detection and notes
// are kept once each in insertion order.
func (s *Store) MarkDetected(id string, confidence domain.Confidence, scamType, note string) {
	e, _ := s.ensure(id)

	e.mu.Lock()
	defer e.mu.Unlock()

	first := !e.detected
	if first {
		e.detected = true
		e.scamType = scamType
	}
	if confidence.Higher(e.confidence) {
		e.confidence = confidence
	}
	if note != "" && !slices.Contains(e.notes, note) {
		e.notes = append(e.notes, note)
	}

	if first {
		s.log.Info().
			Str("session", id).
			Str("confidence", string(e.confidence)).
			Str("scamType", e.scamType).
			Msg("scam detected")
	}
}

// AddNote appends a reasoning note if it is not already present.
func (s *Store) AddNote(id, note string) {
	e, _ := s.ensure(id)

	e.mu.Lock()
	defer e.mu.Unlock()
	if note != "" && !slices.Contains(e.notes, note) {
		e.notes = append(e.notes, note)
	}
}

// MergeIntelligence unions extracted entities and indicator keywords into
// the session's accumulator and returns how many entries were new.
func (s *Store) MergeIntelligence(id string, extracted domain.Extraction, keywords []string) int {
	e, _ := s.ensure(id)

	e.mu.Lock()
	defer e.mu.Unlock()

	added := e.intel.Merge(extracted, keywords)
	if added > 0 {
		s.log.Info().
			Str("session", id).
			Int("new", added).
			Int("phones", len(e.intel.Phones)).
			Int("emails", len(e.intel.Emails)).
			Int("upiIds", len(e.intel.PaymentHandles)).
			Int("bankAccounts", len(e.intel.BankAccounts)).
			Int("links", len(e.intel.Links)).
			Msg("entity merged")
	}
	return added
}

// Snapshot returns an independent copy of the session, including its
// history. The second result is false when the session does not exist.
func (s *Store) Snapshot(id string) (domain.Snapshot, bool) {
	e, ok := s.lookup(id)
	if !ok {
		return domain.Snapshot{}, false
	}
	return e.snapshot(true), true
}

// Range calls fn with a history-free snapshot of every session until fn
// returns false.
func (s *Store) Range(fn func(domain.Snapshot) bool) {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.sessions))
	for _, e := range s.sessions {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	for _, e := range entries {
		if !fn(e.snapshot(false)) {
			return
		}
	}
}

// Len returns the number of sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (e *entry) snapshot(withHistory bool) domain.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := domain.Snapshot{
		ID:             e.id,
		TurnCount:      e.turnCount,
		MessageCount:   len(e.history),
		Detected:       e.detected,
		Confidence:     e.confidence,
		ScamType:       e.scamType,
		Intelligence:   e.intel.Report(),
		Notes:          append([]string{}, e.notes...),
		StartedAt:      e.startedAt,
		LastActivityAt: e.lastActivityAt,
	}
	if withHistory {
		snap.History = slices.Clone(e.history)
	}
	return snap
}
