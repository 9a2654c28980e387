// Package engine sequences one engagement turn: bookkeeping, advisory
// detection, entity extraction, paced reply generation and the exit verdict.
package engine

import (
	"context"
	"strings"
	"time"

	"github.com/soyeahso/honeypot/internal/decision"
	"github.com/soyeahso/honeypot/internal/detect"
	"github.com/soyeahso/honeypot/internal/domain"
	"github.com/soyeahso/honeypot/internal/extract"
	"github.com/soyeahso/honeypot/internal/governor"
	"github.com/soyeahso/honeypot/internal/hooks"
	"github.com/soyeahso/honeypot/internal/llm"
	"github.com/soyeahso/honeypot/internal/logging"
	"github.com/soyeahso/honeypot/internal/persona"
	"github.com/soyeahso/honeypot/internal/session"
)

// Config holds the engine's tunables.
type Config struct {
	Policy       decision.Policy
	Persona      persona.Persona
	ReplyTimeout time.Duration
	MaxTokens    int
	Temperature  *float64
}

// Engine is the pipeline orchestrator.
type Engine struct {
	cfg      Config
	store    *session.Store
	governor *governor.Governor
	gen      llm.Client
	hooks    *hooks.Manager
	log      *logging.Logger
}

// New creates an engine. hk may be nil.
func New(cfg Config, store *session.Store, gov *governor.Governor, gen llm.Client, hk *hooks.Manager, log *logging.Logger) *Engine {
	if hk == nil {
		hk = hooks.NewManager(log)
	}
	return &Engine{
		cfg:      cfg,
		store:    store,
		governor: gov,
		gen:      gen,
		hooks:    hk,
		log:      log.Sub("engine"),
	}
}

// TurnRequest is one incoming counterpart message.
type TurnRequest struct {
	SessionID string
	Message   domain.Message
	// History is the upstream transcript preceding Message. It is only
	// used when the session has no history yet.
	History []domain.Message
}

// TurnResult is the outcome of ProcessTurn.
type TurnResult struct {
	SessionID     string          `json:"sessionId"`
	Turn          int             `json:"turn"`
	HistoryLoaded bool            `json:"historyLoaded,omitempty"`
	Signals       domain.Signals  `json:"signals"`
	NewEntities   int             `json:"newEntities"`
	Snapshot      domain.Snapshot `json:"snapshot"`
	Verdict       domain.Verdict  `json:"verdict"`
}

// ProcessTurn records a counterpart message and returns the updated
// intelligence, the advisory signals and the exit verdict. It never
// generates a reply; pass the agent's reply back through RecordReply.
func (e *Engine) ProcessTurn(ctx context.Context, req TurnRequest) TurnResult {
	id := req.SessionID
	msg := req.Message
	if msg.Sender == "" {
		msg.Sender = domain.SenderCounterpart
	}
	log := e.log.Session(id)

	res := TurnResult{SessionID: id}
	if len(req.History) > 0 {
		res.HistoryLoaded = e.store.BulkLoadOnce(id, req.History)
	}
	res.Turn = e.store.AppendMessage(id, msg.Sender, msg.Text, msg.Timestamp)
	e.hooks.Emit(ctx, hooks.EventMessageReceived, id, map[string]any{
		"turn":   res.Turn,
		"sender": string(msg.Sender),
	})

	// Only counterpart text is scored; agent text never raises detection.
	res.Signals = domain.Signals{Confidence: domain.ConfidenceLow, Indicators: []string{}, ScamType: domain.ScamTypeUnknown}
	if msg.Sender.IsCounterpart() {
		res.Signals = detect.Analyze(msg.Text)
	}
	if res.Signals.IsScam {
		e.store.MarkDetected(id, res.Signals.Confidence, res.Signals.ScamType,
			"Detected via indicators: "+strings.Join(res.Signals.Indicators, ", "))
		e.hooks.Emit(ctx, hooks.EventScamDetected, id, map[string]any{
			"confidence": string(res.Signals.Confidence),
			"scamType":   res.Signals.ScamType,
			"indicators": res.Signals.Indicators,
		})
	}

	snap, _ := e.store.Snapshot(id)
	res.NewEntities = e.store.MergeIntelligence(id, extract.Extract(snap.CounterpartText()), res.Signals.Indicators)
	if res.NewEntities > 0 {
		e.hooks.Emit(ctx, hooks.EventIntelligenceMerged, id, map[string]any{"new": res.NewEntities})
	}

	res.Snapshot, _ = e.store.Snapshot(id)
	res.Verdict = e.cfg.Policy.Evaluate(res.Snapshot)

	ev := log.Debug()
	if res.Verdict.End() {
		ev = log.Info()
	}
	ev.Int("turn", res.Turn).
		Str("decision", string(res.Verdict.Decision)).
		Str("rule", res.Verdict.Rule).
		Str("reason", res.Verdict.Reason).
		Msg("verdict reached")
	e.hooks.Emit(ctx, hooks.EventVerdictReached, id, map[string]any{
		"turn":     res.Turn,
		"decision": string(res.Verdict.Decision),
		"reason":   res.Verdict.Reason,
	})
	return res
}

// RecordReply appends the agent's reply to the session.
func (e *Engine) RecordReply(id, text string, ts time.Time) {
	e.store.AppendMessage(id, domain.SenderAgent, text, ts)
}

// Snapshot returns a copy of the session state. It never creates a session.
func (e *Engine) Snapshot(id string) (domain.Snapshot, bool) {
	return e.store.Snapshot(id)
}

// Conclude marks an ended engagement: it records the exit reason as a note
// and publishes EventEngagementEnded with the final snapshot.
func (e *Engine) Conclude(ctx context.Context, id string, v domain.Verdict) {
	e.store.AddNote(id, "Engagement ended: "+v.Reason)
	snap, ok := e.store.Snapshot(id)
	if !ok {
		return
	}
	e.log.Info().
		Str("session", id).
		Int("turns", snap.TurnCount).
		Int("messages", snap.MessageCount).
		Str("reason", v.Reason).
		Msg("engagement ended")
	e.hooks.EmitAsync(context.WithoutCancel(ctx), hooks.EventEngagementEnded, id, map[string]any{
		"snapshot": snap,
		"verdict":  v,
	})
}
