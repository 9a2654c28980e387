package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/soyeahso/honeypot/internal/hooks"
	"github.com/soyeahso/honeypot/internal/llm"
	"github.com/soyeahso/honeypot/internal/persona"
)

// Response is a full turn: the core result plus the reply sent back.
type Response struct {
	TurnResult
	Reply    string `json:"reply"`
	Fallback bool   `json:"fallback,omitempty"`
}

// Respond runs ProcessTurn, generates and records the persona's reply, and
// concludes the engagement when the verdict says so. Generation problems
// never surface as errors; a fallback reply is used instead and the state
// already recorded is kept.
func (e *Engine) Respond(ctx context.Context, req TurnRequest) Response {
	res := e.ProcessTurn(ctx, req)

	reply, fallback := e.Generate(ctx, req.SessionID, req.Message.Text)
	e.RecordReply(req.SessionID, reply, time.Time{})

	if res.Verdict.End() {
		e.Conclude(ctx, req.SessionID, res.Verdict)
	}
	return Response{TurnResult: res, Reply: reply, Fallback: fallback}
}

// Generate produces the persona's next reply for the session. The second
// result reports whether a fallback reply was used.
func (e *Engine) Generate(ctx context.Context, id, latest string) (string, bool) {
	log := e.log.Session(id)
	snap, _ := e.store.Snapshot(id)
	pc := persona.NewContext(e.cfg.Persona, snap, latest, e.cfg.Policy.MaxTurns)

	reply, err := e.generate(ctx, id, pc)
	if err == nil {
		e.hooks.Emit(ctx, hooks.EventReplyGenerated, id, map[string]any{"words": len(strings.Fields(reply))})
		return reply, false
	}

	reply = persona.FallbackReply()
	log.Warn().Err(err).Msg("generation failed, using fallback reply")
	e.hooks.Emit(ctx, hooks.EventReplyFallback, id, map[string]any{"error": err.Error()})
	return reply, true
}

var errEmptyReply = errors.New("generator returned an empty reply")

func (e *Engine) generate(ctx context.Context, id string, pc persona.Context) (string, error) {
	prompt, err := persona.Render(pc)
	if err != nil {
		return "", err
	}

	if e.cfg.ReplyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.ReplyTimeout)
		defer cancel()
	}

	if e.governor != nil {
		wait, err := e.governor.Wait(ctx)
		if wait > 0 {
			e.hooks.Emit(ctx, hooks.EventRateLimitWait, id, map[string]any{"waitMs": wait.Milliseconds()})
		}
		if err != nil {
			return "", err
		}
	}

	resp, err := e.gen.Complete(ctx, llm.CompletionRequest{
		System:      prompt.System,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt.User}},
		MaxTokens:   e.cfg.MaxTokens,
		Temperature: e.cfg.Temperature,
	})
	if err != nil {
		return "", err
	}

	reply := persona.Clean(resp.Content, pc.Persona.FirstName())
	if reply == "" {
		return "", errEmptyReply
	}
	e.log.Debug().
		Str("session", id).
		Str("provider", e.gen.Name()).
		Str("template", prompt.Version).
		Dur("duration", resp.Duration).
		Msg("reply generated")
	return reply, nil
}
