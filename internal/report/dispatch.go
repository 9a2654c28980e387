package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/soyeahso/honeypot/internal/domain"
	"github.com/soyeahso/honeypot/internal/hooks"
	"github.com/soyeahso/honeypot/internal/logging"
)

// DefaultSendTimeout bounds a single sink delivery.
const DefaultSendTimeout = 30 * time.Second

// Dispatcher fans a report out to every sink concurrently.
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
	hooks   *hooks.Manager
	log     *logging.Logger
}

// NewDispatcher creates a dispatcher. hk may be nil.
func NewDispatcher(log *logging.Logger, hk *hooks.Manager, sinks ...Sink) *Dispatcher {
	return &Dispatcher{
		sinks:   sinks,
		timeout: DefaultSendTimeout,
		hooks:   hk,
		log:     log.Sub("report"),
	}
}

// Sinks returns the sink names in registration order.
func (d *Dispatcher) Sinks() []string {
	names := make([]string, len(d.sinks))
	for i, s := range d.sinks {
		names[i] = s.Name()
	}
	return names
}

// Dispatch delivers r to every sink. One failing sink never stops the
// others; all failures are logged and joined into the returned error.
func (d *Dispatcher) Dispatch(ctx context.Context, r Report) error {
	errs := make([]error, len(d.sinks))

	var g errgroup.Group
	for i, s := range d.sinks {
		g.Go(func() error {
			sctx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()

			start := time.Now()
			if err := s.Send(sctx, r); err != nil {
				d.log.Error().Err(err).Str("sink", s.Name()).Str("session", r.SessionID).Msg("report delivery failed")
				errs[i] = fmt.Errorf("%s: %w", s.Name(), err)
				return nil
			}
			d.log.Info().
				Str("sink", s.Name()).
				Str("session", r.SessionID).
				Dur("took", time.Since(start)).
				Msg("report delivered")
			return nil
		})
	}
	_ = g.Wait()

	err := errors.Join(errs...)
	if d.hooks != nil {
		data := map[string]any{"sinks": d.Sinks(), "grade": r.Value.Grade}
		if err != nil {
			data["error"] = err.Error()
		}
		d.hooks.Emit(ctx, hooks.EventReportDispatched, r.SessionID, data)
	}
	return err
}

// Handler returns a hook handler for EventEngagementEnded that builds and
// dispatches the report carried by the event.
func (d *Dispatcher) Handler() hooks.Handler {
	return func(ctx context.Context, p hooks.Payload) error {
		snap, ok := p.Data["snapshot"].(domain.Snapshot)
		if !ok {
			return fmt.Errorf("engagement_ended for %s carries no snapshot", p.SessionID)
		}
		v, _ := p.Data["verdict"].(domain.Verdict)
		return d.Dispatch(ctx, Build(snap, v, p.Time))
	}
}
