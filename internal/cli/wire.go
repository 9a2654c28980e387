package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/soyeahso/honeypot/internal/archive"
	"github.com/soyeahso/honeypot/internal/config"
	"github.com/soyeahso/honeypot/internal/decision"
	"github.com/soyeahso/honeypot/internal/engine"
	"github.com/soyeahso/honeypot/internal/governor"
	"github.com/soyeahso/honeypot/internal/hooks"
	"github.com/soyeahso/honeypot/internal/llm"
	"github.com/soyeahso/honeypot/internal/logging"
	"github.com/soyeahso/honeypot/internal/persona"
	"github.com/soyeahso/honeypot/internal/report"
	"github.com/soyeahso/honeypot/internal/session"
)

// stack is the assembled engagement pipeline shared by serve and simulate.
type stack struct {
	hooks      *hooks.Manager
	sessions   *session.Store
	engine     *engine.Engine
	archive    archive.Store
	dispatcher *report.Dispatcher
	nats       *report.NATSSink
	log        *logging.Logger
}

// stackOptions selects which outbound sinks are attached.
type stackOptions struct {
	ArchivePath string
	// Reports attaches the callback and NATS sinks when configured.
	Reports bool
}

// newStack wires config into a ready engine. Close must be called to
// flush pending reports and release the archive.
func newStack(ctx context.Context, cfg config.Config, opts stackOptions, log *logging.Logger) (*stack, error) {
	hk := hooks.NewManager(log)
	s := &stack{hooks: hk, log: log}

	s.sessions = session.NewStore(log, session.WithCreateHook(func(id string) {
		hk.Emit(context.Background(), hooks.EventSessionCreated, id, nil)
	}))

	gov := governor.New(governor.Config{
		RequestsPerMinute: cfg.Governor.RequestsPerMinute,
		MinInterval:       time.Duration(cfg.Governor.MinIntervalMs) * time.Millisecond,
		SafetyMargin:      time.Duration(cfg.Governor.SafetyMarginMs) * time.Millisecond,
	}, log)

	reg, err := llm.NewRegistryFromConfig(cfg.Generator, log)
	if err != nil {
		return nil, err
	}
	gen := llm.NewFailoverClient(reg, cfg.Generator.Provider, cfg.Generator.Fallbacks, log)

	s.engine = engine.New(engine.Config{
		Policy: decision.Policy{
			MaxTurns:            cfg.Engagement.MaxTurns,
			MinTurns:            cfg.Engagement.MinTurns,
			HighValueCategories: cfg.Engagement.HighValueCategories,
			SaturationThreshold: cfg.Engagement.SaturationThreshold,
		},
		Persona:      persona.FromConfig(cfg.Persona),
		ReplyTimeout: time.Duration(cfg.Engagement.ReplyTimeoutSeconds) * time.Second,
		MaxTokens:    cfg.Generator.MaxTokens,
		Temperature:  cfg.Generator.Temperature,
	}, s.sessions, gov, gen, hk, log)

	var sinks []report.Sink
	if opts.Reports && cfg.Callback.URL != "" {
		sinks = append(sinks, report.NewCallbackSink(cfg.Callback, log))
	}
	if opts.Reports && cfg.Events.NATSURL != "" {
		ns, err := report.NewNATSSink(cfg.Events, log)
		if err != nil {
			return nil, fmt.Errorf("connecting to NATS: %w", err)
		}
		s.nats = ns
		sinks = append(sinks, ns)
	}
	if opts.ArchivePath != "" {
		store, err := archive.Open(ctx, cfg.Archive, opts.ArchivePath, log)
		if err != nil {
			s.closeSinks()
			return nil, fmt.Errorf("opening archive: %w", err)
		}
		if store != nil {
			s.archive = store
			sinks = append(sinks, report.NewArchiveSink(store))
		}
	}

	s.dispatcher = report.NewDispatcher(log, hk, sinks...)
	hk.On(hooks.EventEngagementEnded, "report", s.dispatcher.Handler())
	if len(sinks) == 0 {
		log.Warn().Msg("no report sinks configured; finished engagements are only logged")
	} else {
		log.Info().Strs("sinks", s.dispatcher.Sinks()).Msg("report sinks ready")
	}

	return s, nil
}

// Close waits for in-flight hook handlers, then releases the sinks.
func (s *stack) Close(ctx context.Context) error {
	err := s.hooks.Drain(ctx)
	return errors.Join(err, s.closeSinks())
}

func (s *stack) closeSinks() error {
	var errs []error
	if s.nats != nil {
		errs = append(errs, s.nats.Close())
	}
	if s.archive != nil {
		errs = append(errs, s.archive.Close())
	}
	return errors.Join(errs...)
}
