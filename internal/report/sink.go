package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/nats-io/nats.go"

	"github.com/soyeahso/honeypot/internal/archive"
	"github.com/soyeahso/honeypot/internal/config"
	"github.com/soyeahso/honeypot/internal/logging"
	"github.com/soyeahso/honeypot/internal/version"
)

// Sink receives finished reports.
type Sink interface {
	Name() string
	Send(ctx context.Context, r Report) error
}

// CallbackSink posts the partner payload over HTTP, retrying transient
// failures with backoff.
type CallbackSink struct {
	url    string
	apiKey string
	client *retryablehttp.Client
}

// NewCallbackSink creates an HTTP callback sink.
func NewCallbackSink(cfg config.CallbackConfig, log *logging.Logger) *CallbackSink {
	c := retryablehttp.NewClient()
	c.RetryMax = cfg.Retries
	c.RetryWaitMin = 200 * time.Millisecond
	c.RetryWaitMax = 2 * time.Second
	c.HTTPClient.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	c.Logger = leveledLogger{log.Sub("callback")}
	return &CallbackSink{url: cfg.URL, apiKey: cfg.APIKey, client: c}
}

func (s *CallbackSink) Name() string { return "callback" }

// Send posts r's callback payload. Any non-2xx final status is an error.
func (s *CallbackSink) Send(ctx context.Context, r Report) error {
	body, err := json.Marshal(r.Callback)
	if err != nil {
		return fmt.Errorf("marshal callback: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, "POST", s.url, body)
	if err != nil {
		return fmt.Errorf("build callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if s.apiKey != "" {
		req.Header.Set("x-api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("callback: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("callback returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	return nil
}

// leveledLogger adapts the logger to retryablehttp.LeveledLogger.
type leveledLogger struct {
	log *logging.Logger
}

func (l leveledLogger) Error(msg string, kv ...any) { l.log.Error().Fields(kv).Msg(msg) }
func (l leveledLogger) Warn(msg string, kv ...any)  { l.log.Warn().Fields(kv).Msg(msg) }
func (l leveledLogger) Info(msg string, kv ...any)  { l.log.Debug().Fields(kv).Msg(msg) }
func (l leveledLogger) Debug(msg string, kv ...any) { l.log.Debug().Fields(kv).Msg(msg) }

// NATSSink publishes full reports as JSON on a subject.
type NATSSink struct {
	conn    *nats.Conn
	subject string
}

// NewNATSSink connects to the NATS server at url. The connection retries in
// the background, so an unreachable server does not fail startup.
func NewNATSSink(cfg config.EventsConfig, log *logging.Logger) (*NATSSink, error) {
	log = log.Sub("nats")
	opts := []nats.Option{
		nats.Name("honeypot"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info().Msg("nats reconnected")
		}),
	}
	if cfg.NATSToken != "" {
		opts = append(opts, nats.Token(cfg.NATSToken))
	}

	nc, err := nats.Connect(cfg.NATSURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NATSSink{conn: nc, subject: cfg.Subject}, nil
}

func (s *NATSSink) Name() string { return "nats" }

// Send publishes r.
func (s *NATSSink) Send(_ context.Context, r Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return s.conn.Publish(s.subject, data)
}

// Close drains pending publishes and closes the connection.
func (s *NATSSink) Close() error {
	return s.conn.Drain()
}

// ArchiveSink saves reports to an engagement archive.
type ArchiveSink struct {
	store archive.Store
}

// NewArchiveSink wraps store.
func NewArchiveSink(store archive.Store) *ArchiveSink {
	return &ArchiveSink{store: store}
}

func (s *ArchiveSink) Name() string { return "archive" }

// Send upserts r.
func (s *ArchiveSink) Send(ctx context.Context, r Report) error {
	rec, err := r.Record()
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return s.store.Save(ctx, rec)
}
