// Package gateway exposes the engagement engine over HTTP.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/soyeahso/honeypot/internal/archive"
	"github.com/soyeahso/honeypot/internal/config"
	"github.com/soyeahso/honeypot/internal/domain"
	"github.com/soyeahso/honeypot/internal/engine"
	"github.com/soyeahso/honeypot/internal/hooks"
	"github.com/soyeahso/honeypot/internal/logging"
	"github.com/soyeahso/honeypot/internal/version"
)

var ErrClientClosed = errors.New("client connection closed")

// feedHookName is the wildcard subscription that mirrors hook events to
// /events clients.
const feedHookName = "gateway.events"

// Server is the honeypot HTTP server.
type Server struct {
	cfg      config.ServerConfig
	engine   *engine.Engine
	archive  archive.Store
	hooks    *hooks.Manager
	log      *logging.Logger
	clients  *ClientRegistry
	eventSeq atomic.Int64

	startedAt   time.Time
	httpServer  *http.Server
	upgrader    websocket.Upgrader
	authLimiter *authRateLimiter
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithHooks sets the hook manager. Its events are mirrored to /events.
func WithHooks(hm *hooks.Manager) ServerOption {
	return func(s *Server) {
		s.hooks = hm
	}
}

// WithArchive adds archived totals to /analytics.
func WithArchive(a archive.Store) ServerOption {
	return func(s *Server) {
		s.archive = a
	}
}

// New creates a server in front of eng.
func New(cfg config.ServerConfig, eng *engine.Engine, log *logging.Logger, opts ...ServerOption) *Server {
	s := &Server{
		cfg:         cfg,
		engine:      eng,
		log:         log.Sub("gateway"),
		clients:     NewClientRegistry(log.Sub("feed")),
		authLimiter: newAuthRateLimiter(),
		startedAt:   time.Now(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkWebSocketOrigin(cfg.AllowedOrigins),
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.hooks != nil {
		s.hooks.On(hooks.Wildcard, feedHookName, s.forwardEvent)
	}
	return s
}

// checkWebSocketOrigin returns a function that validates WebSocket Origin headers.
// If no origins are configured, only same-origin (no Origin header) or non-browser
// clients are allowed. If origins are configured, the Origin must match one of them.
func checkWebSocketOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return isOriginAllowed(origin, allowed)
	}
}

// resolveBindAddr computes the listen address from config.
func resolveBindAddr(cfg config.ServerConfig) string {
	switch cfg.Bind {
	case "lan":
		return fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	case "custom":
		host := cfg.CustomBindHost
		if host == "" {
			host = "0.0.0.0"
		}
		return net.JoinHostPort(host, fmt.Sprint(cfg.Port))
	default:
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	}
}

// Handler returns the routed handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerHTTPRoutes(mux)
	return withMiddleware(mux, s.log, s.cfg.AllowedOrigins)
}

// Start listens and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := resolveBindAddr(s.cfg)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	done := make(chan struct{})
	go s.authLimiter.run(done)

	if s.cfg.APIKey == "" {
		s.log.Warn().Msg("no API key configured, /honeypot is open to anyone who can reach it")
	}
	s.startedAt = time.Now()
	s.log.Info().
		Str("addr", ln.Addr().String()).
		Str("bind", s.cfg.Bind).
		Str("version", version.Version).
		Msg("server ready")

	if s.hooks != nil {
		s.hooks.Emit(ctx, hooks.EventServerStart, "", map[string]any{"addr": ln.Addr().String()})
	}

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down server")
		close(done)
		if s.hooks != nil {
			s.hooks.Emit(context.Background(), hooks.EventServerStop, "", nil)
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.clients.CloseAll()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the configured listen address, or empty string if not started.
func (s *Server) Addr() string {
	if s.httpServer != nil {
		return s.httpServer.Addr
	}
	return ""
}

// forwardEvent mirrors a hook event to every feed client.
func (s *Server) forwardEvent(_ context.Context, p hooks.Payload) error {
	if s.clients.Count() == 0 {
		return nil
	}
	frame, err := NewEvent(p.Event, p.SessionID, p.Time, feedPayload(p), s.eventSeq.Add(1))
	if err != nil {
		return err
	}
	s.clients.Broadcast(frame)
	return nil
}

// feedPayload keeps the feed light: full snapshots are replaced by their
// counters.
func feedPayload(p hooks.Payload) map[string]any {
	if len(p.Data) == 0 {
		return nil
	}
	out := make(map[string]any, len(p.Data))
	for k, v := range p.Data {
		out[k] = v
	}
	if snap, ok := out["snapshot"].(domain.Snapshot); ok {
		out["snapshot"] = map[string]any{
			"turnCount":    snap.TurnCount,
			"messageCount": snap.MessageCount,
			"scamDetected": snap.Detected,
			"scamType":     snap.ScamType,
			"intelligence": snap.Intelligence,
		}
	}
	return out
}
