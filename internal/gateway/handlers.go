package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/soyeahso/honeypot/internal/archive"
	"github.com/soyeahso/honeypot/internal/domain"
	"github.com/soyeahso/honeypot/internal/engine"
	"github.com/soyeahso/honeypot/internal/profile"
)

// maxBodyBytes caps a POST /honeypot body.
const maxBodyBytes = 1 << 20

const fallbackErrorReply = "Sorry, I'm having trouble understanding. Could you repeat that?"

// registerHTTPRoutes sets up all HTTP routes on the server mux.
func (s *Server) registerHTTPRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /honeypot", s.handleHoneypot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /session/{id}", s.requireKey(s.handleSession))
	mux.HandleFunc("GET /analytics", s.requireKey(s.handleAnalytics))
	mux.HandleFunc("GET /events", s.requireKey(s.handleEvents))

	// Catch-all for unknown routes
	mux.HandleFunc("/", handleNotFound)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeReply(w http.ResponseWriter, status int, outcome, reply string) {
	writeJSON(w, status, HoneypotResponse{Status: outcome, Reply: reply})
}

// checkKey enforces the API key and the per-IP failure limiter. It writes
// the rejection itself and returns false when the request must stop.
func (s *Server) checkKey(w http.ResponseWriter, r *http.Request) bool {
	if !s.authLimiter.allow(r.RemoteAddr) {
		s.log.Warn().Str("remote", r.RemoteAddr).Msg("rate limited, too many failed auth attempts")
		writeReply(w, http.StatusTooManyRequests, "error", "Too many requests")
		return false
	}
	if !authorized(r, s.cfg.APIKey) {
		s.authLimiter.recordFailure(r.RemoteAddr)
		s.log.Warn().Str("remote", r.RemoteAddr).Str("path", r.URL.Path).Msg("unauthorized request")
		writeReply(w, http.StatusUnauthorized, "error", "Unauthorized")
		return false
	}
	return true
}

func (s *Server) requireKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.checkKey(w, r) {
			next(w, r)
		}
	}
}

// handleHoneypot runs one engagement turn.
func (s *Server) handleHoneypot(w http.ResponseWriter, r *http.Request) {
	if !s.checkKey(w, r) {
		return
	}

	var req HoneypotRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeReply(w, http.StatusBadRequest, "error", "Invalid request format")
		return
	}
	req.SessionID = strings.TrimSpace(req.SessionID)
	if req.SessionID == "" || strings.TrimSpace(req.Message.Text) == "" {
		writeReply(w, http.StatusBadRequest, "error", "sessionId and message.text are required")
		return
	}

	msg := req.Message.Message()
	if req.Message.Sender == "" {
		msg.Sender = domain.SenderCounterpart
	}
	history := make([]domain.Message, 0, len(req.ConversationHistory))
	for _, m := range req.ConversationHistory {
		history = append(history, m.Message())
	}

	resp := s.engine.Respond(r.Context(), engine.TurnRequest{
		SessionID: req.SessionID,
		Message:   msg,
		History:   history,
	})
	writeReply(w, http.StatusOK, "success", resp.Reply)
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
	Sessions  int    `json:"sessions"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UnixMilli(),
		Sessions:  s.engine.SessionCount(),
	})
}

// SessionResponse is returned by GET /session/{id}.
type SessionResponse struct {
	domain.Snapshot
	Value   profile.Value   `json:"intelligenceScore"`
	Profile profile.Profile `json:"scammerProfile"`
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.engine.Snapshot(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Session not found"})
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{
		Snapshot: snap,
		Value:    profile.Grade(snap.Intelligence),
		Profile:  profile.Build(snap),
	})
}

// AnalyticsResponse is returned by GET /analytics.
type AnalyticsResponse struct {
	engine.Stats
	ActiveNow     int            `json:"activeNow"`
	FeedClients   int            `json:"feedClients"`
	UptimeSeconds int64          `json:"uptimeSeconds"`
	Archive       *archive.Stats `json:"archive,omitempty"`
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	st := s.engine.Stats()
	resp := AnalyticsResponse{
		Stats:         st,
		ActiveNow:     st.TotalSessions,
		FeedClients:   s.clients.Count(),
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
	}
	if s.archive != nil {
		ast, err := s.archive.Stats(r.Context())
		if err != nil {
			s.log.Error().Err(err).Msg("archive stats failed")
		} else {
			resp.Archive = &ast
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleEvents upgrades to a websocket and streams hook events until the
// client goes away. Anything the client sends is discarded.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	conn.SetReadLimit(4096)

	client := NewClient(conn, r.RemoteAddr)
	s.clients.Add(client)
	defer func() {
		s.clients.Remove(client.ConnID)
		client.Close()
	}()

	go func() {
		if err := client.writePump(); err != nil && !errors.Is(err, ErrClientClosed) {
			s.log.Debug().Err(err).Str("connId", client.ConnID).Msg("feed write failed")
		}
		// Unblocks the read loop below.
		client.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			var ce *websocket.CloseError
			if !errors.As(err, &ce) {
				s.log.Debug().Err(err).Str("connId", client.ConnID).Msg("feed read ended")
			}
			return
		}
	}
}

// handleNotFound returns a 404 for unknown routes.
func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "not found",
		"path":  r.URL.Path,
	})
}
