package gateway

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/soyeahso/honeypot/internal/domain"
)

// FrameTypeEvent marks frames pushed on the /events feed.
const FrameTypeEvent = "event"

// Frame is the envelope of every message written to an /events client.
type Frame struct {
	Type      string          `json:"type"`
	Event     string          `json:"event"`
	Seq       int64           `json:"seq"`
	SessionID string          `json:"sessionId,omitempty"`
	Time      int64           `json:"ts"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewEvent creates an event frame.
func NewEvent(event, sessionID string, ts time.Time, payload any, seq int64) (Frame, error) {
	f := Frame{Type: FrameTypeEvent, Event: event, Seq: seq, SessionID: sessionID, Time: ts.UnixMilli()}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Frame{}, err
		}
		f.Payload = raw
	}
	return f, nil
}

// IncomingMessage is one message as the partner platform sends it.
type IncomingMessage struct {
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp Timestamp `json:"timestamp"`
}

// Message converts to the domain form.
func (m IncomingMessage) Message() domain.Message {
	return domain.Message{
		Sender:    domain.ParseSender(m.Sender),
		Text:      m.Text,
		Timestamp: time.Time(m.Timestamp),
	}
}

// HoneypotRequest is the body of POST /honeypot.
type HoneypotRequest struct {
	SessionID           string            `json:"sessionId"`
	Message             IncomingMessage   `json:"message"`
	ConversationHistory []IncomingMessage `json:"conversationHistory"`
	Metadata            map[string]any    `json:"metadata,omitempty"`
}

// HoneypotResponse is the body of every POST /honeypot reply.
type HoneypotResponse struct {
	Status string `json:"status"` // "success" | "error"
	Reply  string `json:"reply"`
}

// Timestamp accepts epoch milliseconds, a numeric string or RFC 3339.
// Anything else decodes to the zero time, which the store replaces with
// the arrival time.
type Timestamp time.Time

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*t = Timestamp{}
		return nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*t = Timestamp(time.UnixMilli(ms))
		return nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		*t = Timestamp(ts)
		return nil
	}
	*t = Timestamp{}
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if time.Time(t).IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(time.Time(t).UnixMilli(), 10)), nil
}
