package domain

import "time"

// Snapshot is an independently owned copy of a session's state. Nothing in
// it aliases the store's internals.
type Snapshot struct {
	ID             string             `json:"sessionId"`
	TurnCount      int                `json:"turnCount"`
	MessageCount   int                `json:"totalMessages"`
	Detected       bool               `json:"scamDetected"`
	Confidence     Confidence         `json:"confidence,omitempty"`
	ScamType       string             `json:"scamType,omitempty"`
	Intelligence   IntelligenceReport `json:"intelligence"`
	Notes          []string           `json:"notes"`
	History        []Message          `json:"history,omitempty"`
	StartedAt      time.Time          `json:"startedAt"`
	LastActivityAt time.Time          `json:"lastActivityAt"`
}

// CounterpartText joins every counterpart message in history order.
func (s Snapshot) CounterpartText() string {
	return joinBy(s.History, func(m Message) bool { return m.Sender.IsCounterpart() })
}

// AgentText joins every agent message in history order.
func (s Snapshot) AgentText() string {
	return joinBy(s.History, func(m Message) bool { return !m.Sender.IsCounterpart() })
}

func joinBy(msgs []Message, keep func(Message) bool) string {
	var out []byte
	for _, m := range msgs {
		if !keep(m) {
			continue
		}
		if len(out) > 0 {
			out = append(out, ' ')
		}
		out = append(out, m.Text...)
	}
	return string(out)
}
