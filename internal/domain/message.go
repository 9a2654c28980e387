package domain

import (
	"strings"
	"time"
)

// Sender identifies which party authored a message.
type Sender string

const (
	SenderCounterpart Sender = "scammer"
	SenderAgent       Sender = "agent"
)

// ParseSender maps a wire value to a Sender. Anything that is not clearly
// the agent is attributed to the counterpart, so a missing sender still
// counts as a turn.
func ParseSender(s string) Sender {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "agent", "user", "assistant", "honeypot":
		return SenderAgent
	default:
		return SenderCounterpart
	}
}

// IsCounterpart reports whether the sender is the engaged party.
func (s Sender) IsCounterpart() bool { return s != SenderAgent }

// Message is one entry in a session's history. It is never modified once
// appended.
type Message struct {
	Sender    Sender    `json:"sender" yaml:"sender"`
	Text      string    `json:"text" yaml:"text"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp,omitempty"`
}
