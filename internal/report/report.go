// Package report builds the final intelligence report of an ended
// engagement and delivers it to the configured sinks.
package report

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/soyeahso/honeypot/internal/archive"
	"github.com/soyeahso/honeypot/internal/domain"
	"github.com/soyeahso/honeypot/internal/profile"
)

// ExtractedIntelligence is the partner-facing entity listing.
type ExtractedIntelligence struct {
	BankAccounts       []string `json:"bankAccounts"`
	UPIIDs             []string `json:"upiIds"`
	Emails             []string `json:"emails"`
	PhishingLinks      []string `json:"phishingLinks"`
	PhoneNumbers       []string `json:"phoneNumbers"`
	SuspiciousKeywords []string `json:"suspiciousKeywords"`
}

// Callback is the payload posted to the partner endpoint.
type Callback struct {
	SessionID              string                `json:"sessionId"`
	ScamDetected           bool                  `json:"scamDetected"`
	TotalMessagesExchanged int                   `json:"totalMessagesExchanged"`
	ExtractedIntelligence  ExtractedIntelligence `json:"extractedIntelligence"`
	AgentNotes             string                `json:"agentNotes"`
}

// Report is the full record of an ended engagement.
type Report struct {
	Callback
	ScamType     string                    `json:"scamType"`
	Confidence   string                    `json:"confidence"`
	TurnCount    int                       `json:"turnCount"`
	ExitReason   string                    `json:"exitReason"`
	ExitRule     string                    `json:"exitRule"`
	Amounts      []string                  `json:"amounts"`
	BankNames    []string                  `json:"bankNames"`
	Value        profile.Value             `json:"intelligenceValue"`
	Profile      profile.Profile           `json:"scammerProfile"`
	Intelligence domain.IntelligenceReport `json:"-"`
	EndedAt      time.Time                 `json:"endedAt"`
}

// Build assembles the report for a session that ended with v.
func Build(snap domain.Snapshot, v domain.Verdict, endedAt time.Time) Report {
	in := snap.Intelligence
	notes := "No notes"
	if len(snap.Notes) > 0 {
		notes = strings.Join(snap.Notes, " | ")
	}
	return Report{
		Callback: Callback{
			SessionID:              snap.ID,
			ScamDetected:           snap.Detected,
			TotalMessagesExchanged: snap.MessageCount,
			ExtractedIntelligence: ExtractedIntelligence{
				BankAccounts:       in.BankAccounts,
				UPIIDs:             in.PaymentHandles,
				Emails:             in.Emails,
				PhishingLinks:      in.Links,
				PhoneNumbers:       in.Phones,
				SuspiciousKeywords: in.Keywords,
			},
			AgentNotes: notes,
		},
		ScamType:     snap.ScamType,
		Confidence:   string(snap.Confidence),
		TurnCount:    snap.TurnCount,
		ExitReason:   v.Reason,
		ExitRule:     v.Rule,
		Amounts:      in.Amounts,
		BankNames:    in.BankNames,
		Value:        profile.Grade(in),
		Profile:      profile.Build(snap),
		Intelligence: in,
		EndedAt:      endedAt,
	}
}

// Record converts the report to its archived form.
func (r Report) Record() (archive.Record, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return archive.Record{}, err
	}
	return archive.Record{
		SessionID:    r.SessionID,
		ScamDetected: r.ScamDetected,
		ScamType:     r.ScamType,
		Confidence:   r.Confidence,
		Grade:        r.Value.Grade,
		Score:        r.Value.Score,
		TurnCount:    r.TurnCount,
		MessageCount: r.TotalMessagesExchanged,
		ExitReason:   r.ExitReason,
		EndedAt:      r.EndedAt,
		Report:       raw,
	}, nil
}
