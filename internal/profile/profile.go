package profile

import (
	"regexp"
	"slices"
	"strings"

	"github.com/soyeahso/honeypot/internal/detect"
	"github.com/soyeahso/honeypot/internal/domain"
)

// Aggression and sophistication levels.
const (
	LevelUnknown  = "unknown"
	LevelLow      = "low"
	LevelMedium   = "medium"
	LevelHigh     = "high"
	LevelVeryHigh = "very_high"
)

// Target demographics.
const (
	DemographicGeneral = "general"
	DemographicElderly = "elderly/non-tech-savvy"
)

var (
	urgencyWordRe  = regexp.MustCompile(`\b(?:immediate|urgent|now|asap|hurry)\b`)
	threatWordRe   = regexp.MustCompile(`\b(?:block|suspend|arrest|police|legal|fine|penalty)\b`)
	pressureWordRe = regexp.MustCompile(`\b(?:last chance|final|expire|limited time)\b`)
	honorificRe    = regexp.MustCompile(`(?i)\bji\b`)
)

// Profile is a behavioural sketch of the counterpart.
type Profile struct {
	Aggression           string `json:"aggressionLevel"`
	Sophistication       string `json:"sophistication"`
	TargetDemographic    string `json:"targetDemographic"`
	EstimatedSuccessRate string `json:"estimatedSuccessRate"`
	ThreatScore          int    `json:"threatScore"`
	PrimaryTactic        string `json:"primaryTactic"`
	EntitiesExposed      int    `json:"entitiesExposed"`
}

// Build profiles the counterpart of a session. The snapshot must carry its
// history.
func Build(snap domain.Snapshot) Profile {
	in := snap.Intelligence
	aggression := Aggression(snap.History)
	sophistication := Sophistication(in)

	p := Profile{
		Aggression:        aggression,
		Sophistication:    sophistication,
		TargetDemographic: DemographicGeneral,
		PrimaryTactic:     snap.ScamType,
		ThreatScore: len(in.BankAccounts)*15 +
			len(in.PaymentHandles)*20 +
			len(in.Phones)*10 +
			len(in.Links)*12,
		EntitiesExposed: len(in.BankAccounts) + len(in.PaymentHandles) + len(in.Phones),
	}
	if p.PrimaryTactic == "" {
		p.PrimaryTactic = domain.ScamTypeUnknown
	}

	switch {
	case aggression == LevelVeryHigh || aggression == LevelHigh:
		p.EstimatedSuccessRate = "5-10%"
	case sophistication == LevelHigh:
		p.EstimatedSuccessRate = "15-25%"
	default:
		p.EstimatedSuccessRate = "10-15%"
	}

	for _, m := range snap.History {
		if honorificRe.MatchString(m.Text) {
			p.TargetDemographic = DemographicElderly
			break
		}
	}
	return p
}

// Aggression rates the counterpart's pressure from its own messages. With no
// counterpart messages it returns LevelUnknown.
func Aggression(history []domain.Message) string {
	var parts []string
	for _, m := range history {
		if m.Sender.IsCounterpart() {
			parts = append(parts, m.Text)
		}
	}
	if len(parts) == 0 {
		return LevelUnknown
	}
	text := strings.ToLower(strings.Join(parts, " "))

	score := len(urgencyWordRe.FindAllString(text, -1))*2 +
		len(threatWordRe.FindAllString(text, -1))*3 +
		len(pressureWordRe.FindAllString(text, -1))*2

	switch {
	case score >= 10:
		return LevelVeryHigh
	case score >= 6:
		return LevelHigh
	case score >= 3:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Sophistication rates the counterpart's tooling from what was collected.
func Sophistication(in domain.IntelligenceReport) string {
	score := 0
	if len(in.Links) > 0 {
		score += 2
	}
	if len(in.PaymentHandles) > 0 {
		score += 2
	}
	if slices.Contains(in.Keywords, detect.Urgency) {
		score++
	}
	if slices.Contains(in.Keywords, detect.Threat) {
		score++
	}

	switch {
	case score >= 5:
		return LevelHigh
	case score >= 3:
		return LevelMedium
	default:
		return LevelLow
	}
}
