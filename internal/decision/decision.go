// Package decision decides, turn by turn, whether an engagement should end.
package decision

import (
	"fmt"

	"github.com/soyeahso/honeypot/internal/domain"
)

// Rule names reported in a Verdict.
const (
	RuleMaxTurns   = "max_turns"
	RuleHighValue  = "high_value"
	RuleSaturation = "saturation"
	RuleContinue   = "continue"
)

// Policy holds the exit thresholds.
type Policy struct {
	// MaxTurns ends the engagement unconditionally.
	MaxTurns int
	// MinTurns gates both early-exit rules.
	MinTurns int
	// HighValueCategories is how many of {bank account, payment handle,
	// phone, email} must be non-empty for the high-value rule.
	HighValueCategories int
	// SaturationThreshold is the total high-value entity count for the
	// saturation rule.
	SaturationThreshold int
}

// DefaultPolicy returns the stock thresholds.
func DefaultPolicy() Policy {
	return Policy{
		MaxTurns:            8,
		MinTurns:            6,
		HighValueCategories: 3,
		SaturationThreshold: 4,
	}
}

// Evaluate computes a verdict from the current snapshot. It keeps no state;
// every call recomputes from scratch and the first matching rule wins.
func (p Policy) Evaluate(snap domain.Snapshot) domain.Verdict {
	counts := snap.Intelligence.HighValueCounts()
	turns := snap.TurnCount

	switch {
	case turns >= p.MaxTurns:
		return end(RuleMaxTurns, fmt.Sprintf("maximum turns reached (%d/%d)", turns, p.MaxTurns))
	case turns >= p.MinTurns && counts.Categories() >= p.HighValueCategories:
		return end(RuleHighValue, fmt.Sprintf("high-value intelligence collected (%d categories at turn %d)",
			counts.Categories(), turns))
	case turns >= p.MinTurns && counts.Total() >= p.SaturationThreshold:
		return end(RuleSaturation, fmt.Sprintf("intelligence saturation (%d entities at turn %d)",
			counts.Total(), turns))
	}

	return domain.Verdict{
		Decision: domain.DecisionContinue,
		Rule:     RuleContinue,
		Reason: fmt.Sprintf("turn %d/%d: bank=%d upi=%d phone=%d email=%d",
			turns, p.MaxTurns, counts.BankAccounts, counts.PaymentHandles, counts.Phones, counts.Emails),
	}
}

func end(rule, reason string) domain.Verdict {
	return domain.Verdict{Decision: domain.DecisionEnd, Rule: rule, Reason: reason}
}
