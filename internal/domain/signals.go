package domain

// Confidence is the detector's certainty tier.
type Confidence string

const (
	ConfidenceLow      Confidence = "LOW"
	ConfidenceMedium   Confidence = "MEDIUM"
	ConfidenceHigh     Confidence = "HIGH"
	ConfidenceVeryHigh Confidence = "VERY_HIGH"
)

// Rank orders confidence tiers. Unknown values rank below LOW.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceLow:
		return 1
	case ConfidenceMedium:
		return 2
	case ConfidenceHigh:
		return 3
	case ConfidenceVeryHigh:
		return 4
	default:
		return 0
	}
}

// Higher reports whether c ranks strictly above other.
func (c Confidence) Higher(other Confidence) bool { return c.Rank() > other.Rank() }

// Scam type tags.
const (
	ScamTypeLottery       = "lottery_scam"
	ScamTypeUPIFraud      = "upi_fraud"
	ScamTypeKYCFraud      = "kyc_fraud"
	ScamTypePhishing      = "phishing"
	ScamTypeImpersonation = "impersonation"
	ScamTypeUnknown       = "unknown"
)

// Signals is the advisory detector's verdict for a single message.
type Signals struct {
	IsScam     bool       `json:"isScam"`
	Confidence Confidence `json:"confidence"`
	Indicators []string   `json:"indicators"`
	ScamType   string     `json:"scamType"`
	// Whitelisted is set when a legitimate-communication pattern
	// short-circuited the scan.
	Whitelisted bool `json:"whitelisted,omitempty"`
}

// Decision is the exit engine's state.
type Decision string

const (
	DecisionContinue Decision = "CONTINUE"
	DecisionEnd      Decision = "END"
)

// Verdict is the exit engine's output for one evaluation.
type Verdict struct {
	Decision Decision `json:"decision"`
	Rule     string   `json:"rule"`
	Reason   string   `json:"reason"`
}

// End reports whether the engagement should terminate.
func (v Verdict) End() bool { return v.Decision == DecisionEnd }
