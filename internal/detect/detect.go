// Package detect scores a single message for fraud-indicator density.
//
// The output is advisory. Nothing here reads or writes session state and no
// result ever prevents a reply from being produced.
package detect

import (
	"regexp"

	"github.com/soyeahso/honeypot/internal/domain"
)

// Indicator categories, in scan order.
const (
	Urgency                = "urgency"
	Threat                 = "threat"
	VerificationRequest    = "verification_request"
	PaymentDemand          = "payment_demand"
	SuspiciousLink         = "suspicious_link"
	PhoneCallToAction      = "phone_call_to_action"
	AuthorityImpersonation = "authority_impersonation"
	LotteryPrize           = "lottery_prize"
)

// ScamThreshold is the indicator count at which a message is flagged.
const ScamThreshold = 2

type category struct {
	name     string
	patterns []*regexp.Regexp
}

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(`(?i)` + e)
	}
	return out
}

// Legitimate transactional messages that share vocabulary with scams.
var whitelist = compile(
	`\botp\b.*\b(valid for|valid till|expires in|expire in|expires within)\s*\d+\s*(minutes?|mins?|seconds?|secs?|hours?|hrs?)\b`,
	`\b(credited|debited)\b.*\bavailable\s+(balance|bal)\b`,
	`\bhas been successfully\b.*\b(completed|done|processed|updated|verified)\b`,
	`\bvisit\s+(https?://)?(www\.)?(hdfcbank|icicibank|onlinesbi|sbi|axisbank|kotak|pnbindia|bankofbaroda|canarabank|unionbankofindia)\.(com|co\.in|in|bank\.in)\b`,
)

const actionVerbs = `(block|suspend|deactivat|terminat|clos|freez|cancel|disabl|seiz|restrict)\w*`
const targets = `(account|a/c|card|upi|service|number|sim|wallet|kyc|pan)`

var categories = []category{
	{Urgency, compile(
		`\b(urgent|urgently|immediately|right now|asap|hurry|quickly|last chance|deadline|expir(e|es|ed|ing))\b`,
		`\b(now|today|tonight)\b`,
		`\bwithin\s+\d+\s*(minutes?|mins?|hours?|hrs?)\b`,
	)},
	{Threat, compile(
		`\b`+actionVerbs+`.*\b`+targets+`\b`,
		`\b`+targets+`\b.*\b`+actionVerbs,
		`\b(legal action|arrest(ed)?|police complaint|fir|penalty|jail|warrant)\b`,
	)},
	{VerificationRequest, compile(
		`\b(verify|verification|update|confirm|validate|re-?kyc|complete)\b.*\b(kyc|account|details|pan|aadhaa?r|identity|card|otp|pin)\b`,
		`\b(share|send|tell|provide|give|enter)\b.*\b(otp|pin|cvv|password|card number|mpin)\b`,
	)},
	{PaymentDemand, compile(
		`\b(pay|send|transfer|deposit|remit)\b.*(₹|\brs\.?\s*\d|\binr\b|\brupees?\b|\b\d{3,}\b)`,
		`\b(processing|registration|verification|release|clearance|activation|delivery)\s+(fee|fees|charge|charges|amount)\b`,
		`[a-z0-9._\-]+@(paytm|ybl|okaxis|okhdfcbank|oksbi|okicici|upi|apl|ibl|axl)\b`,
	)},
	{SuspiciousLink, compile(
		`https?://`,
		`\b(bit\.ly|tinyurl(\.com)?|goo\.gl|t\.co|cutt\.ly|is\.gd|rb\.gy|shorturl\.at)/\w+`,
		`\bclick\b.*\blink\b`,
	)},
	{PhoneCallToAction, compile(
		`\b(call|dial|phone|contact|whatsapp|ring)\b.*\b[6-9]\d{9}\b`,
		`\b[6-9]\d{9}\b.*\b(call|dial|contact|whatsapp)\b`,
	)},
	{AuthorityImpersonation, compile(
		`\b(rbi|reserve bank|cbi|police|cyber cell|cyber crime|income tax|customs|trai|court|ministry)\b`,
		`\b(bank manager|bank officer|customer care|support team|fraud department|security team)\b`,
		`\b(sbi|hdfc|icici|axis|kotak|pnb)\b(\s+bank)?\s+(official|department|team|officer|manager|head office)\b`,
	)},
	{LotteryPrize, compile(
		`\b(congratulations|congrats|winner|won|selected|lucky)\b.*\b(prize|lottery|lakh|crore|kbc|reward|cash\s?back|gift)\b`,
		`\blottery\b`,
	)},
}

// Whitelisted reports whether text matches a legitimate-communication
// pattern.
func Whitelisted(text string) bool {
	for _, re := range whitelist {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func (c category) match(text string) bool {
	for _, re := range c.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// Analyze scores one message. Each category contributes at most one
// indicator, and indicators are returned in scan order.
func Analyze(text string) domain.Signals {
	if Whitelisted(text) {
		return domain.Signals{
			Confidence:  domain.ConfidenceLow,
			Indicators:  []string{},
			ScamType:    domain.ScamTypeUnknown,
			Whitelisted: true,
		}
	}

	indicators := []string{}
	for _, c := range categories {
		if c.match(text) {
			indicators = append(indicators, c.name)
		}
	}

	isScam := len(indicators) >= ScamThreshold
	sig := domain.Signals{
		IsScam:     isScam,
		Confidence: ConfidenceFor(len(indicators)),
		Indicators: indicators,
		ScamType:   domain.ScamTypeUnknown,
	}
	if isScam {
		sig.ScamType = ScamType(indicators)
	}
	return sig
}

// ConfidenceFor maps an indicator count to a tier.
func ConfidenceFor(n int) domain.Confidence {
	switch {
	case n >= 4:
		return domain.ConfidenceVeryHigh
	case n == 3:
		return domain.ConfidenceHigh
	case n == 2:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

// ScamType resolves an indicator set to a tag by fixed precedence.
func ScamType(indicators []string) string {
	has := make(map[string]bool, len(indicators))
	for _, i := range indicators {
		has[i] = true
	}
	switch {
	case has[LotteryPrize]:
		return domain.ScamTypeLottery
	case has[PaymentDemand]:
		return domain.ScamTypeUPIFraud
	case has[Threat] && has[VerificationRequest]:
		return domain.ScamTypeKYCFraud
	case has[SuspiciousLink]:
		return domain.ScamTypePhishing
	case has[AuthorityImpersonation]:
		return domain.ScamTypeImpersonation
	default:
		return domain.ScamTypeUnknown
	}
}
