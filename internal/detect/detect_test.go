package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/soyeahso/honeypot/internal/domain"
)

func TestAnalyzeKYCScenario(t *testing.T) {
	sig := Analyze("Your account will be suspended today, verify your KYC at bit.ly/xyz")

	assert.True(t, sig.IsScam)
	assert.Subset(t, sig.Indicators, []string{Threat, Urgency, SuspiciousLink, VerificationRequest})
	assert.Contains(t, []domain.Confidence{domain.ConfidenceHigh, domain.ConfidenceVeryHigh}, sig.Confidence)
	assert.Equal(t, domain.ScamTypeKYCFraud, sig.ScamType)
}

func TestAnalyzeWhitelistShortCircuits(t *testing.T) {
	tests := []string{
		"Your OTP is 482913. It expires in 10 minutes. Act urgently, do it now!",
		"Rs 5000 credited to your a/c XX1234. Available balance Rs 12000. Act now",
		"Your KYC update has been successfully completed today",
		"For any query visit www.hdfcbank.com urgently",
	}
	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			sig := Analyze(text)
			assert.False(t, sig.IsScam)
			assert.Equal(t, domain.ConfidenceLow, sig.Confidence)
			assert.Empty(t, sig.Indicators)
			assert.True(t, sig.Whitelisted)
		})
	}
}

func TestAnalyzeWhitelistNeedsCompletionWord(t *testing.T) {
	tests := []string{
		"Your KYC has been successfully suspended. Verify your account immediately at http://bit.ly/kyc or it will be blocked today",
		"Your card has been successfully blocked. Call 9876543210 now to restore it",
	}
	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			sig := Analyze(text)
			assert.False(t, sig.Whitelisted)
			assert.True(t, sig.IsScam)
			assert.GreaterOrEqual(t, len(sig.Indicators), 3)
		})
	}
}

func TestAnalyzeOneIndicatorPerCategory(t *testing.T) {
	sig := Analyze("urgent! immediately! now! today! hurry!")
	assert.Equal(t, []string{Urgency}, sig.Indicators)
	assert.False(t, sig.IsScam)
	assert.Equal(t, domain.ConfidenceLow, sig.Confidence)
	assert.Equal(t, domain.ScamTypeUnknown, sig.ScamType)
}

func TestAnalyzeScamTypes(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"lottery beats payment", "Congratulations you won a lottery prize of 25 lakh, pay Rs 5000 processing fee", domain.ScamTypeLottery},
		{"payment", "Send Rs 2000 now to release your refund", domain.ScamTypeUPIFraud},
		{"phishing", "Click this link immediately https://secure-update.example", domain.ScamTypePhishing},
		{"impersonation", "This is the RBI fraud department calling, act today", domain.ScamTypeImpersonation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := Analyze(tt.text)
			assert.True(t, sig.IsScam, "indicators: %v", sig.Indicators)
			assert.Equal(t, tt.want, sig.ScamType)
		})
	}
}

func TestConfidenceFor(t *testing.T) {
	tests := []struct {
		n    int
		want domain.Confidence
	}{
		{0, domain.ConfidenceLow},
		{1, domain.ConfidenceLow},
		{2, domain.ConfidenceMedium},
		{3, domain.ConfidenceHigh},
		{4, domain.ConfidenceVeryHigh},
		{8, domain.ConfidenceVeryHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ConfidenceFor(tt.n))
	}
}

func TestScamTypePrecedence(t *testing.T) {
	assert.Equal(t, domain.ScamTypeKYCFraud, ScamType([]string{SuspiciousLink, Threat, VerificationRequest}))
	assert.Equal(t, domain.ScamTypePhishing, ScamType([]string{SuspiciousLink, Threat}))
	assert.Equal(t, domain.ScamTypeUnknown, ScamType([]string{Urgency, PhoneCallToAction}))
}

func TestAnalyzePhoneCallToActionNeedsVerb(t *testing.T) {
	assert.Contains(t, Analyze("call me at 9876543210").Indicators, PhoneCallToAction)
	assert.NotContains(t, Analyze("my number 9876543210").Indicators, PhoneCallToAction)
}
