package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestExtractHandlesVersusEmails(t *testing.T) {
	got := Extract("pay to user@paytm or mail user@company.com")
	assert.Equal(t, []string{"user@paytm"}, got.PaymentHandles.Sorted())
	assert.Equal(t, []string{"user@company.com"}, got.Emails.Sorted())
	assert.False(t, got.Emails.Has("user@paytm"))
	assert.False(t, got.PaymentHandles.Has("user@company.com"))
}

func TestExtractLabelledEmailWithoutTLD(t *testing.T) {
	got := Extract("my email is officer@sbisupport thanks")
	assert.True(t, got.Emails.Has("officer@sbisupport"))
	assert.False(t, got.PaymentHandles.Has("officer@sbisupport"))
	assert.True(t, got.LabeledHandleCandidates.Has("officer@sbisupport"))
}

func TestExtractTrailingSentencePunctuation(t *testing.T) {
	got := Extract("Write to help@secure-bank.in.")
	assert.Equal(t, []string{"help@secure-bank.in"}, got.Emails.Sorted())
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		check func(t *testing.T, text string)
	}{
		{
			name: "phone",
			text: "call me on 9876543210 or +91 8123456789 not 5123456789",
			check: func(t *testing.T, text string) {
				assert.Equal(t, []string{"8123456789", "9876543210"}, Extract(text).Phones.Sorted())
			},
		},
		{
			name: "bank account excludes phones",
			text: "account 123456789012 and phone 9876543210",
			check: func(t *testing.T, text string) {
				got := Extract(text)
				assert.Equal(t, []string{"123456789012"}, got.BankAccounts.Sorted())
				assert.Equal(t, []string{"9876543210"}, got.Phones.Sorted())
			},
		},
		{
			name: "links",
			text: "open https://secure-kyc.example/verify?id=1, or bit.ly/abc123 and https://bit.ly/zz9",
			check: func(t *testing.T, text string) {
				assert.Equal(t, []string{
					"bit.ly/abc123",
					"https://bit.ly/zz9",
					"https://secure-kyc.example/verify?id=1",
				}, Extract(text).Links.Sorted())
			},
		},
		{
			name: "bare shortener needs path",
			text: "visit bit.ly today",
			check: func(t *testing.T, text string) {
				assert.Empty(t, Extract(text).Links)
			},
		},
		{
			name: "amounts",
			text: "send ₹5,000 now, fee Rs.499 or rupees 10000.50; total INR 2000",
			check: func(t *testing.T, text string) {
				assert.Equal(t, []string{"10000.50", "2000", "499", "5,000"}, Extract(text).Amounts.Sorted())
			},
		},
		{
			name: "bank names case-insensitive",
			text: "This is SBI, not hdfc. Use Google  Pay or PhonePe",
			check: func(t *testing.T, text string) {
				assert.Equal(t, []string{"google pay", "hdfc", "phonepe", "sbi"}, Extract(text).BankNames.Sorted())
			},
		},
		{
			name: "empty",
			text: "   ",
			check: func(t *testing.T, text string) {
				assert.True(t, Extract(text).Empty())
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, tt.text)
		})
	}
}

func TestExtractProperties(t *testing.T) {
	words := []string{
		"pay", "to", "now", "9876543210", "user@paytm", "user@company.com",
		"email is", "ravi@okaxis", "₹500", "bit.ly/x1", "123456789012",
		"SBI", "https://a.example/b", ".", ",", "@", "x@y",
	}
	rapid.Check(t, func(t *rapid.T) {
		parts := rapid.SliceOfN(rapid.SampledFrom(words), 0, 12).Draw(t, "parts")
		text := strings.Join(parts, " ")

		a, b := Extract(text), Extract(text)
		if !equalSorted(a.Emails.Sorted(), b.Emails.Sorted()) ||
			!equalSorted(a.PaymentHandles.Sorted(), b.PaymentHandles.Sorted()) ||
			!equalSorted(a.Phones.Sorted(), b.Phones.Sorted()) {
			t.Fatalf("extraction not deterministic for %q", text)
		}
		for lit := range a.Emails {
			if a.PaymentHandles.Has(lit) {
				t.Fatalf("%q is both an email and a payment handle", lit)
			}
		}
		for p := range a.Phones {
			if a.BankAccounts.Has(p) {
				t.Fatalf("%q is both a phone and a bank account", p)
			}
		}
	})
}

func equalSorted(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
