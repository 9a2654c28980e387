// Package extract pulls typed identifiers out of free text.
//
// Extraction is pure: the same text always yields the same sets and no
// session state is consulted.
package extract

import (
	"regexp"
	"strings"

	"github.com/soyeahso/honeypot/internal/domain"
)

var (
	// local@domain, where the domain may carry dotted labels.
	handleRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9\-]+(?:\.[A-Za-z0-9\-]+)*`)

	// tldRe matches a domain ending in an alphabetic extension (.com, .in, .org).
	tldRe = regexp.MustCompile(`\.[A-Za-z]{2,6}$`)

	// emailLabelRe matches text that introduces the next token as an email.
	emailLabelRe = regexp.MustCompile(`(?i)\be-?mail(?:\s+(?:id|address))?\s*(?:is|:|-|=)?\s*$`)

	phoneRe = regexp.MustCompile(`\b[6-9]\d{9}\b`)

	bankAccountRe = regexp.MustCompile(`\b\d{11,18}\b`)

	schemeLinkRe = regexp.MustCompile(`(?i)\bhttps?://[^\s<>"']+`)

	shortLinkRe = regexp.MustCompile(`(?i)\b(?:bit\.ly|tinyurl\.com|tinyurl|goo\.gl|t\.co|cutt\.ly|is\.gd|rb\.gy|shorturl\.at)/[A-Za-z0-9_\-/]+`)

	amountRe = regexp.MustCompile(`(?i)(?:₹|\brs\.?|\binr\.?|\brupees?)\s*((?:\d{1,3}(?:,\d{2,3})+|\d+)(?:\.\d+)?)`)

	bankNameRe = regexp.MustCompile(`(?i)\b(state\s+bank\s+of\s+india|state\s+bank|sbi|punjab\s+national\s+bank|pnb|bank\s+of\s+baroda|bob|hdfc|icici|axis|kotak|canara|union\s+bank|yes\s+bank|idfc|indusind|paytm|phonepe|google\s*pay|gpay|bhim)\b`)

	spaceRe = regexp.MustCompile(`\s+`)
)

const linkTrailingPunct = `.,;:!?)]}'"`

// Extract returns every identifier found in text.
func Extract(text string) domain.Extraction {
	out := domain.NewExtraction()
	if strings.TrimSpace(text) == "" {
		return out
	}

	classifyHandles(text, &out)

	out.Phones.Add(phoneRe.FindAllString(text, -1)...)
	out.BankAccounts.Add(bankAccountRe.FindAllString(text, -1)...)
	extractLinks(text, &out)

	for _, m := range amountRe.FindAllStringSubmatch(text, -1) {
		out.Amounts.Add(m[1])
	}
	for _, m := range bankNameRe.FindAllString(text, -1) {
		out.BankNames.Add(spaceRe.ReplaceAllString(strings.ToLower(m), " "))
	}
	return out
}

// classifyHandles splits local@domain candidates into emails and payment
// handles. A literal that ends up an email is never a payment handle.
func classifyHandles(text string, out *domain.Extraction) {
	candidates := map[string]bool{} // literal -> labelled as email
	var order []string
	for _, loc := range handleRe.FindAllStringIndex(text, -1) {
		lit := strings.ToLower(strings.Trim(text[loc[0]:loc[1]], ".-"))
		if !strings.Contains(lit, "@") || strings.HasPrefix(lit, "@") || strings.HasSuffix(lit, "@") {
			continue
		}
		labelled := emailLabelRe.MatchString(text[:loc[0]])
		if _, seen := candidates[lit]; !seen {
			order = append(order, lit)
		}
		candidates[lit] = candidates[lit] || labelled
	}

	for _, lit := range order {
		dom := lit[strings.LastIndex(lit, "@")+1:]
		switch {
		case tldRe.MatchString(dom):
			out.Emails.Add(lit)
		case candidates[lit]:
			out.Emails.Add(lit)
			if !strings.Contains(dom, ".") {
				out.LabeledHandleCandidates.Add(lit)
			}
		default:
			out.PaymentHandles.Add(lit)
		}
	}
	for lit := range out.Emails {
		delete(out.PaymentHandles, lit)
	}
}

func extractLinks(text string, out *domain.Extraction) {
	spans := schemeLinkRe.FindAllStringIndex(text, -1)
	for _, s := range spans {
		out.Links.Add(strings.TrimRight(text[s[0]:s[1]], linkTrailingPunct))
	}
	for _, s := range shortLinkRe.FindAllStringIndex(text, -1) {
		if within(s, spans) {
			continue
		}
		out.Links.Add(strings.TrimRight(text[s[0]:s[1]], linkTrailingPunct))
	}
}

func within(span []int, spans [][]int) bool {
	for _, o := range spans {
		if span[0] >= o[0] && span[1] <= o[1] {
			return true
		}
	}
	return false
}
