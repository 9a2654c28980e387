package domain

import "slices"

// Set is a string set. The zero value is not usable; use NewSet.
type Set map[string]struct{}

// NewSet returns a set holding items.
func NewSet(items ...string) Set {
	s := make(Set, len(items))
	s.Add(items...)
	return s
}

// Add inserts items, ignoring empty strings. It returns how many were new.
func (s Set) Add(items ...string) int {
	added := 0
	for _, it := range items {
		if it == "" {
			continue
		}
		if _, ok := s[it]; !ok {
			s[it] = struct{}{}
			added++
		}
	}
	return added
}

// Has reports membership.
func (s Set) Has(item string) bool {
	_, ok := s[item]
	return ok
}

// Union adds every member of other and returns how many were new.
func (s Set) Union(other Set) int {
	added := 0
	for it := range other {
		if _, ok := s[it]; !ok {
			s[it] = struct{}{}
			added++
		}
	}
	return added
}

// Sorted returns the members in lexical order. A nil or empty set yields an
// empty, non-nil slice so JSON encodes it as [].
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for it := range s {
		out = append(out, it)
	}
	slices.Sort(out)
	return out
}

// Without returns the members of s that are not in other.
func (s Set) Without(other Set) Set {
	out := make(Set, len(s))
	for it := range s {
		if _, ok := other[it]; !ok {
			out[it] = struct{}{}
		}
	}
	return out
}

// Extraction is the typed output of the entity extractor for one text
// block. Emails and PaymentHandles never share a literal.
type Extraction struct {
	Phones         Set
	Emails         Set
	PaymentHandles Set
	BankAccounts   Set
	Links          Set
	Amounts        Set
	BankNames      Set
	// LabeledHandleCandidates holds literals explicitly introduced as an
	// email whose domain has no dot. They are kept for review and are not
	// merged into the payment-handle set.
	LabeledHandleCandidates Set
}

// NewExtraction returns an extraction with every set allocated.
func NewExtraction() Extraction {
	return Extraction{
		Phones:                  NewSet(),
		Emails:                  NewSet(),
		PaymentHandles:          NewSet(),
		BankAccounts:            NewSet(),
		Links:                   NewSet(),
		Amounts:                 NewSet(),
		BankNames:               NewSet(),
		LabeledHandleCandidates: NewSet(),
	}
}

// Empty reports whether nothing was extracted.
func (e Extraction) Empty() bool {
	return len(e.Phones)+len(e.Emails)+len(e.PaymentHandles)+len(e.BankAccounts)+
		len(e.Links)+len(e.Amounts)+len(e.BankNames) == 0
}

// Intelligence accumulates everything extracted from a session. It only
// ever grows.
type Intelligence struct {
	Phones         Set
	Emails         Set
	PaymentHandles Set
	BankAccounts   Set
	Links          Set
	Amounts        Set
	BankNames      Set
	Keywords       Set
}

// NewIntelligence returns an accumulator with every set allocated.
func NewIntelligence() Intelligence {
	return Intelligence{
		Phones:         NewSet(),
		Emails:         NewSet(),
		PaymentHandles: NewSet(),
		BankAccounts:   NewSet(),
		Links:          NewSet(),
		Amounts:        NewSet(),
		BankNames:      NewSet(),
		Keywords:       NewSet(),
	}
}

// Merge unions an extraction and indicator keywords into the accumulator
// and returns the number of new entries. Emails and PaymentHandles stay
// disjoint across merges: a literal keeps the classification it was first
// accumulated under, and a later extraction filing it in the other set is
// ignored for that literal.
func (in Intelligence) Merge(e Extraction, keywords []string) int {
	n := in.Phones.Union(e.Phones)
	n += in.Emails.Union(e.Emails.Without(in.PaymentHandles))
	n += in.PaymentHandles.Union(e.PaymentHandles.Without(in.Emails))
	n += in.BankAccounts.Union(e.BankAccounts)
	n += in.Links.Union(e.Links)
	n += in.Amounts.Union(e.Amounts)
	n += in.BankNames.Union(e.BankNames)
	n += in.Keywords.Add(keywords...)
	return n
}

// Report converts the accumulator to its ordered, read-only form.
func (in Intelligence) Report() IntelligenceReport {
	return IntelligenceReport{
		Phones:         in.Phones.Sorted(),
		Emails:         in.Emails.Sorted(),
		PaymentHandles: in.PaymentHandles.Sorted(),
		BankAccounts:   in.BankAccounts.Sorted(),
		Links:          in.Links.Sorted(),
		Amounts:        in.Amounts.Sorted(),
		BankNames:      in.BankNames.Sorted(),
		Keywords:       in.Keywords.Sorted(),
	}
}

// IntelligenceReport is the snapshot form of Intelligence.
type IntelligenceReport struct {
	Phones         []string `json:"phoneNumbers"`
	Emails         []string `json:"emails"`
	PaymentHandles []string `json:"upiIds"`
	BankAccounts   []string `json:"bankAccounts"`
	Links          []string `json:"phishingLinks"`
	Amounts        []string `json:"amounts"`
	BankNames      []string `json:"bankNames"`
	Keywords       []string `json:"suspiciousKeywords"`
}

// HighValueCounts returns the sizes of the four high-value categories.
func (r IntelligenceReport) HighValueCounts() HighValueCounts {
	return HighValueCounts{
		BankAccounts:   len(r.BankAccounts),
		PaymentHandles: len(r.PaymentHandles),
		Phones:         len(r.Phones),
		Emails:         len(r.Emails),
	}
}

// HighValueCounts holds the entity counts the exit engine reasons about.
type HighValueCounts struct {
	BankAccounts   int `json:"bankAccounts"`
	PaymentHandles int `json:"upiIds"`
	Phones         int `json:"phoneNumbers"`
	Emails         int `json:"emails"`
}

// Categories returns how many of the four categories are non-empty.
func (c HighValueCounts) Categories() int {
	n := 0
	for _, v := range []int{c.BankAccounts, c.PaymentHandles, c.Phones, c.Emails} {
		if v > 0 {
			n++
		}
	}
	return n
}

// Total returns the summed entity count.
func (c HighValueCounts) Total() int {
	return c.BankAccounts + c.PaymentHandles + c.Phones + c.Emails
}
