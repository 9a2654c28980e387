package engine

import "github.com/soyeahso/honeypot/internal/domain"

// Stats aggregates live sessions.
type Stats struct {
	TotalSessions     int            `json:"totalSessions"`
	ScamSessions      int            `json:"scamSessions"`
	DetectionRate     float64        `json:"scamDetectionRate"`
	EntitiesExtracted int            `json:"totalEntitiesExtracted"`
	TotalTurns        int            `json:"totalTurns"`
	ScamTypes         map[string]int `json:"scamTypes"`
}

// SessionCount returns the number of live sessions.
func (e *Engine) SessionCount() int {
	return e.store.Len()
}

// Stats walks every live session. Entity totals count bank accounts,
// payment handles, phones and links.
func (e *Engine) Stats() Stats {
	st := Stats{ScamTypes: map[string]int{}}
	e.store.Range(func(s domain.Snapshot) bool {
		st.TotalSessions++
		st.TotalTurns += s.TurnCount
		in := s.Intelligence
		st.EntitiesExtracted += len(in.BankAccounts) + len(in.PaymentHandles) + len(in.Phones) + len(in.Links)
		if s.Detected {
			st.ScamSessions++
			st.ScamTypes[s.ScamType]++
		}
		return true
	})
	if st.TotalSessions > 0 {
		st.DetectionRate = float64(st.ScamSessions) / float64(st.TotalSessions)
	}
	return st
}
