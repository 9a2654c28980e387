// Package profile grades collected intelligence and sketches the
// counterpart behind a session.
package profile

import "github.com/soyeahso/honeypot/internal/domain"

// Grades, best first.
const (
	GradeS = "S"
	GradeA = "A"
	GradeB = "B"
	GradeC = "C"
	GradeD = "D"
)

// Per-entity weights for the value score.
const (
	weightAccount  = 25
	weightHandle   = 20
	weightPhone    = 15
	weightLink     = 10
	weightAmount   = 5
	weightKeyword  = 2
	keywordCap     = 10
	actionableMark = 40
)

// Value rates how useful a session's intelligence is to an investigator.
type Value struct {
	Score            int    `json:"score"`
	Grade            string `json:"grade"`
	Actionable       bool   `json:"actionable"`
	ProsecutionReady bool   `json:"prosecutionReady"`
	EntitiesExposed  int    `json:"entitiesExposed"`
	CanFreeze        bool   `json:"canFreeze"`
	CanTrack         bool   `json:"canTrack"`
	CanTakedown      bool   `json:"canTakedown"`
}

// Grade scores an intelligence report.
func Grade(r domain.IntelligenceReport) Value {
	accounts := len(r.BankAccounts)
	handles := len(r.PaymentHandles)
	phones := len(r.Phones)
	links := len(r.Links)

	score := accounts*weightAccount +
		handles*weightHandle +
		phones*weightPhone +
		links*weightLink +
		len(r.Amounts)*weightAmount +
		min(len(r.Keywords), keywordCap)*weightKeyword

	financial := accounts > 0 || handles > 0
	return Value{
		Score:            score,
		Grade:            gradeFor(score),
		Actionable:       score >= actionableMark,
		ProsecutionReady: financial && (phones > 0 || links > 0),
		EntitiesExposed:  accounts + handles + phones + links,
		CanFreeze:        financial,
		CanTrack:         phones > 0,
		CanTakedown:      links > 0,
	}
}

func gradeFor(score int) string {
	switch {
	case score >= 80:
		return GradeS
	case score >= 60:
		return GradeA
	case score >= 40:
		return GradeB
	case score >= 20:
		return GradeC
	default:
		return GradeD
	}
}
