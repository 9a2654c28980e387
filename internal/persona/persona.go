// Package persona builds the decoy persona's generation context and
// post-processes generated replies.
//
// Prompt wording lives in versioned templates under templates/; the engine
// treats the rendered text as opaque.
package persona

import (
	"embed"
	"fmt"
	"strings"
	"text/template"
	"unicode"

	"github.com/soyeahso/honeypot/internal/config"
	"github.com/soyeahso/honeypot/internal/domain"
)

// TemplateVersion names the prompt template in use.
const TemplateVersion = "v1"

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("").
	Funcs(template.FuncMap{"join": strings.Join}).
	ParseFS(templateFS, "templates/"+TemplateVersion+".tmpl"))

// Persona describes who the agent pretends to be.
type Persona struct {
	Name       string
	Age        int
	Occupation string
	Traits     []string
}

// FromConfig converts the persona config section.
func FromConfig(c config.PersonaConfig) Persona {
	return Persona{Name: c.Name, Age: c.Age, Occupation: c.Occupation, Traits: c.Traits}
}

// FirstName returns the first word of the persona's name.
func (p Persona) FirstName() string {
	if f := strings.Fields(p.Name); len(f) > 0 {
		return f[0]
	}
	return ""
}

// Context is everything the generator sees for one reply.
type Context struct {
	Persona         Persona
	SessionID       string
	Language        string
	CounterpartText string
	AgentText       string
	Latest          string
	Turn            int
	MaxTurns        int
	ScamType        string
	Collected       []string
	LastOpening     string
}

// NewContext derives a generation context from a session snapshot that
// already contains the latest counterpart message.
func NewContext(p Persona, snap domain.Snapshot, latest string, maxTurns int) Context {
	c := Context{
		Persona:         p,
		SessionID:       snap.ID,
		Language:        DetectLanguage(latest),
		CounterpartText: snap.CounterpartText(),
		AgentText:       snap.AgentText(),
		Latest:          latest,
		Turn:            snap.TurnCount,
		MaxTurns:        maxTurns,
		ScamType:        snap.ScamType,
		Collected:       collected(snap.Intelligence),
	}
	for i := len(snap.History) - 1; i >= 0; i-- {
		if !snap.History[i].Sender.IsCounterpart() {
			c.LastOpening = firstWords(snap.History[i].Text, 6)
			break
		}
	}
	return c
}

// Status summarises which categories have been collected.
func (c Context) Status() string {
	if len(c.Collected) == 0 {
		return "Extracted: nothing yet"
	}
	return "Extracted: " + strings.Join(c.Collected, ", ")
}

func collected(r domain.IntelligenceReport) []string {
	var out []string
	for _, cat := range []struct {
		name string
		n    int
	}{
		{"phone", len(r.Phones)},
		{"email", len(r.Emails)},
		{"UPI", len(r.PaymentHandles)},
		{"bank account", len(r.BankAccounts)},
		{"link", len(r.Links)},
	} {
		if cat.n > 0 {
			out = append(out, cat.name)
		}
	}
	return out
}

// Prompt is a rendered generation request.
type Prompt struct {
	Version string
	System  string
	User    string
}

// Render fills the current template with c.
func Render(c Context) (Prompt, error) {
	var sys, user strings.Builder
	if err := templates.ExecuteTemplate(&sys, "system", c); err != nil {
		return Prompt{}, fmt.Errorf("rendering system prompt: %w", err)
	}
	if err := templates.ExecuteTemplate(&user, "user", c); err != nil {
		return Prompt{}, fmt.Errorf("rendering user prompt: %w", err)
	}
	return Prompt{Version: TemplateVersion, System: strings.TrimSpace(sys.String()), User: strings.TrimSpace(user.String())}, nil
}

// DetectLanguage returns "hi" when text contains Devanagari, else "en".
func DetectLanguage(text string) string {
	for _, r := range text {
		if unicode.Is(unicode.Devanagari, r) {
			return "hi"
		}
	}
	return "en"
}

func firstWords(s string, n int) string {
	f := strings.Fields(s)
	if len(f) > n {
		f = f[:n]
	}
	return strings.Join(f, " ")
}
