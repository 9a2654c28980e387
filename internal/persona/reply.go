package persona

import (
	"math/rand/v2"
	"regexp"
	"strings"
)

// MaxReplyWords caps the length of a cleaned reply.
const MaxReplyWords = 40

var (
	sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]+`)
	spacesRe   = regexp.MustCompile(`\s+`)
)

// Clean strips markdown, quotes and role prefixes from a generated reply and
// caps its length. firstName is the persona's own name, which models
// sometimes echo as a speaker label.
func Clean(reply, firstName string) string {
	reply = strings.TrimSpace(reply)
	reply = strings.ReplaceAll(reply, "*", "")
	reply = strings.ReplaceAll(reply, `"`, "")

	markers := "You|Agent|Response|Reply"
	if firstName != "" {
		markers += "|" + regexp.QuoteMeta(firstName)
	}
	prefix := regexp.MustCompile(`(?i)^(?:` + markers + `)\s*:\s*`)
	reply = prefix.ReplaceAllString(reply, "")
	reply = strings.TrimSpace(spacesRe.ReplaceAllString(reply, " "))

	words := strings.Fields(reply)
	if len(words) <= MaxReplyWords {
		return reply
	}
	if s := sentenceRe.FindAllString(reply, 2); len(s) == 2 {
		kept := strings.TrimSpace(s[0]) + " " + strings.TrimSpace(s[1])
		if len(strings.Fields(kept)) <= MaxReplyWords {
			return kept
		}
	}
	return strings.Join(words[:MaxReplyWords], " ")
}

var fallbackReplies = []string{
	"Mujhe thoda confusion ho raha hai. Aapka number aur email id kya hai?",
	"Main samajh nahin pa raha. Kya aap WhatsApp pe details bhej sakte hain?",
	"Yeh kya ho raha hai? Mujhe aapka customer care number chahiye.",
	"Ek minute, aap kaun bol rahe ho? Apna phone number aur email bataiye.",
	"Bahut confusing hai yeh. Koi link ya contact details bhej sakte ho?",
	"Arre, thoda explain toh karo. Aapka contact number kya hai?",
	"Main pehle verify karna chahta hoon. Email id aur WhatsApp number bataiye.",
	"Thoda detail mein bataiye. Aapka official number aur email kya hai?",
}

// FallbackReply returns one of the fixed replies used when generation
// fails.
func FallbackReply() string {
	return fallbackReplies[rand.IntN(len(fallbackReplies))]
}
