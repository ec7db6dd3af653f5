package validate

import (
	"regexp"
	"strings"

	contractx "github.com/rishi-noob/soulsyncmain/agent/contract"
)

// DefaultHotlineNotice is inserted ahead of the disclaimer whenever a reply is
// escalated to urgent_hotline and the model did not already include it.
const DefaultHotlineNotice = "<p><b>If you are thinking about harming yourself or someone else, please reach out right now: call your local crisis hotline or emergency number, or go to the nearest emergency room. You do not have to go through this alone.</b></p>"

var riskPhrases = []string{
	`kill(?:ing)? myself`,
	`end(?:ing)? (?:my own|my) life`,
	`end it all`,
	`take my own life`,
	`suicid(?:e|al)`,
	`self[- ]?harm(?:ing)?`,
	`(?:hurt|hurting|cut|cutting|harm|harming) myself`,
	`want(?:ed)? to die`,
	`better off dead`,
	`no reason to (?:live|go on)`,
	`don'?t want to (?:live|be alive|wake up)`,
	`overdose`,
	`(?:kill|hurt|harm) (?:someone|somebody|him|her|them|people|others|everyone)`,
}

var riskPattern = regexp.MustCompile(`\b(?:` + strings.Join(riskPhrases, `|`) + `)\b`)

// senders maps every speaker label the transcript uses to whether it is the student.
var senders = map[string]bool{
	"user":      true,
	"student":   true,
	"assistant": false,
	"bot":       false,
	"ai":        false,
	"soulsync":  false,
}

// RiskScreen returns the minimum escalation the conversation warrants on its own.
// Only the student's lines are scanned; the assistant quoting a hotline must not
// escalate a later reply.
type RiskScreen func(chatHistory string) contractx.Escalation

// ScreenChatHistory flags explicit self-harm, suicide or danger-to-others language.
func ScreenChatHistory(chatHistory string) contractx.Escalation {
	if HasRiskLanguage(studentText(chatHistory)) {
		return contractx.EscalationUrgentHotline
	}
	return contractx.EscalationNone
}

func HasRiskLanguage(text string) bool {
	return riskPattern.MatchString(normalize(text))
}

func studentText(chatHistory string) string {
	var b strings.Builder
	student := true
	for _, line := range strings.Split(chatHistory, "\n") {
		if sender, rest, ok := strings.Cut(line, ":"); ok {
			if isStudent, known := senders[strings.ToLower(strings.TrimSpace(sender))]; known {
				student = isStudent
				line = rest
			}
		}
		if student {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func normalize(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer("’", "'", "‘", "'").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
