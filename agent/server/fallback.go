package server

import (
	contractx "github.com/rishi-noob/soulsyncmain/agent/contract"
)

const chatFallbackHTML = "<p>I'm having some trouble connecting right now. Please try again in a moment.</p>"

var wellnessFallback = []string{
	"Take a 10-minute break every hour to stretch and rest your eyes.",
	"Make sure you get at least 7-8 hours of sleep, especially before an exam.",
	"Connect with a friend or family member for a quick chat to de-stress.",
}

// Fallback is the canned content shown in place of a failed call, or nil when the
// use case has none. Moderation and journal summaries never substitute content.
func Fallback(uc contractx.UseCase) any {
	switch uc {
	case contractx.UseCaseChatAdvice:
		return contractx.ChatAdviceOutput{
			MessageHTML: chatFallbackHTML + "\n" + contractx.ChatDisclaimer,
			CopingSteps: []string{},
			Escalation:  contractx.EscalationNone,
		}
	case contractx.UseCaseWellnessReminders:
		return contractx.WellnessRemindersOutput{
			Reminders: append([]string(nil), wellnessFallback...),
		}
	default:
		return nil
	}
}
