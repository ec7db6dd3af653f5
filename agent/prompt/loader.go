package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	contractx "github.com/rishi-noob/soulsyncmain/agent/contract"
)

var (
	//go:embed template/chat_advice.txt
	chatAdviceRaw string

	//go:embed template/wellness_reminders.txt
	wellnessRemindersRaw string

	//go:embed template/forum_moderation.txt
	forumModerationRaw string

	//go:embed template/journal_summary.txt
	journalSummaryRaw string

	//go:embed template/schema_instruction.txt
	schemaInstructionRaw string
)

// PromptSet holds the Go-template prompt bodies, one per use case, and the shared
// instruction that pins the response to the output JSON Schema.
type PromptSet struct {
	ChatAdvice        string
	WellnessReminders string
	ForumModeration   string
	JournalSummary    string
	SchemaInstruction string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		ChatAdvice:        strings.TrimSpace(chatAdviceRaw),
		WellnessReminders: strings.TrimSpace(wellnessRemindersRaw),
		ForumModeration:   strings.TrimSpace(forumModerationRaw),
		JournalSummary:    strings.TrimSpace(journalSummaryRaw),
		SchemaInstruction: strings.TrimSpace(schemaInstructionRaw),
	}
}

// For returns the prompt body registered for useCase.
func (p PromptSet) For(useCase contractx.UseCase) (string, error) {
	var body string
	switch useCase {
	case contractx.UseCaseChatAdvice:
		body = p.ChatAdvice
	case contractx.UseCaseWellnessReminders:
		body = p.WellnessReminders
	case contractx.UseCaseForumModeration:
		body = p.ForumModeration
	case contractx.UseCaseJournalSummary:
		body = p.JournalSummary
	}
	if strings.TrimSpace(body) == "" {
		return "", fmt.Errorf("%w: use_case=%s", contractx.ErrPromptMissing, useCase)
	}
	return body, nil
}
