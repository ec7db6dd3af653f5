package contract

import "context"

// Invoker performs exactly one model exchange for a request.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (Output, error)
}

// Pipeline is the caller-facing surface: one operation per use case.
type Pipeline interface {
	ChatAdvice(ctx context.Context, req ChatAdviceRequest) (ChatAdviceOutput, error)
	WellnessReminders(ctx context.Context, req WellnessRemindersRequest) (WellnessRemindersOutput, error)
	ModerateForumMessage(ctx context.Context, req ModerationRequest) (ModerationOutput, error)
	SummarizeJournal(ctx context.Context, req JournalSummaryRequest) (JournalSummaryOutput, error)
	LogMood(ctx context.Context, log MoodLog) (MoodEntry, error)
}
