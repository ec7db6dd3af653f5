package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	contractx "github.com/rishi-noob/soulsyncmain/agent/contract"
)

type chatAdviceInput struct {
	Body contractx.ChatAdviceRequest
}

type chatAdviceOutput struct {
	Body contractx.ChatAdviceOutput
}

type wellnessInput struct {
	Body contractx.WellnessRemindersRequest
}

type wellnessOutput struct {
	Body contractx.WellnessRemindersOutput
}

type moderationInput struct {
	Body contractx.ModerationRequest
}

type moderationOutput struct {
	Body contractx.ModerationOutput
}

type journalInput struct {
	Body contractx.JournalSummaryRequest
}

type journalOutput struct {
	Body contractx.JournalSummaryOutput
}

type moodCheckInInput struct {
	Body contractx.MoodLog
}

type moodCheckInOutput struct {
	Body contractx.MoodEntry
}

var errorResponses = []int{
	http.StatusBadRequest,
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"system"},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerChatAdvice(api huma.API, p contractx.Pipeline) {
	huma.Register(api, huma.Operation{
		OperationID: "chat-advice",
		Method:      http.MethodPost,
		Path:        "/chat/advice",
		Summary:     "Supportive reply to the latest chat message",
		Tags:        []string{"advice"},
		Errors:      errorResponses,
	}, func(ctx context.Context, input *chatAdviceInput) (*chatAdviceOutput, error) {
		out, err := p.ChatAdvice(ctx, input.Body)
		if err != nil {
			return nil, handleError(contractx.UseCaseChatAdvice, err)
		}
		return &chatAdviceOutput{Body: out}, nil
	})
}

func registerWellness(api huma.API, p contractx.Pipeline) {
	huma.Register(api, huma.Operation{
		OperationID: "wellness-reminders",
		Method:      http.MethodPost,
		Path:        "/wellness/reminders",
		Summary:     "Wellness reminders for upcoming academic events",
		Tags:        []string{"advice"},
		Errors:      errorResponses,
	}, func(ctx context.Context, input *wellnessInput) (*wellnessOutput, error) {
		out, err := p.WellnessReminders(ctx, input.Body)
		if err != nil {
			return nil, handleError(contractx.UseCaseWellnessReminders, err)
		}
		return &wellnessOutput{Body: out}, nil
	})
}

func registerModeration(api huma.API, p contractx.Pipeline) {
	huma.Register(api, huma.Operation{
		OperationID: "forum-moderate",
		Method:      http.MethodPost,
		Path:        "/forum/moderate",
		Summary:     "Moderate a peer-forum message",
		Tags:        []string{"forum"},
		Errors:      errorResponses,
	}, func(ctx context.Context, input *moderationInput) (*moderationOutput, error) {
		out, err := p.ModerateForumMessage(ctx, input.Body)
		if err != nil {
			return nil, handleError(contractx.UseCaseForumModeration, err)
		}
		return &moderationOutput{Body: out}, nil
	})
}

func registerJournal(api huma.API, p contractx.Pipeline) {
	huma.Register(api, huma.Operation{
		OperationID: "journal-summary",
		Method:      http.MethodPost,
		Path:        "/journal/summary",
		Summary:     "Mind-map summary of journal entries",
		Tags:        []string{"journal"},
		Errors:      errorResponses,
	}, func(ctx context.Context, input *journalInput) (*journalOutput, error) {
		out, err := p.SummarizeJournal(ctx, input.Body)
		if err != nil {
			return nil, handleError(contractx.UseCaseJournalSummary, err)
		}
		return &journalOutput{Body: out}, nil
	})
}

func registerMoodCheckIn(api huma.API, p contractx.Pipeline) {
	huma.Register(api, huma.Operation{
		OperationID: "mood-check-in",
		Method:      http.MethodPost,
		Path:        "/mood/check-in",
		Summary:     "Classify the daily mood check-in",
		Description: "Answers keyed by question id. The `day` answer (emoji or 1-5) is required.",
		Tags:        []string{"mood"},
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *moodCheckInInput) (*moodCheckInOutput, error) {
		entry, err := p.LogMood(ctx, input.Body)
		if err != nil {
			return nil, handleError("", err)
		}
		return &moodCheckInOutput{Body: entry}, nil
	})
}
