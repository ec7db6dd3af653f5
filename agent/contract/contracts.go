package contract

import (
	"fmt"
	"strings"
)

// ChatDisclaimer must close every chat advice message.
const ChatDisclaimer = "<p><i><br>Disclaimer: I am an AI assistant. This is supportive aid, not a substitute for professional diagnosis.</i></p>"

// SafetySetting is a provider-neutral harm filter threshold.
type SafetySetting struct {
	Category  string
	Threshold string
}

// Contract fixes what a use case accepts and returns, plus the policy the validator
// enforces on top of the shape.
type Contract struct {
	UseCase     UseCase
	Description string
	Input       Shape
	Output      Shape

	// MessageField names the long-form text field that carries Disclaimer.
	MessageField string
	Disclaimer   string
	// EscalationField is set for use cases that classify distress.
	EscalationField string
	Retry           bool
	Safety          []SafetySetting
}

var (
	coping = Field{Name: "coping_steps", Type: TypeArray, Required: true, MaxItems: 5,
		Description: "Zero to five short, concrete coping actions.",
		Items:       &Field{Type: TypeString, NonEmpty: true}}

	theme = Field{Type: TypeObject, Fields: []Field{
		{Name: "theme", Type: TypeString, Required: true, NonEmpty: true,
			Description: "A primary theme identified in the text (e.g. 'Academic Stress', 'Gratitude')."},
		{Name: "keywords", Type: TypeArray, Required: true, NonEmpty: true, MaxItems: 4,
			Description: "Two to four keywords related to this theme.",
			Items:       &Field{Type: TypeString, NonEmpty: true}},
		{Name: "sentiment", Type: TypeString, Required: true,
			Enum: []string{string(SentimentPositive), string(SentimentNegative), string(SentimentNeutral)}},
	}}

	event = Field{Type: TypeObject, Fields: []Field{
		{Name: "title", Type: TypeString, Required: true, NonEmpty: true},
		{Name: "date", Type: TypeString, Required: true, NonEmpty: true},
		{Name: "type", Type: TypeString, Required: true},
		{Name: "notes", Type: TypeString, Required: true},
	}}

	moodSnapshot = Field{Type: TypeObject, Fields: []Field{
		{Name: "date", Type: TypeString, Required: true, NonEmpty: true},
		{Name: "responses", Type: TypeRecord, Required: true},
	}}
)

func flagReasonRequired(record map[string]any) *Violation {
	allowed, _ := record["allowed"].(bool)
	if allowed {
		return nil
	}
	reason, _ := record["flagReason"].(string)
	if strings.TrimSpace(reason) == "" {
		return &Violation{Path: "flagReason", Reason: "is required when allowed is false"}
	}
	return nil
}

var contracts = map[UseCase]Contract{
	UseCaseChatAdvice: {
		UseCase:     UseCaseChatAdvice,
		Description: "Personalised, supportive reply to the student's latest chat message.",
		Input: Shape{Fields: []Field{
			{Name: "moodData", Type: TypeString, Required: true, NonEmpty: true},
			{Name: "academicDeadlines", Type: TypeString, Required: true, NonEmpty: true},
			{Name: "chatHistory", Type: TypeString, Required: true, NonEmpty: true},
		}},
		Output: Shape{Fields: []Field{
			{Name: "message_html", Type: TypeString, Required: true, NonEmpty: true,
				Description: "Warm, encouraging, actionable HTML message. It MUST end with the disclaimer."},
			coping,
			{Name: "escalation", Type: TypeString, Required: true,
				Enum: []string{string(EscalationNone), string(EscalationRecommendCounsellor), string(EscalationUrgentHotline)}},
			{Name: "confidence", Type: TypeNumber, Min: Bound(0), Max: Bound(1),
				Description: "Confidence in the escalation level, between 0 and 1."},
			{Name: "source_references", Type: TypeArray, Items: &Field{Type: TypeString, NonEmpty: true}},
		}},
		MessageField:    "message_html",
		Disclaimer:      ChatDisclaimer,
		EscalationField: "escalation",
		Retry:           true,
	},
	UseCaseWellnessReminders: {
		UseCase:     UseCaseWellnessReminders,
		Description: "Practical wellness reminders tied to upcoming academic events and recent mood.",
		Input: Shape{Fields: []Field{
			{Name: "userId", Type: TypeString, Required: true, NonEmpty: true},
			{Name: "upcomingEvents", Type: TypeArray, Required: true, Items: &event},
			{Name: "moodEntries", Type: TypeArray, Required: true, Items: &moodSnapshot},
		}},
		Output: Shape{Fields: []Field{
			{Name: "reminders", Type: TypeArray, Required: true, MinItems: 1,
				Description: "Personalised wellness reminders.",
				Items:       &Field{Type: TypeString, NonEmpty: true}},
		}},
		Safety: []SafetySetting{
			{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_ONLY_HIGH"},
			{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_NONE"},
			{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
			{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_LOW_AND_ABOVE"},
		},
	},
	UseCaseForumModeration: {
		UseCase:     UseCaseForumModeration,
		Description: "Verdict on whether a peer-forum message is appropriate.",
		Input: Shape{Fields: []Field{
			{Name: "text", Type: TypeString, Required: true, NonEmpty: true},
		}},
		Output: Shape{
			Fields: []Field{
				{Name: "allowed", Type: TypeBoolean, Required: true,
					Description: "true if the message is allowed, false otherwise."},
				{Name: "flagReason", Type: TypeString,
					Description: "Brief reason the message was flagged; required when allowed is false."},
			},
			Rules: []Rule{flagReasonRequired},
		},
		Retry: true,
	},
	UseCaseJournalSummary: {
		UseCase:     UseCaseJournalSummary,
		Description: "Mind-map style summary of one or more journal entries.",
		Input: Shape{Fields: []Field{
			{Name: "journalContent", Type: TypeString, Required: true, NonEmpty: true},
		}},
		Output: Shape{Fields: []Field{
			{Name: "centralIdea", Type: TypeString, Required: true, NonEmpty: true,
				Description: "The single most central idea or feeling; the centre of the mind map."},
			{Name: "themes", Type: TypeArray, Required: true, MinItems: 2, MaxItems: 4,
				Description: "Two to four major themes branching off the central idea.",
				Items:       &theme},
			{Name: "actionableInsight", Type: TypeString,
				Description: "A gentle question or suggestion for reflection."},
		}},
		Retry: true,
	},
}

// Describe returns the contract registered for useCase.
func Describe(useCase UseCase) (Contract, error) {
	c, ok := contracts[useCase]
	if !ok {
		return Contract{}, fmt.Errorf("%w: %q", ErrContractMissing, useCase)
	}
	return c, nil
}

func MustDescribe(useCase UseCase) Contract {
	c, err := Describe(useCase)
	if err != nil {
		panic(err)
	}
	return c
}

// UseCases lists every registered use case in a stable order.
func UseCases() []UseCase {
	return []UseCase{
		UseCaseChatAdvice,
		UseCaseWellnessReminders,
		UseCaseForumModeration,
		UseCaseJournalSummary,
	}
}

func ParseUseCase(s string) (UseCase, error) {
	uc := UseCase(strings.ReplaceAll(strings.TrimSpace(strings.ToLower(s)), "-", "_"))
	if _, err := Describe(uc); err != nil {
		return "", err
	}
	return uc, nil
}
