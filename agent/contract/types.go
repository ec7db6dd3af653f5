package contract

import (
	"encoding/json"
	"fmt"
	"time"
)

type UseCase string

const (
	UseCaseChatAdvice        UseCase = "chat_advice"
	UseCaseWellnessReminders UseCase = "wellness_reminders"
	UseCaseForumModeration   UseCase = "forum_moderation"
	UseCaseJournalSummary    UseCase = "journal_summary"
)

// Input is the flat record a contract's InputShape describes.
type Input map[string]any

// Output is the decoded structured object returned by the model.
type Output map[string]any

// Clone copies the top level of o so post-processing never mutates the caller's value.
func (o Output) Clone() Output {
	if o == nil {
		return nil
	}
	out := make(Output, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// Request is one invocation: created per call, never mutated, dropped afterwards.
type Request struct {
	ID      string
	UseCase UseCase
	Input   Input
}

type Escalation string

const (
	EscalationNone                Escalation = "none"
	EscalationRecommendCounsellor Escalation = "recommend_counsellor"
	EscalationUrgentHotline       Escalation = "urgent_hotline"
)

func (e Escalation) rank() int {
	switch e {
	case EscalationNone:
		return 0
	case EscalationRecommendCounsellor:
		return 1
	case EscalationUrgentHotline:
		return 2
	default:
		return -1
	}
}

func (e Escalation) Valid() bool {
	return e.rank() >= 0
}

// MostSevere returns whichever of a and b is higher on none < recommend_counsellor < urgent_hotline.
func MostSevere(a, b Escalation) Escalation {
	if b.rank() > a.rank() {
		return b
	}
	return a
}

/* ------------------------------ caller inputs ------------------------------ */

type ChatTurn struct {
	Sender string `json:"sender" enum:"user,assistant" doc:"Who wrote the turn"`
	Text   string `json:"text,omitempty"`
	HTML   string `json:"html,omitempty"`
}

type MoodEntry struct {
	Date      string         `json:"date" doc:"ISO date (YYYY-MM-DD)"`
	Intensity int            `json:"intensity" minimum:"1" maximum:"5"`
	Responses map[string]any `json:"responses,omitempty"`
}

type AcademicEvent struct {
	Title string    `json:"title"`
	Date  time.Time `json:"date"`
	Type  string    `json:"type" doc:"exam, assignment, presentation or other"`
	Notes string    `json:"notes,omitempty"`
}

type ChatAdviceRequest struct {
	Turns     []ChatTurn      `json:"turns" minItems:"1"`
	Moods     []MoodEntry     `json:"moods,omitempty"`
	Deadlines []AcademicEvent `json:"deadlines,omitempty"`
}

type MoodSnapshot struct {
	Date      string         `json:"date"`
	Responses map[string]any `json:"responses"`
}

type WellnessRemindersRequest struct {
	UserID         string          `json:"userId"`
	UpcomingEvents []AcademicEvent `json:"upcomingEvents,omitempty"`
	MoodEntries    []MoodSnapshot  `json:"moodEntries,omitempty"`
}

type ModerationRequest struct {
	Text string `json:"text"`
}

type JournalEntry struct {
	Date       string `json:"date"`
	FormatType string `json:"formatType,omitempty" doc:"gratitude, proud_list or free_form"`
	Content    string `json:"content"`
}

type JournalSummaryRequest struct {
	Entries []JournalEntry `json:"entries" minItems:"1"`
}

// MoodLog holds the raw answers of the daily check-in form, keyed by question id.
type MoodLog map[string]string

/* ----------------------------- typed outputs ----------------------------- */

type ChatAdviceOutput struct {
	MessageHTML      string     `json:"message_html"`
	CopingSteps      []string   `json:"coping_steps"`
	Escalation       Escalation `json:"escalation"`
	Confidence       *float64   `json:"confidence,omitempty"`
	SourceReferences []string   `json:"source_references,omitempty"`
}

type WellnessRemindersOutput struct {
	Reminders []string `json:"reminders"`
}

type ModerationOutput struct {
	Allowed    bool   `json:"allowed"`
	FlagReason string `json:"flagReason,omitempty"`
}

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

type SummaryTheme struct {
	Theme     string    `json:"theme"`
	Keywords  []string  `json:"keywords"`
	Sentiment Sentiment `json:"sentiment"`
}

type JournalSummaryOutput struct {
	CentralIdea       string         `json:"centralIdea"`
	Themes            []SummaryTheme `json:"themes"`
	ActionableInsight string         `json:"actionableInsight,omitempty"`
}

// Decode converts an accepted Output into its typed view.
func Decode[T any](out Output) (T, error) {
	var typed T
	raw, err := json.Marshal(out)
	if err != nil {
		return typed, fmt.Errorf("%w: marshal output: %v", ErrSchemaViolation, err)
	}
	if err := json.Unmarshal(raw, &typed); err != nil {
		return typed, fmt.Errorf("%w: decode output: %v", ErrSchemaViolation, err)
	}
	return typed, nil
}
