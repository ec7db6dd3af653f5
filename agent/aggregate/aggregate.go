// Package aggregate turns caller-side context into the flat input records the
// contracts describe. Every function here is pure.
package aggregate

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/rishi-noob/soulsyncmain/agent/contract"
)

const (
	chatTurnWindow = 5
	moodWindow     = 7

	NoMoodData       = "User has not provided mood data yet."
	NoDeadlines      = "No upcoming academic deadlines."
	NoEventNotes     = "No notes."
	journalSeparator = "\n\n---\n\n"
)

// ChatAdvice builds the chat_advice input: the last five turns in order (most recent
// last), the last seven mood scores and every deadline.
func ChatAdvice(req contractx.ChatAdviceRequest) (contractx.Input, error) {
	if len(req.Turns) == 0 {
		return nil, fmt.Errorf("%w: chat history is empty", contractx.ErrValidation)
	}
	last := req.Turns[len(req.Turns)-1]
	if strings.TrimSpace(turnBody(last)) == "" {
		return nil, fmt.Errorf("%w: latest chat message is empty", contractx.ErrValidation)
	}

	turns := req.Turns
	if len(turns) > chatTurnWindow {
		turns = turns[len(turns)-chatTurnWindow:]
	}
	lines := make([]string, 0, len(turns))
	for _, turn := range turns {
		sender := strings.TrimSpace(turn.Sender)
		if sender == "" {
			sender = "user"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", sender, oneLine(turnBody(turn))))
	}

	return contractx.Input{
		"moodData":          FormatMoodData(req.Moods),
		"academicDeadlines": FormatDeadlines(req.Deadlines),
		"chatHistory":       strings.Join(lines, "\n"),
	}, nil
}

// oneLine keeps each turn on a single transcript line so the sender prefix is the
// only speaker marker a reader of chatHistory sees.
func oneLine(s string) string {
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == '\r' }), " ")
}

func turnBody(t contractx.ChatTurn) string {
	if strings.TrimSpace(t.Text) != "" {
		return t.Text
	}
	return t.HTML
}

// FormatMoodData renders "On <date>, mood was <n>/5" for the most recent entries.
func FormatMoodData(moods []contractx.MoodEntry) string {
	if len(moods) > moodWindow {
		moods = moods[len(moods)-moodWindow:]
	}
	parts := make([]string, 0, len(moods))
	for _, m := range moods {
		parts = append(parts, fmt.Sprintf("On %s, mood was %d/5", m.Date, m.Intensity))
	}
	if len(parts) == 0 {
		return NoMoodData
	}
	return strings.Join(parts, "; ")
}

func FormatDeadlines(events []contractx.AcademicEvent) string {
	parts := make([]string, 0, len(events))
	for _, e := range events {
		title := strings.TrimSpace(e.Title)
		if title == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s on %s", title, e.Date.Format(time.DateOnly)))
	}
	if len(parts) == 0 {
		return NoDeadlines
	}
	return strings.Join(parts, ", ")
}

// WellnessReminders keeps events and mood entries as lists; the prompt template
// iterates them. Empty lists stay present so the template renders its placeholder.
func WellnessReminders(req contractx.WellnessRemindersRequest) (contractx.Input, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", contractx.ErrValidation)
	}

	events := make([]any, 0, len(req.UpcomingEvents))
	for _, e := range req.UpcomingEvents {
		notes := strings.TrimSpace(e.Notes)
		if notes == "" {
			notes = NoEventNotes
		}
		events = append(events, map[string]any{
			"title": e.Title,
			"date":  e.Date.UTC().Format(time.RFC3339),
			"type":  e.Type,
			"notes": notes,
		})
	}

	moods := make([]any, 0, len(req.MoodEntries))
	for _, m := range req.MoodEntries {
		responses := m.Responses
		if responses == nil {
			responses = map[string]any{}
		}
		moods = append(moods, map[string]any{
			"date":      m.Date,
			"responses": responses,
		})
	}

	return contractx.Input{
		"userId":         userID,
		"upcomingEvents": events,
		"moodEntries":    moods,
	}, nil
}

// ForumModeration passes the candidate text through untouched.
func ForumModeration(req contractx.ModerationRequest) (contractx.Input, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("%w: message text is empty", contractx.ErrValidation)
	}
	return contractx.Input{"text": req.Text}, nil
}

// JournalSummary joins entries as "[Entry from <date>]:\n<content>" separated by a
// dashed line so the model can tell entry boundaries apart. Blank entries are skipped.
func JournalSummary(req contractx.JournalSummaryRequest) (contractx.Input, error) {
	blocks := make([]string, 0, len(req.Entries))
	for _, e := range req.Entries {
		content := strings.TrimSpace(e.Content)
		if content == "" {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("[Entry from %s]:\n%s", strings.TrimSpace(e.Date), content))
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("%w: no journal entries with content", contractx.ErrValidation)
	}
	return contractx.Input{"journalContent": strings.Join(blocks, journalSeparator)}, nil
}

// For dispatches on the request's type and checks the result against the use case's
// InputShape, so a flow can never hand the client a malformed record.
func For(useCase contractx.UseCase, req any) (contractx.Input, error) {
	var (
		in  contractx.Input
		err error
	)
	switch r := req.(type) {
	case contractx.ChatAdviceRequest:
		in, err = ChatAdvice(r)
	case contractx.WellnessRemindersRequest:
		in, err = WellnessReminders(r)
	case contractx.ModerationRequest:
		in, err = ForumModeration(r)
	case contractx.JournalSummaryRequest:
		in, err = JournalSummary(r)
	default:
		return nil, fmt.Errorf("%w: unsupported request type %T", contractx.ErrValidation, req)
	}
	if err != nil {
		return nil, err
	}

	c, err := contractx.Describe(useCase)
	if err != nil {
		return nil, err
	}
	if err := c.Input.Check(in); err != nil {
		return nil, fmt.Errorf("%w: %s input: %v", contractx.ErrValidation, useCase, err)
	}
	return in, nil
}
