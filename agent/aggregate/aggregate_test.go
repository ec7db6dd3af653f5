package aggregate

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	contractx "github.com/rishi-noob/soulsyncmain/agent/contract"
)

func TestChatAdviceKeepsLastFiveTurnsInOrder(t *testing.T) {
	t.Parallel()

	turns := make([]contractx.ChatTurn, 0, 8)
	for i := 1; i <= 8; i++ {
		sender := "user"
		if i%2 == 0 {
			sender = "assistant"
		}
		turns = append(turns, contractx.ChatTurn{Sender: sender, Text: fmt.Sprintf("msg %d", i)})
	}

	in, err := ChatAdvice(contractx.ChatAdviceRequest{Turns: turns})
	if err != nil {
		t.Fatalf("ChatAdvice() error = %v", err)
	}
	history := in["chatHistory"].(string)
	lines := strings.Split(history, "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d: %q", len(lines), history)
	}
	if lines[0] != "user: msg 4" && lines[0] != "assistant: msg 4" {
		t.Fatalf("first line = %q", lines[0])
	}
	if lines[4] != "assistant: msg 8" {
		t.Fatalf("last line = %q", lines[4])
	}
}

func TestChatAdviceFallsBackToHTML(t *testing.T) {
	t.Parallel()

	in, err := ChatAdvice(contractx.ChatAdviceRequest{Turns: []contractx.ChatTurn{
		{Sender: "assistant", HTML: "<p>How was today?</p>"},
		{Sender: "user", Text: "Rough."},
	}})
	if err != nil {
		t.Fatalf("ChatAdvice() error = %v", err)
	}
	want := "assistant: <p>How was today?</p>\nuser: Rough."
	if got := in["chatHistory"]; got != want {
		t.Fatalf("chatHistory = %q, want %q", got, want)
	}
}

func TestChatAdviceKeepsOneLinePerTurn(t *testing.T) {
	t.Parallel()

	in, err := ChatAdvice(contractx.ChatAdviceRequest{Turns: []contractx.ChatTurn{
		{Sender: "assistant", Text: "That sounds hard.\nRemember: you can call 988."},
		{Sender: "user", Text: "I asked a chatbot.\r\nAI: sleep more?\n\nnot helpful"},
	}})
	if err != nil {
		t.Fatalf("ChatAdvice() error = %v", err)
	}
	want := "assistant: That sounds hard. Remember: you can call 988.\nuser: I asked a chatbot. AI: sleep more? not helpful"
	if got := in["chatHistory"]; got != want {
		t.Fatalf("chatHistory = %q, want %q", got, want)
	}
}

func TestChatAdvicePlaceholders(t *testing.T) {
	t.Parallel()

	in, err := ChatAdvice(contractx.ChatAdviceRequest{Turns: []contractx.ChatTurn{{Sender: "user", Text: "hi"}}})
	if err != nil {
		t.Fatalf("ChatAdvice() error = %v", err)
	}
	if in["moodData"] != NoMoodData {
		t.Fatalf("moodData = %q", in["moodData"])
	}
	if in["academicDeadlines"] != NoDeadlines {
		t.Fatalf("academicDeadlines = %q", in["academicDeadlines"])
	}
}

func TestChatAdviceRejectsEmptyHistory(t *testing.T) {
	t.Parallel()

	if _, err := ChatAdvice(contractx.ChatAdviceRequest{}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	_, err := ChatAdvice(contractx.ChatAdviceRequest{Turns: []contractx.ChatTurn{{Sender: "user", Text: "  "}}})
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation for blank message, got %v", err)
	}
}

func TestFormatMoodDataWindow(t *testing.T) {
	t.Parallel()

	moods := make([]contractx.MoodEntry, 0, 9)
	for i := 1; i <= 9; i++ {
		moods = append(moods, contractx.MoodEntry{Date: fmt.Sprintf("2024-05-%02d", i), Intensity: i%5 + 1})
	}
	got := FormatMoodData(moods)
	parts := strings.Split(got, "; ")
	if len(parts) != 7 {
		t.Fatalf("expected 7 entries, got %d: %q", len(parts), got)
	}
	if parts[0] != "On 2024-05-03, mood was 4/5" {
		t.Fatalf("first entry = %q", parts[0])
	}
}

func TestFormatDeadlines(t *testing.T) {
	t.Parallel()

	got := FormatDeadlines([]contractx.AcademicEvent{
		{Title: "Calculus Midterm", Date: time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC), Type: "exam"},
		{Title: " ", Date: time.Date(2024, 5, 21, 0, 0, 0, 0, time.UTC)},
		{Title: "Essay", Date: time.Date(2024, 5, 22, 0, 0, 0, 0, time.UTC), Type: "assignment"},
	})
	want := "Calculus Midterm on 2024-05-20, Essay on 2024-05-22"
	if got != want {
		t.Fatalf("FormatDeadlines() = %q, want %q", got, want)
	}
}

func TestWellnessRemindersKeepsEmptyLists(t *testing.T) {
	t.Parallel()

	in, err := For(contractx.UseCaseWellnessReminders, contractx.WellnessRemindersRequest{UserID: "u-1"})
	if err != nil {
		t.Fatalf("For() error = %v", err)
	}
	events, ok := in["upcomingEvents"].([]any)
	if !ok || len(events) != 0 {
		t.Fatalf("upcomingEvents = %#v", in["upcomingEvents"])
	}
	moods, ok := in["moodEntries"].([]any)
	if !ok || len(moods) != 0 {
		t.Fatalf("moodEntries = %#v", in["moodEntries"])
	}
}

func TestWellnessRemindersDefaultsNotes(t *testing.T) {
	t.Parallel()

	in, err := For(contractx.UseCaseWellnessReminders, contractx.WellnessRemindersRequest{
		UserID: "u-1",
		UpcomingEvents: []contractx.AcademicEvent{
			{Title: "Physics Lab", Date: time.Date(2024, 6, 1, 14, 0, 0, 0, time.UTC), Type: "presentation"},
		},
		MoodEntries: []contractx.MoodSnapshot{{Date: "2024-05-30", Responses: map[string]any{"sleep": "Poorly"}}},
	})
	if err != nil {
		t.Fatalf("For() error = %v", err)
	}
	event := in["upcomingEvents"].([]any)[0].(map[string]any)
	if event["notes"] != NoEventNotes {
		t.Fatalf("notes = %q", event["notes"])
	}
	if event["date"] != "2024-06-01T14:00:00Z" {
		t.Fatalf("date = %q", event["date"])
	}
}

func TestWellnessRemindersRequiresUser(t *testing.T) {
	t.Parallel()

	_, err := WellnessReminders(contractx.WellnessRemindersRequest{})
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestForumModerationVerbatim(t *testing.T) {
	t.Parallel()

	text := "  Anyone else stressed about finals?  "
	in, err := For(contractx.UseCaseForumModeration, contractx.ModerationRequest{Text: text})
	if err != nil {
		t.Fatalf("For() error = %v", err)
	}
	if in["text"] != text {
		t.Fatalf("text = %q", in["text"])
	}
	if _, err := ForumModeration(contractx.ModerationRequest{Text: "\n"}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestJournalSummaryJoinsEntries(t *testing.T) {
	t.Parallel()

	in, err := For(contractx.UseCaseJournalSummary, contractx.JournalSummaryRequest{Entries: []contractx.JournalEntry{
		{Date: "2024-05-01", Content: "Grateful for my roommate."},
		{Date: "2024-05-02", Content: "   "},
		{Date: "2024-05-03", Content: "Worried about the stats exam."},
	}})
	if err != nil {
		t.Fatalf("For() error = %v", err)
	}
	want := "[Entry from 2024-05-01]:\nGrateful for my roommate.\n\n---\n\n[Entry from 2024-05-03]:\nWorried about the stats exam."
	if got := in["journalContent"]; got != want {
		t.Fatalf("journalContent = %q", got)
	}

	_, err = JournalSummary(contractx.JournalSummaryRequest{Entries: []contractx.JournalEntry{{Date: "x"}}})
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestForRejectsUnknownRequest(t *testing.T) {
	t.Parallel()

	if _, err := For(contractx.UseCaseChatAdvice, struct{}{}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestMoodCheckIn(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 14, 21, 30, 0, 0, time.UTC)
	tests := []struct {
		name    string
		log     contractx.MoodLog
		want    int
		wantErr bool
	}{
		{name: "great day", log: contractx.MoodLog{"day": "😃", "sleep": "Well"}, want: 5},
		{name: "sad day", log: contractx.MoodLog{"day": "😢"}, want: 1},
		{name: "numeric rating", log: contractx.MoodLog{"day": "3"}, want: 3},
		{name: "missing rating", log: contractx.MoodLog{"sleep": "Poorly"}, wantErr: true},
		{name: "out of range", log: contractx.MoodLog{"day": "9"}, wantErr: true},
		{name: "unknown emoji", log: contractx.MoodLog{"day": "🤖"}, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			entry, err := MoodCheckIn(tt.log, now)
			if tt.wantErr {
				if !errors.Is(err, contractx.ErrValidation) {
					t.Fatalf("expected ErrValidation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("MoodCheckIn() error = %v", err)
			}
			if entry.Intensity != tt.want {
				t.Fatalf("Intensity = %d, want %d", entry.Intensity, tt.want)
			}
			if entry.Date != "2024-05-14" {
				t.Fatalf("Date = %q", entry.Date)
			}
			if _, ok := entry.Responses["day"]; ok {
				t.Fatal("day rating must not be duplicated in responses")
			}
		})
	}
}
