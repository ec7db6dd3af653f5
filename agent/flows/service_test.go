package flows

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/rishi-noob/soulsyncmain/agent/contract"
	validatex "github.com/rishi-noob/soulsyncmain/agent/validate"
)

type fakeChatModel struct {
	mu        sync.Mutex
	responses []*schema.Message
	errs      []error
	calls     int
	inputs    [][]*schema.Message
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.inputs = append(f.inputs, input)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	if len(f.responses) == 0 {
		return nil, errors.New("no fake response left")
	}
	msg := f.responses[0]
	f.responses = f.responses[1:]
	return msg, nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func (f *fakeChatModel) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordedSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordedSleep) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return nil
}

func reply(content string) *schema.Message {
	return &schema.Message{Role: schema.Assistant, Content: content}
}

func overloaded() error {
	return contractx.Unavailable(503, errors.New("The model is overloaded. Please try again later."))
}

var fixedNow = time.Date(2024, 5, 14, 20, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, models map[contractx.UseCase]*fakeChatModel, sleeper *recordedSleep) *Service {
	t.Helper()

	registry := ModelRegistryFunc(func(ctx context.Context, c contractx.Contract) (einomodel.BaseChatModel, error) {
		if m, ok := models[c.UseCase]; ok {
			return m, nil
		}
		return &fakeChatModel{}, nil
	})

	if sleeper == nil {
		sleeper = &recordedSleep{}
	}
	s, err := New(context.Background(), registry, DefaultConfig(),
		WithClock(func() time.Time { return fixedNow }),
		WithRequestIDs(func() string { return "req-test" }),
		WithRetrySleep(sleeper.sleep),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func chatRequest(lastMessage string) contractx.ChatAdviceRequest {
	return contractx.ChatAdviceRequest{
		Turns: []contractx.ChatTurn{
			{Sender: "assistant", HTML: "<p>Hi! How are you feeling today?</p>"},
			{Sender: "user", Text: lastMessage},
		},
		Moods: []contractx.MoodEntry{{Date: "2024-05-13", Intensity: 2}},
		Deadlines: []contractx.AcademicEvent{
			{Title: "Calculus Midterm", Date: time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC), Type: "exam"},
		},
	}
}

const calmChatReply = `{"message_html":"<p>Exams are a lot. Let's plan a few short study blocks.</p>","coping_steps":["Try a 25 minute focus block.","Take a walk outside."],"escalation":"none","confidence":0.9}`

func TestChatAdviceEndsWithDisclaimer(t *testing.T) {
	t.Parallel()

	chat := &fakeChatModel{responses: []*schema.Message{reply(calmChatReply)}}
	s := newTestService(t, map[contractx.UseCase]*fakeChatModel{contractx.UseCaseChatAdvice: chat}, nil)

	out, err := s.ChatAdvice(context.Background(), chatRequest("I'm stressed about my calculus midterm"))
	if err != nil {
		t.Fatalf("ChatAdvice() error = %v", err)
	}
	if !strings.HasSuffix(out.MessageHTML, contractx.ChatDisclaimer) {
		t.Fatalf("message does not end with the disclaimer: %q", out.MessageHTML)
	}
	if out.Escalation != contractx.EscalationNone {
		t.Fatalf("escalation = %s", out.Escalation)
	}
	if len(out.CopingSteps) != 2 {
		t.Fatalf("coping steps = %v", out.CopingSteps)
	}

	prompt := chat.inputs[0][1].Content
	for _, want := range []string{"On 2024-05-13, mood was 2/5", "Calculus Midterm on 2024-05-20", "user: I'm stressed about my calculus midterm"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestChatAdviceUrgentOnlyForRiskLanguage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		message string
		want    contractx.Escalation
	}{
		{name: "ordinary stress", message: "I have three exams next week and can't sleep", want: contractx.EscalationNone},
		{name: "self harm", message: "I keep thinking about hurting myself", want: contractx.EscalationUrgentHotline},
		{name: "suicidal", message: "sometimes I feel suicidal", want: contractx.EscalationUrgentHotline},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			chat := &fakeChatModel{responses: []*schema.Message{reply(calmChatReply)}}
			s := newTestService(t, map[contractx.UseCase]*fakeChatModel{contractx.UseCaseChatAdvice: chat}, nil)

			out, err := s.ChatAdvice(context.Background(), chatRequest(tt.message))
			if err != nil {
				t.Fatalf("ChatAdvice() error = %v", err)
			}
			if out.Escalation != tt.want {
				t.Fatalf("escalation = %s, want %s", out.Escalation, tt.want)
			}
			hasNotice := strings.Contains(out.MessageHTML, validatex.DefaultHotlineNotice)
			if hasNotice != (tt.want == contractx.EscalationUrgentHotline) {
				t.Fatalf("hotline notice present = %v for escalation %s", hasNotice, out.Escalation)
			}
			if !strings.HasSuffix(out.MessageHTML, contractx.ChatDisclaimer) {
				t.Fatal("disclaimer must stay last")
			}
		})
	}
}

func TestChatAdviceRetriesUnavailableThenExhausts(t *testing.T) {
	t.Parallel()

	chat := &fakeChatModel{errs: []error{overloaded(), overloaded(), overloaded(), overloaded()}}
	sleeper := &recordedSleep{}
	s := newTestService(t, map[contractx.UseCase]*fakeChatModel{contractx.UseCaseChatAdvice: chat}, sleeper)

	_, err := s.ChatAdvice(context.Background(), chatRequest("hello"))
	if !errors.Is(err, contractx.ErrRetriesExhausted) {
		t.Fatalf("expected ErrRetriesExhausted, got %v", err)
	}
	if contractx.KindOf(err) != contractx.KindRetriesExhausted {
		t.Fatalf("KindOf() = %s", contractx.KindOf(err))
	}
	if got := chat.callCount(); got != 3 {
		t.Fatalf("expected exactly 3 backend calls, got %d", got)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(sleeper.delays) != 2 || sleeper.delays[0] != want[0] || sleeper.delays[1] != want[1] {
		t.Fatalf("delays = %v, want %v", sleeper.delays, want)
	}
}

func TestChatAdviceRecoversAfterTransientFailure(t *testing.T) {
	t.Parallel()

	chat := &fakeChatModel{
		errs:      []error{overloaded(), nil},
		responses: []*schema.Message{reply(calmChatReply)},
	}
	s := newTestService(t, map[contractx.UseCase]*fakeChatModel{contractx.UseCaseChatAdvice: chat}, nil)

	if _, err := s.ChatAdvice(context.Background(), chatRequest("hello")); err != nil {
		t.Fatalf("ChatAdvice() error = %v", err)
	}
	if got := chat.callCount(); got != 2 {
		t.Fatalf("expected 2 backend calls, got %d", got)
	}
}

func TestSchemaViolationIsNotRetried(t *testing.T) {
	t.Parallel()

	mod := &fakeChatModel{responses: []*schema.Message{reply(`{"allowed":false}`), reply(`{"allowed":true}`)}}
	sleeper := &recordedSleep{}
	s := newTestService(t, map[contractx.UseCase]*fakeChatModel{contractx.UseCaseForumModeration: mod}, sleeper)

	_, err := s.ModerateForumMessage(context.Background(), contractx.ModerationRequest{Text: "you are all idiots"})
	if !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("expected ErrSchemaViolation, got %v", err)
	}
	if got := mod.callCount(); got != 1 {
		t.Fatalf("expected exactly 1 backend call, got %d", got)
	}
	if len(sleeper.delays) != 0 {
		t.Fatalf("unexpected backoff: %v", sleeper.delays)
	}
}

func TestWellnessRemindersAreNotRetried(t *testing.T) {
	t.Parallel()

	wellness := &fakeChatModel{errs: []error{overloaded()}, responses: []*schema.Message{reply(`{"reminders":["x"]}`)}}
	s := newTestService(t, map[contractx.UseCase]*fakeChatModel{contractx.UseCaseWellnessReminders: wellness}, nil)

	_, err := s.WellnessReminders(context.Background(), contractx.WellnessRemindersRequest{UserID: "u-1"})
	if contractx.KindOf(err) != contractx.KindUnavailable {
		t.Fatalf("expected unavailable to surface unchanged, got %v", err)
	}
	if got := wellness.callCount(); got != 1 {
		t.Fatalf("expected 1 backend call, got %d", got)
	}
}

func TestWellnessReminders(t *testing.T) {
	t.Parallel()

	wellness := &fakeChatModel{responses: []*schema.Message{reply(`{"reminders":["Take a 10-minute break every hour.","Sleep 7-8 hours before the exam."]}`)}}
	s := newTestService(t, map[contractx.UseCase]*fakeChatModel{contractx.UseCaseWellnessReminders: wellness}, nil)

	out, err := s.WellnessReminders(context.Background(), contractx.WellnessRemindersRequest{
		UserID: "u-1",
		UpcomingEvents: []contractx.AcademicEvent{
			{Title: "Organic Chemistry Final", Date: time.Date(2024, 5, 28, 9, 0, 0, 0, time.UTC), Type: "exam"},
		},
	})
	if err != nil {
		t.Fatalf("WellnessReminders() error = %v", err)
	}
	if len(out.Reminders) != 2 {
		t.Fatalf("reminders = %v", out.Reminders)
	}
	if !strings.Contains(wellness.inputs[0][1].Content, "Organic Chemistry Final") {
		t.Fatal("event missing from prompt")
	}
}

func TestWellnessRemindersRejectsEmptyList(t *testing.T) {
	t.Parallel()

	wellness := &fakeChatModel{responses: []*schema.Message{reply(`{"reminders":[]}`)}}
	s := newTestService(t, map[contractx.UseCase]*fakeChatModel{contractx.UseCaseWellnessReminders: wellness}, nil)

	_, err := s.WellnessReminders(context.Background(), contractx.WellnessRemindersRequest{UserID: "u-1"})
	if !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("expected schema violation for an empty list, got %v", err)
	}
	if got := wellness.callCount(); got != 1 {
		t.Fatalf("expected 1 backend call, got %d", got)
	}
}

func TestModerateForumMessage(t *testing.T) {
	t.Parallel()

	mod := &fakeChatModel{responses: []*schema.Message{reply(`{"allowed":false,"flagReason":"Personal insult toward other members."}`)}}
	s := newTestService(t, map[contractx.UseCase]*fakeChatModel{contractx.UseCaseForumModeration: mod}, nil)

	out, err := s.ModerateForumMessage(context.Background(), contractx.ModerationRequest{Text: "you are all idiots"})
	if err != nil {
		t.Fatalf("ModerateForumMessage() error = %v", err)
	}
	if out.Allowed || out.FlagReason == "" {
		t.Fatalf("unexpected verdict: %+v", out)
	}
}

func TestSummarizeJournalTwoEntries(t *testing.T) {
	t.Parallel()

	journal := &fakeChatModel{responses: []*schema.Message{reply(`{
		"centralIdea": "Balancing exam pressure with moments of gratitude",
		"themes": [
			{"theme": "Academic Stress", "keywords": ["statistics", "exam"], "sentiment": "negative"},
			{"theme": "Gratitude", "keywords": ["roommate", "support"], "sentiment": "positive"}
		],
		"actionableInsight": "What helped you feel supported this week?"
	}`)}}
	s := newTestService(t, map[contractx.UseCase]*fakeChatModel{contractx.UseCaseJournalSummary: journal}, nil)

	out, err := s.SummarizeJournal(context.Background(), contractx.JournalSummaryRequest{Entries: []contractx.JournalEntry{
		{Date: "2024-05-01", FormatType: "gratitude", Content: "Grateful my roommate helped me study."},
		{Date: "2024-05-03", FormatType: "free_form", Content: "Stats exam tomorrow and I feel unprepared."},
	}})
	if err != nil {
		t.Fatalf("SummarizeJournal() error = %v", err)
	}
	if n := len(out.Themes); n < 2 || n > 4 {
		t.Fatalf("expected 2-4 themes, got %d", n)
	}
	for _, th := range out.Themes {
		switch th.Sentiment {
		case contractx.SentimentPositive, contractx.SentimentNegative, contractx.SentimentNeutral:
		default:
			t.Fatalf("unexpected sentiment %q", th.Sentiment)
		}
		if len(th.Keywords) == 0 {
			t.Fatalf("theme %q has no keywords", th.Theme)
		}
	}

	prompt := journal.inputs[0][1].Content
	if !strings.Contains(prompt, "[Entry from 2024-05-01]") || !strings.Contains(prompt, "[Entry from 2024-05-03]") {
		t.Fatalf("entries missing from prompt:\n%s", prompt)
	}
}

func TestLogMoodRequiresDayRating(t *testing.T) {
	t.Parallel()

	models := map[contractx.UseCase]*fakeChatModel{}
	for _, uc := range contractx.UseCases() {
		models[uc] = &fakeChatModel{}
	}
	s := newTestService(t, models, nil)

	_, err := s.LogMood(context.Background(), contractx.MoodLog{"anxious": "A little", "sleep": "Poorly"})
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	for uc, m := range models {
		if m.callCount() != 0 {
			t.Fatalf("backend for %s was called", uc)
		}
	}

	entry, err := s.LogMood(context.Background(), contractx.MoodLog{"day": "🙂", "sleep": "Well"})
	if err != nil {
		t.Fatalf("LogMood() error = %v", err)
	}
	if entry.Intensity != 4 || entry.Date != "2024-05-14" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestInvalidInputNeverReachesBackend(t *testing.T) {
	t.Parallel()

	chat := &fakeChatModel{responses: []*schema.Message{reply(calmChatReply)}}
	s := newTestService(t, map[contractx.UseCase]*fakeChatModel{contractx.UseCaseChatAdvice: chat}, nil)

	_, err := s.ChatAdvice(context.Background(), contractx.ChatAdviceRequest{})
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if chat.callCount() != 0 {
		t.Fatal("backend must not be called for invalid input")
	}
}

func TestExecuteUnknownUseCase(t *testing.T) {
	t.Parallel()

	s := newTestService(t, nil, nil)
	_, err := s.Execute(context.Background(), "horoscope", nil)
	if !errors.Is(err, contractx.ErrContractMissing) {
		t.Fatalf("expected ErrContractMissing, got %v", err)
	}
}

func TestNewRequiresRegistry(t *testing.T) {
	t.Parallel()

	if _, err := New(context.Background(), nil, DefaultConfig()); err == nil {
		t.Fatal("expected error for nil registry")
	}
}
