// Package flows wires aggregator, invocation client, retry controller and validator
// into one compiled graph per use case and exposes them as a contract.Pipeline.
package flows

import (
	"context"
	"errors"
	"fmt"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	aggregatex "github.com/rishi-noob/soulsyncmain/agent/aggregate"
	contractx "github.com/rishi-noob/soulsyncmain/agent/contract"
	invokex "github.com/rishi-noob/soulsyncmain/agent/invoke"
	nodex "github.com/rishi-noob/soulsyncmain/agent/nodes"
	promptx "github.com/rishi-noob/soulsyncmain/agent/prompt"
	retryx "github.com/rishi-noob/soulsyncmain/agent/retry"
	validatex "github.com/rishi-noob/soulsyncmain/agent/validate"
)

// ModelRegistry hands out the chat model that serves a contract. Backends that
// support structured output configure it from the contract's OutputShape.
type ModelRegistry interface {
	ChatModel(ctx context.Context, c contractx.Contract) (einomodel.BaseChatModel, error)
}

type ModelRegistryFunc func(ctx context.Context, c contractx.Contract) (einomodel.BaseChatModel, error)

func (f ModelRegistryFunc) ChatModel(ctx context.Context, c contractx.Contract) (einomodel.BaseChatModel, error) {
	return f(ctx, c)
}

type Service struct {
	cfg   Config
	flows map[contractx.UseCase]*flow

	prompts      promptx.PromptSet
	retryOptions []retryx.Option
	riskScreen   validatex.RiskScreen

	now   func() time.Time
	newID func() string
}

var _ contractx.Pipeline = (*Service)(nil)

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithRequestIDs(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

func WithRetryOptions(opts ...retryx.Option) Option {
	return func(s *Service) {
		s.retryOptions = append(s.retryOptions, opts...)
	}
}

func WithRetrySleep(fn retryx.SleepFunc) Option {
	return WithRetryOptions(retryx.WithSleep(fn))
}

func WithRiskScreen(screen validatex.RiskScreen) Option {
	return func(s *Service) {
		s.riskScreen = screen
	}
}

func WithPrompts(p promptx.PromptSet) Option {
	return func(s *Service) {
		s.prompts = p
	}
}

func New(ctx context.Context, models ModelRegistry, cfg Config, opts ...Option) (*Service, error) {
	if models == nil {
		return nil, errors.New("model registry is required")
	}

	s := &Service{
		cfg:     cfg,
		flows:   make(map[contractx.UseCase]*flow, len(contractx.UseCases())),
		prompts: promptx.LoadPromptSet(),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	ctrl := retryx.New(cfg.RetryPolicy(), s.retryOptions...)

	for _, uc := range contractx.UseCases() {
		c := contractx.MustDescribe(uc)

		chatModel, err := models.ChatModel(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("create chat model for %s: %w", uc, err)
		}
		client, err := invokex.New(c, chatModel, s.prompts)
		if err != nil {
			return nil, err
		}

		f := &flow{
			contract: c,
			invoker:  client,
			validator: validatex.New(c,
				validatex.WithHotlineNotice(cfg.hotlineNotice()),
				validatex.WithRiskScreen(s.riskScreen),
			),
		}
		if c.Retry {
			f.retry = ctrl
		}
		if err := s.compileFlow(ctx, f); err != nil {
			return nil, err
		}
		s.flows[uc] = f
	}

	return s, nil
}

// Execute runs the flow of useCase over payload, which must be the matching request
// type. Failures come back as *contract.Failure or wrap contract.ErrValidation.
func (s *Service) Execute(ctx context.Context, useCase contractx.UseCase, payload any) (contractx.Output, error) {
	f, ok := s.flows[useCase]
	if !ok {
		return nil, fmt.Errorf("%w: %q", contractx.ErrContractMissing, useCase)
	}

	requestID := s.newID()
	logger := log.Logger.With().
		Str("request_id", requestID).
		Str("use_case", string(useCase)).
		Logger()
	ctx = logger.WithContext(ctx)

	if s.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.CallTimeout)
		defer cancel()
	}

	out, err := f.runner.Invoke(ctx, nodex.GraphInput{
		RequestID: requestID,
		UseCase:   useCase,
		Payload:   payload,
	})
	if err != nil {
		logFailure(&logger, err)
		return nil, err
	}

	logger.Info().
		Int("attempts", out.Attempts).
		Dur("elapsed", out.Elapsed).
		Msg("flow completed")
	return out.Output, nil
}

func logFailure(logger *zerolog.Logger, err error) {
	if errors.Is(err, contractx.ErrValidation) {
		logger.Warn().Err(err).Msg("rejected caller input")
		return
	}
	f := contractx.AsFailure(err)
	logger.Error().Err(err).
		Str("kind", string(f.Kind)).
		Int("attempts", f.Attempts).
		Msg("flow failed")
}

func (s *Service) ChatAdvice(ctx context.Context, req contractx.ChatAdviceRequest) (contractx.ChatAdviceOutput, error) {
	return execute[contractx.ChatAdviceOutput](ctx, s, contractx.UseCaseChatAdvice, req)
}

func (s *Service) WellnessReminders(ctx context.Context, req contractx.WellnessRemindersRequest) (contractx.WellnessRemindersOutput, error) {
	return execute[contractx.WellnessRemindersOutput](ctx, s, contractx.UseCaseWellnessReminders, req)
}

func (s *Service) ModerateForumMessage(ctx context.Context, req contractx.ModerationRequest) (contractx.ModerationOutput, error) {
	return execute[contractx.ModerationOutput](ctx, s, contractx.UseCaseForumModeration, req)
}

func (s *Service) SummarizeJournal(ctx context.Context, req contractx.JournalSummaryRequest) (contractx.JournalSummaryOutput, error) {
	return execute[contractx.JournalSummaryOutput](ctx, s, contractx.UseCaseJournalSummary, req)
}

// LogMood classifies a check-in locally. No model is involved.
func (s *Service) LogMood(ctx context.Context, moodLog contractx.MoodLog) (contractx.MoodEntry, error) {
	entry, err := aggregatex.MoodCheckIn(moodLog, s.now())
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("rejected mood check-in")
		return contractx.MoodEntry{}, err
	}
	return entry, nil
}

func execute[T any](ctx context.Context, s *Service, useCase contractx.UseCase, req any) (T, error) {
	var zero T
	out, err := s.Execute(ctx, useCase, req)
	if err != nil {
		return zero, err
	}
	return contractx.Decode[T](out)
}
