// Package llm builds the chat model that serves each use case and translates
// provider failures into contract failures.
package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	contractx "github.com/rishi-noob/soulsyncmain/agent/contract"
	geminix "github.com/rishi-noob/soulsyncmain/pkg/gemini"
	openrouterx "github.com/rishi-noob/soulsyncmain/pkg/openrouter"
	"github.com/rishi-noob/soulsyncmain/pkg/upstream"
)

// Registry hands out one chat model per contract for the configured backend.
type Registry struct {
	cfg     Config
	builder func(contractx.UseCase) openrouterx.LLMBuilder

	once     sync.Once
	genai    *genai.Client
	genaiErr error
}

type RegistryOption func(*Registry)

// WithBuilder replaces how the eino backend gets its chat model for a use case.
func WithBuilder(fn func(contractx.UseCase) openrouterx.LLMBuilder) RegistryOption {
	return func(r *Registry) {
		if fn != nil {
			r.builder = fn
		}
	}
}

func NewRegistry(cfg Config, opts ...RegistryOption) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Registry{cfg: cfg}
	r.builder = func(uc contractx.UseCase) openrouterx.LLMBuilder {
		conf := r.cfg.OpenRouterFor(uc)
		return &conf
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Registry) ChatModel(ctx context.Context, c contractx.Contract) (einomodel.BaseChatModel, error) {
	var (
		inner einomodel.BaseChatModel
		err   error
	)
	switch r.cfg.backend() {
	case BackendOpenAI:
		inner, err = r.structured(c)
	case BackendEino:
		inner, err = r.builder(c.UseCase).New(ctx)
	case BackendGemini:
		inner, err = r.gemini(ctx, c)
	default:
		err = fmt.Errorf("%w: unknown llm backend %q", contractx.ErrValidation, r.cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return Tag(inner), nil
}

func (r *Registry) structured(c contractx.Contract) (einomodel.BaseChatModel, error) {
	conf := r.cfg.OpenRouterFor(c.UseCase)
	client := openrouterx.NewClient(conf)
	if client == nil {
		return nil, fmt.Errorf("%w: llm api key is required", contractx.ErrValidation)
	}
	return openrouterx.NewStructuredModel(client, conf, openrouterx.SchemaSpec{
		Name:        string(c.UseCase),
		Description: c.Description,
		Schema:      c.Output.JSONSchema(true),
	})
}

func (r *Registry) gemini(ctx context.Context, c contractx.Contract) (einomodel.BaseChatModel, error) {
	conf := r.cfg.GeminiFor(c.UseCase)

	r.once.Do(func() {
		r.genai, r.genaiErr = geminix.NewClient(ctx, conf)
	})
	if r.genaiErr != nil {
		return nil, r.genaiErr
	}

	respSchema, err := geminix.SchemaFromJSON(c.Output.JSONSchema(false))
	if err != nil {
		return nil, err
	}
	safety := make([]geminix.SafetySetting, 0, len(c.Safety))
	for _, s := range c.Safety {
		safety = append(safety, geminix.SafetySetting{Category: s.Category, Threshold: s.Threshold})
	}
	return geminix.NewChatModel(r.genai, conf, respSchema, safety)
}

// Tag wraps a chat model so every backend error reaches the invocation client as
// a *contract.Failure.
func Tag(inner einomodel.BaseChatModel) einomodel.BaseChatModel {
	if inner == nil {
		return nil
	}
	return &taggedModel{inner: inner}
}

type taggedModel struct {
	inner einomodel.BaseChatModel
}

func (m *taggedModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	msg, err := m.inner.Generate(ctx, input, opts...)
	if err != nil {
		return nil, Classify(err)
	}
	return msg, nil
}

func (m *taggedModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	sr, err := m.inner.Stream(ctx, input, opts...)
	if err != nil {
		return nil, Classify(err)
	}
	return sr, nil
}

// Classify maps a provider error onto the failure taxonomy.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var f *contractx.Failure
	if errors.As(err, &f) {
		return err
	}

	var ue *upstream.Error
	switch {
	case errors.As(err, &ue) && ue.Transient():
		return contractx.Unavailable(ue.Status, err)
	case errors.Is(err, upstream.ErrRefusal):
		return &contractx.Failure{Kind: contractx.KindSchemaViolation, Status: upstream.StatusOf(err), Err: err}
	case ue != nil:
		return &contractx.Failure{Kind: contractx.KindUnknown, Status: ue.Status, Err: err}
	default:
		return contractx.NewFailure(contractx.KindUnknown, err)
	}
}
