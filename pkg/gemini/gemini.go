// Package gemini adapts the Google GenAI SDK to eino's chat model interface with
// JSON responses constrained by a response schema.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/rishi-noob/soulsyncmain/pkg/upstream"
)

type Config struct {
	APIKey          string        `envconfig:"API_KEY" split_words:"true"`
	Model           string        `envconfig:"MODEL" split_words:"true" default:"gemini-2.5-flash"`
	BaseURL         string        `envconfig:"BASE_URL" split_words:"true"`
	Temperature     float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	MaxOutputTokens int32         `envconfig:"MAX_OUTPUT_TOKENS" split_words:"true" default:"2000"`
	Timeout         time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
}

func NewClient(ctx context.Context, cfg Config) (*genai.Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini: api key is required")
	}

	cc := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return client, nil
}

// SafetySetting mirrors genai's category/threshold pair using the wire names, e.g.
// HARM_CATEGORY_HARASSMENT / BLOCK_MEDIUM_AND_ABOVE.
type SafetySetting struct {
	Category  string
	Threshold string
}

// ChatModel is an eino BaseChatModel backed by GenerateContent.
type ChatModel struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
	schema      *genai.Schema
	safety      []*genai.SafetySetting
}

var _ model.BaseChatModel = (*ChatModel)(nil)

// NewChatModel pins replies to application/json matching responseSchema. A nil
// schema leaves the reply unconstrained.
func NewChatModel(client *genai.Client, cfg Config, responseSchema *genai.Schema, safety []SafetySetting) (*ChatModel, error) {
	if client == nil {
		return nil, errors.New("gemini: client is required")
	}
	modelName := strings.TrimSpace(cfg.Model)
	if modelName == "" {
		return nil, errors.New("gemini: model is required")
	}

	settings := make([]*genai.SafetySetting, 0, len(safety))
	for _, s := range safety {
		settings = append(settings, &genai.SafetySetting{
			Category:  genai.HarmCategory(s.Category),
			Threshold: genai.HarmBlockThreshold(s.Threshold),
		})
	}

	return &ChatModel{
		client:      client,
		model:       modelName,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxOutputTokens,
		schema:      responseSchema,
		safety:      settings,
	}, nil
}

func (m *ChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	options := model.GetCommonOptions(&model.Options{
		Model:       &m.model,
		Temperature: &m.temperature,
	}, opts...)

	system, contents, err := toContents(input)
	if err != nil {
		return nil, err
	}

	conf := &genai.GenerateContentConfig{
		SystemInstruction: system,
		Temperature:       options.Temperature,
		ResponseMIMEType:  "application/json",
		ResponseSchema:    m.schema,
		SafetySettings:    m.safety,
	}
	if m.maxTokens > 0 {
		conf.MaxOutputTokens = m.maxTokens
	}

	resp, err := m.client.Models.GenerateContent(ctx, *options.Model, contents, conf)
	if err != nil {
		return nil, classifyAPIError(err)
	}
	if resp == nil {
		return nil, upstream.ErrEmptyResponse
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return nil, fmt.Errorf("%w: prompt blocked (%s)", upstream.ErrRefusal, fb.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return nil, upstream.ErrEmptyResponse
	}
	if reason := resp.Candidates[0].FinishReason; reason == genai.FinishReasonSafety || reason == genai.FinishReasonProhibitedContent {
		return nil, fmt.Errorf("%w: candidate blocked (%s)", upstream.ErrRefusal, reason)
	}

	out := &schema.Message{
		Role:    schema.Assistant,
		Content: resp.Text(),
		ResponseMeta: &schema.ResponseMeta{
			FinishReason: string(resp.Candidates[0].FinishReason),
		},
	}
	if u := resp.UsageMetadata; u != nil {
		out.ResponseMeta.Usage = &schema.TokenUsage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return out, nil
}

func (m *ChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("gemini: streaming is not supported")
}

func toContents(input []*schema.Message) (*genai.Content, []*genai.Content, error) {
	var (
		system   []string
		contents = make([]*genai.Content, 0, len(input))
	)
	for _, msg := range input {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case schema.System:
			system = append(system, msg.Content)
		case schema.User:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		case schema.Assistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			return nil, nil, fmt.Errorf("gemini: unsupported message role %q", msg.Role)
		}
	}
	if len(contents) == 0 {
		return nil, nil, errors.New("gemini: at least one user message is required")
	}

	var sys *genai.Content
	if len(system) > 0 {
		sys = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	return sys, contents, nil
}

func classifyAPIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &upstream.Error{
			Provider: "gemini",
			Status:   apiErr.Code,
			Message:  apiErr.Message,
			Err:      err,
		}
	}
	return err
}
