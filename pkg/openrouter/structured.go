package openrouter

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	openaisdk "github.com/openai/openai-go"

	"github.com/rishi-noob/soulsyncmain/pkg/upstream"
)

var schemaNamePattern = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// SchemaSpec is the response format a StructuredModel pins every reply to.
type SchemaSpec struct {
	Name        string
	Description string
	Schema      map[string]any
}

// StructuredModel is an eino BaseChatModel backed by Chat Completions with a strict
// json_schema response format.
type StructuredModel struct {
	client      *openaisdk.Client
	model       string
	temperature float32
	maxTokens   *int
	spec        SchemaSpec
}

var _ model.BaseChatModel = (*StructuredModel)(nil)

func NewStructuredModel(client *openaisdk.Client, cfg Config, spec SchemaSpec) (*StructuredModel, error) {
	if client == nil {
		return nil, errors.New("openrouter: client is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("openrouter: model is required")
	}
	if len(spec.Schema) == 0 {
		return nil, errors.New("openrouter: response schema is required")
	}

	name := schemaNamePattern.ReplaceAllString(strings.TrimSpace(spec.Name), "_")
	if name == "" {
		name = "response"
	}
	if len(name) > 64 {
		name = name[:64]
	}
	spec.Name = name

	return &StructuredModel{
		client:      client,
		model:       strings.TrimSpace(cfg.Model),
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxCompletionToken,
		spec:        spec,
	}, nil
}

func (m *StructuredModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	options := model.GetCommonOptions(&model.Options{
		Model:       &m.model,
		Temperature: &m.temperature,
		MaxTokens:   m.maxTokens,
	}, opts...)

	messages, err := toChatMessages(input)
	if err != nil {
		return nil, err
	}

	params := openaisdk.ChatCompletionNewParams{
		Model:    openaisdk.ChatModel(*options.Model),
		Messages: messages,
		ResponseFormat: openaisdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openaisdk.ResponseFormatJSONSchemaParam{
				JSONSchema: openaisdk.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        m.spec.Name,
					Description: openaisdk.String(m.spec.Description),
					Schema:      m.spec.Schema,
					Strict:      openaisdk.Bool(true),
				},
			},
		},
	}
	if options.Temperature != nil {
		params.Temperature = openaisdk.Float(float64(*options.Temperature))
	}
	if options.MaxTokens != nil && *options.MaxTokens > 0 {
		params.MaxCompletionTokens = openaisdk.Int(int64(*options.MaxTokens))
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, classifyAPIError(err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, upstream.ErrEmptyResponse
	}

	choice := resp.Choices[0]
	if refusal := strings.TrimSpace(choice.Message.Refusal); refusal != "" {
		return nil, fmt.Errorf("%w: %s", upstream.ErrRefusal, refusal)
	}
	if choice.FinishReason == "content_filter" {
		return nil, fmt.Errorf("%w: content filter", upstream.ErrRefusal)
	}

	return &schema.Message{
		Role:    schema.Assistant,
		Content: choice.Message.Content,
		ResponseMeta: &schema.ResponseMeta{
			FinishReason: string(choice.FinishReason),
			Usage: &schema.TokenUsage{
				PromptTokens:     int(resp.Usage.PromptTokens),
				CompletionTokens: int(resp.Usage.CompletionTokens),
				TotalTokens:      int(resp.Usage.TotalTokens),
			},
		},
	}, nil
}

func (m *StructuredModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("openrouter: structured model does not stream")
}

func toChatMessages(input []*schema.Message) ([]openaisdk.ChatCompletionMessageParamUnion, error) {
	out := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(input))
	for _, msg := range input {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case schema.System:
			out = append(out, openaisdk.SystemMessage(msg.Content))
		case schema.User:
			out = append(out, openaisdk.UserMessage(msg.Content))
		case schema.Assistant:
			out = append(out, openaisdk.AssistantMessage(msg.Content))
		default:
			return nil, fmt.Errorf("openrouter: unsupported message role %q", msg.Role)
		}
	}
	return out, nil
}

func classifyAPIError(err error) error {
	var apiErr *openaisdk.Error
	if errors.As(err, &apiErr) {
		return &upstream.Error{
			Provider: "openai",
			Status:   apiErr.StatusCode,
			Message:  apiErr.Message,
			Err:      err,
		}
	}
	return err
}
