// Package invoke performs a single templated model exchange for one contract and
// turns the reply into a type-checked Output.
package invoke

import (
	"context"
	"errors"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	contractx "github.com/rishi-noob/soulsyncmain/agent/contract"
	promptx "github.com/rishi-noob/soulsyncmain/agent/prompt"
)

// Client is safe for concurrent use; it holds only the compiled template, the parser
// and the chat model.
type Client struct {
	contract  contractx.Contract
	chatModel einomodel.BaseChatModel
	template  einoprompt.ChatTemplate
	parser    schema.MessageParser[map[string]any]
	schema    string
}

var _ contractx.Invoker = (*Client)(nil)

func New(c contractx.Contract, chatModel einomodel.BaseChatModel, prompts promptx.PromptSet) (*Client, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: chat model is required for use_case=%s", contractx.ErrValidation, c.UseCase)
	}
	body, err := prompts.For(c.UseCase)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(prompts.SchemaInstruction) == "" {
		return nil, fmt.Errorf("%w: schema instruction", contractx.ErrPromptMissing)
	}

	return &Client{
		contract:  c,
		chatModel: chatModel,
		template: einoprompt.FromMessages(
			schema.GoTemplate,
			schema.SystemMessage(prompts.SchemaInstruction),
			schema.UserMessage(body),
		),
		parser: schema.NewMessageJSONParser[map[string]any](&schema.MessageJSONParseConfig{
			ParseFrom: schema.MessageParseFromContent,
		}),
		schema: c.Output.SchemaText(),
	}, nil
}

func (c *Client) UseCase() contractx.UseCase {
	return c.contract.UseCase
}

// Invoke renders the prompt, calls the model exactly once and type-checks the reply
// against the contract's OutputShape. Every error it returns is a *contract.Failure.
func (c *Client) Invoke(ctx context.Context, req contractx.Request) (contractx.Output, error) {
	if req.UseCase != "" && req.UseCase != c.contract.UseCase {
		return nil, c.fail(contractx.KindUnknown, fmt.Errorf("%w: client for %s got request for %s",
			contractx.ErrValidation, c.contract.UseCase, req.UseCase))
	}

	messages, err := c.template.Format(ctx, c.variables(req.Input))
	if err != nil {
		return nil, c.fail(contractx.KindUnknown, fmt.Errorf("format prompt: %w", err))
	}

	logger := zerolog.Ctx(ctx)
	logger.Debug().Int("messages", len(messages)).Msg("invoking model")

	msg, err := c.chatModel.Generate(ctx, messages)
	if err != nil {
		return nil, c.classify(ctx, err)
	}
	if msg == nil {
		return nil, c.fail(contractx.KindUnknown, errors.New("model returned no message"))
	}

	content := StripFences(msg.Content)
	if content == "" {
		return nil, c.fail(contractx.KindSchemaViolation, errors.New("model returned empty content"))
	}

	record, err := c.parser.Parse(ctx, &schema.Message{Role: schema.Assistant, Content: content})
	if err != nil {
		return nil, c.fail(contractx.KindSchemaViolation, fmt.Errorf("decode model json: %w", err))
	}
	if err := c.contract.Output.Check(record); err != nil {
		return nil, c.fail(contractx.KindSchemaViolation, err)
	}

	return contractx.Output(record), nil
}

func (c *Client) variables(in contractx.Input) map[string]any {
	vars := make(map[string]any, len(in)+2)
	for k, v := range in {
		vars[k] = v
	}
	vars["outputSchema"] = c.schema
	vars["disclaimer"] = c.contract.Disclaimer
	return vars
}

// classify keeps the kind a backend already tagged and reports everything else,
// including cancellation and timeouts, as unknown.
func (c *Client) classify(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return c.fail(contractx.KindUnknown, fmt.Errorf("%w: %v", ctxErr, err))
	}
	var tagged *contractx.Failure
	if errors.As(err, &tagged) {
		return &contractx.Failure{
			Kind:    tagged.Kind,
			UseCase: c.contract.UseCase,
			Status:  tagged.Status,
			Err:     err,
		}
	}
	return c.fail(contractx.KindUnknown, err)
}

func (c *Client) fail(kind contractx.FailureKind, err error) *contractx.Failure {
	return &contractx.Failure{Kind: kind, UseCase: c.contract.UseCase, Err: err}
}

// StripFences removes a surrounding ```json ... ``` block some models add despite
// being told not to.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
