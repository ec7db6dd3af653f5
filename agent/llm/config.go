package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/rishi-noob/soulsyncmain/agent/contract"
	geminix "github.com/rishi-noob/soulsyncmain/pkg/gemini"
	openrouterx "github.com/rishi-noob/soulsyncmain/pkg/openrouter"
)

type Backend string

const (
	// BackendOpenAI pins replies with a strict json_schema response format.
	BackendOpenAI Backend = "openai"
	// BackendEino relies on the prompt's schema instruction only.
	BackendEino Backend = "eino"
	// BackendGemini uses a genai response schema plus per-contract safety settings.
	BackendGemini Backend = "gemini"
)

// Config is loaded with prefix LLM.
type Config struct {
	Backend            Backend       `envconfig:"BACKEND" split_words:"true" default:"openai"`
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" default:"openai/gpt-4o-mini"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true" default:"SoulSync"`

	ChatAdviceModel       string  `envconfig:"CHAT_ADVICE_MODEL" split_words:"true"`
	WellnessModel         string  `envconfig:"WELLNESS_MODEL" split_words:"true"`
	ModerationModel       string  `envconfig:"MODERATION_MODEL" split_words:"true"`
	JournalModel          string  `envconfig:"JOURNAL_MODEL" split_words:"true"`
	ChatAdviceTemperature float32 `envconfig:"CHAT_ADVICE_TEMPERATURE" split_words:"true" default:"-1"`
	WellnessTemperature   float32 `envconfig:"WELLNESS_TEMPERATURE" split_words:"true" default:"-1"`
	ModerationTemperature float32 `envconfig:"MODERATION_TEMPERATURE" split_words:"true" default:"-1"`
	JournalTemperature    float32 `envconfig:"JOURNAL_TEMPERATURE" split_words:"true" default:"-1"`

	GeminiAPIKey  string `envconfig:"GEMINI_API_KEY" split_words:"true"`
	GeminiModel   string `envconfig:"GEMINI_MODEL" split_words:"true" default:"gemini-2.5-flash"`
	GeminiBaseURL string `envconfig:"GEMINI_BASE_URL" split_words:"true"`
}

func (c Config) Validate() error {
	switch c.backend() {
	case BackendOpenAI, BackendEino:
		if strings.TrimSpace(c.APIKey) == "" {
			return fmt.Errorf("%w: llm api key is required", contractx.ErrValidation)
		}
		if strings.TrimSpace(c.Model) == "" {
			return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
		}
	case BackendGemini:
		if strings.TrimSpace(c.GeminiAPIKey) == "" {
			return fmt.Errorf("%w: gemini api key is required", contractx.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown llm backend %q", contractx.ErrValidation, c.Backend)
	}
	return nil
}

func (c Config) backend() Backend {
	b := Backend(strings.ToLower(strings.TrimSpace(string(c.Backend))))
	if b == "" {
		return BackendOpenAI
	}
	return b
}

// modelFor resolves the model name and temperature for a use case, falling back
// to the defaults when no override is set.
func (c Config) modelFor(useCase contractx.UseCase, defaultModel string) (string, float32) {
	modelName := strings.TrimSpace(defaultModel)
	temp := c.Temperature

	var (
		override     string
		overrideTemp float32 = -1
	)
	switch useCase {
	case contractx.UseCaseChatAdvice:
		override, overrideTemp = c.ChatAdviceModel, c.ChatAdviceTemperature
	case contractx.UseCaseWellnessReminders:
		override, overrideTemp = c.WellnessModel, c.WellnessTemperature
	case contractx.UseCaseForumModeration:
		override, overrideTemp = c.ModerationModel, c.ModerationTemperature
	case contractx.UseCaseJournalSummary:
		override, overrideTemp = c.JournalModel, c.JournalTemperature
	}
	if v := strings.TrimSpace(override); v != "" {
		modelName = v
	}
	if overrideTemp >= 0 {
		temp = overrideTemp
	}
	return modelName, temp
}

func (c Config) OpenRouterFor(useCase contractx.UseCase) openrouterx.Config {
	modelName, temp := c.modelFor(useCase, c.Model)

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}

func (c Config) GeminiFor(useCase contractx.UseCase) geminix.Config {
	modelName, temp := c.modelFor(useCase, c.GeminiModel)

	return geminix.Config{
		APIKey:          strings.TrimSpace(c.GeminiAPIKey),
		Model:           modelName,
		BaseURL:         strings.TrimSpace(c.GeminiBaseURL),
		Temperature:     temp,
		MaxOutputTokens: int32(c.MaxCompletionToken),
		Timeout:         c.Timeout,
	}
}
