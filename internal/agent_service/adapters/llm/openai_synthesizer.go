package llm

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/contractor-agent/golang_services/internal/agent_service/domain"
)

const (
	DefaultModel       = "gpt-4-turbo-preview"
	DefaultTemperature = float32(0.7)
)

// Config configures the OpenAI-backed synthesizer. BaseURL is optional and
// must include the /v1 suffix when set.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
}

// OpenAISynthesizer implements domain.ScriptSynthesizer with a single chat completion.
type OpenAISynthesizer struct {
	client      *openai.Client
	model       string
	temperature float32
	logger      *slog.Logger
}

var _ domain.ScriptSynthesizer = (*OpenAISynthesizer)(nil)

func NewOpenAISynthesizer(cfg Config, logger *slog.Logger) *OpenAISynthesizer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}
	return &OpenAISynthesizer{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		temperature: temperature,
		logger:      logger.With("component", "openai_synthesizer"),
	}
}

// Synthesize asks the model for a call script. An empty completion yields an
// empty script rather than an error.
func (s *OpenAISynthesizer) Synthesize(ctx context.Context, questions []string) (domain.ConversationScript, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemInstruction},
			{Role: openai.ChatMessageRoleUser, Content: userInstruction(questions)},
		},
		Temperature: s.temperature,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Chat completion failed", "error", err, "model", s.model)
		return "", fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}
	if len(resp.Choices) == 0 {
		s.logger.WarnContext(ctx, "Chat completion returned no choices", "model", s.model)
		return "", nil
	}

	script := resp.Choices[0].Message.Content
	s.logger.InfoContext(ctx, "Conversation script generated", "questions", len(questions), "script_len", len(script))
	return domain.ConversationScript(script), nil
}
