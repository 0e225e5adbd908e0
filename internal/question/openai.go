package question

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures the OpenAI-backed generator.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// OpenAI phrases questions via the OpenAI chat completion API, or any
// OpenAI-compatible server reachable through BaseURL.
type OpenAI struct {
	client      *openai.Client
	apiKey      string
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
}

// NewOpenAI creates the OpenAI generator. An empty API key is allowed: the
// generator reports itself unavailable and the chain falls through.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4
	}

	return &OpenAI{
		client:      openai.NewClientWithConfig(clientCfg),
		apiKey:      cfg.APIKey,
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     timeout,
	}
}

// Name implements Generator.
func (o *OpenAI) Name() string { return "openai" }

// Available implements Generator. It probes the models endpoint with a short
// timeout, so a configured but unreachable endpoint reports unavailable.
func (o *OpenAI) Available(ctx context.Context) bool {
	if o.apiKey == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if _, err := o.client.ListModels(ctx); err != nil {
		slog.Debug("openai availability probe failed", "error", err)
		return false
	}
	return true
}

// Generate implements Generator.
func (o *OpenAI) Generate(ctx context.Context, qc Context) (Question, error) {
	if o.apiKey == "" {
		return Question{}, errors.New("openai api key not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(qc)},
		},
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
	})
	if err != nil {
		return Question{}, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Question{}, errors.New("openai returned no choices")
	}

	return parseQuestion(resp.Choices[0].Message.Content, qc.TargetField()), nil
}
