package question

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// GeminiConfig configures the Gemini-backed generator.
type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// Gemini phrases questions via the Google Gemini API.
type Gemini struct {
	client      *genai.Client
	model       string
	temperature float32
	timeout     time.Duration
}

// NewGemini creates the Gemini generator. With an empty API key it returns a
// generator that reports itself unavailable rather than an error, so the
// chain can still be assembled.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	g := &Gemini{
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
	}
	if g.model == "" {
		g.model = "gemini-2.0-flash"
	}
	if g.timeout <= 0 {
		g.timeout = 10 * time.Second
	}
	if cfg.APIKey == "" {
		return g, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	g.client = client
	return g, nil
}

// Name implements Generator.
func (g *Gemini) Name() string { return "gemini" }

// Available implements Generator. The Gemini SDK exposes no cheap liveness
// probe, so availability means a configured client.
func (g *Gemini) Available(ctx context.Context) bool {
	return g.client != nil
}

// Generate implements Generator.
func (g *Gemini) Generate(ctx context.Context, qc Context) (Question, error) {
	if g.client == nil {
		return Question{}, errors.New("gemini api key not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	contents := []*genai.Content{
		{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: buildUserPrompt(qc)}},
		},
	}

	temperature := g.temperature
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}},
		Temperature:       &temperature,
	})
	if err != nil {
		return Question{}, fmt.Errorf("gemini generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return Question{}, errors.New("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Text == "" {
			continue
		}
		sb.WriteString(part.Text)
	}

	return parseQuestion(sb.String(), qc.TargetField()), nil
}
