package question

import (
	"context"
	"errors"
	"log/slog"
)

// Chain tries generators in order and returns the first success. A
// deterministic Fallback is always appended as the terminal generator, so
// Generate succeeds even when every LLM provider is down or unconfigured.
type Chain struct {
	generators []Generator
}

// NewChain assembles a chain from the given providers plus the terminal
// fallback.
func NewChain(providers ...Generator) *Chain {
	generators := make([]Generator, 0, len(providers)+1)
	generators = append(generators, providers...)
	generators = append(generators, NewFallback())
	return &Chain{generators: generators}
}

// Generate implements Generator by delegation: the first provider to succeed
// wins. Provider failures are logged and absorbed.
func (c *Chain) Generate(ctx context.Context, qc Context) (Question, error) {
	for _, g := range c.generators {
		q, err := g.Generate(ctx, qc)
		if err != nil {
			slog.Warn("question generator failed, falling through",
				"generator", g.Name(),
				"field", qc.TargetField(),
				"error", err)
			continue
		}
		slog.Debug("question generated", "generator", g.Name(), "field", q.Field)
		return q, nil
	}
	return Question{}, errors.New("no question generator configured")
}

// ProviderStatus reports one generator's availability for the status surface.
type ProviderStatus struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// Status probes every generator in chain order without generating anything.
func (c *Chain) Status(ctx context.Context) []ProviderStatus {
	statuses := make([]ProviderStatus, 0, len(c.generators))
	for _, g := range c.generators {
		statuses = append(statuses, ProviderStatus{
			Name:      g.Name(),
			Available: g.Available(ctx),
		})
	}
	return statuses
}
