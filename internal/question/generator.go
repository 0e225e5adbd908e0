// Package question produces the next profile question to ask a user.
//
// Two LLM-backed generators (OpenAI, Gemini) phrase questions
// conversationally; a deterministic fallback guarantees a question even
// with no API keys configured. A Chain runs them in order and returns
// the first success, so question generation never fails and never
// blocks past its per-provider timeout.
package question

import (
	"context"

	"github.com/lumehealth/intake/internal/profile"
)

// Question is a single prompt for the user.
type Question struct {
	Text  string `json:"question"`
	Field string `json:"field"`
	Hint  string `json:"hint,omitempty"`
}

// Context carries the profile state a generator needs to phrase the next
// question.
type Context struct {
	Profile       profile.Profile
	MissingFields []string
	Completion    float64
}

// TargetField returns the field the next question must ask for: the head of
// MissingFields, or "" when the profile is complete.
func (c Context) TargetField() string {
	if len(c.MissingFields) == 0 {
		return ""
	}
	return c.MissingFields[0]
}

// Generator phrases the next question for a profile. Consumers such as the
// conversation orchestrator use this interface instead of depending on a
// concrete provider.
type Generator interface {
	// Name identifies the generator in logs and status reports.
	Name() string

	// Available reports whether the generator can currently serve requests.
	Available(ctx context.Context) bool

	// Generate returns the next question. The returned question always
	// targets qc.TargetField(), whatever the underlying model suggested.
	Generate(ctx context.Context, qc Context) (Question, error)
}
